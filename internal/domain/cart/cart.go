package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNoSuchRow is returned when a cart position does not refer to a row.
var ErrNoSuchRow = errors.New("no such cart row")

// Entry is a single cart row. The entry list owned by the Controller is the
// only source of truth: rendered rows and persisted identifiers are both
// projections of it.
type Entry struct {
	ProductID string
	Title     string
	Price     decimal.Decimal
	// Unavailable marks a restored entry whose detail could not be fetched.
	// It keeps its position and contributes nothing to the total.
	Unavailable bool
}

// View is a point-in-time copy of the cart for rendering.
type View struct {
	Entries []Entry
	Total   decimal.Decimal
}

// Store persists the ordered list of cart product identifiers in one named
// slot. Operations are last-write-wins; callers serialize writers.
type Store interface {
	// Load returns the persisted identifiers. An absent slot is an empty list.
	// An unreadable slot returns an empty list and a *StorageError.
	Load(ctx context.Context) ([]string, error)
	Append(ctx context.Context, productID string) error
	// RemoveAt deletes the identifier at index. Out of range is a no-op.
	RemoveAt(ctx context.Context, index int) error
	Clear(ctx context.Context) error
}

// StorageError indicates the persistent slot could not be read or written.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Progress reports in-flight network work to the presentation layer. Start
// returns a release func that callers defer so the work is reported finished
// on every exit path.
type Progress interface {
	Start(label string) (done func())
}

type noopProgress struct{}

func (noopProgress) Start(string) func() { return func() {} }
