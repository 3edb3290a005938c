package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidID is returned for identifiers that cannot name a catalog item.
var ErrInvalidID = errors.New("invalid product id")

// Product is a catalog search result as shown in the product listing.
type Product struct {
	ID           string
	Title        string
	ThumbnailURL string
}

// Detail is the canonical title and current price of a single item. The price
// is authoritative at the moment it is fetched and is not re-validated later.
type Detail struct {
	ID    string
	Title string
	Price decimal.Decimal
}

// Catalog defines read operations against the remote product catalog.
type Catalog interface {
	ListProducts(ctx context.Context, query string) ([]Product, error)
	GetProductDetail(ctx context.Context, id string) (*Detail, error)
}

// NetworkError indicates the catalog request failed in transport, timed out,
// or was answered with a non-success status.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError indicates the catalog answered with a body that is not valid
// JSON or lacks a required field.
type ParseError struct {
	Op    string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s: field %q: %v", e.Op, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: missing field %q", e.Op, e.Field)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }
