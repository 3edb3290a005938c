// Package file implements cart.Store as one JSON file per named slot, the
// durable equivalent of a browser local-storage entry.
package file

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/storage"
)

var _ cart.Store = (*SlotStore)(nil)

var errCorrupt = errors.New("corrupt slot")

// SlotStore keeps the identifiers of one slot in <dir>/<key>.json. Writes go
// through a temporary file and a rename so a crash never leaves a partial
// slot behind.
type SlotStore struct {
	dir string
	key string

	mu sync.Mutex
}

// NewSlotStore returns a SlotStore for slot key under dir. The directory is
// created on first write.
func NewSlotStore(dir, key string) *SlotStore {
	return &SlotStore{dir: dir, key: key}
}

// Path returns the file backing the slot.
func (s *SlotStore) Path() string {
	return filepath.Join(s.dir, s.key+".json")
}

// Load returns the persisted identifiers. A missing file is an empty slot.
func (s *SlotStore) Load(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Append adds productID to the end of the slot. A slot that does not decode
// is overwritten; any other read failure is returned.
func (s *SlotStore) Append(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.read()
	if err != nil && !errors.Is(err, errCorrupt) {
		return err
	}
	return s.write(append(ids, productID))
}

// RemoveAt deletes the identifier at index. Out of range, a missing slot or an
// unreadable slot are no-ops.
func (s *SlotStore) RemoveAt(_ context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.read()
	if err != nil || index < 0 || index >= len(ids) {
		return nil
	}
	return s.write(slices.Delete(ids, index, index+1))
}

// Clear resets the slot to an empty list.
func (s *SlotStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(nil)
}

func (s *SlotStore) read() ([]string, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return []string{}, &cart.StorageError{Op: "read", Key: s.key, Err: err}
	}
	ids, err := storage.DecodeIDs(data)
	if err != nil {
		return []string{}, &cart.StorageError{Op: "read", Key: s.key, Err: errors.Errorf("%w: %v", errCorrupt, err)}
	}
	return ids, nil
}

func (s *SlotStore) write(ids []string) error {
	if err := s.writeFile(storage.EncodeIDs(ids)); err != nil {
		return &cart.StorageError{Op: "write", Key: s.key, Err: err}
	}
	return nil
}

func (s *SlotStore) writeFile(data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "create slot dir")
	}
	tmp, err := os.CreateTemp(s.dir, s.key+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	return os.Rename(tmp.Name(), s.Path())
}
