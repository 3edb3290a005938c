// Package memory provides an in-process cart store useful for tests and
// ephemeral runs.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/storefront/internal/domain/cart"
)

var _ cart.Store = (*SlotStore)(nil)

// SlotStore keeps the persisted identifiers in a slice.
type SlotStore struct {
	mu  sync.Mutex
	ids []string
}

// NewSlotStore returns a SlotStore preloaded with ids.
func NewSlotStore(ids ...string) *SlotStore {
	return &SlotStore{ids: slices.Clone(ids)}
}

// Load returns a copy of the stored identifiers.
func (s *SlotStore) Load(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out, nil
}

// Append adds productID to the end of the list.
func (s *SlotStore) Append(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, productID)
	return nil
}

// RemoveAt deletes the identifier at index; out of range is a no-op.
func (s *SlotStore) RemoveAt(_ context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.ids) {
		return nil
	}
	s.ids = slices.Delete(s.ids, index, index+1)
	return nil
}

// Clear empties the list.
func (s *SlotStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	return nil
}
