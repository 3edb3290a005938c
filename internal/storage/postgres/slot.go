package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/storage"
)

const (
	loadSlotSQL = `SELECT value::text FROM storage_slots WHERE name = $1`

	appendSlotSQL = `INSERT INTO storage_slots (name, value) VALUES ($1, jsonb_build_array($2::text))
		ON CONFLICT (name) DO UPDATE SET
			value = CASE WHEN jsonb_typeof(storage_slots.value) = 'array'
				THEN storage_slots.value || EXCLUDED.value
				ELSE EXCLUDED.value END,
			updated_at = now()`

	removeAtSlotSQL = `UPDATE storage_slots SET value = value - $2::int, updated_at = now()
		WHERE name = $1 AND jsonb_typeof(value) = 'array'`

	clearSlotSQL = `INSERT INTO storage_slots (name, value) VALUES ($1, '[]'::jsonb)
		ON CONFLICT (name) DO UPDATE SET value = '[]'::jsonb, updated_at = now()`
)

var _ cart.Store = (*SlotStore)(nil)

// SlotStore implements cart.Store on a row of the storage_slots table. Each
// operation is a single statement, so concurrent writers are last-write-wins
// per statement.
type SlotStore struct {
	pool *pgxpool.Pool
	key  string
}

// NewSlotStore returns a SlotStore for slot key that uses the given pool.
func NewSlotStore(pool *pgxpool.Pool, key string) *SlotStore {
	return &SlotStore{pool: pool, key: key}
}

// Load returns the persisted identifiers. A missing row is an empty slot.
func (s *SlotStore) Load(ctx context.Context) ([]string, error) {
	var raw string
	err := s.pool.QueryRow(ctx, loadSlotSQL, s.key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return []string{}, s.storageErr("read", err)
	}

	ids, err := storage.DecodeIDs([]byte(raw))
	if err != nil {
		return []string{}, s.storageErr("read", err)
	}
	return ids, nil
}

// Append adds productID to the end of the slot.
func (s *SlotStore) Append(ctx context.Context, productID string) error {
	if _, err := s.pool.Exec(ctx, appendSlotSQL, s.key, productID); err != nil {
		return s.storageErr("append", err)
	}
	return nil
}

// RemoveAt deletes the identifier at index. Postgres ignores out of range
// indexes; negative ones are rejected here since jsonb counts them from the end.
func (s *SlotStore) RemoveAt(ctx context.Context, index int) error {
	if index < 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, removeAtSlotSQL, s.key, index); err != nil {
		return s.storageErr("remove", err)
	}
	return nil
}

// Clear resets the slot to an empty list.
func (s *SlotStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, clearSlotSQL, s.key); err != nil {
		return s.storageErr("clear", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SlotStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *SlotStore) storageErr(op string, err error) error {
	return &cart.StorageError{Op: op, Key: s.key, Err: err}
}
