package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
)

func TestSlotStore_MissingSlotIsEmpty(t *testing.T) {
	s := NewSlotStore(t.TempDir(), "cartItems")

	ids, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSlotStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewSlotStore(dir, "cartItems")

	require.NoError(t, s.Append(ctx, "A"))
	require.NoError(t, s.Append(ctx, "B"))
	require.NoError(t, s.Append(ctx, "C"))

	data, err := os.ReadFile(filepath.Join(dir, "cartItems.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `["A","B","C"]`, string(data))

	require.NoError(t, s.RemoveAt(ctx, 0))
	require.NoError(t, s.RemoveAt(ctx, 5))

	// A fresh store over the same directory sees the same slot.
	reopened := NewSlotStore(dir, "cartItems")
	ids, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, ids)

	require.NoError(t, reopened.Clear(ctx))
	data, err = os.ReadFile(reopened.Path())
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSlotStore_CorruptSlot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cartItems.json"), []byte(`{"not":"a list"`), 0o600))
	s := NewSlotStore(dir, "cartItems")

	ids, err := s.Load(ctx)
	assert.Empty(t, ids)
	var se *cart.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "read", se.Op)
	assert.Equal(t, "cartItems", se.Key)

	// Removing from an unreadable slot is a no-op, appending overwrites it.
	require.NoError(t, s.RemoveAt(ctx, 0))
	require.NoError(t, s.Append(ctx, "A"))

	ids, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids)
}

func TestSlotStore_AppendKeepsUnreadableSlot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewSlotStore(dir, "cartItems")
	// A directory in place of the slot file fails the read without being a
	// decode error.
	require.NoError(t, os.Mkdir(s.Path(), 0o755))

	err := s.Append(ctx, "A")
	var se *cart.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "read", se.Op)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSlotStore_SeparateKeys(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := NewSlotStore(dir, "one")
	b := NewSlotStore(dir, "two")

	require.NoError(t, a.Append(ctx, "X"))

	ids, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
