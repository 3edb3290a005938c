//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/storefront/internal/domain/cart"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.Run(ctx, "postgres:17-alpine",
		testcontainers.WithExposedPorts("5432/tcp"),
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_USER":     "storefront",
			"POSTGRES_PASSWORD": "storefront",
			"POSTGRES_DB":       "storefront",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())
	pool, err := NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func TestSlotStore(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)
	s := NewSlotStore(pool, "cartItems")

	ids, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []string{"A", "B", "C", "D"} {
		require.NoError(t, s.Append(ctx, id))
	}
	require.NoError(t, s.RemoveAt(ctx, 1))
	require.NoError(t, s.RemoveAt(ctx, 10))
	require.NoError(t, s.RemoveAt(ctx, -1))

	ids, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, ids)

	require.NoError(t, s.Clear(ctx))
	ids, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.Ping(ctx))
}

func TestSlotStore_CorruptSlot(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)
	s := NewSlotStore(pool, "cartItems")

	_, err := pool.Exec(ctx, `INSERT INTO storage_slots (name, value) VALUES ('cartItems', '{"a": 1}'::jsonb)`)
	require.NoError(t, err)

	ids, err := s.Load(ctx)
	assert.Empty(t, ids)
	var se *cart.StorageError
	require.ErrorAs(t, err, &se)

	// Appending to a non-array slot replaces it.
	require.NoError(t, s.Append(ctx, "A"))
	ids, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids)
}

func TestSlotStore_KeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)

	require.NoError(t, NewSlotStore(pool, "one").Append(ctx, "X"))

	ids, err := NewSlotStore(pool, "two").Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
