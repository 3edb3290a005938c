// Command seed-cart replaces the persisted cart slot with the given product
// ids, so the storefront restores a known cart on its next start.
//
//	seed-cart -database-url postgres://... MLB101 MLB202
//	seed-cart -dir data MLB101
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/storage/file"
	"github.com/xenking/storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		dir         string
		key         string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&dir, "dir", "", "file store directory, used when no database URL is set")
	flag.StringVar(&key, "key", "cartItems", "cart slot name")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && dir == "" {
		slog.Error("a store is required: set --database-url, DATABASE_URL or --dir")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, dir, key, flag.Args()); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully", slog.String("key", key), slog.Int("items", flag.NArg()))
}

func run(ctx context.Context, databaseURL, dir, key string, ids []string) error {
	var store cart.Store
	if databaseURL != "" {
		slog.Info("connecting to database")

		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()

		slog.Info("running migrations")

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		store = postgres.NewSlotStore(pool, key)
	} else {
		s := file.NewSlotStore(dir, key)
		slog.Info("using file store", slog.String("path", s.Path()))
		store = s
	}

	if err := store.Clear(ctx); err != nil {
		return errors.Wrap(err, "clear slot")
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := store.Append(ctx, id); err != nil {
			return errors.Wrapf(err, "append %s", id)
		}
		slog.Info("seeded cart item", slog.String("id", id))
	}
	return nil
}
