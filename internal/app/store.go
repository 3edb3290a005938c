package app

import (
	"context"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/storage/file"
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/pkg/health"
)

// cartStore is the configured cart.Store together with its readiness check
// and cleanup.
type cartStore struct {
	cart.Store
	check health.CheckFunc
	close func()
}

// openStore builds the cart store selected by cfg.Driver. The postgres driver
// connects and migrates before returning.
func openStore(ctx context.Context, cfg StoreConfig) (*cartStore, error) {
	lg := zctx.From(ctx)

	switch cfg.Driver {
	case DriverMemory:
		lg.Warn("Using in-memory cart store, the cart is lost on restart")
		return &cartStore{Store: memory.NewSlotStore(), close: func() {}}, nil

	case DriverFile:
		s := file.NewSlotStore(cfg.Dir, cfg.Key)
		lg.Info("Using file cart store", zap.String("path", s.Path()))
		return &cartStore{
			Store: s,
			check: dirCheck(cfg.Dir),
			close: func() {},
		}, nil

	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		s := postgres.NewSlotStore(pool, cfg.Key)
		lg.Info("Using postgres cart store", zap.String("key", cfg.Key))
		return &cartStore{Store: s, check: s.Ping, close: pool.Close}, nil

	default:
		return nil, errors.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// dirCheck passes while dir is missing (it is created on first write) or is a
// directory.
func dirCheck(dir string) health.CheckFunc {
	return func(context.Context) error {
		fi, err := os.Stat(dir)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil
		case err != nil:
			return errors.Wrap(err, "stat store dir")
		case !fi.IsDir():
			return errors.Errorf("%s is not a directory", dir)
		}
		return nil
	}
}
