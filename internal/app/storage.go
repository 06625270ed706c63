package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/myshop/internal/catalog"
	"github.com/xenking/myshop/internal/domain/order"
	"github.com/xenking/myshop/internal/domain/product"
	"github.com/xenking/myshop/internal/storage/memory"
	"github.com/xenking/myshop/internal/storage/pebble"
	"github.com/xenking/myshop/internal/storage/postgres"
)

// ProductStore is a product repository that also accepts catalog upserts.
type ProductStore interface {
	product.Repository
	catalog.Writer
}

// Storage bundles the repositories of one backend.
type Storage struct {
	Products ProductStore
	Orders   order.Repository

	ping  func(ctx context.Context) error
	close func() error
}

// Ping checks that the backend is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backend.
func (s *Storage) Close() error {
	return s.close()
}

// OpenStorage opens the backend selected by cfg.Driver. The postgres schema
// is migrated on open.
func OpenStorage(ctx context.Context, lg *zap.Logger, cfg StorageConfig) (*Storage, error) {
	lg.Info("Opening storage", zap.String("driver", cfg.Driver))

	var s *Storage
	switch cfg.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		s = &Storage{
			Products: postgres.NewProductRepository(pool),
			Orders:   postgres.NewOrderRepository(pool),
			ping:     pool.Ping,
			close: func() error {
				pool.Close()
				return nil
			},
		}
	case DriverPebble:
		db, err := pebble.Open(cfg.PebbleDir)
		if err != nil {
			return nil, errors.Wrap(err, "open pebble")
		}
		s = &Storage{
			Products: pebble.NewProductStore(db),
			Orders:   pebble.NewOrderStore(db),
			ping:     db.Ping,
			close:    db.Close,
		}
	case DriverMemory:
		s = &Storage{
			Products: memory.New(product.Key),
			Orders:   memory.New(order.Key),
			ping:     func(context.Context) error { return nil },
			close:    func() error { return nil },
		}
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}

	if cfg.SeedDemo {
		if err := catalog.Seed(ctx, s.Products, catalog.Demo()); err != nil {
			_ = s.Close()
			return nil, errors.Wrap(err, "seed demo catalog")
		}
		lg.Info("Demo catalog loaded", zap.Int("products", len(catalog.Demo())))
	}
	return s, nil
}
