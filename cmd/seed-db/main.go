// Command seed-db loads the demo catalog, or a JSON array of products, into
// the configured product store.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/myshop/internal/app"
	"github.com/xenking/myshop/internal/catalog"
	"github.com/xenking/myshop/internal/domain/product"
)

type config struct {
	Driver       string `default:"postgres" flag:"driver" usage:"Storage backend: postgres or pebble"`
	DatabaseURL  string `flag:"database-url" usage:"PostgreSQL connection URL (or DATABASE_URL env)"`
	PebbleDir    string `default:"data/pebble" flag:"pebble-dir" usage:"Pebble data directory"`
	ProductsFile string `flag:"products-file" usage:"JSON array of products; the demo catalog is used when empty"`
}

func main() {
	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	var cfg config
	if err := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "MYSHOP_SEED",
		SkipFiles: true,
	}).Load(); err != nil {
		lg.Fatal("Load config", zap.Error(err))
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, cfg); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, cfg config) error {
	if cfg.Driver == app.DriverMemory {
		return errors.New("the memory driver does not persist; use postgres or pebble")
	}

	products := catalog.Demo()
	if cfg.ProductsFile != "" {
		var err error
		if products, err = readProducts(cfg.ProductsFile); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}

	store, err := app.OpenStorage(ctx, lg, app.StorageConfig{
		Driver:      cfg.Driver,
		DatabaseURL: cfg.DatabaseURL,
		PebbleDir:   cfg.PebbleDir,
	})
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer func() { _ = store.Close() }()

	if err := catalog.Seed(ctx, store.Products, products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	lg.Info("Products seeded", zap.Int("count", len(products)))
	return nil
}

func readProducts(path string) ([]product.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var products []product.Product
	if err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p, err := catalog.DecodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product %d", len(products))
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return products, nil
}
