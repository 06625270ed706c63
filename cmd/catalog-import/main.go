// Command catalog-import loads NDJSON product files, optionally
// gzip-compressed, into the configured product store. Repeated product IDs
// keep their first occurrence.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/myshop/internal/app"
	"github.com/xenking/myshop/internal/catalog"
)

type config struct {
	Driver      string   `default:"postgres" flag:"driver" usage:"Storage backend: postgres, pebble or memory"`
	DatabaseURL string   `flag:"database-url" usage:"PostgreSQL connection URL (or DATABASE_URL env)"`
	PebbleDir   string   `default:"data/pebble" flag:"pebble-dir" usage:"Pebble data directory"`
	Files       []string `flag:"files" usage:"Comma-separated catalog files (.ndjson or .ndjson.gz)"`
	Expected    uint     `default:"1000000" flag:"expected" usage:"Expected number of products, sizes the bloom filter"`
	BatchSize   int      `default:"500" flag:"batch-size" usage:"Products per write batch"`
}

func main() {
	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	var cfg config
	if err := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "MYSHOP_IMPORT",
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
		lg.Fatal("Catalog import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, cfg config) error {
	if len(cfg.Files) == 0 {
		return errors.New("no input files: set --files")
	}
	for _, f := range cfg.Files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
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

	im := catalog.NewImporter(store.Products,
		catalog.WithLogger(lg),
		catalog.WithEstimates(cfg.Expected, 0),
		catalog.WithBatchSize(cfg.BatchSize),
	)
	stats, err := im.Import(ctx, cfg.Files...)
	if err != nil {
		return errors.Wrap(err, "import")
	}

	lg.Info("Catalog import completed",
		zap.Int("read", stats.Read),
		zap.Int("written", stats.Written),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("suspects", stats.Suspects),
	)
	return nil
}
