package catalog

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/myshop/internal/domain/product"
)

const (
	defaultCapacity  = 1_000_000
	defaultFPR       = 0.001
	defaultBatchSize = 500
)

// Importer loads catalog files into a Writer.
type Importer struct {
	w         Writer
	lg        *zap.Logger
	capacity  uint
	fpr       float64
	batchSize int
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the progress logger.
func WithLogger(lg *zap.Logger) Option {
	return func(im *Importer) { im.lg = lg }
}

// WithEstimates sizes the bloom filter for n products at the given false
// positive rate.
func WithEstimates(n uint, fpr float64) Option {
	return func(im *Importer) {
		if n > 0 {
			im.capacity = n
		}
		if fpr > 0 && fpr < 1 {
			im.fpr = fpr
		}
	}
}

// WithBatchSize sets how many products are sent per PutBatch call.
func WithBatchSize(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// NewImporter returns an Importer writing to w.
func NewImporter(w Writer, opts ...Option) *Importer {
	im := &Importer{
		w:         w,
		lg:        zap.NewNop(),
		capacity:  defaultCapacity,
		fpr:       defaultFPR,
		batchSize: defaultBatchSize,
	}
	for _, o := range opts {
		o(im)
	}
	return im
}

// Import loads files in order. When an ID occurs more than once, the first
// occurrence wins and later ones are counted as duplicates.
func (im *Importer) Import(ctx context.Context, files ...string) (Stats, error) {
	var stats Stats
	if len(files) == 0 {
		return stats, nil
	}

	im.lg.Info("Pass 1: indexing product IDs", zap.Int("files", len(files)))
	suspects, err := im.findSuspects(ctx, files)
	if err != nil {
		return stats, errors.Wrap(err, "index product IDs")
	}
	stats.Suspects = len(suspects)

	im.lg.Info("Pass 2: writing products", zap.Int("suspects", len(suspects)))
	written := make(map[string]struct{}, len(suspects))
	batch := make([]product.Product, 0, im.batchSize)

	for _, path := range files {
		err := ReadFile(ctx, path, func(p product.Product) error {
			stats.Read++
			if _, ok := suspects[p.ID]; ok {
				if _, dup := written[p.ID]; dup {
					stats.Duplicates++
					return nil
				}
				written[p.ID] = struct{}{}
			}

			batch = append(batch, p)
			if len(batch) < im.batchSize {
				return nil
			}
			if err := im.flush(ctx, batch); err != nil {
				return err
			}
			stats.Written += len(batch)
			batch = batch[:0]
			return nil
		})
		if err != nil {
			return stats, errors.Wrap(err, "write products")
		}
		im.lg.Info("File imported", zap.String("path", path), zap.Int("written", stats.Written))
	}

	if err := im.flush(ctx, batch); err != nil {
		return stats, errors.Wrap(err, "write products")
	}
	stats.Written += len(batch)

	im.lg.Info("Import complete",
		zap.Int("read", stats.Read),
		zap.Int("written", stats.Written),
		zap.Int("duplicates", stats.Duplicates),
	)
	return stats, nil
}

// findSuspects streams every file concurrently into one bloom filter and
// returns the IDs that tested positive before being added. Every repeated ID
// is among them; the rest are false positives.
func (im *Importer) findSuspects(ctx context.Context, files []string) (map[string]struct{}, error) {
	var (
		mu       sync.Mutex
		filter   = bloom.NewWithEstimates(im.capacity, im.fpr)
		suspects = make(map[string]struct{})
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			return ReadFile(ctx, path, func(p product.Product) error {
				mu.Lock()
				defer mu.Unlock()
				if filter.TestAndAddString(p.ID) {
					suspects[p.ID] = struct{}{}
				}
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return suspects, nil
}

func (im *Importer) flush(ctx context.Context, batch []product.Product) error {
	if len(batch) == 0 {
		return nil
	}
	if bw, ok := im.w.(BatchWriter); ok {
		return bw.PutBatch(ctx, batch)
	}
	for _, p := range batch {
		if err := im.w.Put(ctx, p); err != nil {
			return errors.Wrapf(err, "put %s", p.ID)
		}
	}
	return nil
}
