// Package pebble implements the repository abstraction on top of an embedded
// Pebble key-value store. Every entity type lives under its own key
// namespace within a single database.
package pebble

import (
	"context"
	"iter"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/myshop/internal/domain/repository"
)

// ErrClosed is returned by Ping after Close.
var ErrClosed = errors.New("pebble: database closed")

// DB owns a Pebble database shared by several Stores.
type DB struct {
	db     *pebble.DB
	closed atomic.Bool
}

// Open opens (or creates) the database in dir.
func Open(dir string) (*DB, error) {
	d, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "pebble open")
	}
	return &DB{db: d}, nil
}

// Ping reports whether the database is usable.
func (d *DB) Ping(context.Context) error {
	if d.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close flushes and closes the database.
func (d *DB) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	return d.db.Close()
}

// Codec converts entities to and from their JSON value representation.
type Codec[T any] interface {
	Encode(e *jx.Encoder, v T)
	Decode(d *jx.Decoder) (T, error)
}

// Store is a repository.Repository over one key namespace. Keys are
// "<namespace>/<id>", so Query yields entities in ID byte order.
type Store[T any] struct {
	db     *DB
	prefix []byte
	key    func(T) string
	codec  Codec[T]

	// addMu serializes the exists-then-set sequence in Add.
	addMu sync.Mutex
}

var _ repository.Repository[struct{}] = (*Store[struct{}])(nil)

// NewStore binds a Store for namespace.
func NewStore[T any](db *DB, namespace string, key func(T) string, codec Codec[T]) *Store[T] {
	return &Store[T]{
		db:     db,
		prefix: []byte(namespace + "/"),
		key:    key,
		codec:  codec,
	}
}

func (s *Store[T]) dbKey(id string) []byte {
	k := make([]byte, 0, len(s.prefix)+len(id))
	k = append(k, s.prefix...)
	return append(k, id...)
}

func (s *Store[T]) encode(v T) []byte {
	var e jx.Encoder
	s.codec.Encode(&e, v)
	return e.Bytes()
}

// Add stores entity durably. It fails with ErrConflict if the ID exists.
func (s *Store[T]) Add(_ context.Context, entity T) error {
	id := s.key(entity)
	k := s.dbKey(id)

	s.addMu.Lock()
	defer s.addMu.Unlock()

	_, closer, err := s.db.db.Get(k)
	switch {
	case err == nil:
		_ = closer.Close()
		return &repository.StorageError{Op: "add " + id, Err: repository.ErrConflict}
	case !errors.Is(err, pebble.ErrNotFound):
		return repository.Wrap("add "+id, err)
	}

	if err := s.db.db.Set(k, s.encode(entity), pebble.Sync); err != nil {
		return repository.Wrap("add "+id, err)
	}
	return nil
}

// Put inserts or replaces entity.
func (s *Store[T]) Put(_ context.Context, entity T) error {
	id := s.key(entity)
	if err := s.db.db.Set(s.dbKey(id), s.encode(entity), pebble.Sync); err != nil {
		return repository.Wrap("put "+id, err)
	}
	return nil
}

// GetByID returns the entity or repository.ErrNotFound.
func (s *Store[T]) GetByID(_ context.Context, id string) (T, error) {
	var zero T

	val, closer, err := s.db.db.Get(s.dbKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return zero, repository.ErrNotFound
		}
		return zero, repository.Wrap("get "+id, err)
	}
	defer func() { _ = closer.Close() }()

	v, err := s.codec.Decode(jx.DecodeBytes(val))
	if err != nil {
		return zero, repository.Wrap("decode "+id, err)
	}
	return v, nil
}

// Query scans the namespace lazily; the iterator is closed when the consumer
// stops or the scan ends.
func (s *Store[T]) Query(ctx context.Context, match repository.Predicate[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		it, err := s.db.db.NewIter(&pebble.IterOptions{
			LowerBound: s.prefix,
			UpperBound: prefixEnd(s.prefix),
		})
		if err != nil {
			yield(zero, repository.Wrap("query", err))
			return
		}
		defer func() { _ = it.Close() }()

		for it.First(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				yield(zero, repository.Wrap("query", err))
				return
			}
			v, err := s.codec.Decode(jx.DecodeBytes(it.Value()))
			if err != nil {
				yield(zero, repository.Wrap("decode "+string(it.Key()), err))
				return
			}
			if !match.Match(v) {
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := it.Error(); err != nil {
			yield(zero, repository.Wrap("query", err))
		}
	}
}

// prefixEnd returns the smallest key greater than every key with prefix p.
func prefixEnd(p []byte) []byte {
	end := make([]byte, len(p))
	copy(end, p)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
