// Package repository defines the generic persistence abstraction shared by all
// aggregates. Each aggregate binds its own instance, e.g.
// Repository[product.Product] and Repository[order.Order].
package repository

import (
	"context"
	"fmt"
	"iter"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned by GetByID when no entity has the given ID.
	ErrNotFound = errors.New("entity not found")
	// ErrConflict is wrapped in a StorageError when Add is called with an ID
	// that already exists.
	ErrConflict = errors.New("entity already exists")
)

// StorageError reports a failure of the backing store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Wrap returns err wrapped in a StorageError for op, or nil if err is nil.
// ErrNotFound passes through unchanged.
func Wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Predicate selects entities in Query. A nil Predicate matches everything.
type Predicate[T any] func(T) bool

// Match reports whether v satisfies p.
func (p Predicate[T]) Match(v T) bool {
	return p == nil || p(v)
}

// Repository is a persistence port for a single entity type.
//
// Add is not idempotent: two entities with distinct IDs always produce two
// records. Query is lazy; the backing cursor is released as soon as the
// consumer stops iterating. Errors are yielded with a zero entity and end the
// sequence.
type Repository[T any] interface {
	Add(ctx context.Context, entity T) error
	GetByID(ctx context.Context, id string) (T, error)
	Query(ctx context.Context, match Predicate[T]) iter.Seq2[T, error]
}

// Collect drains seq into a slice, stopping at the first error or once limit
// entities were collected (limit <= 0 means no limit).
func Collect[T any](seq iter.Seq2[T, error], limit int) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Fail returns a sequence that yields err once.
func Fail[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}
