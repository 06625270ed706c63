// Package memory provides an in-process implementation of the repository
// abstraction for local development and tests.
package memory

import (
	"context"
	"iter"
	"sync"

	"github.com/xenking/myshop/internal/domain/repository"
)

// Store is a thread-safe map-backed repository.Repository that preserves
// insertion order.
type Store[T any] struct {
	key func(T) string

	mu    sync.RWMutex
	items map[string]T
	order []string
}

var _ repository.Repository[struct{}] = (*Store[struct{}])(nil)

// New returns an empty Store that identifies entities with key.
func New[T any](key func(T) string) *Store[T] {
	return &Store[T]{
		key:   key,
		items: make(map[string]T),
	}
}

// Add stores entity. It fails with ErrConflict if the ID is already taken.
func (s *Store[T]) Add(_ context.Context, entity T) error {
	id := s.key(entity)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; exists {
		return &repository.StorageError{Op: "add " + id, Err: repository.ErrConflict}
	}
	s.items[id] = entity
	s.order = append(s.order, id)
	return nil
}

// Put inserts or replaces entity.
func (s *Store[T]) Put(_ context.Context, entity T) error {
	id := s.key(entity)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = entity
	return nil
}

// GetByID returns the entity or repository.ErrNotFound.
func (s *Store[T]) GetByID(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[id]
	if !ok {
		var zero T
		return zero, repository.ErrNotFound
	}
	return v, nil
}

// Query iterates over a snapshot of the IDs taken when iteration starts.
func (s *Store[T]) Query(ctx context.Context, match repository.Predicate[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		s.mu.RLock()
		ids := make([]string, len(s.order))
		copy(ids, s.order)
		s.mu.RUnlock()

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				var zero T
				yield(zero, repository.Wrap("query", err))
				return
			}
			s.mu.RLock()
			v, ok := s.items[id]
			s.mu.RUnlock()
			if !ok || !match.Match(v) {
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Len returns the number of stored entities.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
