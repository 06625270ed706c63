package repository

import (
	"iter"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqOf(values ...int) iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for _, v := range values {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, Wrap("add", nil))
	})

	t.Run("not found passes through", func(t *testing.T) {
		err := Wrap("get", ErrNotFound)
		assert.Same(t, ErrNotFound, err)
	})

	t.Run("backend failure", func(t *testing.T) {
		cause := errors.New("disk full")
		err := Wrap("add order", cause)

		var se *StorageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "add order", se.Op)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "storage: add order: disk full", err.Error())
	})

	t.Run("already wrapped", func(t *testing.T) {
		first := Wrap("inner", errors.New("boom"))
		assert.Same(t, first, Wrap("outer", first))
	})
}

func TestPredicate_Match(t *testing.T) {
	var all Predicate[int]
	assert.True(t, all.Match(42))

	even := Predicate[int](func(v int) bool { return v%2 == 0 })
	assert.True(t, even.Match(2))
	assert.False(t, even.Match(3))
}

func TestCollect(t *testing.T) {
	got, err := Collect(seqOf(1, 2, 3), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	got, err = Collect(seqOf(1, 2, 3), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)

	_, err = Collect(Fail[int](ErrConflict), 0)
	assert.ErrorIs(t, err, ErrConflict)
}
