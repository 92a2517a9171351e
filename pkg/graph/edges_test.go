package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEdgeStore() *EdgeStore {
	return NewEdgeStore(NewIDAllocator[EdgeID](0))
}

func TestEdgeStore_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestEdgeStore()
		id, err := s.Create("knows", 0, 1, 0.5)
		require.NoError(t, err)

		e, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "knows", e.Type)
		assert.Equal(t, NodeID(0), e.Left)
		assert.Equal(t, NodeID(1), e.Right)
		assert.Equal(t, uint32(0), e.Ordinal)
		assert.Equal(t, 0.5, e.Weight)
		assert.Equal(t, 1, s.CountByType("knows"))
	})

	t.Run("parallel edges get distinct ordinals", func(t *testing.T) {
		s := newTestEdgeStore()
		a, _ := s.Create("knows", 0, 1, nil)
		b, _ := s.Create("knows", 0, 1, nil)
		c, _ := s.Create("likes", 0, 1, nil)

		ea, _ := s.Get(a)
		eb, _ := s.Get(b)
		ec, _ := s.Get(c)
		assert.Equal(t, uint32(0), ea.Ordinal)
		assert.Equal(t, uint32(1), eb.Ordinal)
		assert.Equal(t, uint32(0), ec.Ordinal, "ordinals are per type")

		got, err := s.Lookup("knows", 0, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, b, got)
	})

	t.Run("live ordinal is never reissued", func(t *testing.T) {
		s := newTestEdgeStore()
		_, _ = s.Create("knows", 0, 1, nil) // #0
		_, _ = s.Create("knows", 0, 1, nil) // #1
		_, err := s.Remove("knows", 0, 1, 0)
		require.NoError(t, err)

		id, _ := s.Create("knows", 0, 1, nil)
		e, _ := s.Get(id)
		assert.Equal(t, uint32(2), e.Ordinal)
		require.NoError(t, s.check())
	})

	t.Run("ordinals restart once a triple is empty", func(t *testing.T) {
		s := newTestEdgeStore()
		_, _ = s.Create("knows", 0, 1, nil)
		_, err := s.Remove("knows", 0, 1, 0)
		require.NoError(t, err)

		id, _ := s.Create("knows", 0, 1, nil)
		e, _ := s.Get(id)
		assert.Equal(t, uint32(0), e.Ordinal)
	})

	t.Run("empty type", func(t *testing.T) {
		s := newTestEdgeStore()
		_, err := s.Create("", 0, 1, nil)
		assert.ErrorIs(t, err, ErrEmptyType)
		assert.Equal(t, 0, s.ids.Live())
	})

	t.Run("allocator exhausted", func(t *testing.T) {
		s := NewEdgeStore(NewIDAllocator[EdgeID](1))
		_, err := s.Create("knows", 0, 1, nil)
		require.NoError(t, err)

		_, err = s.Create("knows", 0, 1, nil)
		assert.ErrorIs(t, err, ErrAllocatorExhausted)
		assert.Equal(t, 1, s.CountByType("knows"))
		require.NoError(t, s.check())
	})
}

func TestEdgeStore_Remove(t *testing.T) {
	t.Run("decrements type count", func(t *testing.T) {
		s := newTestEdgeStore()
		id, _ := s.Create("knows", 0, 1, nil)
		_, _ = s.Create("knows", 1, 2, nil)

		removed, err := s.Remove("knows", 0, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, id, removed)
		assert.Equal(t, 1, s.CountByType("knows"))
		assert.False(t, s.ids.IsLive(id))

		_, err = s.Get(id)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("type disappears with its last edge", func(t *testing.T) {
		s := newTestEdgeStore()
		id, _ := s.Create("knows", 0, 1, nil)
		_, _ = s.Create("likes", 0, 1, nil)
		assert.Equal(t, []string{"knows", "likes"}, s.Types())

		require.NoError(t, s.RemoveByID(id))
		assert.Equal(t, []string{"likes"}, s.Types())
		assert.Equal(t, 0, s.CountByType("knows"))
	})

	t.Run("not found", func(t *testing.T) {
		s := newTestEdgeStore()
		_, err := s.Remove("knows", 0, 1, 0)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.RemoveByID(5), ErrNotFound)
	})
}

func TestEdgeStore_RemoveAll(t *testing.T) {
	t.Run("removes every listed edge", func(t *testing.T) {
		s := newTestEdgeStore()
		a, _ := s.Create("knows", 0, 1, nil)
		b, _ := s.Create("likes", 2, 0, nil)
		c, _ := s.Create("knows", 1, 2, nil)

		require.NoError(t, s.RemoveAll([]EdgeID{a, b}))
		assert.Equal(t, 1, s.Len())
		assert.Equal(t, 1, s.CountByType("knows"))
		assert.Equal(t, 0, s.CountByType("likes"))
		_, err := s.Get(c)
		require.NoError(t, err)
		require.NoError(t, s.check())
	})

	t.Run("one bad id leaves the store untouched", func(t *testing.T) {
		s := newTestEdgeStore()
		a, _ := s.Create("knows", 0, 1, nil)

		err := s.RemoveAll([]EdgeID{a, 77})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 1, s.Len())
		assert.Equal(t, 1, s.CountByType("knows"))
	})

	t.Run("duplicate id", func(t *testing.T) {
		s := newTestEdgeStore()
		a, _ := s.Create("knows", 0, 1, nil)
		assert.ErrorIs(t, s.RemoveAll([]EdgeID{a, a}), ErrInvariantViolation)
		assert.Equal(t, 1, s.Len())
	})
}

func TestEdgeStore_WeightIsCopied(t *testing.T) {
	s := newTestEdgeStore()
	w := map[string]any{"score": 0.9}
	id, _ := s.Create("knows", 0, 1, w)
	w["score"] = 0.1

	e, _ := s.Get(id)
	assert.Equal(t, 0.9, e.Weight.(map[string]any)["score"])
}

func TestEdgeStore_TypedWeightIsCopied(t *testing.T) {
	s := newTestEdgeStore()
	w := map[string]float64{"score": 0.9}
	id, _ := s.Create("knows", 0, 1, w)
	w["score"] = 0.1

	e, _ := s.Get(id)
	e.Weight.(map[string]float64)["extra"] = 1

	again, _ := s.Get(id)
	assert.Equal(t, map[string]float64{"score": 0.9}, again.Weight)
}
