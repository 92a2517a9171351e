package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNodeStore() *NodeStore {
	return NewNodeStore(NewIDAllocator[NodeID](0))
}

func TestNodeStore_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestNodeStore()
		id, err := s.Create("Person", "alice", Properties{"age": 30})
		require.NoError(t, err)
		assert.Equal(t, NodeID(0), id)

		n, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "Person", n.Label)
		assert.Equal(t, "alice", n.Key)
		assert.Equal(t, 30, n.Properties["age"])
		assert.Equal(t, "Person", n.Properties[PropLabel])
		assert.Equal(t, "alice", n.Properties[PropKey])
		assert.Equal(t, id, n.Properties[PropID])
	})

	t.Run("duplicate key", func(t *testing.T) {
		s := newTestNodeStore()
		_, err := s.Create("Person", "alice", nil)
		require.NoError(t, err)

		_, err = s.Create("Person", "alice", Properties{"x": 1})
		assert.ErrorIs(t, err, ErrDuplicateKey)
		assert.Equal(t, 1, s.Len())
		assert.Equal(t, 1, s.ids.Live(), "failed create must not consume an id")
	})

	t.Run("same key under another label", func(t *testing.T) {
		s := newTestNodeStore()
		_, err := s.Create("Person", "alice", nil)
		require.NoError(t, err)
		_, err = s.Create("Robot", "alice", nil)
		require.NoError(t, err)
	})

	t.Run("empty label or key", func(t *testing.T) {
		s := newTestNodeStore()
		_, err := s.Create("", "alice", nil)
		assert.ErrorIs(t, err, ErrEmptyLabel)
		_, err = s.Create("Person", "", nil)
		assert.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("reserved keys cannot be supplied", func(t *testing.T) {
		s := newTestNodeStore()
		id, err := s.Create("Person", "alice", Properties{PropID: 99, PropLabel: "Robot", PropKey: "x", "name": "Alice"})
		require.NoError(t, err)

		n, _ := s.Get(id)
		assert.Equal(t, id, n.Properties[PropID])
		assert.Equal(t, "Person", n.Properties[PropLabel])
		assert.Equal(t, "alice", n.Properties[PropKey])
		assert.Equal(t, "Alice", n.Properties["name"])
	})

	t.Run("deep copy prevents mutation", func(t *testing.T) {
		s := newTestNodeStore()
		nested := map[string]any{"city": "Oslo"}
		tags := []any{"a", "b"}
		props := Properties{"key": "original", "address": nested, "tags": tags}
		id, err := s.Create("Person", "alice", props)
		require.NoError(t, err)

		props["key"] = "mutated"
		props["new"] = "value"
		nested["city"] = "Bergen"
		tags[0] = "z"

		n, _ := s.Get(id)
		assert.Equal(t, "original", n.Properties["key"])
		assert.Nil(t, n.Properties["new"])
		assert.Equal(t, "Oslo", n.Properties["address"].(map[string]any)["city"])
		assert.Equal(t, "a", n.Properties["tags"].([]any)[0])
	})

	t.Run("deep copy covers typed containers", func(t *testing.T) {
		s := newTestNodeStore()
		tags := map[string]string{"team": "red"}
		nested := []map[string]any{{"x": 1}}
		grid := [][]any{{"a"}}
		pair := [2][]int{{1}, {2}}
		id, err := s.Create("Person", "alice", Properties{"tags": tags, "nested": nested, "grid": grid, "pair": pair})
		require.NoError(t, err)

		tags["team"] = "blue"
		nested[0]["x"] = 99
		grid[0][0] = "z"
		pair[0][0] = 7

		n, _ := s.Get(id)
		assert.Equal(t, "red", n.Properties["tags"].(map[string]string)["team"])
		assert.Equal(t, 1, n.Properties["nested"].([]map[string]any)[0]["x"])
		assert.Equal(t, "a", n.Properties["grid"].([][]any)[0][0])
		assert.Equal(t, 1, n.Properties["pair"].([2][]int)[0][0])
	})

	t.Run("typed containers are not shared with readers", func(t *testing.T) {
		s := newTestNodeStore()
		_, err := s.Create("Person", "alice", Properties{
			"tags":   map[string]string{"team": "red"},
			"scores": map[string]int{"q1": 3},
		})
		require.NoError(t, err)

		n, _ := s.GetByKey("Person", "alice")
		n.Properties["tags"].(map[string]string)["team"] = "green"
		n.Properties["scores"].(map[string]int)["q1"] = 0

		again, _ := s.GetByKey("Person", "alice")
		assert.Equal(t, "red", again.Properties["tags"].(map[string]string)["team"])
		assert.Equal(t, 3, again.Properties["scores"].(map[string]int)["q1"])
	})

	t.Run("nil containers stay nil", func(t *testing.T) {
		s := newTestNodeStore()
		var m map[string]string
		id, err := s.Create("Person", "alice", Properties{"m": m, "none": nil})
		require.NoError(t, err)

		n, _ := s.Get(id)
		assert.Nil(t, n.Properties["m"].(map[string]string))
		assert.Nil(t, n.Properties["none"])
	})

	t.Run("independent empty property maps", func(t *testing.T) {
		s := newTestNodeStore()
		a, _ := s.Create("Person", "a", nil)
		b, _ := s.Create("Person", "b", nil)
		require.NoError(t, s.UpdateProperties("Person", "a", Properties{"only": "a"}))

		nb, _ := s.Get(b)
		assert.NotContains(t, nb.Properties, "only")
		na, _ := s.Get(a)
		assert.Equal(t, "a", na.Properties["only"])
	})
}

func TestNodeStore_Get(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		s := newTestNodeStore()
		_, err := s.Get(3)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetByKey("Person", "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returns copy not reference", func(t *testing.T) {
		s := newTestNodeStore()
		id, _ := s.Create("Person", "alice", Properties{"name": "Alice"})

		n, _ := s.GetByKey("Person", "alice")
		n.Properties["name"] = "Mallory"
		n.Properties[PropKey] = "mallory"

		again, _ := s.Get(id)
		assert.Equal(t, "Alice", again.Properties["name"])
		assert.Equal(t, "alice", again.Properties[PropKey])
	})
}

func TestNodeStore_UpdateProperties(t *testing.T) {
	t.Run("merges patch", func(t *testing.T) {
		s := newTestNodeStore()
		id, _ := s.Create("Person", "alice", Properties{"name": "Alice", "age": 30})

		require.NoError(t, s.UpdateProperties("Person", "alice", Properties{"age": 31, "city": "Oslo"}))

		n, _ := s.Get(id)
		assert.Equal(t, "Alice", n.Properties["name"])
		assert.Equal(t, 31, n.Properties["age"])
		assert.Equal(t, "Oslo", n.Properties["city"])
	})

	t.Run("reserved keys ignored", func(t *testing.T) {
		s := newTestNodeStore()
		id, _ := s.Create("Person", "alice", nil)

		require.NoError(t, s.UpdateProperties("Person", "alice", Properties{PropID: 42, PropLabel: "Robot"}))

		n, _ := s.Get(id)
		assert.Equal(t, id, n.Properties[PropID])
		assert.Equal(t, "Person", n.Properties[PropLabel])
		require.NoError(t, s.check())
	})

	t.Run("not found", func(t *testing.T) {
		s := newTestNodeStore()
		assert.ErrorIs(t, s.UpdateProperties("Person", "ghost", Properties{"a": 1}), ErrNotFound)
	})
}

func TestNodeStore_Delete(t *testing.T) {
	t.Run("releases id and key", func(t *testing.T) {
		s := newTestNodeStore()
		id, _ := s.Create("Person", "alice", nil)

		removed, err := s.Delete("Person", "alice")
		require.NoError(t, err)
		assert.Equal(t, id, removed)
		assert.Equal(t, 0, s.Len())
		assert.False(t, s.ids.IsLive(id))

		_, err = s.Resolve("Person", "alice")
		assert.ErrorIs(t, err, ErrNotFound)

		// Key is free for reuse and the id is recycled.
		again, err := s.Create("Person", "alice", nil)
		require.NoError(t, err)
		assert.Equal(t, id, again)
	})

	t.Run("not found", func(t *testing.T) {
		s := newTestNodeStore()
		_, err := s.Delete("Person", "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestNodeStore_Listing(t *testing.T) {
	s := newTestNodeStore()
	_, _ = s.Create("Person", "alice", nil)
	_, _ = s.Create("City", "oslo", nil)
	_, _ = s.Create("Person", "bob", nil)

	assert.Equal(t, []string{"City", "Person"}, s.Labels())
	assert.Equal(t, []NodeID{0, 2}, s.ByLabel("Person"))
	assert.Equal(t, []NodeID{0, 1, 2}, s.IDs())
	assert.Empty(t, s.ByLabel("Robot"))
	require.NoError(t, s.check())
}
