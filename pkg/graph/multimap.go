package graph

import "slices"

// MultiMap maps a key to an ordered sequence of values. Duplicate values are
// permitted, which is what gives the graph multigraph semantics.
//
// MultiMap knows nothing about any mirrored structure. Keeping a forward map
// and its reverse in step is the job of AdjacencyIndex.
//
// A key is deleted as soon as its sequence becomes empty, so Size only counts
// keys that still hold values and no empty entry lingers as a stale reference.
type MultiMap[K, V comparable] struct {
	entries map[K][]V
}

// NewMultiMap creates an empty MultiMap.
func NewMultiMap[K, V comparable]() *MultiMap[K, V] {
	return &MultiMap[K, V]{entries: make(map[K][]V)}
}

// Add appends value to key's sequence. It always succeeds.
func (m *MultiMap[K, V]) Add(key K, value V) bool {
	m.entries[key] = append(m.entries[key], value)
	return true
}

// Remove deletes the first occurrence of value under key.
// It returns false if key or value is absent.
func (m *MultiMap[K, V]) Remove(key K, value V) bool {
	i := m.Index(key, value)
	if i < 0 {
		return false
	}
	m.RemoveAt(key, i)
	return true
}

// RemoveAt deletes the value at position i of key's sequence.
func (m *MultiMap[K, V]) RemoveAt(key K, i int) (V, bool) {
	var zero V
	vals, ok := m.entries[key]
	if !ok || i < 0 || i >= len(vals) {
		return zero, false
	}
	removed := vals[i]
	vals = slices.Delete(vals, i, i+1)
	if len(vals) == 0 {
		delete(m.entries, key)
	} else {
		m.entries[key] = vals
	}
	return removed, true
}

// RemoveKey detaches and returns key's whole sequence. The result is empty,
// never nil, when key is absent.
func (m *MultiMap[K, V]) RemoveKey(key K) []V {
	vals, ok := m.entries[key]
	if !ok {
		return []V{}
	}
	delete(m.entries, key)
	return vals
}

// Index returns the position of the first occurrence of value under key,
// or -1.
func (m *MultiMap[K, V]) Index(key K, value V) int {
	return slices.Index(m.entries[key], value)
}

// Contains reports whether value is stored under key.
func (m *MultiMap[K, V]) Contains(key K, value V) bool {
	return m.Index(key, value) >= 0
}

// ContainsKey reports whether key holds any value.
func (m *MultiMap[K, V]) ContainsKey(key K) bool {
	_, ok := m.entries[key]
	return ok
}

// Get returns a copy of key's sequence, empty if key is absent.
func (m *MultiMap[K, V]) Get(key K) []V {
	vals, ok := m.entries[key]
	if !ok {
		return []V{}
	}
	return slices.Clone(vals)
}

// Len returns the length of key's sequence.
func (m *MultiMap[K, V]) Len(key K) int {
	return len(m.entries[key])
}

// Size returns the number of distinct keys.
func (m *MultiMap[K, V]) Size() int {
	return len(m.entries)
}

// IsEmpty reports whether the map holds no keys.
func (m *MultiMap[K, V]) IsEmpty() bool {
	return len(m.entries) == 0
}

// Keys returns every key in unspecified order.
func (m *MultiMap[K, V]) Keys() []K {
	keys := make([]K, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Values returns every value of every key in unspecified key order.
func (m *MultiMap[K, V]) Values() []V {
	var out []V
	for _, vals := range m.entries {
		out = append(out, vals...)
	}
	return out
}

// Inverse builds the reverse mapping value -> keys. A value stored n times
// under a key yields that key n times under the value.
func (m *MultiMap[K, V]) Inverse() *MultiMap[V, K] {
	inv := NewMultiMap[V, K]()
	for k, vals := range m.entries {
		for _, v := range vals {
			inv.Add(v, k)
		}
	}
	return inv
}

// Clear removes every key.
func (m *MultiMap[K, V]) Clear() {
	clear(m.entries)
}
