package graph

import (
	"fmt"
	"sort"
)

// Edge is a stored edge record. Records handed out by the graph are copies.
//
// Several edges of one type may join the same (Left, Right) pair; Ordinal
// tells them apart. Weight is the caller's opaque value for this edge.
type Edge struct {
	ID      EdgeID
	Type    string
	Left    NodeID
	Right   NodeID
	Ordinal uint32
	Weight  any
}

// edgeKey addresses one edge structurally.
type edgeKey struct {
	Type    string
	Left    NodeID
	Right   NodeID
	Ordinal uint32
}

func (e *Edge) key() edgeKey {
	return edgeKey{Type: e.Type, Left: e.Left, Right: e.Right, Ordinal: e.Ordinal}
}

// tripleKey groups the parallel edges of one type between one pair.
type tripleKey struct {
	Type  string
	Left  NodeID
	Right NodeID
}

// tripleSlots hands out ordinals for one triple. next only grows while the
// triple has live edges, so a live ordinal is never issued twice.
type tripleSlots struct {
	next uint32
	live int
}

// EdgeStore owns edge records, the (type, left, right, ordinal) -> id index
// and the per-type counters. It does not know whether endpoints are live;
// the graph checks that before calling Create.
type EdgeStore struct {
	ids     *IDAllocator[EdgeID]
	edges   map[EdgeID]*Edge
	index   map[edgeKey]EdgeID
	triples map[tripleKey]*tripleSlots
	counts  map[string]int
}

// NewEdgeStore creates a store issuing ids from ids.
func NewEdgeStore(ids *IDAllocator[EdgeID]) *EdgeStore {
	return &EdgeStore{
		ids:     ids,
		edges:   make(map[EdgeID]*Edge),
		index:   make(map[edgeKey]EdgeID),
		triples: make(map[tripleKey]*tripleSlots),
		counts:  make(map[string]int),
	}
}

// Create stores a new edge and returns its id. The ordinal assigned is
// available through Get.
func (s *EdgeStore) Create(edgeType string, left, right NodeID, weight any) (EdgeID, error) {
	if edgeType == "" {
		return 0, ErrEmptyType
	}
	id, err := s.ids.Allocate()
	if err != nil {
		return 0, fmt.Errorf("allocating edge id for %s(%d->%d): %w", edgeType, left, right, err)
	}

	tk := tripleKey{Type: edgeType, Left: left, Right: right}
	slots, ok := s.triples[tk]
	if !ok {
		slots = &tripleSlots{}
		s.triples[tk] = slots
	}
	ordinal := slots.next
	slots.next++
	slots.live++

	s.edges[id] = &Edge{
		ID:      id,
		Type:    edgeType,
		Left:    left,
		Right:   right,
		Ordinal: ordinal,
		Weight:  copyValue(weight),
	}
	s.index[edgeKey{Type: edgeType, Left: left, Right: right, Ordinal: ordinal}] = id
	s.counts[edgeType]++
	return id, nil
}

// Get returns a copy of the edge with the given id.
func (s *EdgeStore) Get(id EdgeID) (*Edge, error) {
	e, ok := s.edges[id]
	if !ok {
		return nil, fmt.Errorf("%w: edge %d", ErrNotFound, id)
	}
	return copyEdge(e), nil
}

// Lookup resolves (type, left, right, ordinal) to an edge id.
func (s *EdgeStore) Lookup(edgeType string, left, right NodeID, ordinal uint32) (EdgeID, error) {
	id, ok := s.index[edgeKey{Type: edgeType, Left: left, Right: right, Ordinal: ordinal}]
	if !ok {
		return 0, fmt.Errorf("%w: edge %s(%d->%d)#%d", ErrNotFound, edgeType, left, right, ordinal)
	}
	return id, nil
}

// Remove deletes the edge addressed by (type, left, right, ordinal) and
// releases its id.
func (s *EdgeStore) Remove(edgeType string, left, right NodeID, ordinal uint32) (EdgeID, error) {
	id, err := s.Lookup(edgeType, left, right, ordinal)
	if err != nil {
		return 0, err
	}
	if err := s.RemoveByID(id); err != nil {
		return 0, err
	}
	return id, nil
}

// RemoveByID deletes the edge with the given id and releases the id.
func (s *EdgeStore) RemoveByID(id EdgeID) error {
	if err := s.validateRemoval(id); err != nil {
		return err
	}
	s.remove(id)
	return nil
}

// RemoveAll deletes every edge in ids. All ids are validated before the
// first one is removed, so an error leaves the store untouched.
func (s *EdgeStore) RemoveAll(ids []EdgeID) error {
	seen := make(map[EdgeID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: edge %d listed twice for removal", ErrInvariantViolation, id)
		}
		seen[id] = struct{}{}
		if err := s.validateRemoval(id); err != nil {
			return err
		}
	}
	for _, id := range ids {
		s.remove(id)
	}
	return nil
}

func (s *EdgeStore) validateRemoval(id EdgeID) error {
	e, ok := s.edges[id]
	if !ok {
		return fmt.Errorf("%w: edge %d", ErrNotFound, id)
	}
	if !s.ids.IsLive(id) {
		return fmt.Errorf("%w: edge %d is stored under a released id", ErrInvariantViolation, id)
	}
	if indexed, ok := s.index[e.key()]; !ok || indexed != id {
		return fmt.Errorf("%w: edge %d is not indexed under its own key", ErrInvariantViolation, id)
	}
	if s.counts[e.Type] <= 0 {
		return fmt.Errorf("%w: edge type %q has no count for live edge %d", ErrInvariantViolation, e.Type, id)
	}
	return nil
}

// remove assumes validateRemoval passed.
func (s *EdgeStore) remove(id EdgeID) {
	e := s.edges[id]
	delete(s.index, e.key())
	delete(s.edges, id)

	tk := tripleKey{Type: e.Type, Left: e.Left, Right: e.Right}
	if slots := s.triples[tk]; slots != nil {
		slots.live--
		if slots.live <= 0 {
			delete(s.triples, tk)
		}
	}

	s.counts[e.Type]--
	if s.counts[e.Type] == 0 {
		delete(s.counts, e.Type)
	}
	// Cannot fail: validateRemoval checked the id is live.
	_ = s.ids.Release(id)
}

// CountByType returns the number of live edges of edgeType.
func (s *EdgeStore) CountByType(edgeType string) int {
	return s.counts[edgeType]
}

// Types returns the edge types with at least one live edge, sorted.
func (s *EdgeStore) Types() []string {
	types := make([]string, 0, len(s.counts))
	for t := range s.counts {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Len returns the number of live edges.
func (s *EdgeStore) Len() int {
	return len(s.edges)
}

// Clear drops every edge. The allocator is reset by the owner.
func (s *EdgeStore) Clear() {
	clear(s.edges)
	clear(s.index)
	clear(s.triples)
	clear(s.counts)
}

// check verifies the index, the ordinal slots and the per-type counts
// against the records.
func (s *EdgeStore) check() error {
	if len(s.index) != len(s.edges) {
		return fmt.Errorf("%w: %d edge keys indexed for %d records", ErrInvariantViolation, len(s.index), len(s.edges))
	}
	counts := make(map[string]int)
	live := make(map[tripleKey]int)
	for id, e := range s.edges {
		if indexed, ok := s.index[e.key()]; !ok || indexed != id {
			return fmt.Errorf("%w: edge %d is not indexed under its own key", ErrInvariantViolation, id)
		}
		if !s.ids.IsLive(id) {
			return fmt.Errorf("%w: edge %d is stored under a released id", ErrInvariantViolation, id)
		}
		counts[e.Type]++
		live[tripleKey{Type: e.Type, Left: e.Left, Right: e.Right}]++
	}
	if len(counts) != len(s.counts) {
		return fmt.Errorf("%w: %d edge types counted, %d present", ErrInvariantViolation, len(s.counts), len(counts))
	}
	for t, n := range counts {
		if s.counts[t] != n {
			return fmt.Errorf("%w: edge type %q counted %d, %d live", ErrInvariantViolation, t, s.counts[t], n)
		}
	}
	for tk, n := range live {
		if slots := s.triples[tk]; slots == nil || slots.live != n {
			return fmt.Errorf("%w: ordinal slots for %s(%d->%d) out of step", ErrInvariantViolation, tk.Type, tk.Left, tk.Right)
		}
	}
	if s.ids.Live() != len(s.edges) {
		return fmt.Errorf("%w: %d edge ids live for %d records", ErrInvariantViolation, s.ids.Live(), len(s.edges))
	}
	return nil
}

// copyEdge creates a deep copy of an edge.
func copyEdge(e *Edge) *Edge {
	if e == nil {
		return nil
	}
	copied := *e
	copied.Weight = copyValue(e.Weight)
	return &copied
}
