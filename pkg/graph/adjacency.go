package graph

import (
	"fmt"
	"slices"
)

// Direction selects which side of the adjacency index a lookup walks.
type Direction int

const (
	// Outgoing follows edges from left to right.
	Outgoing Direction = iota
	// Incoming follows edges from right to left.
	Incoming
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "out"
	case Incoming:
		return "in"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection accepts "out"/"outgoing" and "in"/"incoming".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "out", "outgoing":
		return Outgoing, nil
	case "in", "incoming":
		return Incoming, nil
	}
	return 0, fmt.Errorf("unknown direction %q (want out or in)", s)
}

// Neighbor is one adjacency entry: the node on the other end and the edge
// connecting to it.
type Neighbor struct {
	Node NodeID
	Edge EdgeID
}

// AdjacencyIndex keeps four multimaps in step:
//
//	forwardNodes: left  -> rights
//	forwardEdges: left  -> edge ids (parallel to forwardNodes[left])
//	reverseNodes: right -> lefts
//	reverseEdges: right -> edge ids (parallel to reverseNodes[right])
//
// Every forward entry (l -> r, e) has exactly one mirrored reverse entry
// (r -> l, e). Since edge ids are unique, an entry is addressed by the
// position of its edge id, and node and edge sequences are always removed
// at the same position so they never shift out of alignment.
type AdjacencyIndex struct {
	forwardNodes *MultiMap[NodeID, NodeID]
	forwardEdges *MultiMap[NodeID, EdgeID]
	reverseNodes *MultiMap[NodeID, NodeID]
	reverseEdges *MultiMap[NodeID, EdgeID]
}

// NewAdjacencyIndex creates an empty index.
func NewAdjacencyIndex() *AdjacencyIndex {
	return &AdjacencyIndex{
		forwardNodes: NewMultiMap[NodeID, NodeID](),
		forwardEdges: NewMultiMap[NodeID, EdgeID](),
		reverseNodes: NewMultiMap[NodeID, NodeID](),
		reverseEdges: NewMultiMap[NodeID, EdgeID](),
	}
}

// AddEdge records left -> right via edge on both sides. Parallel edges are
// allowed; uniqueness, where wanted, is the EdgeStore's concern.
func (a *AdjacencyIndex) AddEdge(left, right NodeID, edge EdgeID) bool {
	a.forwardNodes.Add(left, right)
	a.forwardEdges.Add(left, edge)
	a.reverseNodes.Add(right, left)
	a.reverseEdges.Add(right, edge)
	return true
}

// RemoveEdge removes the (left, right, edge) entry from all four maps.
// It returns false when the forward side has no such entry, and an
// ErrInvariantViolation when the forward entry exists without its mirror.
// Both positions are located before anything is mutated.
func (a *AdjacencyIndex) RemoveEdge(left, right NodeID, edge EdgeID) (bool, error) {
	fi := a.forwardEdges.Index(left, edge)
	if fi < 0 || a.forwardNodes.Len(left) <= fi || a.forwardNodes.entries[left][fi] != right {
		return false, nil
	}
	ri, err := a.mirrorIndex(a.reverseNodes, a.reverseEdges, right, left, edge)
	if err != nil {
		return false, err
	}
	a.forwardNodes.RemoveAt(left, fi)
	a.forwardEdges.RemoveAt(left, fi)
	a.reverseNodes.RemoveAt(right, ri)
	a.reverseEdges.RemoveAt(right, ri)
	return true, nil
}

// Contains reports whether left -> right via edge is recorded.
func (a *AdjacencyIndex) Contains(left, right NodeID, edge EdgeID) bool {
	fi := a.forwardEdges.Index(left, edge)
	return fi >= 0 && fi < a.forwardNodes.Len(left) && a.forwardNodes.entries[left][fi] == right
}

// ClearNode detaches every entry in which id takes part, as a left or as a
// right participant, from all four maps. It returns the distinct edge ids it
// severed; an empty result means id had no adjacency at all.
//
// The whole clear is validated before the first map is touched, so an
// ErrInvariantViolation leaves the index exactly as it was.
func (a *AdjacencyIndex) ClearNode(id NodeID) ([]EdgeID, error) {
	if err := a.validateNode(id); err != nil {
		return nil, err
	}

	var severed []EdgeID
	seen := make(map[EdgeID]struct{})
	note := func(e EdgeID) {
		if _, ok := seen[e]; !ok {
			seen[e] = struct{}{}
			severed = append(severed, e)
		}
	}

	// id as left participant: drop its forward rows, then each mirror.
	rights := a.forwardNodes.RemoveKey(id)
	outEdges := a.forwardEdges.RemoveKey(id)
	for i, right := range rights {
		e := outEdges[i]
		note(e)
		if ri := a.reverseEdges.Index(right, e); ri >= 0 {
			a.reverseNodes.RemoveAt(right, ri)
			a.reverseEdges.RemoveAt(right, ri)
		}
	}

	// id as right participant. Self-loops were already removed above.
	lefts := a.reverseNodes.RemoveKey(id)
	inEdges := a.reverseEdges.RemoveKey(id)
	for i, left := range lefts {
		e := inEdges[i]
		note(e)
		if fi := a.forwardEdges.Index(left, e); fi >= 0 {
			a.forwardNodes.RemoveAt(left, fi)
			a.forwardEdges.RemoveAt(left, fi)
		}
	}

	return severed, nil
}

// validateNode checks that every entry ClearNode(id) would touch has an
// aligned row and an intact mirror.
func (a *AdjacencyIndex) validateNode(id NodeID) error {
	rights := a.forwardNodes.entries[id]
	outEdges := a.forwardEdges.entries[id]
	if len(rights) != len(outEdges) {
		return fmt.Errorf("%w: node %d has %d forward nodes but %d forward edges",
			ErrInvariantViolation, id, len(rights), len(outEdges))
	}
	for i, right := range rights {
		if _, err := a.mirrorIndex(a.reverseNodes, a.reverseEdges, right, id, outEdges[i]); err != nil {
			return err
		}
	}

	lefts := a.reverseNodes.entries[id]
	inEdges := a.reverseEdges.entries[id]
	if len(lefts) != len(inEdges) {
		return fmt.Errorf("%w: node %d has %d reverse nodes but %d reverse edges",
			ErrInvariantViolation, id, len(lefts), len(inEdges))
	}
	for i, left := range lefts {
		if _, err := a.mirrorIndex(a.forwardNodes, a.forwardEdges, left, id, inEdges[i]); err != nil {
			return err
		}
	}
	return nil
}

// mirrorIndex finds the position of edge under key in the given node/edge
// pair and checks that the node at that position is want.
func (a *AdjacencyIndex) mirrorIndex(nodes *MultiMap[NodeID, NodeID], edges *MultiMap[NodeID, EdgeID], key, want NodeID, edge EdgeID) (int, error) {
	i := edges.Index(key, edge)
	if i < 0 {
		return -1, fmt.Errorf("%w: edge %d has no mirror entry under node %d", ErrInvariantViolation, edge, key)
	}
	if i >= nodes.Len(key) || nodes.entries[key][i] != want {
		return -1, fmt.Errorf("%w: edge %d under node %d is not paired with node %d", ErrInvariantViolation, edge, key, want)
	}
	return i, nil
}

// Out returns the outgoing entries of id, in insertion order.
func (a *AdjacencyIndex) Out(id NodeID) []Neighbor {
	return zip(a.forwardNodes.entries[id], a.forwardEdges.entries[id])
}

// In returns the incoming entries of id, in insertion order.
func (a *AdjacencyIndex) In(id NodeID) []Neighbor {
	return zip(a.reverseNodes.entries[id], a.reverseEdges.entries[id])
}

// Entries returns Out or In depending on dir.
func (a *AdjacencyIndex) Entries(id NodeID, dir Direction) []Neighbor {
	if dir == Incoming {
		return a.In(id)
	}
	return a.Out(id)
}

func zip(nodes []NodeID, edges []EdgeID) []Neighbor {
	n := min(len(nodes), len(edges))
	out := make([]Neighbor, n)
	for i := 0; i < n; i++ {
		out[i] = Neighbor{Node: nodes[i], Edge: edges[i]}
	}
	return out
}

// OutDegree returns the number of outgoing entries of id; 0 if absent.
func (a *AdjacencyIndex) OutDegree(id NodeID) int {
	return a.forwardNodes.Len(id)
}

// InDegree returns the number of incoming entries of id; 0 if absent.
func (a *AdjacencyIndex) InDegree(id NodeID) int {
	return a.reverseNodes.Len(id)
}

// References reports whether id appears anywhere in the index, as a key or
// as a value of either node map.
func (a *AdjacencyIndex) References(id NodeID) bool {
	if a.forwardNodes.ContainsKey(id) || a.forwardEdges.ContainsKey(id) ||
		a.reverseNodes.ContainsKey(id) || a.reverseEdges.ContainsKey(id) {
		return true
	}
	for _, vals := range a.forwardNodes.entries {
		if slices.Contains(vals, id) {
			return true
		}
	}
	for _, vals := range a.reverseNodes.entries {
		if slices.Contains(vals, id) {
			return true
		}
	}
	return false
}

// EdgeIDs returns every edge id recorded on the forward side.
func (a *AdjacencyIndex) EdgeIDs() []EdgeID {
	return a.forwardEdges.Values()
}

// Clear empties all four maps.
func (a *AdjacencyIndex) Clear() {
	a.forwardNodes.Clear()
	a.forwardEdges.Clear()
	a.reverseNodes.Clear()
	a.reverseEdges.Clear()
}

// check verifies row alignment on both sides and that the reverse node map
// is exactly the inverse of the forward node map, edge by edge.
func (a *AdjacencyIndex) check() error {
	for _, pair := range []struct {
		side  string
		nodes *MultiMap[NodeID, NodeID]
		edges *MultiMap[NodeID, EdgeID]
	}{
		{"forward", a.forwardNodes, a.forwardEdges},
		{"reverse", a.reverseNodes, a.reverseEdges},
	} {
		if pair.nodes.Size() != pair.edges.Size() {
			return fmt.Errorf("%w: %s node map has %d keys, edge map has %d",
				ErrInvariantViolation, pair.side, pair.nodes.Size(), pair.edges.Size())
		}
		for k, vals := range pair.nodes.entries {
			if len(vals) != pair.edges.Len(k) {
				return fmt.Errorf("%w: %s row %d has %d nodes but %d edges",
					ErrInvariantViolation, pair.side, k, len(vals), pair.edges.Len(k))
			}
		}
	}

	inverse := a.forwardNodes.Inverse()
	if inverse.Size() != a.reverseNodes.Size() {
		return fmt.Errorf("%w: forward map reaches %d right nodes, reverse map holds %d",
			ErrInvariantViolation, inverse.Size(), a.reverseNodes.Size())
	}
	for left, rights := range a.forwardNodes.entries {
		for i, right := range rights {
			if _, err := a.mirrorIndex(a.reverseNodes, a.reverseEdges, right, left, a.forwardEdges.entries[left][i]); err != nil {
				return err
			}
		}
	}
	for right, lefts := range a.reverseNodes.entries {
		for i, left := range lefts {
			if _, err := a.mirrorIndex(a.forwardNodes, a.forwardEdges, left, right, a.reverseEdges.entries[right][i]); err != nil {
				return err
			}
		}
	}
	return nil
}
