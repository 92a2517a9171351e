package graph

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
)

// Reserved property names written by the store. Callers can read them but
// never set them; any caller-supplied value under these names is dropped.
const (
	PropLabel = "~label"
	PropKey   = "~key"
	PropID    = "~id"
)

// Properties is an open-ended property map. Values are treated opaquely;
// nested maps and slices are deep-copied on the way in and out.
type Properties map[string]any

// Node is a stored node record. Records handed out by the graph are copies.
type Node struct {
	ID         NodeID
	Label      string
	Key        string
	Properties Properties
}

// NodeKey names a node by its label and its key within that label.
type NodeKey struct {
	Label string
	Key   string
}

func (k NodeKey) String() string {
	return k.Label + "/" + k.Key
}

// NodeStore owns node records and the (label, key) -> id index.
// It has no knowledge of edges.
type NodeStore struct {
	ids   *IDAllocator[NodeID]
	nodes map[NodeID]*Node
	keys  map[NodeKey]NodeID
}

// NewNodeStore creates a store issuing ids from ids.
func NewNodeStore(ids *IDAllocator[NodeID]) *NodeStore {
	return &NodeStore{
		ids:   ids,
		nodes: make(map[NodeID]*Node),
		keys:  make(map[NodeKey]NodeID),
	}
}

// Create stores a new node and returns its id.
func (s *NodeStore) Create(label, key string, props Properties) (NodeID, error) {
	if label == "" {
		return 0, ErrEmptyLabel
	}
	if key == "" {
		return 0, ErrEmptyKey
	}
	nk := NodeKey{Label: label, Key: key}
	if _, exists := s.keys[nk]; exists {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateKey, nk)
	}

	id, err := s.ids.Allocate()
	if err != nil {
		return 0, fmt.Errorf("allocating node id for %s: %w", nk, err)
	}

	stored := make(Properties, len(props)+3)
	for k, v := range props {
		if isReserved(k) {
			continue
		}
		stored[k] = copyValue(v)
	}
	stored[PropLabel] = label
	stored[PropKey] = key
	stored[PropID] = id

	s.nodes[id] = &Node{ID: id, Label: label, Key: key, Properties: stored}
	s.keys[nk] = id
	return id, nil
}

// Get returns a copy of the node with the given id.
func (s *NodeStore) Get(id NodeID) (*Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	return copyNode(n), nil
}

// GetByKey returns a copy of the node stored under (label, key).
func (s *NodeStore) GetByKey(label, key string) (*Node, error) {
	id, err := s.Resolve(label, key)
	if err != nil {
		return nil, err
	}
	return copyNode(s.nodes[id]), nil
}

// Resolve maps (label, key) to a live node id.
func (s *NodeStore) Resolve(label, key string) (NodeID, error) {
	nk := NodeKey{Label: label, Key: key}
	id, ok := s.keys[nk]
	if !ok {
		return 0, fmt.Errorf("%w: node %s", ErrNotFound, nk)
	}
	return id, nil
}

// Exists reports whether id is a live node.
func (s *NodeStore) Exists(id NodeID) bool {
	_, ok := s.nodes[id]
	return ok
}

// UpdateProperties merges patch into the stored properties. Patch keys
// overwrite, other keys are left alone, reserved keys are ignored.
func (s *NodeStore) UpdateProperties(label, key string, patch Properties) error {
	id, err := s.Resolve(label, key)
	if err != nil {
		return err
	}
	n := s.nodes[id]
	for k, v := range patch {
		if isReserved(k) {
			continue
		}
		n.Properties[k] = copyValue(v)
	}
	return nil
}

// Delete removes the node stored under (label, key) and releases its id.
// Adjacency cleanup is the caller's job and must happen first.
func (s *NodeStore) Delete(label, key string) (NodeID, error) {
	id, err := s.Resolve(label, key)
	if err != nil {
		return 0, err
	}
	if !s.ids.IsLive(id) {
		return 0, fmt.Errorf("%w: node %d is indexed but its id is not live", ErrInvariantViolation, id)
	}
	delete(s.keys, NodeKey{Label: label, Key: key})
	delete(s.nodes, id)
	if err := s.ids.Release(id); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	return id, nil
}

// Len returns the number of live nodes.
func (s *NodeStore) Len() int {
	return len(s.nodes)
}

// IDs returns every live node id in ascending order.
func (s *NodeStore) IDs() []NodeID {
	ids := make([]NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ByLabel returns the ids of every node with label, ascending.
func (s *NodeStore) ByLabel(label string) []NodeID {
	var ids []NodeID
	for nk, id := range s.keys {
		if nk.Label == label {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Labels returns the distinct labels of live nodes, sorted.
func (s *NodeStore) Labels() []string {
	set := make(map[string]struct{})
	for nk := range s.keys {
		set[nk.Label] = struct{}{}
	}
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Clear drops every node. The allocator is reset by the owner.
func (s *NodeStore) Clear() {
	clear(s.nodes)
	clear(s.keys)
}

// check verifies that the key index and the records agree and that
// every record holds a live id.
func (s *NodeStore) check() error {
	if len(s.keys) != len(s.nodes) {
		return fmt.Errorf("%w: %d node keys indexed for %d records", ErrInvariantViolation, len(s.keys), len(s.nodes))
	}
	for nk, id := range s.keys {
		n, ok := s.nodes[id]
		if !ok {
			return fmt.Errorf("%w: key %s resolves to missing node %d", ErrInvariantViolation, nk, id)
		}
		if n.Properties[PropLabel] != nk.Label || n.Properties[PropKey] != nk.Key || n.Label != nk.Label || n.Key != nk.Key {
			return fmt.Errorf("%w: node %d does not carry key %s", ErrInvariantViolation, id, nk)
		}
		if !s.ids.IsLive(id) {
			return fmt.Errorf("%w: node %d is stored under a released id", ErrInvariantViolation, id)
		}
	}
	if s.ids.Live() != len(s.nodes) {
		return fmt.Errorf("%w: %d node ids live for %d records", ErrInvariantViolation, s.ids.Live(), len(s.nodes))
	}
	return nil
}

func isReserved(k string) bool {
	return k == PropLabel || k == PropKey || k == PropID
}

// copyNode creates a deep copy of a node.
func copyNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	return &Node{
		ID:         n.ID,
		Label:      n.Label,
		Key:        n.Key,
		Properties: copyProperties(n.Properties),
	}
}

func copyProperties(p Properties) Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = copyValue(v)
	}
	return out
}

// copyValue deep-copies maps, slices and arrays of any element type;
// scalars are returned as-is. Pointers and structs are not followed.
func copyValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = copyValue(inner)
		}
		return out
	case Properties:
		return copyProperties(t)
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = copyValue(inner)
		}
		return out
	case []string:
		return slices.Clone(t)
	case []int:
		return slices.Clone(t)
	case []int64:
		return slices.Clone(t)
	case []float64:
		return slices.Clone(t)
	case []float32:
		return slices.Clone(t)
	case []byte:
		return slices.Clone(t)
	default:
		return copyReflect(reflect.ValueOf(v)).Interface()
	}
}

// copyReflect handles the container types the fast paths in copyValue do
// not name, such as map[string]string or []map[string]any.
func copyReflect(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyElem(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyElem(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyElem(v.Index(i)))
		}
		return out
	}
	return v
}

// copyElem copies a map value or slice element. Interface-typed elements go
// back through copyValue so nested map[string]any keeps its fast path.
func copyElem(v reflect.Value) reflect.Value {
	if v.Kind() != reflect.Interface {
		return copyReflect(v)
	}
	if v.IsNil() {
		return reflect.Zero(v.Type())
	}
	return reflect.ValueOf(copyValue(v.Elem().Interface()))
}
