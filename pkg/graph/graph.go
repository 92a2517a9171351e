// Package graph provides PhasmaDB's embedded in-memory property graph.
//
// Nodes carry a label and a key that is unique within the label. Edges are
// typed, carry an opaque weight, and may run in parallel between the same
// pair of nodes. Neighbor lookup is cheap in both directions.
//
// The Graph type is the only entry point. It composes:
//   - two IDAllocators, one for node ids and one for edge ids
//   - a NodeStore resolving (label, key) to node ids
//   - an EdgeStore resolving (type, left, right, ordinal) to edge ids
//   - an AdjacencyIndex holding forward and reverse adjacency
//
// Every public operation leaves all of them consistent. Multi-structure
// mutations validate first and mutate second, so a failed operation leaves
// nothing behind.
//
// Example Usage:
//
//	g := graph.New(graph.WithLogger(logger))
//
//	alice, _ := g.AddNode("Person", "alice", graph.Properties{"age": 30})
//	_, _ = g.AddNode("Person", "bob", nil)
//
//	_, err := g.AddEdge("knows",
//		graph.NodeKey{Label: "Person", Key: "alice"},
//		graph.NodeKey{Label: "Person", Key: "bob"},
//		1.0)
//	if err != nil {
//		return err
//	}
//
//	out, _ := g.Neighbors(alice, graph.Outgoing)
//
// # Thread Safety
//
// Graph performs no locking. Hosts that share a Graph between goroutines
// must serialize access themselves or wrap it with NewLocked.
package graph

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Option configures a Graph.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	meterProvider metric.MeterProvider
	nodeIDLimit   uint64
	edgeIDLimit   uint64
}

// WithLogger sets the diagnostic logger. Without it the graph logs nothing.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider used for the
// graph's counters. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithNodeIDLimit bounds the node id space to [0, n). 0 means unbounded.
func WithNodeIDLimit(n uint64) Option {
	return func(o *options) { o.nodeIDLimit = n }
}

// WithEdgeIDLimit bounds the edge id space to [0, n). 0 means unbounded.
func WithEdgeIDLimit(n uint64) Option {
	return func(o *options) { o.edgeIDLimit = n }
}

// Graph is the in-memory property graph.
type Graph struct {
	id      uuid.UUID
	log     *slog.Logger
	metrics *instruments

	nodeIDs *IDAllocator[NodeID]
	edgeIDs *IDAllocator[EdgeID]
	nodes   *NodeStore
	edges   *EdgeStore
	adj     *AdjacencyIndex
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.New()
	log := o.logger.With("graph_id", id.String())

	ins, err := newInstruments(o.meterProvider)
	if err != nil {
		log.Warn("metrics disabled", "error", err)
		ins, _ = newInstruments(noop.NewMeterProvider())
	}

	nodeIDs := NewIDAllocator[NodeID](o.nodeIDLimit)
	edgeIDs := NewIDAllocator[EdgeID](o.edgeIDLimit)
	return &Graph{
		id:      id,
		log:     log,
		metrics: ins,
		nodeIDs: nodeIDs,
		edgeIDs: edgeIDs,
		nodes:   NewNodeStore(nodeIDs),
		edges:   NewEdgeStore(edgeIDs),
		adj:     NewAdjacencyIndex(),
	}
}

// ID returns the instance id attached to this graph's log records.
func (g *Graph) ID() uuid.UUID {
	return g.id
}

// fail reports err to the caller, logging and counting it first when it is
// an invariant violation.
func (g *Graph) fail(op string, err error) error {
	if errors.Is(err, ErrInvariantViolation) {
		g.log.Error("graph invariant violated, operation aborted", "op", op, "error", err)
		g.metrics.invariantViolation(op)
	}
	return err
}

// AddNode creates a node and returns its id. It fails with ErrDuplicateKey
// when (label, key) is already live. props is copied; the reserved keys
// ~label, ~key and ~id are set by the graph and cannot be supplied.
func (g *Graph) AddNode(label, key string, props Properties) (NodeID, error) {
	id, err := g.nodes.Create(label, key, props)
	if err != nil {
		return 0, g.fail("add_node", err)
	}
	g.metrics.nodeAdded(label)
	g.log.Debug("node added", "label", label, "key", key, "id", id)
	return id, nil
}

// RemoveNode removes the node stored under (label, key) together with every
// edge touching it.
//
// Adjacency is severed before the node record is deleted, so a node id is
// never released while the index still refers to it.
func (g *Graph) RemoveNode(label, key string) error {
	const op = "remove_node"

	id, err := g.nodes.Resolve(label, key)
	if err != nil {
		return err
	}

	// Validate everything the removal will touch before touching anything.
	if !g.nodeIDs.IsLive(id) {
		return g.fail(op, fmt.Errorf("%w: node %d is indexed but its id is not live", ErrInvariantViolation, id))
	}
	if err := g.adj.validateNode(id); err != nil {
		return g.fail(op, err)
	}
	touching := distinctEdges(g.adj.Out(id), g.adj.In(id))
	severedByType := make(map[string]int)
	for _, eid := range touching {
		if err := g.edges.validateRemoval(eid); err != nil {
			return g.fail(op, fmt.Errorf("%w: adjacency of node %d names edge %d: %v", ErrInvariantViolation, id, eid, err))
		}
		e := g.edges.edges[eid]
		if e.Left != id && e.Right != id {
			return g.fail(op, fmt.Errorf("%w: edge %d is indexed under node %d but joins %d->%d", ErrInvariantViolation, eid, id, e.Left, e.Right))
		}
		severedByType[e.Type]++
	}

	severed, err := g.adj.ClearNode(id)
	if err != nil {
		return g.fail(op, err)
	}
	if err := g.edges.RemoveAll(severed); err != nil {
		return g.fail(op, err)
	}
	if _, err := g.nodes.Delete(label, key); err != nil {
		return g.fail(op, err)
	}

	for t, n := range severedByType {
		g.metrics.edgeRemoved(t, n)
	}
	g.metrics.nodeRemoved(label)
	g.log.Debug("node removed", "label", label, "key", key, "id", id, "edges_severed", len(severed))
	return nil
}

func distinctEdges(lists ...[]Neighbor) []EdgeID {
	seen := make(map[EdgeID]struct{})
	var out []EdgeID
	for _, list := range lists {
		for _, n := range list {
			if _, ok := seen[n.Edge]; ok {
				continue
			}
			seen[n.Edge] = struct{}{}
			out = append(out, n.Edge)
		}
	}
	return out
}

// GetNode returns a copy of the node with the given id.
func (g *Graph) GetNode(id NodeID) (*Node, error) {
	return g.nodes.Get(id)
}

// GetNodeByKey returns a copy of the node stored under (label, key).
func (g *Graph) GetNodeByKey(label, key string) (*Node, error) {
	return g.nodes.GetByKey(label, key)
}

// Resolve returns the id of the node stored under (label, key).
func (g *Graph) Resolve(label, key string) (NodeID, error) {
	return g.nodes.Resolve(label, key)
}

// UpdateNodeProperties merges patch into the node's properties. Reserved
// keys in patch are ignored.
func (g *Graph) UpdateNodeProperties(label, key string, patch Properties) error {
	if err := g.nodes.UpdateProperties(label, key, patch); err != nil {
		return err
	}
	g.log.Debug("node properties updated", "label", label, "key", key, "keys", len(patch))
	return nil
}

// AddEdge creates an edge of edgeType from left to right carrying weight,
// and returns its id. It fails with ErrNotFound when either endpoint key
// does not resolve.
func (g *Graph) AddEdge(edgeType string, left, right NodeKey, weight any) (EdgeID, error) {
	l, err := g.nodes.Resolve(left.Label, left.Key)
	if err != nil {
		return 0, fmt.Errorf("left endpoint: %w", err)
	}
	r, err := g.nodes.Resolve(right.Label, right.Key)
	if err != nil {
		return 0, fmt.Errorf("right endpoint: %w", err)
	}
	return g.AddEdgeByID(edgeType, l, r, weight)
}

// AddEdgeByID is AddEdge for callers that already hold node ids. It fails
// with ErrInvalidReference when either id is not a live node.
func (g *Graph) AddEdgeByID(edgeType string, left, right NodeID, weight any) (EdgeID, error) {
	const op = "add_edge"

	if !g.nodes.Exists(left) {
		return 0, fmt.Errorf("%w: left node %d", ErrInvalidReference, left)
	}
	if !g.nodes.Exists(right) {
		return 0, fmt.Errorf("%w: right node %d", ErrInvalidReference, right)
	}

	id, err := g.edges.Create(edgeType, left, right, weight)
	if err != nil {
		return 0, g.fail(op, err)
	}
	// The edge id is the adjacency weight token, so both layers agree on
	// identity.
	if !g.adj.AddEdge(left, right, id) {
		if rbErr := g.edges.RemoveByID(id); rbErr != nil {
			return 0, g.fail(op, fmt.Errorf("%w: rolling back edge %d: %v", ErrInvariantViolation, id, rbErr))
		}
		return 0, g.fail(op, fmt.Errorf("%w: adjacency rejected edge %d", ErrInvariantViolation, id))
	}

	g.metrics.edgeAdded(edgeType)
	g.log.Debug("edge added", "type", edgeType, "left", left, "right", right, "id", id)
	return id, nil
}

// RemoveEdge removes the edge of edgeType from left to right with the given
// ordinal.
func (g *Graph) RemoveEdge(edgeType string, left, right NodeKey, ordinal uint32) error {
	l, err := g.nodes.Resolve(left.Label, left.Key)
	if err != nil {
		return fmt.Errorf("left endpoint: %w", err)
	}
	r, err := g.nodes.Resolve(right.Label, right.Key)
	if err != nil {
		return fmt.Errorf("right endpoint: %w", err)
	}
	id, err := g.edges.Lookup(edgeType, l, r, ordinal)
	if err != nil {
		return err
	}
	return g.removeEdge(id)
}

// RemoveEdgeByID removes the edge with the given id.
func (g *Graph) RemoveEdgeByID(id EdgeID) error {
	if _, ok := g.edges.edges[id]; !ok {
		return fmt.Errorf("%w: edge %d", ErrNotFound, id)
	}
	return g.removeEdge(id)
}

func (g *Graph) removeEdge(id EdgeID) error {
	const op = "remove_edge"

	if err := g.edges.validateRemoval(id); err != nil {
		return g.fail(op, err)
	}
	e := g.edges.edges[id]
	removed, err := g.adj.RemoveEdge(e.Left, e.Right, id)
	if err != nil {
		return g.fail(op, err)
	}
	if !removed {
		return g.fail(op, fmt.Errorf("%w: edge %d has a record but no adjacency entry", ErrInvariantViolation, id))
	}
	edgeType := e.Type
	if err := g.edges.RemoveByID(id); err != nil {
		return g.fail(op, err)
	}

	g.metrics.edgeRemoved(edgeType, 1)
	g.log.Debug("edge removed", "type", edgeType, "id", id)
	return nil
}

// GetEdge returns a copy of the edge with the given id.
func (g *Graph) GetEdge(id EdgeID) (*Edge, error) {
	return g.edges.Get(id)
}

// LookupEdge returns the edge of edgeType from left to right with the given
// ordinal.
func (g *Graph) LookupEdge(edgeType string, left, right NodeKey, ordinal uint32) (*Edge, error) {
	l, err := g.nodes.Resolve(left.Label, left.Key)
	if err != nil {
		return nil, fmt.Errorf("left endpoint: %w", err)
	}
	r, err := g.nodes.Resolve(right.Label, right.Key)
	if err != nil {
		return nil, fmt.Errorf("right endpoint: %w", err)
	}
	id, err := g.edges.Lookup(edgeType, l, r, ordinal)
	if err != nil {
		return nil, err
	}
	return g.edges.Get(id)
}

// EdgesBetween returns every edge from left to right, in insertion order.
func (g *Graph) EdgesBetween(left, right NodeID) []*Edge {
	var out []*Edge
	for _, n := range g.adj.Out(left) {
		if n.Node != right {
			continue
		}
		if e, err := g.edges.Get(n.Edge); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// HasEdge reports whether edge joins left to right.
func (g *Graph) HasEdge(left, right NodeID, edge EdgeID) bool {
	return g.adj.Contains(left, right, edge)
}

// Neighbors returns the nodes adjacent to id in direction dir, one entry
// per edge, in insertion order.
func (g *Graph) Neighbors(id NodeID, dir Direction) ([]NodeID, error) {
	entries, err := g.Adjacent(id, dir)
	if err != nil {
		return nil, err
	}
	out := make([]NodeID, len(entries))
	for i, n := range entries {
		out[i] = n.Node
	}
	return out, nil
}

// Adjacent returns the (node, edge) pairs adjacent to id in direction dir.
func (g *Graph) Adjacent(id NodeID, dir Direction) ([]Neighbor, error) {
	if !g.nodes.Exists(id) {
		return nil, fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	return g.adj.Entries(id, dir), nil
}

// NeighborsByType is Neighbors restricted to edges of edgeType.
func (g *Graph) NeighborsByType(id NodeID, dir Direction, edgeType string) ([]NodeID, error) {
	entries, err := g.Adjacent(id, dir)
	if err != nil {
		return nil, err
	}
	out := []NodeID{}
	for _, n := range entries {
		if e, ok := g.edges.edges[n.Edge]; ok && e.Type == edgeType {
			out = append(out, n.Node)
		}
	}
	return out, nil
}

// Degree returns the number of edges adjacent to id in direction dir.
func (g *Graph) Degree(id NodeID, dir Direction) (int, error) {
	if !g.nodes.Exists(id) {
		return 0, fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	if dir == Incoming {
		return g.adj.InDegree(id), nil
	}
	return g.adj.OutDegree(id), nil
}

// EdgeTypeCount returns the number of live edges of edgeType.
func (g *Graph) EdgeTypeCount(edgeType string) int {
	return g.edges.CountByType(edgeType)
}

// EdgeTypes returns the edge types with at least one live edge, sorted.
func (g *Graph) EdgeTypes() []string {
	return g.edges.Types()
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int {
	return g.nodes.Len()
}

// EdgeCount returns the number of live edges.
func (g *Graph) EdgeCount() int {
	return g.edges.Len()
}

// IsEmpty reports whether the graph holds no nodes.
func (g *Graph) IsEmpty() bool {
	return g.nodes.Len() == 0
}

// NodeIDs returns every live node id, ascending.
func (g *Graph) NodeIDs() []NodeID {
	return g.nodes.IDs()
}

// NodesByLabel returns the ids of every node with label, ascending.
func (g *Graph) NodesByLabel(label string) []NodeID {
	return g.nodes.ByLabel(label)
}

// Labels returns the distinct labels of live nodes, sorted.
func (g *Graph) Labels() []string {
	return g.nodes.Labels()
}

// FreeNodeIDs returns how many released node ids are waiting for reuse.
func (g *Graph) FreeNodeIDs() int {
	return g.nodeIDs.Free()
}

// Clear removes every node and edge and resets both id spaces.
func (g *Graph) Clear() {
	nodes, edges := g.nodes.Len(), g.edges.Len()
	g.adj.Clear()
	g.edges.Clear()
	g.nodes.Clear()
	g.edgeIDs.Reset()
	g.nodeIDs.Reset()
	g.log.Info("graph cleared", "nodes", nodes, "edges", edges)
}

// CheckInvariants verifies that every index agrees with every other. It
// returns an error wrapping ErrInvariantViolation on the first mismatch.
func (g *Graph) CheckInvariants() error {
	if err := g.nodes.check(); err != nil {
		return g.fail("check", err)
	}
	if err := g.edges.check(); err != nil {
		return g.fail("check", err)
	}
	if err := g.adj.check(); err != nil {
		return g.fail("check", err)
	}

	// Every adjacency entry is a live edge joining live nodes, and every
	// live edge has exactly one forward entry.
	forward := g.adj.EdgeIDs()
	if len(forward) != g.edges.Len() {
		return g.fail("check", fmt.Errorf("%w: %d adjacency entries for %d edges", ErrInvariantViolation, len(forward), g.edges.Len()))
	}
	for _, left := range g.adj.forwardNodes.Keys() {
		for _, n := range g.adj.Out(left) {
			e, ok := g.edges.edges[n.Edge]
			if !ok {
				return g.fail("check", fmt.Errorf("%w: adjacency names missing edge %d", ErrInvariantViolation, n.Edge))
			}
			if e.Left != left || e.Right != n.Node {
				return g.fail("check", fmt.Errorf("%w: edge %d joins %d->%d but is indexed as %d->%d",
					ErrInvariantViolation, e.ID, e.Left, e.Right, left, n.Node))
			}
			if !g.nodes.Exists(left) || !g.nodes.Exists(n.Node) {
				return g.fail("check", fmt.Errorf("%w: edge %d references a removed node", ErrInvariantViolation, e.ID))
			}
		}
	}
	return nil
}
