package graph

import "sync"

// Locked wraps a Graph with a reader/writer lock so it can be shared between
// goroutines. Mutations take the write lock; lookups share the read lock.
//
// Use Locked when a Graph is reachable from more than one goroutine, for
// example when a metrics scraper reads it while the host mutates it.
type Locked struct {
	mu sync.RWMutex
	g  *Graph
}

// NewLocked wraps g. The caller must not use g directly afterwards.
func NewLocked(g *Graph) *Locked {
	return &Locked{g: g}
}

// Read runs fn with the read lock held. fn must not mutate g.
func (l *Locked) Read(fn func(g *Graph) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(l.g)
}

// Write runs fn with the write lock held, so several operations can be
// applied without another goroutine observing the state between them.
func (l *Locked) Write(fn func(g *Graph) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.g)
}

// AddNode is Graph.AddNode under the write lock.
func (l *Locked) AddNode(label, key string, props Properties) (NodeID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.g.AddNode(label, key, props)
}

// RemoveNode is Graph.RemoveNode under the write lock.
func (l *Locked) RemoveNode(label, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.g.RemoveNode(label, key)
}

// UpdateNodeProperties is Graph.UpdateNodeProperties under the write lock.
func (l *Locked) UpdateNodeProperties(label, key string, patch Properties) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.g.UpdateNodeProperties(label, key, patch)
}

// AddEdge is Graph.AddEdge under the write lock.
func (l *Locked) AddEdge(edgeType string, left, right NodeKey, weight any) (EdgeID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.g.AddEdge(edgeType, left, right, weight)
}

// RemoveEdge is Graph.RemoveEdge under the write lock.
func (l *Locked) RemoveEdge(edgeType string, left, right NodeKey, ordinal uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.g.RemoveEdge(edgeType, left, right, ordinal)
}

// RemoveEdgeByID is Graph.RemoveEdgeByID under the write lock.
func (l *Locked) RemoveEdgeByID(id EdgeID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.g.RemoveEdgeByID(id)
}

// Clear empties the graph under the write lock.
func (l *Locked) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.g.Clear()
}

// GetNode returns a copy of the node with the given id.
func (l *Locked) GetNode(id NodeID) (*Node, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.GetNode(id)
}

// GetNodeByKey returns a copy of the node addressed by (label, key).
func (l *Locked) GetNodeByKey(label, key string) (*Node, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.GetNodeByKey(label, key)
}

// GetEdge returns a copy of the edge with the given id.
func (l *Locked) GetEdge(id EdgeID) (*Edge, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.GetEdge(id)
}

// Neighbors is Graph.Neighbors under the read lock.
func (l *Locked) Neighbors(id NodeID, dir Direction) ([]NodeID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.Neighbors(id, dir)
}

// EdgeTypeCount returns the number of live edges of edgeType.
func (l *Locked) EdgeTypeCount(edgeType string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.EdgeTypeCount(edgeType)
}

// EdgeTypes lists the edge types with at least one live edge.
func (l *Locked) EdgeTypes() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.EdgeTypes()
}

// NodeCount returns the number of live nodes.
func (l *Locked) NodeCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.NodeCount()
}

// EdgeCount returns the number of live edges.
func (l *Locked) EdgeCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.EdgeCount()
}

// Stats computes a Stats snapshot under the read lock, so the counts it
// reports are mutually consistent.
func (l *Locked) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.Stats()
}
