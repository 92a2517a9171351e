// Package fixture seeds a graph from a YAML document.
//
// A fixture lists nodes and then edges. Edges name their endpoints by
// (label, key), so a fixture never depends on the ids a graph hands out.
//
//	nodes:
//	  - label: Person
//	    key: alice
//	    properties: {age: 30}
//	  - label: Person
//	    key: bob
//	edges:
//	  - type: knows
//	    from: {label: Person, key: alice}
//	    to: {label: Person, key: bob}
//	    weight: 1.0
//
// Fixtures are read-only input; nothing is ever written back.
package fixture

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/phasmadb/phasmadb/pkg/graph"
)

// Fixture is a decoded fixture document.
type Fixture struct {
	Nodes []Node `yaml:"nodes"`
	Edges []Edge `yaml:"edges"`
}

// Node describes one node to create.
type Node struct {
	Label      string           `yaml:"label"`
	Key        string           `yaml:"key"`
	Properties graph.Properties `yaml:"properties"`
}

// Ref names a node by label and key.
type Ref struct {
	Label string `yaml:"label"`
	Key   string `yaml:"key"`
}

// NodeKey converts r to the graph's key type.
func (r Ref) NodeKey() graph.NodeKey {
	return graph.NodeKey{Label: r.Label, Key: r.Key}
}

// Edge describes one edge to create.
type Edge struct {
	Type   string `yaml:"type"`
	From   Ref    `yaml:"from"`
	To     Ref    `yaml:"to"`
	Weight any    `yaml:"weight"`
}

// Target is what a fixture is applied to. Both *graph.Graph and
// *graph.Locked satisfy it.
type Target interface {
	AddNode(label, key string, props graph.Properties) (graph.NodeID, error)
	AddEdge(edgeType string, left, right graph.NodeKey, weight any) (graph.EdgeID, error)
}

// Result counts what Apply created.
type Result struct {
	Nodes int
	Edges int
}

// Load decodes a fixture from r. Unknown fields are rejected. An empty
// document is an empty fixture.
func Load(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// LoadFile decodes the fixture stored at path.
func LoadFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer file.Close()
	return Load(file)
}

// Apply creates every node and then every edge in document order. It stops
// at the first failure; what was created before it stays in the graph and
// is reported in the Result.
func (f *Fixture) Apply(g Target) (Result, error) {
	var res Result
	for i, n := range f.Nodes {
		if _, err := g.AddNode(n.Label, n.Key, n.Properties); err != nil {
			return res, fmt.Errorf("node %d (%s/%s): %w", i, n.Label, n.Key, err)
		}
		res.Nodes++
	}
	for i, e := range f.Edges {
		if _, err := g.AddEdge(e.Type, e.From.NodeKey(), e.To.NodeKey(), e.Weight); err != nil {
			return res, fmt.Errorf("edge %d (%s %s->%s): %w", i, e.Type, e.From.NodeKey(), e.To.NodeKey(), err)
		}
		res.Edges++
	}
	return res, nil
}
