package graph

import (
	"github.com/viterin/vek"
)

// Stats summarizes the shape of a graph.
type Stats struct {
	GraphID       string         `json:"graph_id" yaml:"graph_id"`
	Nodes         int            `json:"nodes" yaml:"nodes"`
	Edges         int            `json:"edges" yaml:"edges"`
	Labels        int            `json:"labels" yaml:"labels"`
	EdgesByType   map[string]int `json:"edges_by_type" yaml:"edges_by_type"`
	FreeNodeIDs   int            `json:"free_node_ids" yaml:"free_node_ids"`
	MeanOut       float64        `json:"mean_out_degree" yaml:"mean_out_degree"`
	MaxOut        int            `json:"max_out_degree" yaml:"max_out_degree"`
	MeanIn        float64        `json:"mean_in_degree" yaml:"mean_in_degree"`
	MaxIn         int            `json:"max_in_degree" yaml:"max_in_degree"`
	IsolatedNodes int            `json:"isolated_nodes" yaml:"isolated_nodes"`
}

// Stats computes degree statistics over every live node.
func (g *Graph) Stats() Stats {
	s := Stats{
		GraphID:     g.id.String(),
		Nodes:       g.nodes.Len(),
		Edges:       g.edges.Len(),
		Labels:      len(g.nodes.Labels()),
		EdgesByType: make(map[string]int),
		FreeNodeIDs: g.nodeIDs.Free(),
	}
	for _, t := range g.edges.Types() {
		s.EdgesByType[t] = g.edges.CountByType(t)
	}
	if s.Nodes == 0 {
		return s
	}

	out := make([]float64, 0, s.Nodes)
	in := make([]float64, 0, s.Nodes)
	for _, id := range g.nodes.IDs() {
		o, i := g.adj.OutDegree(id), g.adj.InDegree(id)
		out = append(out, float64(o))
		in = append(in, float64(i))
		if o == 0 && i == 0 {
			s.IsolatedNodes++
		}
	}
	s.MeanOut = vek.Mean(out)
	s.MaxOut = int(vek.Max(out))
	s.MeanIn = vek.Mean(in)
	s.MaxIn = int(vek.Max(in))
	return s
}
