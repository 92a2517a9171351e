// Package metrics exposes the shape of a live graph to Prometheus.
//
// The collector reads the graph at scrape time under its read lock, so the
// exported gauges always describe one consistent state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phasmadb/phasmadb/pkg/graph"
)

const namespace = "phasmadb"

var (
	nodesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "graph", "nodes"),
		"Live nodes in the graph",
		nil, nil,
	)
	edgesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "graph", "edges"),
		"Live edges in the graph",
		nil, nil,
	)
	edgesByTypeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "graph", "edges_by_type"),
		"Live edges in the graph by edge type",
		[]string{"type"}, nil,
	)
	freeNodeIDsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "graph", "free_node_ids"),
		"Released node ids waiting for reuse",
		nil, nil,
	)
)

// Collector is a prometheus.Collector over a shared graph.
type Collector struct {
	graph *graph.Locked
}

// NewCollector returns a collector reading l.
func NewCollector(l *graph.Locked) *Collector {
	return &Collector{graph: l}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- nodesDesc
	ch <- edgesDesc
	ch <- edgesByTypeDesc
	ch <- freeNodeIDsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.graph.Stats()

	ch <- prometheus.MustNewConstMetric(nodesDesc, prometheus.GaugeValue, float64(s.Nodes))
	ch <- prometheus.MustNewConstMetric(edgesDesc, prometheus.GaugeValue, float64(s.Edges))
	for t, n := range s.EdgesByType {
		ch <- prometheus.MustNewConstMetric(edgesByTypeDesc, prometheus.GaugeValue, float64(n), t)
	}
	ch <- prometheus.MustNewConstMetric(freeNodeIDsDesc, prometheus.GaugeValue, float64(s.FreeNodeIDs))
}

// Register registers a collector for l with reg.
func Register(reg prometheus.Registerer, l *graph.Locked) (*Collector, error) {
	c := NewCollector(l)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Handler serves the metrics gathered by reg in the Prometheus exposition
// format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
