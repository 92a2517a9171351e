package graph

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "phasmadb.graph"

// instruments are the counters a Graph reports through. They are created
// once per Graph from its MeterProvider; with no SDK installed the global
// provider is a no-op.
type instruments struct {
	nodesAdded          metric.Int64Counter
	nodesRemoved        metric.Int64Counter
	edgesAdded          metric.Int64Counter
	edgesRemoved        metric.Int64Counter
	invariantViolations metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider) (*instruments, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	var (
		ins instruments
		err error
	)
	if ins.nodesAdded, err = meter.Int64Counter(
		"phasmadb.graph.nodes_added",
		metric.WithDescription("Nodes created"),
	); err != nil {
		return nil, err
	}
	if ins.nodesRemoved, err = meter.Int64Counter(
		"phasmadb.graph.nodes_removed",
		metric.WithDescription("Nodes removed"),
	); err != nil {
		return nil, err
	}
	if ins.edgesAdded, err = meter.Int64Counter(
		"phasmadb.graph.edges_added",
		metric.WithDescription("Edges created, by edge type"),
	); err != nil {
		return nil, err
	}
	if ins.edgesRemoved, err = meter.Int64Counter(
		"phasmadb.graph.edges_removed",
		metric.WithDescription("Edges removed directly or by node removal, by edge type"),
	); err != nil {
		return nil, err
	}
	if ins.invariantViolations, err = meter.Int64Counter(
		"phasmadb.graph.invariant_violations",
		metric.WithDescription("Operations aborted because the indexes disagreed"),
	); err != nil {
		return nil, err
	}
	return &ins, nil
}

func (i *instruments) nodeAdded(label string) {
	i.nodesAdded.Add(context.Background(), 1, metric.WithAttributes(attribute.String("label", label)))
}

func (i *instruments) nodeRemoved(label string) {
	i.nodesRemoved.Add(context.Background(), 1, metric.WithAttributes(attribute.String("label", label)))
}

func (i *instruments) edgeAdded(edgeType string) {
	i.edgesAdded.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", edgeType)))
}

func (i *instruments) edgeRemoved(edgeType string, n int) {
	if n == 0 {
		return
	}
	i.edgesRemoved.Add(context.Background(), int64(n), metric.WithAttributes(attribute.String("type", edgeType)))
}

func (i *instruments) invariantViolation(op string) {
	i.invariantViolations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", op)))
}
