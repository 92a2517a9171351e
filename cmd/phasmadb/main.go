// Package main provides the PhasmaDB CLI entry point.
//
// The CLI loads a YAML fixture into an in-memory graph and inspects it. No
// command writes anything back.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phasmadb/phasmadb/pkg/config"
	"github.com/phasmadb/phasmadb/pkg/fixture"
	"github.com/phasmadb/phasmadb/pkg/graph"
	"github.com/phasmadb/phasmadb/pkg/linkpredict"
	"github.com/phasmadb/phasmadb/pkg/logging"
	"github.com/phasmadb/phasmadb/pkg/metrics"
)

var (
	version   = "0.1.0"
	commit    = "dev"
	buildTime = "unknown" // Set via ldflags: -X main.buildTime=$(date +%Y%m%d-%H%M%S)
)

// errMetricsDisabled is returned by serve-metrics when metrics.enabled is off.
var errMetricsDisabled = errors.New("metrics are disabled (set metrics.enabled or PHASMADB_METRICS_ENABLED=true)")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "phasmadb",
		Short: "PhasmaDB - embedded in-memory property graph",
		Long: `PhasmaDB is an embedded in-memory property graph written in Go.

Nodes are addressed by (label, key), edges are typed and may run in
parallel, and neighbor lookup is cheap in both directions. The CLI
loads a YAML fixture into a fresh graph and inspects it.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Config file (default: search standard locations)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: silent, error, warn, info, debug")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text, json")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "PhasmaDB v%s (%s) built %s\n", version, commit, buildTime)
		},
	})

	// Stats command
	statsCmd := &cobra.Command{
		Use:   "stats <fixture>",
		Short: "Print node, edge and degree statistics",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}
	statsCmd.Flags().String("output", "yaml", "Output format: yaml, json")
	rootCmd.AddCommand(statsCmd)

	// Check command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "check <fixture>",
		Short: "Load a fixture and verify every index agrees",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	})

	// Neighbors command
	neighborsCmd := &cobra.Command{
		Use:   "neighbors <fixture>",
		Short: "List the neighbors of a node",
		Args:  cobra.ExactArgs(1),
		RunE:  runNeighbors,
	}
	neighborsCmd.Flags().String("label", "", "Node label")
	neighborsCmd.Flags().String("key", "", "Node key")
	neighborsCmd.Flags().String("direction", "out", "Direction: out, in")
	neighborsCmd.Flags().String("type", "", "Only follow edges of this type")
	_ = neighborsCmd.MarkFlagRequired("label")
	_ = neighborsCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(neighborsCmd)

	// Predict command
	predictCmd := &cobra.Command{
		Use:   "predict <fixture>",
		Short: "Suggest missing edges for a node",
		Long: fmt.Sprintf("Suggest missing edges for a node using a topological heuristic.\n\nAlgorithms: %s",
			strings.Join(linkpredict.Algorithms(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: runPredict,
	}
	predictCmd.Flags().String("label", "", "Node label")
	predictCmd.Flags().String("key", "", "Node key")
	predictCmd.Flags().String("algorithm", "", "Scoring algorithm (default from config)")
	predictCmd.Flags().Int("top", 0, "Number of suggestions (default from config)")
	predictCmd.Flags().Bool("directed", false, "Follow edge direction instead of treating edges as undirected")
	predictCmd.Flags().StringSlice("type", nil, "Only follow edges of these types (repeatable)")
	_ = predictCmd.MarkFlagRequired("label")
	_ = predictCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(predictCmd)

	// Serve metrics command
	serveCmd := &cobra.Command{
		Use:   "serve-metrics <fixture>",
		Short: "Serve graph metrics for Prometheus",
		Long: `Serve graph metrics for Prometheus on /metrics until interrupted.

Requires metrics.enabled in the config file or PHASMADB_METRICS_ENABLED=true.
The listen address comes from --address, then metrics.address.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runServeMetrics,
	}
	serveCmd.Flags().String("address", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)

	return rootCmd
}

// session is a loaded fixture with the configuration it was loaded under.
type session struct {
	cfg    *config.Config
	log    *slog.Logger
	graph  *graph.Graph
	result fixture.Result
	close  func() error
}

// openSession resolves configuration, applies command-line overrides,
// builds the logger and loads the fixture at path into a fresh graph.
func openSession(cmd *cobra.Command, path string) (*session, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	w, closeLog, err := logging.OpenOutput(cfg.Logging.Output)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, w, cfg.Logging.Format)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	f, err := fixture.LoadFile(path)
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	g := graph.New(cfg.GraphOptions(logger)...)
	res, err := f.Apply(g)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	logger.Info("fixture loaded", "path", path, "nodes", res.Nodes, "edges", res.Edges, "graph_id", g.ID().String())

	return &session{cfg: cfg, log: logger, graph: g, result: res, close: closeLog}, nil
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.close()

	output, _ := cmd.Flags().GetString("output")
	return writeValue(cmd.OutOrStdout(), output, s.graph.Stats())
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.graph.CheckInvariants(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d nodes, %d edges\n", s.graph.NodeCount(), s.graph.EdgeCount())
	return nil
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.close()

	label, _ := cmd.Flags().GetString("label")
	key, _ := cmd.Flags().GetString("key")
	dirFlag, _ := cmd.Flags().GetString("direction")
	edgeType, _ := cmd.Flags().GetString("type")

	dir, err := graph.ParseDirection(dirFlag)
	if err != nil {
		return err
	}
	id, err := s.graph.Resolve(label, key)
	if err != nil {
		return err
	}
	adj, err := s.graph.Adjacent(id, dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, n := range adj {
		e, err := s.graph.GetEdge(n.Edge)
		if err != nil {
			return err
		}
		if edgeType != "" && e.Type != edgeType {
			continue
		}
		node, err := s.graph.GetNode(n.Node)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s/%s\t#%d\n", e.Type, node.Label, node.Key, e.Ordinal)
	}
	return nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.close()

	label, _ := cmd.Flags().GetString("label")
	key, _ := cmd.Flags().GetString("key")
	algorithm, _ := cmd.Flags().GetString("algorithm")
	top, _ := cmd.Flags().GetInt("top")
	directed, _ := cmd.Flags().GetBool("directed")
	edgeTypes, _ := cmd.Flags().GetStringSlice("type")
	if algorithm == "" {
		algorithm = s.cfg.Predict.Algorithm
	}
	if top <= 0 {
		top = s.cfg.Predict.TopK
	}

	id, err := s.graph.Resolve(label, key)
	if err != nil {
		return err
	}
	view := linkpredict.BuildGraph(s.graph, !directed, edgeTypes...)
	preds, err := linkpredict.Predict(view, algorithm, id, top)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range preds {
		node, err := s.graph.GetNode(p.TargetID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s/%s\t%s\n", node.Label, node.Key, strconv.FormatFloat(p.Score, 'f', 4, 64))
	}
	return nil
}

func runServeMetrics(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.close()

	if !s.cfg.Metrics.Enabled {
		return errMetricsDisabled
	}
	address, _ := cmd.Flags().GetString("address")
	if address == "" {
		address = s.cfg.Metrics.Address
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if _, err := metrics.Register(reg, graph.NewLocked(s.graph)); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("serving metrics", "address", address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("shutting down metrics server")
	return srv.Shutdown(shutdownCtx)
}

// writeValue encodes v to w as yaml or json.
func writeValue(w io.Writer, format string, v any) error {
	switch format {
	case "", "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q (want yaml or json)", format)
}
