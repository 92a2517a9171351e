// Package config handles PhasmaDB configuration via YAML files and environment variables.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags (--log-level, --address, etc.)
//  2. Environment variables (PHASMADB_*)
//  3. Config file (config.yaml)
//  4. Built-in defaults
//
// Example Usage:
//
//	cfg, err := config.LoadFromFile(config.FindConfigFile())
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
//	logger, err := logging.New(cfg.Logging.Level, os.Stderr, cfg.Logging.Format)
//	if err != nil {
//		log.Fatal(err)
//	}
//	g := graph.New(cfg.GraphOptions(logger)...)
//
// Environment Variables (all use PHASMADB_ prefix):
//
// Logging:
//   - PHASMADB_LOG_LEVEL="info" (silent, error, warn, info, debug)
//   - PHASMADB_LOG_FORMAT="json"
//   - PHASMADB_LOG_OUTPUT="stderr"
//
// Graph:
//   - PHASMADB_MAX_NODE_IDS=0 (0 means the full 32-bit space)
//   - PHASMADB_MAX_EDGE_IDS=0
//
// Metrics:
//   - PHASMADB_METRICS_ENABLED=true
//   - PHASMADB_METRICS_ADDRESS=":9464"
//
// Link prediction:
//   - PHASMADB_PREDICT_ALGORITHM="adamic_adar"
//   - PHASMADB_PREDICT_TOPK=10
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phasmadb/phasmadb/pkg/graph"
	"github.com/phasmadb/phasmadb/pkg/logging"
)

// maxIDSpace is the size of the 32-bit id space.
const maxIDSpace = int64(1) << 32

// Config holds all PhasmaDB configuration.
//
// Configuration is organized into logical sections:
//   - Logging: level, format and destination of diagnostic output
//   - Graph: id space limits for the in-memory graph
//   - Metrics: Prometheus exposition
//   - Predict: link prediction defaults for the CLI
//
// Example:
//
//	config := config.LoadFromEnv()
//	if err := config.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Config: %s\n", config)
type Config struct {
	Logging LoggingConfig

	Graph GraphConfig

	Metrics MetricsConfig

	Predict PredictConfig
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level (silent, error, warn, info, debug)
	Level string
	// Format (json, text)
	Format string
	// Output path (stdout, stderr, or file path)
	Output string
}

// GraphConfig bounds the graph's id spaces. Zero means unbounded.
type GraphConfig struct {
	MaxNodeIDs int64
	MaxEdgeIDs int64
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool
	Address string
}

// PredictConfig holds link prediction defaults.
type PredictConfig struct {
	// Algorithm (common_neighbors, jaccard, adamic_adar, preferential_attachment, resource_allocation)
	Algorithm string
	TopK      int
}

// YAMLConfig is the on-disk layout of config.yaml.
type YAMLConfig struct {
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`

	Graph struct {
		MaxNodeIDs int64 `yaml:"max_node_ids"`
		MaxEdgeIDs int64 `yaml:"max_edge_ids"`
	} `yaml:"graph"`

	Metrics struct {
		Enabled *bool  `yaml:"enabled"`
		Address string `yaml:"address"`
	} `yaml:"metrics"`

	Predict struct {
		Algorithm string `yaml:"algorithm"`
		TopK      int    `yaml:"top_k"`
	} `yaml:"predict"`
}

// LoadDefaults returns a Config populated with built-in defaults only.
func LoadDefaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  string(logging.LevelSilent),
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9464",
		},
		Predict: PredictConfig{
			Algorithm: "adamic_adar",
			TopK:      10,
		},
	}
}

// LoadFromEnv loads configuration from environment variables on top of the
// built-in defaults.
//
// All values have sensible defaults, so LoadFromEnv() can be called without
// any environment variables set.
func LoadFromEnv() *Config {
	config := LoadDefaults()
	applyEnvVars(config)
	return config
}

func applyEnvVars(config *Config) {
	// Logging
	if v := getEnv("PHASMADB_LOG_LEVEL", ""); v != "" {
		config.Logging.Level = v
	}
	if v := getEnv("PHASMADB_LOG_FORMAT", ""); v != "" {
		config.Logging.Format = v
	}
	if v := getEnv("PHASMADB_LOG_OUTPUT", ""); v != "" {
		config.Logging.Output = v
	}

	// Graph
	if v := getEnvInt64("PHASMADB_MAX_NODE_IDS", -1); v >= 0 {
		config.Graph.MaxNodeIDs = v
	}
	if v := getEnvInt64("PHASMADB_MAX_EDGE_IDS", -1); v >= 0 {
		config.Graph.MaxEdgeIDs = v
	}

	// Metrics
	config.Metrics.Enabled = getEnvBool("PHASMADB_METRICS_ENABLED", config.Metrics.Enabled)
	if v := getEnv("PHASMADB_METRICS_ADDRESS", ""); v != "" {
		config.Metrics.Address = v
	}

	// Link prediction
	if v := getEnv("PHASMADB_PREDICT_ALGORITHM", ""); v != "" {
		config.Predict.Algorithm = v
	}
	if v := getEnvInt("PHASMADB_PREDICT_TOPK", 0); v > 0 {
		config.Predict.TopK = v
	}
}

// ApplyEnvVars applies environment variable overrides to an existing config.
func ApplyEnvVars(config *Config) {
	applyEnvVars(config)
}

// LoadFromFile loads configuration with proper precedence:
//  1. Built-in defaults (lowest priority)
//  2. YAML config file
//  3. Environment variables (highest priority before CLI args)
//
// A missing file is not an error; defaults and environment apply.
//
// Example YAML:
//
//	logging:
//	  level: debug
//	  format: json
//	graph:
//	  max_node_ids: 1000000
//	metrics:
//	  enabled: true
//	  address: ":9464"
func LoadFromFile(configPath string) (*Config, error) {
	config := LoadDefaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := applyYAML(config, data); err != nil {
				return nil, err
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnvVars(config)
	return config, nil
}

func applyYAML(config *Config, data []byte) error {
	var yamlCfg YAMLConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Logging.Level != "" {
		config.Logging.Level = yamlCfg.Logging.Level
	}
	if yamlCfg.Logging.Format != "" {
		config.Logging.Format = yamlCfg.Logging.Format
	}
	if yamlCfg.Logging.Output != "" {
		config.Logging.Output = yamlCfg.Logging.Output
	}

	if yamlCfg.Graph.MaxNodeIDs != 0 {
		config.Graph.MaxNodeIDs = yamlCfg.Graph.MaxNodeIDs
	}
	if yamlCfg.Graph.MaxEdgeIDs != 0 {
		config.Graph.MaxEdgeIDs = yamlCfg.Graph.MaxEdgeIDs
	}

	if yamlCfg.Metrics.Enabled != nil {
		config.Metrics.Enabled = *yamlCfg.Metrics.Enabled
	}
	if yamlCfg.Metrics.Address != "" {
		config.Metrics.Address = yamlCfg.Metrics.Address
	}

	if yamlCfg.Predict.Algorithm != "" {
		config.Predict.Algorithm = yamlCfg.Predict.Algorithm
	}
	if yamlCfg.Predict.TopK != 0 {
		config.Predict.TopK = yamlCfg.Predict.TopK
	}
	return nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}

	if c.Graph.MaxNodeIDs < 0 || c.Graph.MaxNodeIDs > maxIDSpace {
		return fmt.Errorf("invalid max node ids: %d", c.Graph.MaxNodeIDs)
	}
	if c.Graph.MaxEdgeIDs < 0 || c.Graph.MaxEdgeIDs > maxIDSpace {
		return fmt.Errorf("invalid max edge ids: %d", c.Graph.MaxEdgeIDs)
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics enabled but no address provided")
	}

	if c.Predict.TopK <= 0 {
		return fmt.Errorf("invalid predict top k: %d", c.Predict.TopK)
	}
	return nil
}

// GraphOptions translates the config into options for graph.New.
func (c *Config) GraphOptions(logger *slog.Logger) []graph.Option {
	opts := []graph.Option{graph.WithLogger(logger)}
	if c.Graph.MaxNodeIDs > 0 {
		opts = append(opts, graph.WithNodeIDLimit(uint64(c.Graph.MaxNodeIDs)))
	}
	if c.Graph.MaxEdgeIDs > 0 {
		opts = append(opts, graph.WithEdgeIDLimit(uint64(c.Graph.MaxEdgeIDs)))
	}
	return opts
}

// String returns a safe string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Log: %s/%s, MaxNodeIDs: %d, MaxEdgeIDs: %d, Metrics: %v@%s}",
		c.Logging.Level, c.Logging.Format,
		c.Graph.MaxNodeIDs, c.Graph.MaxEdgeIDs,
		c.Metrics.Enabled, c.Metrics.Address,
	)
}

// FindConfigFile searches for a config file in standard locations and
// returns the first one that exists, or "" if none does.
func FindConfigFile() string {
	var candidates []string

	// Priority 1: User home directory ~/.phasmadb/config.yaml (highest priority)
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".phasmadb", "config.yaml"))
	}

	// Priority 2: Current working directory
	candidates = append(candidates,
		"config.yaml",
		"phasmadb.yaml",
	)

	// Priority 3: XDG user config path
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "phasmadb", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
