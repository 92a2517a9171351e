// Package config tests for environment and YAML configuration.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phasmadb/phasmadb/pkg/graph"
	"github.com/phasmadb/phasmadb/pkg/logging"
)

// TestLoadFromEnv_Defaults tests default values are loaded correctly.
func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadFromEnv()

	// Logging defaults - silent unless asked
	if cfg.Logging.Level != "silent" {
		t.Errorf("expected log level 'silent', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("expected log output 'stderr', got %q", cfg.Logging.Output)
	}

	// Graph defaults - unbounded id spaces
	if cfg.Graph.MaxNodeIDs != 0 {
		t.Errorf("expected max node ids 0, got %d", cfg.Graph.MaxNodeIDs)
	}
	if cfg.Graph.MaxEdgeIDs != 0 {
		t.Errorf("expected max edge ids 0, got %d", cfg.Graph.MaxEdgeIDs)
	}

	// Metrics defaults
	if cfg.Metrics.Enabled {
		t.Error("expected Metrics.Enabled to be false by default")
	}
	if cfg.Metrics.Address != ":9464" {
		t.Errorf("expected metrics address ':9464', got %q", cfg.Metrics.Address)
	}

	// Predict defaults
	if cfg.Predict.Algorithm != "adamic_adar" {
		t.Errorf("expected algorithm 'adamic_adar', got %q", cfg.Predict.Algorithm)
	}
	if cfg.Predict.TopK != 10 {
		t.Errorf("expected top k 10, got %d", cfg.Predict.TopK)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// TestLoadFromEnv_CustomValues tests every PHASMADB_ variable is honored.
func TestLoadFromEnv_CustomValues(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("PHASMADB_LOG_LEVEL", "debug")
	t.Setenv("PHASMADB_LOG_FORMAT", "json")
	t.Setenv("PHASMADB_LOG_OUTPUT", "stdout")
	t.Setenv("PHASMADB_MAX_NODE_IDS", "1000")
	t.Setenv("PHASMADB_MAX_EDGE_IDS", "5000")
	t.Setenv("PHASMADB_METRICS_ENABLED", "true")
	t.Setenv("PHASMADB_METRICS_ADDRESS", "127.0.0.1:9000")
	t.Setenv("PHASMADB_PREDICT_ALGORITHM", "jaccard")
	t.Setenv("PHASMADB_PREDICT_TOPK", "3")

	cfg := LoadFromEnv()

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("expected log output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Graph.MaxNodeIDs != 1000 {
		t.Errorf("expected max node ids 1000, got %d", cfg.Graph.MaxNodeIDs)
	}
	if cfg.Graph.MaxEdgeIDs != 5000 {
		t.Errorf("expected max edge ids 5000, got %d", cfg.Graph.MaxEdgeIDs)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected Metrics.Enabled to be true")
	}
	if cfg.Metrics.Address != "127.0.0.1:9000" {
		t.Errorf("expected metrics address '127.0.0.1:9000', got %q", cfg.Metrics.Address)
	}
	if cfg.Predict.Algorithm != "jaccard" {
		t.Errorf("expected algorithm 'jaccard', got %q", cfg.Predict.Algorithm)
	}
	if cfg.Predict.TopK != 3 {
		t.Errorf("expected top k 3, got %d", cfg.Predict.TopK)
	}
}

// TestLoadFromEnv_BoolParsing tests various boolean formats.
func TestLoadFromEnv_BoolParsing(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"no", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			clearEnvVars(t)
			t.Setenv("PHASMADB_METRICS_ENABLED", tt.value)

			cfg := LoadFromEnv()
			if cfg.Metrics.Enabled != tt.expected {
				t.Errorf("PHASMADB_METRICS_ENABLED=%q: expected %v, got %v", tt.value, tt.expected, cfg.Metrics.Enabled)
			}
		})
	}
}

// TestLoadFromEnv_InvalidNumbers tests that unparsable numbers keep the defaults.
func TestLoadFromEnv_InvalidNumbers(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("PHASMADB_MAX_NODE_IDS", "lots")
	t.Setenv("PHASMADB_PREDICT_TOPK", "-4")

	cfg := LoadFromEnv()
	if cfg.Graph.MaxNodeIDs != 0 {
		t.Errorf("expected max node ids 0, got %d", cfg.Graph.MaxNodeIDs)
	}
	if cfg.Predict.TopK != 10 {
		t.Errorf("expected top k 10, got %d", cfg.Predict.TopK)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Run("yaml then env", func(t *testing.T) {
		clearEnvVars(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		yamlData := `
logging:
  level: info
  format: json
graph:
  max_node_ids: 64
  max_edge_ids: 128
metrics:
  enabled: true
  address: ":9999"
predict:
  algorithm: jaccard
  top_k: 5
`
		if err := os.WriteFile(path, []byte(yamlData), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("PHASMADB_LOG_LEVEL", "debug")

		cfg, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("LoadFromFile: %v", err)
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("env should override file: got level %q", cfg.Logging.Level)
		}
		if cfg.Logging.Format != "json" {
			t.Errorf("expected format 'json', got %q", cfg.Logging.Format)
		}
		if cfg.Graph.MaxNodeIDs != 64 || cfg.Graph.MaxEdgeIDs != 128 {
			t.Errorf("expected id limits 64/128, got %d/%d", cfg.Graph.MaxNodeIDs, cfg.Graph.MaxEdgeIDs)
		}
		if !cfg.Metrics.Enabled || cfg.Metrics.Address != ":9999" {
			t.Errorf("unexpected metrics config %+v", cfg.Metrics)
		}
		if cfg.Predict.Algorithm != "jaccard" || cfg.Predict.TopK != 5 {
			t.Errorf("unexpected predict config %+v", cfg.Predict)
		}
	})

	t.Run("explicit false in yaml", func(t *testing.T) {
		clearEnvVars(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("metrics:\n  enabled: false\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("LoadFromFile: %v", err)
		}
		if cfg.Metrics.Enabled {
			t.Error("expected Metrics.Enabled false")
		}
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		clearEnvVars(t)
		cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadFromFile: %v", err)
		}
		if cfg.Logging.Level != "silent" {
			t.Errorf("expected default level, got %q", cfg.Logging.Level)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		clearEnvVars(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("logging: [unclosed"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFromFile(path); err == nil || !strings.Contains(err.Error(), "failed to parse") {
			t.Errorf("expected parse error, got %v", err)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "unknown log level",
			modify: func(c *Config) {
				c.Logging.Level = "loud"
			},
			wantErr: true,
			errMsg:  "unknown log level",
		},
		{
			name: "unknown log format",
			modify: func(c *Config) {
				c.Logging.Format = "xml"
			},
			wantErr: true,
			errMsg:  "invalid log format",
		},
		{
			name: "negative node limit",
			modify: func(c *Config) {
				c.Graph.MaxNodeIDs = -1
			},
			wantErr: true,
			errMsg:  "invalid max node ids",
		},
		{
			name: "edge limit beyond 32 bits",
			modify: func(c *Config) {
				c.Graph.MaxEdgeIDs = maxIDSpace + 1
			},
			wantErr: true,
			errMsg:  "invalid max edge ids",
		},
		{
			name: "full 32-bit space is fine",
			modify: func(c *Config) {
				c.Graph.MaxEdgeIDs = maxIDSpace
			},
			wantErr: false,
		},
		{
			name: "metrics without address",
			modify: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Address = ""
			},
			wantErr: true,
			errMsg:  "no address",
		},
		{
			name: "zero top k",
			modify: func(c *Config) {
				c.Predict.TopK = 0
			},
			wantErr: true,
			errMsg:  "invalid predict top k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadDefaults()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfig_GraphOptions(t *testing.T) {
	cfg := LoadDefaults()
	cfg.Graph.MaxNodeIDs = 2

	g := graph.New(cfg.GraphOptions(logging.Discard())...)
	for _, k := range []string{"a", "b"} {
		if _, err := g.AddNode("Person", k, nil); err != nil {
			t.Fatalf("AddNode(%s): %v", k, err)
		}
	}
	if _, err := g.AddNode("Person", "c", nil); !errors.Is(err, graph.ErrAllocatorExhausted) {
		t.Errorf("expected ErrAllocatorExhausted, got %v", err)
	}
}

func TestConfig_String(t *testing.T) {
	cfg := LoadDefaults()
	cfg.Metrics.Enabled = true

	str := cfg.String()
	for _, want := range []string{"silent/text", "Metrics: true@:9464"} {
		if !strings.Contains(str, want) {
			t.Errorf("expected String() to contain %q, got %q", want, str)
		}
	}
}

func TestFindConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	if got := FindConfigFile(); got != "" {
		t.Errorf("expected no config file, got %q", got)
	}

	dir := filepath.Join(home, ".phasmadb")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(want, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

// clearEnvVars blanks every PHASMADB_ variable for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	envVars := []string{
		"PHASMADB_LOG_LEVEL",
		"PHASMADB_LOG_FORMAT",
		"PHASMADB_LOG_OUTPUT",
		"PHASMADB_MAX_NODE_IDS",
		"PHASMADB_MAX_EDGE_IDS",
		"PHASMADB_METRICS_ENABLED",
		"PHASMADB_METRICS_ADDRESS",
		"PHASMADB_PREDICT_ALGORITHM",
		"PHASMADB_PREDICT_TOPK",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}
