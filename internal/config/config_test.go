package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/aaschess/internal/engine"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aaschess.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	ec := cfg.EngineConfig()
	assert.Equal(t, engine.ModeAlphaBeta, ec.Mode)
	assert.Equal(t, engine.DefaultOptions(), ec.AlphaBeta)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
engine:
  mode: hybrid
  workers: 4
alphabeta:
  aspiration_window: 25
  enable_lmr: false
mcts:
  simulations: 200
  max_time: 2s
allocator:
  allocator:
    high_entropy: 4.5
storage:
  data_dir: /tmp/aaschess-test
telemetry:
  metrics_addr: "localhost:9090"
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "hybrid", cfg.Engine.Mode)
	assert.Equal(t, 25, cfg.AlphaBeta.AspirationWindow)
	assert.False(t, cfg.AlphaBeta.EnableLMR)
	// Untouched keys keep their defaults.
	assert.Equal(t, engine.DefaultOptions().QuiescenceDepth, cfg.AlphaBeta.QuiescenceDepth)
	assert.Equal(t, 200, cfg.MCTS.Simulations)
	assert.Equal(t, 2*time.Second, cfg.MCTS.MaxTime)
	assert.Equal(t, 4.5, cfg.Allocator.Allocator.HighEntropy)
	assert.Equal(t, 1.0, cfg.Allocator.Allocator.LowEntropy)
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())

	dir, err := cfg.DataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/aaschess-test", dir)

	ec := cfg.EngineConfig()
	assert.Equal(t, engine.ModeHybrid, ec.Mode)
	assert.Equal(t, 4, ec.Workers)
	assert.Equal(t, 200, ec.MCTS.Simulations)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		tag  string
	}{
		{"mode", "engine:\n  mode: minimax\n", "searchmode"},
		{"level", "log:\n  level: loud\n", "loglevel"},
		{"window", "alphabeta:\n  aspiration_window: -1\n", "gte"},
		{"bands", "allocator:\n  allocator:\n    low_entropy: 5\n    high_entropy: 2\n", "gtfield"},
		{"epsilon", "mcts:\n  dirichlet_epsilon: 1.5\n", "lte"},
		{"exporter", "telemetry:\n  tracing:\n    exporter: jaeger\n", "oneof"},
		{"addr", "telemetry:\n  metrics_addr: nope\n", "hostname_port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.tag)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "engine: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}
