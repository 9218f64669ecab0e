// Package config loads the engine settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hailam/aaschess/internal/aas"
	"github.com/hailam/aaschess/internal/engine"
	"github.com/hailam/aaschess/internal/mcts"
	"github.com/hailam/aaschess/internal/storage"
	"github.com/hailam/aaschess/internal/telemetry"
)

// Config is the root of the configuration file.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	AlphaBeta engine.Options  `yaml:"alphabeta"`
	MCTS      mcts.Config     `yaml:"mcts"`
	Allocator aas.Config      `yaml:"allocator"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// EngineConfig selects the search strategy.
type EngineConfig struct {
	Mode string `yaml:"mode" validate:"searchmode"`
	// Workers bounds the hybrid strategy's parallel searchers. 0 uses
	// GOMAXPROCS.
	Workers int `yaml:"workers" validate:"gte=0,lte=256"`
}

// StorageConfig controls the on-disk store.
type StorageConfig struct {
	Enabled bool `yaml:"enabled"`
	// DataDir overrides the platform data directory.
	DataDir string `yaml:"data_dir"`
}

// TelemetryConfig controls metrics and tracing.
type TelemetryConfig struct {
	// MetricsAddr is the listen address of the Prometheus endpoint. Empty
	// disables it.
	MetricsAddr string                  `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	Tracing     telemetry.TracingConfig `yaml:"tracing"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"loglevel"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("searchmode", func(fl validator.FieldLevel) bool {
		_, err := engine.ParseMode(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := parseLevel(fl.Field().String())
		return err == nil
	})
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine:    EngineConfig{Mode: string(engine.ModeAlphaBeta)},
		AlphaBeta: engine.DefaultOptions(),
		MCTS:      mcts.DefaultConfig(),
		Allocator: aas.DefaultConfig(),
		Storage:   StorageConfig{Enabled: true},
		Telemetry: TelemetryConfig{
			Tracing: telemetry.TracingConfig{Exporter: "none", ServiceName: "aaschess"},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the file at path over the defaults and validates the result.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// EngineConfig converts the file into engine settings.
func (c Config) EngineConfig() engine.Config {
	mode, err := engine.ParseMode(c.Engine.Mode)
	if err != nil {
		mode = engine.ModeAlphaBeta
	}
	return engine.Config{
		Mode:      mode,
		AlphaBeta: c.AlphaBeta,
		MCTS:      c.MCTS,
		AAS:       c.Allocator,
		Workers:   c.Engine.Workers,
	}
}

// DataDir returns the storage directory, falling back to the platform
// default.
func (c Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	return storage.GetDataDir()
}

// LogLevel returns the configured slog level.
func (c Config) LogLevel() slog.Level {
	l, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}
