// Command aaschess is a chess engine that speaks UCI and shapes its search
// with an adaptive allocator.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hailam/aaschess/internal/config"
	"github.com/hailam/aaschess/internal/engine"
	"github.com/hailam/aaschess/internal/storage"
	"github.com/hailam/aaschess/internal/telemetry"
)

// app holds what every subcommand shares. It is filled in by the root
// command's PersistentPreRunE and released by teardown.
type app struct {
	configPath  string
	logLevel    string
	dataDir     string
	metricsAddr string
	noStorage   bool
	cpuProfile  string

	cfg      config.Config
	logger   *slog.Logger
	store    *storage.Storage
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	cleanup  []func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, a := newRootCmd()
	err := root.ExecuteContext(ctx)
	a.teardown()
	if err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	uciCmd := newUCICmd(a)

	root := &cobra.Command{
		Use:   "aaschess",
		Short: "A UCI chess engine with an adaptive search allocator",
		Long: `aaschess searches chess positions with alpha-beta, Monte-Carlo tree
search or a hybrid of both. An entropy-driven allocator sizes every search
and learns which kinds of moves deserve attention.

Without a subcommand it runs the UCI protocol on stdin and stdout.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE:              uciCmd.RunE,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	f.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	f.StringVar(&a.dataDir, "data-dir", "", "directory for the persistent store; overrides the config")
	f.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.BoolVar(&a.noStorage, "no-storage", false, "do not open the persistent store")
	f.StringVar(&a.cpuProfile, "cpuprofile", os.Getenv("CPUPROFILE"), "write a CPU profile to this file")

	root.AddCommand(uciCmd, newSearchCmd(a), newPerftCmd(a))
	return root, a
}

// setup loads the config and opens the shared services.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.dataDir != "" {
		cfg.Storage.DataDir = a.dataDir
	}
	if a.metricsAddr != "" {
		cfg.Telemetry.MetricsAddr = a.metricsAddr
	}
	if a.noStorage {
		cfg.Storage.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	// stdout carries the protocol, so logs go to stderr.
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	a.logger = slog.New(h)
	slog.SetDefault(a.logger)

	if a.cpuProfile != "" {
		f, err := os.Create(a.cpuProfile)
		if err != nil {
			return fmt.Errorf("create cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("start cpu profile: %w", err)
		}
		a.onExit(func() {
			pprof.StopCPUProfile()
			f.Close()
		})
		a.logger.Info("cpu profiling enabled", "path", a.cpuProfile)
	}

	ctx := cmd.Context()
	shutdown, err := telemetry.InitTracing(ctx, cfg.Telemetry.Tracing, os.Stderr)
	if err != nil {
		return err
	}
	a.onExit(func() {
		if err := shutdown(context.Background()); err != nil {
			a.logger.Warn("trace shutdown", "err", err)
		}
	})

	a.registry = prometheus.NewRegistry()
	a.metrics = telemetry.NewMetrics(a.registry)
	if addr := cfg.Telemetry.MetricsAddr; addr != "" {
		go func() {
			if err := telemetry.Serve(ctx, addr, a.registry, a.logger); err != nil {
				a.logger.Error("metrics server", "err", err)
			}
		}()
	}

	if cfg.Storage.Enabled {
		dir, err := cfg.DataDir()
		if err != nil {
			return fmt.Errorf("data dir: %w", err)
		}
		store, err := storage.Open(dir, a.logger)
		if err != nil {
			// The engine works without a store.
			a.logger.Warn("storage disabled", "dir", dir, "err", err)
		} else {
			a.store = store
			a.onExit(func() {
				if err := store.Close(); err != nil {
					a.logger.Warn("close storage", "err", err)
				}
			})
		}
	}
	return nil
}

func (a *app) onExit(fn func()) { a.cleanup = append(a.cleanup, fn) }

// teardown runs the exit hooks in reverse order.
func (a *app) teardown() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

// newEngine builds an engine session wired to the shared services.
func (a *app) newEngine() *engine.Engine {
	opts := []engine.Option{
		engine.WithLogger(a.logger),
		engine.WithMetrics(a.metrics),
	}
	if a.store != nil {
		opts = append(opts, engine.WithStorage(a.store))
	}
	return engine.New(a.cfg.EngineConfig(), opts...)
}
