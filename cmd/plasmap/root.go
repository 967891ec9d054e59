package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"plasmap/internal/config"
	"plasmap/internal/core"
)

// app carries the state resolved once per invocation.
type app struct {
	stdout, stderr io.Writer

	configFile  string
	envFile     string
	metricsFile string
	traceFile   string
	noColor     bool

	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  core.MetricsRecorder
	tracer   core.Tracer
	closers  []io.Closer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "plasmap",
		Short:         "Parse, store and map GenBank plasmid files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "YAML configuration file")
	pf.StringVar(&a.envFile, "env-file", "", "dotenv file loaded before reading PLASMAP_* variables (default .env when present)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "text", "log format: text or json")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.StringVar(&a.traceFile, "trace-file", "", "append JSON trace spans to this file")
	pf.String("storage", "sqlite", "plasmid store: sqlite, postgres or memory")
	pf.String("db", "plasmap.db", "sqlite database path")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newParseCmd(a),
		newImportCmd(a),
		newLoadCmd(a),
		newListCmd(a),
		newRenderCmd(a),
		newFastaCmd(a),
		newCleanupCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{File: a.configFile, EnvFile: a.envFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(a.stderr, cfg.Log)

	a.registry = prometheus.NewRegistry()
	prom, err := core.NewPrometheusMetricsRecorder(a.registry)
	if err != nil {
		return err
	}
	a.metrics = prom

	a.tracer = nil
	if a.traceFile != "" {
		f, err := os.OpenFile(a.traceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		a.closers = append(a.closers, f)
		a.tracer = core.NewJSONTracer(f)
	}
	return nil
}

func (a *app) teardown() error {
	var firstErr error
	if a.metricsFile != "" && a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
			firstErr = fmt.Errorf("write metrics: %w", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// runE wraps a command body so teardown runs whether or not it fails.
func (a *app) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if terr := a.teardown(); err == nil {
				err = terr
			}
		}()
		return fn(cmd, args)
	}
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// service opens the configured store and wraps it in a core.Service. The
// store is closed at teardown.
func (a *app) service(ctx context.Context) (*core.Service, error) {
	store, err := core.OpenStore(ctx, a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store)
	opts := []core.ServiceOption{
		core.WithLogger(a.logger),
		core.WithMetrics(a.metrics),
		core.WithDefaultNamespace(a.cfg.DefaultNamespace),
		core.WithOwner(a.cfg.Owner),
	}
	if a.tracer != nil {
		opts = append(opts, core.WithTracer(a.tracer))
	}
	return core.NewService(store, opts...), nil
}
