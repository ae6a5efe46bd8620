package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/MrWong99/phonexa/internal/app"
	"github.com/MrWong99/phonexa/internal/config"
	"github.com/MrWong99/phonexa/internal/observe"
)

// shutdownTimeout bounds draining in-flight requests on exit.
const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var (
		configPath string
		watch      bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP scoring service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			explicit := cmd.Flags().Changed("config")
			return serve(cmd.Context(), configPath, explicit, watch)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload log level and alignment settings when the config file changes")
	return cmd
}

// loadConfig reads path. A missing file is an error only when the path was
// given explicitly; otherwise defaults (plus environment overrides) are used.
func loadConfig(path string, explicit bool) (cfg *config.Config, fromFile bool, err error) {
	cfg, err = config.Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, os.ErrNotExist) && !explicit {
		cfg, err = config.LoadFromReader(strings.NewReader(""))
		return cfg, false, err
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, fmt.Errorf("config file %q not found; copy configs/example.yaml to get started", path)
	}
	return nil, false, err
}

func serve(parent context.Context, configPath string, explicit, watch bool) error {
	if parent == nil {
		parent = context.Background()
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, fromFile, err := loadConfig(configPath, explicit)
	if err != nil {
		return err
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := levelVar(cfg.Server.LogLevel)
	slog.SetDefault(newLogger(level))

	slog.Info("phonexa starting",
		"version", version,
		"config", configPath,
		"config_file", fromFile,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Registerer:     reg,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg,
		app.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
	)
	if err != nil {
		return fmt.Errorf("initialise application: %w", err)
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	if watch && fromFile {
		w, err := config.NewWatcher(configPath, func(old, new *config.Config) {
			d := config.Diff(old, new)
			if d.LogLevelChanged {
				level.Set(d.NewLogLevel.SlogLevel())
				slog.Info("log level changed", "level", d.NewLogLevel)
			}
			application.ApplyDiff(d)
		})
		if err != nil {
			slog.Warn("config watcher disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, fromFile)

	slog.Info("server ready, press Ctrl+C to shut down")

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	slog.Info("goodbye")
	return nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, fromFile bool) {
	storage := "memory"
	if cfg.Storage.PostgresDSN != "" {
		storage = "postgres"
	}
	source := "file"
	if !fromFile {
		source = "defaults"
	}
	tls := "off"
	if cfg.Server.TLS != nil {
		tls = "on"
	}

	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Phonexa — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Config", source)
	printRow("Listen addr", cfg.Server.ListenAddr)
	printRow("TLS", tls)
	printRow("Storage", storage)
	printRow("Max words", fmt.Sprint(cfg.Alignment.MaxReferenceWords))
	printRow("Max symbols", fmt.Sprint(cfg.Alignment.MaxHypothesisSymbols))
	printRow("Timeout", cfg.Alignment.Timeout.String())
	printRow("Metrics", cfg.Telemetry.MetricsPath)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", label, value)
}
