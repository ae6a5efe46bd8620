// Package app wires all phonexa subsystems into a running HTTP service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context ends, and Shutdown tears
// everything down in order.
//
// For testing, inject implementations via functional options (WithStore,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/phonexa/internal/analysis"
	"github.com/MrWong99/phonexa/internal/attempt"
	"github.com/MrWong99/phonexa/internal/attempt/postgres"
	"github.com/MrWong99/phonexa/internal/config"
	"github.com/MrWong99/phonexa/internal/health"
	"github.com/MrWong99/phonexa/internal/observe"
	"github.com/MrWong99/phonexa/internal/resilience"
	"github.com/MrWong99/phonexa/internal/server"
)

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	// Subsystems, initialised in New and torn down in Shutdown.
	store          attempt.Store
	breaker        *resilience.Breaker
	metrics        *observe.Metrics
	metricsHandler http.Handler
	svc            *analysis.Service
	srv            *server.Server
	httpSrv        *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects an attempt store instead of creating one from config.
// The caller keeps ownership; Shutdown does not close it.
func WithStore(s attempt.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects the metric instruments instead of using
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h on the configured metrics path instead of
// promhttp.Handler.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsHandler = h }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. cfg must have
// defaults applied and be valid (see [config.Load]).
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.metricsHandler == nil {
		a.metricsHandler = promhttp.Handler()
	}

	// ── 1. Attempt store ─────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 2. Circuit breaker ───────────────────────────────────────────────
	a.breaker = resilience.NewBreaker(resilience.BreakerConfig{
		Name: "attempt-store",
		OnStateChange: func(name string, from, to resilience.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from, "to", to)
			a.metrics.RecordBreakerTransition(context.Background(), name, to.String())
		},
	})

	// ── 3. Analysis service ──────────────────────────────────────────────
	a.svc = analysis.New(AnalysisOptions(cfg.Alignment),
		analysis.WithStore(a.store),
		analysis.WithBreaker(a.breaker),
		analysis.WithMetrics(a.metrics),
	)

	// ── 4. HTTP surface ──────────────────────────────────────────────────
	a.srv = server.New(a.svc, server.Config{
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
		MetricsPath:    cfg.Telemetry.MetricsPath,
		MetricsHandler: a.metricsHandler,
		HistoryLimit:   cfg.Storage.HistoryLimit,
	},
		server.WithMetrics(a.metrics),
		server.WithHealth(health.New(health.PingCheck("store", a.store))),
	)
	a.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.srv,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initStore connects the PostgreSQL store, or falls back to memory when no
// DSN is configured.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Warn("storage.postgres_dsn is empty; attempts are kept in memory and lost on restart")
		a.store = &attempt.MemStore{}
		return nil
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	slog.Info("connected attempt store", "backend", "postgres")
	return nil
}

// AnalysisOptions converts the alignment config section to service options.
func AnalysisOptions(c config.AlignmentConfig) analysis.Options {
	return analysis.Options{
		MaxReferenceWords:    c.MaxReferenceWords,
		MaxHypothesisSymbols: c.MaxHypothesisSymbols,
		StripSymbols:         c.StripSymbols,
		BatchConcurrency:     c.BatchConcurrency,
		Timeout:              c.Timeout,
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.srv }

// Service returns the analysis service.
func (a *App) Service() *analysis.Service { return a.svc }

// ─── Reload ──────────────────────────────────────────────────────────────────

// ApplyDiff applies the hot-reloadable part of a config change. Sections that
// need a restart are logged and otherwise ignored.
func (a *App) ApplyDiff(d config.ConfigDiff) {
	if d.AlignmentChanged {
		a.svc.SetOptions(AnalysisOptions(d.NewAlignment))
		slog.Info("alignment settings reloaded",
			"max_reference_words", d.NewAlignment.MaxReferenceWords,
			"max_hypothesis_symbols", d.NewAlignment.MaxHypothesisSymbols,
			"batch_concurrency", d.NewAlignment.BatchConcurrency,
			"timeout", d.NewAlignment.Timeout,
		)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes need a restart to take effect", "sections", d.RestartRequired)
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run listens on the configured address and serves until ctx is cancelled.
// See [App.Serve].
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpSrv.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.httpSrv.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves HTTP on ln, with TLS when configured, and blocks until ctx is
// cancelled or the server fails. When ctx is done, Serve returns ctx.Err();
// call Shutdown afterwards to drain connections.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpSrv.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpSrv.Serve(ln)
		}
		errCh <- err
	}()

	slog.Info("http server listening", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires, and closes the subsystems. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		// Drain HTTP first so no request races a closed store.
		if err := a.httpSrv.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
			shutdownErr = err
		}

		// Run closers in order.
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
