// Package server exposes the analysis service over HTTP.
//
// Routes:
//
//	POST /v1/analysis                   score one utterance
//	POST /v1/analysis/batch             score up to analysis.MaxBatchSize utterances
//	GET  /v1/sessions/{id}/attempts     attempt history, newest first (?limit=)
//	GET  /v1/attempts/{id}              one recorded attempt
//	POST /v1/tokenize                   split IPA text into symbols
//	GET  /v1/distance?a=&b=             phonetic distance of two symbols
//	GET  /v1/symbols                    the symbol feature table
//	GET  /healthz, /readyz              liveness and readiness
//	GET  <metrics path>                 Prometheus scrape endpoint
//
// Errors are JSON objects of the form {"error": "..."}.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/MrWong99/phonexa/internal/analysis"
	"github.com/MrWong99/phonexa/internal/health"
	"github.com/MrWong99/phonexa/internal/observe"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 1 << 20

// unmatchedRoute labels requests no route matched in spans and metrics.
const unmatchedRoute = "unmatched"

// maxHistoryLimit caps the ?limit= query parameter.
const maxHistoryLimit = 500

// Config holds the HTTP surface settings.
type Config struct {
	// AllowedOrigins is the CORS allow-list. "*" allows any origin.
	AllowedOrigins []string

	// MetricsPath is where MetricsHandler is mounted. Empty disables it.
	MetricsPath string

	// MetricsHandler serves the Prometheus scrape endpoint.
	MetricsHandler http.Handler

	// HistoryLimit is the page size when ?limit= is absent.
	HistoryLimit int

	// MaxBodyBytes bounds request bodies. Default: [DefaultMaxBodyBytes].
	MaxBodyBytes int64
}

// Server routes HTTP requests to the analysis service.
type Server struct {
	svc     *analysis.Service
	health  *health.Handler
	metrics *observe.Metrics
	cfg     Config
	handler http.Handler
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics records HTTP metrics to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealth serves h on /healthz and /readyz. Without it a handler with no
// readiness checks is used.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// New builds the HTTP handler tree for svc.
func New(svc *analysis.Service, cfg Config, opts ...Option) *Server {
	s := &Server{svc: svc, cfg: cfg}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New()
	}
	if s.cfg.MaxBodyBytes <= 0 {
		s.cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	mw := observe.Middleware(s.metrics)
	r := mux.NewRouter()
	r.Use(mw)
	// Router middleware skips unmatched requests.
	r.NotFoundHandler = observe.WithRoute(unmatchedRoute, mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})))
	r.MethodNotAllowedHandler = observe.WithRoute(unmatchedRoute, mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})))

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/analysis", s.handleAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/analysis/batch", s.handleAnalyzeBatch).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/attempts", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/attempts/{id}", s.handleAttempt).Methods(http.MethodGet)
	api.HandleFunc("/tokenize", s.handleTokenize).Methods(http.MethodPost)
	api.HandleFunc("/distance", s.handleDistance).Methods(http.MethodGet)
	api.HandleFunc("/symbols", s.handleSymbols).Methods(http.MethodGet)

	s.health.Register(r)
	if s.cfg.MetricsPath != "" && s.cfg.MetricsHandler != nil {
		r.Handle(s.cfg.MetricsPath, s.cfg.MetricsHandler).Methods(http.MethodGet)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Traceparent"},
		MaxAge:         600,
	})
	s.handler = c.Handler(r)
	return s
}

// Handler returns the root handler including CORS.
func (s *Server) Handler() http.Handler { return s.handler }

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
