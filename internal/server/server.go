// Package server implements the neuralviz HTTP API.
//
// The API runs the same pipeline as the CLI:
//
//	POST /api/v1/visualize        source in, laid-out diagrams and diagnostics out
//	POST /api/v1/render?format=   source in, one rendered artifact out
//	GET  /healthz                 liveness, and cache reachability when it can be pinged
//	GET  /metrics                 Prometheus metrics
//
// Every response carries an X-Request-ID header; JSON responses repeat it
// as request_id. Errors are JSON objects with a machine-readable code from
// pkg/errors and the matching HTTP status.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/matzehuels/neuralviz/pkg/buildinfo"
	"github.com/matzehuels/neuralviz/pkg/observability"
	"github.com/matzehuels/neuralviz/pkg/pipeline"
)

// Defaults for a zero Config.
const (
	DefaultAddr           = ":8080"
	DefaultRequestTimeout = 30 * time.Second
	shutdownTimeout       = 10 * time.Second

	// bodyOverhead is the room left for JSON framing around the source.
	bodyOverhead = 64 << 10
)

// Config controls the HTTP server.
type Config struct {
	Addr           string
	MaxSourceBytes int
	RequestTimeout time.Duration

	// Defaults are the pipeline options requests start from. Source,
	// network and the per-request fields are filled in from the body.
	Defaults pipeline.Options
}

// Server serves the API over a shared pipeline runner.
type Server struct {
	runner   *pipeline.Runner
	logger   *log.Logger
	cfg      Config
	registry *prometheus.Registry
	router   chi.Router
}

// New creates a server. Metrics are collected into a registry owned by the
// server and exported on /metrics.
func New(runner *pipeline.Runner, cfg Config, logger *log.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = log.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	hooks := observability.NewPrometheusHooks(reg)
	observability.SetPipelineHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetHTTPHooks(hooks)

	s := &Server{
		runner:   runner,
		logger:   logger,
		cfg:      cfg,
		registry: reg,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", observability.Handler(s.registry))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/visualize", s.handleVisualize)
		r.Post("/render", s.handleRender)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errNotFound(r.URL.Path))
	})
	return r
}

// ListenAndServe serves until ctx is cancelled and then shuts down
// gracefully, letting in-flight requests finish.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 5*time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr, "build", buildinfo.String())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
