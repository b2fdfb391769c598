package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the inbound adapter that serves the fulfilment API over HTTP.
type Server struct {
	handler       *Handler
	server        *http.Server
	addr          string
	logger        *slog.Logger
	registry      *prometheus.Registry
	healthChecker *HealthChecker
}

// Option is a functional option for configuring Server.
type Option func(*Server)

// WithAddr sets the listen address.
// Default is "127.0.0.1:8080" (localhost only).
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithLogger sets the logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(s *Server) {
		s.healthChecker = hc
	}
}

// NewServer creates a Server wrapping the given API handler.
// The handler's metrics must have been created with Registry().
func NewServer(handler *Handler, opts ...Option) *Server {
	s := &Server{
		handler: handler,
		addr:    "127.0.0.1:8080",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry creates a Prometheus registry with the standard process and Go
// collectors pre-registered. Engine metrics are registered on top of it.
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// SetRegistry sets the registry served at /metrics.
func (s *Server) SetRegistry(reg *prometheus.Registry) {
	s.registry = reg
}

// Start begins accepting HTTP connections.
// It blocks until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	apiHandler := http.Handler(s.handler.Routes())
	apiHandler = RequestIDMiddleware(s.logger)(apiHandler)
	mux.Handle("/api/v1/", apiHandler)

	if s.healthChecker != nil {
		mux.Handle("GET /health", s.healthChecker.Handler())
	} else {
		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		})
	}

	if s.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
			Registry: s.registry,
		}))
	}

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
