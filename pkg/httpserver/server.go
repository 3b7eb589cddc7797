// Package httpserver exposes the engine's HTTP surface: Prometheus metrics,
// health probes and the status/candidate API.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quantary/optionsentry/internal/entry"
	"github.com/quantary/optionsentry/internal/position"
	"github.com/quantary/optionsentry/internal/risk"
	"github.com/quantary/optionsentry/pkg/healthprobe"
	"go.uber.org/zap"
)

// Server provides HTTP endpoints for metrics, health checks and engine status.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Book          *position.Book
	Governor      *risk.Governor
	EntryHandler  *entry.Handler
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	// Status and candidate API (if components provided)
	if cfg.Book != nil && cfg.Governor != nil {
		sh := NewStatusHandler(cfg.Book, cfg.Governor, cfg.EntryHandler, cfg.Logger)
		r.Get("/api/positions", sh.HandlePositions)
		r.Get("/api/governor", sh.HandleGovernor)
		r.Post("/api/killswitch", sh.HandleKillSwitch)

		if cfg.EntryHandler != nil {
			r.Post("/api/candidates", sh.HandleSubmitCandidate)
		}
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
