// Package core provides the HTTP chassis for Weather2Go. It builds a chi
// router with the cross-cutting concerns (panic recovery, timeouts, request
// IDs, logging, CORS, metrics and error rendering) applied before requests
// reach the UI and JSON handlers.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"weather2go/internal/config"
)

// MetricsCollector defines the interface for recording API telemetry.
// Implementations record request latency and count metrics to CloudWatch
// or equivalent backends.
type MetricsCollector interface {
	// RecordRequest records API request metrics including latency and count.
	// Uses metric constants MetricAPILatency and MetricAPIRequestCount
	// from the types package.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// RouteRegistrar mounts a handler group onto a router.
type RouteRegistrar func(r chi.Router)

// Server encapsulates all dependencies of the HTTP surface, allowing for easy
// injection during testing.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// HealthProbes are run concurrently by GET /health.
	HealthProbes []HealthProbe

	// RootRouteRegistrars mount routes at "/" (the HTML UI).
	RootRouteRegistrars []RouteRegistrar

	// V1RouteRegistrars mount routes under "/v1". Populated by main to avoid
	// import cycles between core and the handler packages.
	V1RouteRegistrars []RouteRegistrar

	closers []func() error
	router  *chi.Mux
}

// NewServer initializes the server. The caller mounts routes with
// MountRoutes after populating the registrars.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// OnShutdown registers fn to run during Shutdown, in registration order.
func (s *Server) OnShutdown(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Shutdown releases server resources such as the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown initiated")

	var errs []error
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			s.Logger.ErrorContext(ctx, "error releasing server resource", "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown: %w", errors.Join(errs...))
	}

	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
