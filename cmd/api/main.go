// Package main is the entry point for the Weather2Go HTTP server.
//
// It loads configuration, wires the assessment pipeline, mounts the HTML form
// at "/" and the JSON API under "/v1", and serves until SIGINT or SIGTERM,
// then shuts down gracefully.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weather2go/internal/api/handlers"
	"weather2go/internal/app"
	"weather2go/internal/config"
	"weather2go/internal/core"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(secretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("weather2go API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()
	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wiring components: %w", err)
	}

	// A failed preload is logged; the first request retries it.
	_ = deps.Preload(ctx)

	srv, err := buildServer(deps)
	if err != nil {
		_ = deps.Close()
		return err
	}

	return runHTTPServer(srv, cfg, logger)
}

// secretProvider returns the SSM provider outside local development.
func secretProvider() config.SecretProvider {
	if os.Getenv("APP_ENV") == "local" {
		return nil
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	return config.NewSSMProvider(region)
}

// buildServer mounts the UI, the JSON API and the health probes.
func buildServer(deps *app.App) (*core.Server, error) {
	srv, err := core.NewServer(deps.Config, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Validator = deps.Validator
	srv.Metrics = deps.Metrics
	srv.HealthProbes = deps.HealthProbes()
	srv.OnShutdown(deps.Close)

	api := handlers.NewAssessmentHandler(deps.Service, deps.Logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, api.RegisterRoutes)

	ui, err := handlers.NewUIHandler(deps.Service, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("loading UI templates: %w", err)
	}
	srv.RootRouteRegistrars = append(srv.RootRouteRegistrars, ui.RegisterRoutes)

	srv.MountRoutes()
	return srv, nil
}

// runHTTPServer serves until a shutdown signal or a listener error.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a JSON slog.Logger for level.
func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.ParseLogLevel(level)}))
}
