package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"delivery-portal/internal/config"
	"delivery-portal/internal/handler"
	"delivery-portal/internal/metrics"
	"delivery-portal/internal/middleware"
	"delivery-portal/internal/proxy"
	"delivery-portal/internal/router"
)

type App struct {
	server *http.Server
}

func New(cfg *config.Config) (*App, error) {
	registry := metrics.NewRegistry()
	collector := metrics.NewCollector(registry)

	forwarder, err := proxy.New(proxy.Options{
		BackendURL:            cfg.BackendURL,
		Prefix:                "/api",
		ResponseHeaderTimeout: cfg.RequestTimeout,
		Metrics:               collector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize api forwarder: %w", err)
	}

	guard := middleware.NewGuard(cfg.Policy, collector)

	appRouter := router.New(cfg, guard, router.Handlers{
		Pages:   handler.NewPageHandler(cfg.Policy.SignInPath),
		Health:  handler.NewHealthHandler(cfg.BackendURL),
		API:     forwarder,
		Metrics: metrics.Handler(registry),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	slog.Info("portal configured",
		"backend", cfg.BackendURL,
		"public_routes", len(cfg.Policy.PublicRoutes),
		"role_rules", len(cfg.Policy.Rules),
	)

	return &App{server: server}, nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx ends, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
