package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"delivery-portal/internal/app"
	"delivery-portal/internal/config"
	"delivery-portal/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var port, backendURL, logLevel string

	rootCmd := &cobra.Command{
		Use:           "portal",
		Short:         "Serve the delivery portal pages and the /api forwarder",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if port != "" {
				cfg.ServerPort = port
			}
			if backendURL != "" {
				cfg.BackendURL = backendURL
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// Initialize custom logger with colors
			logHandler := logger.NewPrettyHandler(os.Stdout, &slog.HandlerOptions{
				Level: logger.ParseLevel(cfg.LogLevel),
			})
			slog.SetDefault(slog.New(logHandler))

			application, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run(cmd.Context())
		},
	}

	rootCmd.Flags().StringVar(&port, "port", "", "listen port (overrides SERVER_PORT)")
	rootCmd.Flags().StringVar(&backendURL, "backend-url", "", "backend API url (overrides BACKEND_URL)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("portal stopped", "error", err)
		os.Exit(1)
	}
}
