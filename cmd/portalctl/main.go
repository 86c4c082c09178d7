package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"delivery-portal/internal/config"
	"delivery-portal/internal/logger"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg *config.ClientConfig

	rootCmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Drive the delivery portal session from the command line",
		Long: `portalctl signs in to the delivery portal, keeps the session on disk
(or in Redis) and navigates guarded pages the way a browser would.

Configuration comes from the environment (PORTAL_URL, API_BASE_URL,
STORAGE_FILE, REDIS_URL, ...) or a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadClient()
			if err != nil {
				return err
			}
			cfg = loaded

			slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stderr, &slog.HandlerOptions{
				Level: logger.ParseLevel(cfg.LogLevel),
			})))
			return nil
		},
	}

	getConfig := func() *config.ClientConfig { return cfg }

	rootCmd.AddCommand(
		loginCmd(getConfig),
		logoutCmd(getConfig),
		registerCmd(getConfig),
		validateCmd(getConfig),
		statusCmd(getConfig),
		navigateCmd(getConfig),
		versionCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("portalctl %s (%s)\n", version, commit)
		},
	}
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
