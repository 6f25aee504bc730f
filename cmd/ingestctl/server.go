package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alxnderia/ingestion/pkg/bootstrap"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/server"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the status API server",
	Long: `Run the read-only status API serving /, /runs and /metrics.

By default, database migrations are run on startup. Use --no-migrate to skip.`,
	Run: func(cmd *cobra.Command, args []string) {
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := runMigrations(); err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
		}

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		if err := runServer(cmd.Context(), host, port); err != nil {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}

func runServer(ctx context.Context, host, port string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig(ctx)
	if err != nil {
		return err
	}
	logger := logging.Must(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	app, err := bootstrap.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	s := server.NewServer(server.Config{
		Tenant:    cfg.TenantID,
		Host:      host,
		Port:      port,
		JWTSecret: cfg.Status.JWTSecret,
	}, app.Runs, app.Ping, logger)

	errs := make(chan error, 1)
	go func() { errs <- s.Start() }()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
