package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/bootstrap"
	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/store"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a one-shot sync",
	Long: `Run a one-shot sync of one provider, every configured provider, or
post-processing alone.

With "all", every configured provider is synced in order and then
identities are resolved and access grants rebuilt. The first failure stops
the run.

Example:
  ingestctl sync
  ingestctl sync -p github
  ingestctl sync -p post-process`,
	Run: func(cmd *cobra.Command, args []string) {
		target, _ := cmd.Flags().GetString("provider")

		if err := runSync(cmd.Context(), target); err != nil {
			fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringP("provider", "p", ingest.All, "provider, all, or post-process")
}

func runSync(ctx context.Context, target string) error {
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

	counts, err := app.Runner.Run(ctx, target)
	if err != nil {
		return err
	}
	logger.Info("sync complete", zap.String("target", target), zap.Any("counts", counts))
	printCounts(counts)
	return nil
}

func printCounts(counts store.Counts) {
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		fmt.Printf("%s: %d\n", k, counts[k])
	}
}
