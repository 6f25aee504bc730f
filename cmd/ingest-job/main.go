// Command ingest-job runs one sync as a Cloud Run job.
//
// INGEST_PROVIDER names the target: a provider, "all" or "post-process".
// The job exits 1 when the variable is missing or the sync fails. An
// unconfigured provider logs a warning and exits 0.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/bootstrap"
	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/store"
)

const providerEnv = "INGEST_PROVIDER"

// Syncer runs one target by name.
type Syncer interface {
	Run(ctx context.Context, target string) (store.Counts, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx))
}

func run(ctx context.Context) int {
	target := os.Getenv(providerEnv)
	if target == "" {
		logging.Must("info").Error(providerEnv + " is not set")
		return 1
	}

	cfg, err := bootstrap.LoadConfig(ctx)
	if err != nil {
		logging.Must("info").Error("failed to load configuration", zap.Error(err))
		return 1
	}
	logger := logging.Must(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	app, err := bootstrap.Open(cfg, logger)
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		return 1
	}
	defer func() { _ = app.Close() }()

	return execute(ctx, app.Runner, target, logger)
}

// execute runs target and maps the outcome to a process exit code.
func execute(ctx context.Context, syncer Syncer, target string, logger *zap.Logger) int {
	log := logger.With(zap.String(logging.FieldProvider, target))

	counts, err := syncer.Run(ctx, target)
	switch {
	case errors.Is(err, ingest.ErrNotConfigured):
		log.Warn("provider not configured, nothing to do")
		return 0
	case err != nil:
		log.Error("sync failed", zap.Error(err))
		return 1
	}

	log.Info("sync complete", zap.Any("results", counts), zap.Int64(logging.FieldRecords, counts.Total()))
	return 0
}
