// Package bootstrap wires configuration, the database and the sync
// pipeline for the command entry points.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alxnderia/ingestion/pkg/config"
	"github.com/alxnderia/ingestion/pkg/connector"
	"github.com/alxnderia/ingestion/pkg/db"
	"github.com/alxnderia/ingestion/pkg/grants"
	"github.com/alxnderia/ingestion/pkg/identity"
	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/lock"
	"github.com/alxnderia/ingestion/pkg/metrics"
	"github.com/alxnderia/ingestion/pkg/notify"
	"github.com/alxnderia/ingestion/pkg/scheduler"
	"github.com/alxnderia/ingestion/pkg/secrets"
	"github.com/alxnderia/ingestion/pkg/store"
	gormstore "github.com/alxnderia/ingestion/pkg/store/gorm"
)

// App holds the wired dependencies of one process.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Runs   store.RunStore
	Runner *ingest.Runner

	closers []func() error
}

// LoadConfig loads the configuration, resolves secret references and
// validates the result.
func LoadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = config.DefaultAWSRegion
	}
	if err := cfg.ResolveSecrets(ctx, secrets.NewResolver(region)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Open connects to the database and wires an App over it.
func Open(cfg *config.Config, logger *zap.Logger) (*App, error) {
	gdb, err := db.Connect(db.Config{
		URL:            cfg.DatabaseURL(),
		MinConnections: cfg.Database.MinConnections,
		MaxConnections: cfg.Database.MaxConnections,
		Debug:          cfg.LogLevel == "debug",
	})
	if err != nil {
		return nil, err
	}
	app := New(cfg, gdb, logger)
	app.closers = append(app.closers, func() error { return db.Close(gdb) })
	return app, nil
}

// New wires the stores, connectors and post-process pipeline over gdb.
func New(cfg *config.Config, gdb *gorm.DB, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	runs := gormstore.NewRunStore(gdb)
	writer := ingest.NewWriter(gormstore.NewUpsertStore(gdb), cfg.BatchSize)
	tracker := ingest.NewTracker(runs, cfg.TenantID, logger)

	pipeline := ingest.NewPipeline(
		cfg.TenantID,
		identity.NewResolver(gormstore.NewIdentityStore(gdb), cfg.TenantID, logger),
		grants.NewAggregator(gormstore.NewGrantsStore(gdb), cfg.TenantID, logger),
		logger,
	)
	if cfg.AMQPURL != "" {
		pipeline.WithNotifier(notify.NewPublisher(cfg.AMQPURL))
	}

	runner := ingest.NewRunner(cfg, connector.NewRegistry(), tracker, pipeline, writer, logger).
		WithKeys(gormstore.NewKeyStore(gdb))

	return &App{
		Config: cfg,
		Logger: logger,
		DB:     gdb,
		Runs:   runs,
		Runner: runner,
	}
}

// Locker dials Redis when redis_url is set. It returns nil otherwise.
func (a *App) Locker(ctx context.Context) (scheduler.Locker, error) {
	if a.Config.RedisURL == "" {
		return nil, nil
	}
	l, closeFn, err := lock.Dial(ctx, a.Config.RedisURL, a.Config.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, closeFn)
	return l, nil
}

// Ping reports database connectivity.
func (a *App) Ping(ctx context.Context) error {
	return db.Ping(ctx, a.DB)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
