package integration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/alxnderia/ingestion/db"
	pkgdb "github.com/alxnderia/ingestion/pkg/db"
)

// TestContext holds the resources shared by every scenario
type TestContext struct {
	DB          *gorm.DB
	Container   testcontainers.Container
	DatabaseURL string
	HTTPClient  *http.Client
}

// NewTestContext starts a PostgreSQL container and applies the schema
// migrations. Scenarios isolate themselves by tenant, so the database is
// shared.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ingest_test"),
		tcpostgres.WithUsername("ingest"),
		tcpostgres.WithPassword("ingest"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if err := applyMigrations(connStr); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	gdb, err := pkgdb.Connect(pkgdb.Config{URL: connStr, MaxConnections: 5})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &TestContext{
		DB:          gdb,
		Container:   pgContainer,
		DatabaseURL: connStr,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// applyMigrations runs the embedded migrations the way `ingestctl db
// migrate` does in embedded builds.
func applyMigrations(dbURL string) error {
	migrationsFS, err := fs.Sub(db.Migrations, "migrations")
	if err != nil {
		return err
	}
	src, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.DB != nil {
		_ = pkgdb.Close(tc.DB)
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}
