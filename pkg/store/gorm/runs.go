package gorm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alxnderia/ingestion/pkg/store"
)

// DefaultRunLimit bounds RecentRuns when no limit is given.
const DefaultRunLimit = 20

// Ensure RunStore implements store.RunStore
var _ store.RunStore = (*RunStore)(nil)

// RunStore implements store.RunStore using GORM
type RunStore struct {
	db *gorm.DB
}

// NewRunStore creates a new RunStore
func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

// StartRun records a RUNNING run
func (s *RunStore) StartRun(ctx context.Context, run store.RunStart) (string, error) {
	id := uuid.NewString()
	err := s.db.WithContext(ctx).Exec(`
		INSERT INTO ingestion_runs (id, tenant_id, provider, entity_type, status, started_at, run_metadata)
		VALUES (?, ?, ?, ?, ?, NOW(), ?)
	`, id, run.Tenant, run.Provider, nullString(run.EntityType), store.RunStatusRunning, store.JSON(run.Metadata)).Error
	if err != nil {
		return "", fmt.Errorf("failed to start %s run: %w", run.Provider, err)
	}
	return id, nil
}

// FinishRun records the terminal state of a run
func (s *RunStore) FinishRun(ctx context.Context, result store.RunResult) error {
	if result.Status == store.RunStatusRunning {
		return fmt.Errorf("run %s cannot finish as %s", result.ID, result.Status)
	}

	var detail any
	if result.ErrorDetail != nil {
		detail = store.JSON(result.ErrorDetail)
	}

	res := s.db.WithContext(ctx).Exec(`
		UPDATE ingestion_runs
		SET status = ?, finished_at = NOW(), records_upserted = ?, records_deleted = ?,
			error_message = ?, error_detail = ?
		WHERE id = ? AND tenant_id = ?
	`, result.Status, result.RecordsUpserted, result.RecordsDeleted,
		nullString(result.ErrorMessage), detail, result.ID, result.Tenant)
	if res.Error != nil {
		return fmt.Errorf("failed to finish run %s: %w", result.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("run %s not found", result.ID)
	}
	return nil
}

// RecentRuns lists the tenant's runs most recent first
func (s *RunStore) RecentRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error) {
	query := `
		SELECT id, tenant_id, provider, entity_type, status, started_at, finished_at,
			records_upserted, records_deleted, error_message
		FROM ingestion_runs
		WHERE tenant_id = ?
	`
	args := []interface{}{filter.Tenant}

	if filter.Provider != "" {
		query += ` AND provider = ?`
		args = append(args, filter.Provider)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	var runs []store.Run
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
