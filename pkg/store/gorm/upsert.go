package gorm

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/alxnderia/ingestion/pkg/store"
)

// Ensure UpsertStore implements store.Upserter
var _ store.Upserter = (*UpsertStore)(nil)

// UpsertStore implements store.Upserter using GORM
type UpsertStore struct {
	db       *gorm.DB
	pageSize int
}

// NewUpsertStore creates a new UpsertStore writing store.PageSize rows per
// statement.
func NewUpsertStore(db *gorm.DB) *UpsertStore {
	return &UpsertStore{db: db, pageSize: store.PageSize}
}

// WithPageSize overrides the rows written per statement.
func (s *UpsertStore) WithPageSize(size int) *UpsertStore {
	if size > 0 {
		s.pageSize = size
	}
	return s
}

// UpsertBatch inserts the batch rows, refreshing update columns on conflict.
func (s *UpsertStore) UpsertBatch(ctx context.Context, batch store.Batch) (int64, error) {
	return upsertBatch(s.db.WithContext(ctx), batch, s.pageSize)
}

// Transaction runs fn against an UpsertStore bound to one transaction.
func (s *UpsertStore) Transaction(ctx context.Context, fn func(store.Upserter) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UpsertStore{db: tx, pageSize: s.pageSize})
	})
}

func upsertBatch(db *gorm.DB, batch store.Batch, pageSize int) (int64, error) {
	if len(batch.Rows) == 0 {
		return 0, nil
	}
	if err := batch.Validate(); err != nil {
		return 0, err
	}

	var affected int64
	for _, page := range batch.Pages(pageSize) {
		query, args := buildUpsert(batch, page)
		result := db.Exec(query, args...)
		if result.Error != nil {
			return affected, fmt.Errorf("failed to upsert into %s: %w", batch.Table, result.Error)
		}
		affected += result.RowsAffected
	}
	return affected, nil
}

// buildUpsert renders one INSERT ... ON CONFLICT statement for rows.
func buildUpsert(batch store.Batch, rows [][]any) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(rows)*len(batch.Columns))

	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", batch.Table, strings.Join(batch.Columns, ", "))

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(batch.Columns)), ", ") + ")"
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, row...)
	}

	fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET ", strings.Join(batch.ConflictColumns, ", "))
	for _, col := range batch.UpdateColumns {
		fmt.Fprintf(&b, "%s = EXCLUDED.%s, ", col, col)
	}
	b.WriteString("updated_at = NOW(), last_synced_at = NOW()")

	return b.String(), args
}
