package gorm

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/alxnderia/ingestion/pkg/store"
)

// Ensure KeyStore implements store.KeyReader
var _ store.KeyReader = (*KeyStore)(nil)

// KeyStore implements store.KeyReader using GORM
type KeyStore struct {
	db *gorm.DB
}

// NewKeyStore creates a new KeyStore
func NewKeyStore(db *gorm.DB) *KeyStore {
	return &KeyStore{db: db}
}

// LiveKeys returns q.Column of the tenant's rows that are not soft-deleted,
// in ascending order.
func (s *KeyStore) LiveKeys(ctx context.Context, tenant string, q store.KeyQuery) ([]string, error) {
	names := []string{q.Column}
	for col := range q.Equals {
		names = append(names, col)
	}
	slices.Sort(names[1:])

	check := store.Batch{Table: q.Table, Columns: names, ConflictColumns: names[:1]}
	if err := check.Validate(); err != nil {
		return nil, err
	}

	var where strings.Builder
	args := []any{tenant}
	where.WriteString("tenant_id = ? AND deleted_at IS NULL")
	for _, col := range names[1:] {
		fmt.Fprintf(&where, " AND %s = ?", col)
		args = append(args, q.Equals[col])
	}

	var keys []string
	err := s.db.WithContext(ctx).
		Table(q.Table).
		Where(where.String(), args...).
		Order(q.Column).
		Pluck(q.Column, &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s.%s: %w", q.Table, q.Column, err)
	}
	return keys, nil
}
