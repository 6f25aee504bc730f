package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/alxnderia/ingestion/pkg/store"
)

// Ensure IdentityStore implements store.IdentityStore
var _ store.IdentityStore = (*IdentityStore)(nil)

// IdentityStore implements store.IdentityStore using GORM
type IdentityStore struct {
	db *gorm.DB
}

// NewIdentityStore creates a new IdentityStore
func NewIdentityStore(db *gorm.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

// LinkExactEmail links unlinked identities of src to canonical users by
// exact email equality.
func (s *IdentityStore) LinkExactEmail(ctx context.Context, tenant string, src store.IdentitySource) (int64, error) {
	if err := validateSource(src); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		INSERT INTO canonical_user_provider_links
			(tenant_id, canonical_user_id, provider_type, provider_user_id, confidence_score, match_method)
		SELECT u.tenant_id, ce.canonical_user_id, ?, u.%[2]s, 100, 'email_exact'
		FROM %[1]s u
		JOIN canonical_emails ce ON ce.tenant_id = u.tenant_id AND ce.email = u.%[3]s
		WHERE u.tenant_id = ?
			AND u.deleted_at IS NULL
			AND u.%[3]s IS NOT NULL`, src.Table, src.IDColumn, src.EmailColumn)
	args := []interface{}{src.LinkType, tenant}

	if src.UnreliableSuffix != "" {
		query += fmt.Sprintf(`
			AND u.%s NOT LIKE ?`, src.EmailColumn)
		args = append(args, "%"+src.UnreliableSuffix)
	}

	query += fmt.Sprintf(`
			AND NOT EXISTS (
				SELECT 1 FROM canonical_user_provider_links l
				WHERE l.tenant_id = u.tenant_id
					AND l.provider_type = ?
					AND l.provider_user_id = u.%s
			)
		ON CONFLICT (tenant_id, provider_type, provider_user_id) DO UPDATE SET
			canonical_user_id = EXCLUDED.canonical_user_id,
			confidence_score = EXCLUDED.confidence_score,
			match_method = EXCLUDED.match_method,
			updated_at = NOW()
	`, src.IDColumn)
	args = append(args, src.LinkType)

	res := s.db.WithContext(ctx).Exec(query, args...)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to link %s identities: %w", src.LinkType, res.Error)
	}
	return res.RowsAffected, nil
}

// QueueUnreliable queues identities of src whose email is a provider
// placeholder and that have no pending queue entry.
func (s *IdentityStore) QueueUnreliable(ctx context.Context, tenant string, src store.IdentitySource) (int64, error) {
	if src.UnreliableSuffix == "" {
		return 0, nil
	}
	if err := validateSource(src); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		INSERT INTO identity_reconciliation_queue
			(tenant_id, provider_type, provider_user_id, conflict_reason, status)
		SELECT u.tenant_id, ?, u.%[2]s, 'noreply_email: ' || u.%[3]s, 'PENDING'
		FROM %[1]s u
		WHERE u.tenant_id = ?
			AND u.deleted_at IS NULL
			AND u.%[3]s LIKE ?
			AND NOT EXISTS (
				SELECT 1 FROM identity_reconciliation_queue q
				WHERE q.tenant_id = u.tenant_id
					AND q.provider_type = ?
					AND q.provider_user_id = u.%[2]s
					AND q.status = 'PENDING'
			)
		ON CONFLICT (tenant_id, provider_type, provider_user_id) WHERE status = 'PENDING' DO NOTHING
	`, src.Table, src.IDColumn, src.EmailColumn)

	res := s.db.WithContext(ctx).Exec(query, src.LinkType, tenant, "%"+src.UnreliableSuffix, src.LinkType)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to queue %s identities: %w", src.LinkType, res.Error)
	}
	return res.RowsAffected, nil
}

// validateSource rejects descriptors that cannot be interpolated safely.
func validateSource(src store.IdentitySource) error {
	probe := store.Batch{
		Table:           src.Table,
		Columns:         []string{src.IDColumn, src.EmailColumn},
		ConflictColumns: []string{src.IDColumn},
	}
	if src.LinkType == "" {
		return fmt.Errorf("%w: identity source for %s has no link type", store.ErrInvalidBatch, src.Table)
	}
	return probe.Validate()
}
