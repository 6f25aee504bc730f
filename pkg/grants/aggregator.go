package grants

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/model"
	"github.com/alxnderia/ingestion/pkg/store"
)

// Table is the access matrix table.
const Table = "resource_access_grants"

// Count keys reported by Rebuild.
const (
	CountDeleted  = "deleted"
	CountInserted = "inserted"
)

var (
	grantColumns = []string{
		"tenant_id", "provider", "resource_type", "resource_id", "resource_display_name",
		"subject_type", "subject_provider_id", "subject_display_name", "canonical_user_id",
		"role_or_permission", "access_path", "via_group_id", "via_group_display_name",
		"raw_response", "deleted_at",
	}
	grantConflictColumns = []string{
		"tenant_id", "provider", "resource_type", "resource_id",
		"subject_type", "subject_provider_id", "role_or_permission",
	}
	grantUpdateColumns = []string{
		"resource_display_name", "subject_display_name", "canonical_user_id",
		"access_path", "via_group_id", "via_group_display_name", "deleted_at",
	}
)

// Aggregator rebuilds a tenant's access matrix.
type Aggregator struct {
	store  store.GrantsStore
	tenant string
	logger *zap.Logger
}

// NewAggregator creates an Aggregator for tenant.
func NewAggregator(s store.GrantsStore, tenant string, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{store: s, tenant: tenant, logger: logger.Named("grants")}
}

// Rebuild soft-deletes the tenant's grants and re-derives them from the raw
// relationship tables in one transaction. On error nothing is changed.
func (a *Aggregator) Rebuild(ctx context.Context) (store.Counts, error) {
	start := time.Now()
	var deleted, inserted int64

	err := a.store.Transaction(ctx, func(tx store.GrantsStore) error {
		n, err := tx.SoftDeleteGrants(ctx, a.tenant)
		if err != nil {
			return err
		}
		deleted = n

		snap, err := tx.LoadSnapshot(ctx, a.tenant)
		if err != nil {
			return err
		}

		grants := Dedupe(Derive(snap))
		inserted, err = tx.UpsertBatch(ctx, GrantsBatch(a.tenant, grants))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("grants rebuild rolled back: %w", err)
	}

	a.logger.Info("access grants rebuilt",
		zap.Int64("deleted", deleted),
		zap.Int64("inserted", inserted),
		zap.Duration("duration", time.Since(start)))

	return store.Counts{CountDeleted: deleted, CountInserted: inserted}, nil
}

// GrantsBatch converts grants into an upsert batch that revives
// soft-deleted rows on conflict.
func GrantsBatch(tenant string, grants []model.Grant) store.Batch {
	rows := make([][]any, 0, len(grants))
	for _, g := range grants {
		rows = append(rows, []any{
			tenant,
			g.Provider,
			g.ResourceType,
			g.ResourceID,
			nullable(g.ResourceDisplayName),
			g.SubjectType,
			g.SubjectProviderID,
			nullable(g.SubjectDisplayName),
			nullable(g.CanonicalUserID),
			g.RoleOrPermission,
			g.AccessPath,
			nullable(g.ViaGroupID),
			nullable(g.ViaGroupDisplayName),
			"{}",
			nil,
		})
	}
	return store.Batch{
		Table:           Table,
		Columns:         grantColumns,
		Rows:            rows,
		ConflictColumns: grantConflictColumns,
		UpdateColumns:   grantUpdateColumns,
	}
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
