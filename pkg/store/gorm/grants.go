package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/alxnderia/ingestion/pkg/model"
	"github.com/alxnderia/ingestion/pkg/store"
)

// Ensure GrantsStore implements store.GrantsStore
var _ store.GrantsStore = (*GrantsStore)(nil)

// GrantsStore implements store.GrantsStore using GORM
type GrantsStore struct {
	db *gorm.DB
}

// NewGrantsStore creates a new GrantsStore
func NewGrantsStore(db *gorm.DB) *GrantsStore {
	return &GrantsStore{db: db}
}

// Transaction wraps operations in a database transaction.
func (s *GrantsStore) Transaction(ctx context.Context, fn func(store.GrantsStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GrantsStore{db: tx})
	})
}

// SoftDeleteGrants marks every live grant of the tenant deleted
func (s *GrantsStore) SoftDeleteGrants(ctx context.Context, tenant string) (int64, error) {
	res := s.db.WithContext(ctx).Exec(`
		UPDATE resource_access_grants
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE tenant_id = ? AND deleted_at IS NULL
	`, tenant)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to soft-delete grants: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// LoadSnapshot reads the tenant's live relationship rows and links
func (s *GrantsStore) LoadSnapshot(ctx context.Context, tenant string) (*model.AccessSnapshot, error) {
	snap := &model.AccessSnapshot{TenantID: tenant}
	db := s.db.WithContext(ctx)

	live := []struct {
		name string
		dest interface{}
	}{
		{"aws accounts", &snap.AwsAccounts},
		{"aws account assignments", &snap.AwsAssignments},
		{"aws groups", &snap.AwsGroups},
		{"aws users", &snap.AwsUsers},
		{"aws memberships", &snap.AwsMemberships},
		{"gcp projects", &snap.GcpProjects},
		{"gcp bindings", &snap.GcpBindings},
		{"workspace users", &snap.WorkspaceUsers},
		{"workspace groups", &snap.WorkspaceGroups},
		{"github repositories", &snap.GithubRepos},
		{"github teams", &snap.GithubTeams},
		{"github users", &snap.GithubUsers},
		{"github team permissions", &snap.GithubTeamPerms},
		{"github collaborator permissions", &snap.GithubCollabPerms},
	}
	for _, l := range live {
		if err := db.Where("tenant_id = ? AND deleted_at IS NULL", tenant).Find(l.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", l.name, err)
		}
	}

	if err := db.Where("tenant_id = ?", tenant).Find(&snap.Links).Error; err != nil {
		return nil, fmt.Errorf("failed to load provider links: %w", err)
	}
	return snap, nil
}

// UpsertBatch writes derived grants
func (s *GrantsStore) UpsertBatch(ctx context.Context, batch store.Batch) (int64, error) {
	return upsertBatch(s.db.WithContext(ctx), batch, store.PageSize)
}
