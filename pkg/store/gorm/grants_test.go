package gorm

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alxnderia/ingestion/pkg/store"
)

var snapshotTables = []string{
	"aws_accounts",
	"aws_account_assignments",
	"aws_identity_center_groups",
	"aws_identity_center_users",
	"aws_identity_center_memberships",
	"gcp_projects",
	"gcp_project_iam_bindings",
	"google_workspace_users",
	"google_workspace_groups",
	"github_repositories",
	"github_teams",
	"github_users",
	"github_repo_team_permissions",
	"github_repo_collaborator_permissions",
}

func TestGrantsStore_SoftDeleteGrants(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectExec(`UPDATE resource_access_grants SET deleted_at = NOW\(\), updated_at = NOW\(\) WHERE tenant_id = \$1 AND deleted_at IS NULL`).
		WithArgs(tenant).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := NewGrantsStore(db).SoftDeleteGrants(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantsStore_LoadSnapshot(t *testing.T) {
	db, mock := setupTestDB(t)

	for _, table := range snapshotTables {
		rows := sqlmock.NewRows([]string{"tenant_id"})
		if table == "aws_accounts" {
			rows = sqlmock.NewRows([]string{"tenant_id", "account_id", "name"}).AddRow(tenant, "111111111111", "prod")
		}
		mock.ExpectQuery(`SELECT \* FROM "` + table + `" WHERE tenant_id = \$1 AND deleted_at IS NULL`).
			WithArgs(tenant).
			WillReturnRows(rows)
	}
	mock.ExpectQuery(`SELECT \* FROM "canonical_user_provider_links" WHERE tenant_id = \$1`).
		WithArgs(tenant).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "provider_type", "provider_user_id", "canonical_user_id"}).
			AddRow(tenant, "GITHUB", "U_1", "c-1"))

	snap, err := NewGrantsStore(db).LoadSnapshot(context.Background(), tenant)
	require.NoError(t, err)
	require.Len(t, snap.AwsAccounts, 1)
	assert.Equal(t, "prod", snap.AwsAccounts[0].Name)
	require.Len(t, snap.Links, 1)
	assert.Equal(t, "c-1", snap.Links[0].CanonicalUserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantsStore_TransactionRollsBack(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE resource_access_grants`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectRollback()

	failure := errors.New("simulated failure")
	err := NewGrantsStore(db).Transaction(context.Background(), func(tx store.GrantsStore) error {
		if _, err := tx.SoftDeleteGrants(context.Background(), tenant); err != nil {
			return err
		}
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.NoError(t, mock.ExpectationsWereMet())
}
