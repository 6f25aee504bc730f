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

var githubSource = store.IdentitySource{
	LinkType:         "GITHUB",
	Table:            "github_users",
	IDColumn:         "node_id",
	EmailColumn:      "email",
	UnreliableSuffix: "@users.noreply.github.com",
}

func TestIdentityStore_LinkExactEmail(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectExec(`INSERT INTO canonical_user_provider_links .* SELECT u.tenant_id, ce.canonical_user_id, \$1, u.node_id, 100, 'email_exact' FROM github_users u JOIN canonical_emails ce ON ce.tenant_id = u.tenant_id AND ce.email = u.email .* AND u.email NOT LIKE \$3 AND NOT EXISTS .* ON CONFLICT \(tenant_id, provider_type, provider_user_id\) DO UPDATE SET`).
		WithArgs("GITHUB", tenant, "%@users.noreply.github.com", "GITHUB").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := NewIdentityStore(db).LinkExactEmail(context.Background(), tenant, githubSource)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityStore_LinkExactEmailWithoutSuffix(t *testing.T) {
	db, mock := setupTestDB(t)

	src := store.IdentitySource{
		LinkType:    "GOOGLE_WORKSPACE",
		Table:       "google_workspace_users",
		IDColumn:    "google_id",
		EmailColumn: "primary_email",
	}
	mock.ExpectExec(`FROM google_workspace_users u .* AND u.primary_email IS NOT NULL AND NOT EXISTS`).
		WithArgs("GOOGLE_WORKSPACE", tenant, "GOOGLE_WORKSPACE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := NewIdentityStore(db).LinkExactEmail(context.Background(), tenant, src)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityStore_LinkExactEmailRejectsBadSource(t *testing.T) {
	db, mock := setupTestDB(t)

	src := githubSource
	src.EmailColumn = "email; --"
	_, err := NewIdentityStore(db).LinkExactEmail(context.Background(), tenant, src)
	assert.ErrorIs(t, err, store.ErrInvalidBatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityStore_QueueUnreliable(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectExec(`INSERT INTO identity_reconciliation_queue .* 'noreply_email: ' \|\| u.email, 'PENDING' FROM github_users u .* AND q.status = 'PENDING' \) ON CONFLICT \(tenant_id, provider_type, provider_user_id\) WHERE status = 'PENDING' DO NOTHING`).
		WithArgs("GITHUB", tenant, "%@users.noreply.github.com", "GITHUB").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := NewIdentityStore(db).QueueUnreliable(context.Background(), tenant, githubSource)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityStore_QueueUnreliableSkipsReliableSources(t *testing.T) {
	db, mock := setupTestDB(t)

	src := githubSource
	src.UnreliableSuffix = ""
	n, err := NewIdentityStore(db).QueueUnreliable(context.Background(), tenant, src)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityStore_Error(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectExec(`INSERT INTO canonical_user_provider_links`).WillReturnError(errors.New("deadlock detected"))

	_, err := NewIdentityStore(db).LinkExactEmail(context.Background(), tenant, githubSource)
	assert.ErrorContains(t, err, "failed to link GITHUB identities: deadlock detected")
}
