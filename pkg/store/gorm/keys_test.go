package gorm

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alxnderia/ingestion/pkg/store"
)

func TestLiveKeys(t *testing.T) {
	db, mock := setupTestDB(t)
	s := NewKeyStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT "project_id" FROM "gcp_projects" WHERE tenant_id = $1 AND deleted_at IS NULL AND lifecycle_state = $2 ORDER BY project_id`)).
		WithArgs(tenant, "ACTIVE").
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}).AddRow("alpha").AddRow("beta"))

	keys, err := s.LiveKeys(context.Background(), tenant, store.KeyQuery{
		Table:  "gcp_projects",
		Column: "project_id",
		Equals: map[string]string{"lifecycle_state": "ACTIVE"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLiveKeysRejectsBadIdentifiers(t *testing.T) {
	db, _ := setupTestDB(t)
	s := NewKeyStore(db)

	_, err := s.LiveKeys(context.Background(), tenant, store.KeyQuery{Table: "groups; drop", Column: "id"})
	assert.ErrorIs(t, err, store.ErrInvalidBatch)

	_, err = s.LiveKeys(context.Background(), tenant, store.KeyQuery{
		Table: "groups", Column: "id", Equals: map[string]string{"1=1 or x": "y"},
	})
	assert.ErrorIs(t, err, store.ErrInvalidBatch)
}

func TestLiveKeysError(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT "google_id" FROM "google_workspace_groups"`).
		WillReturnError(errors.New("relation does not exist"))

	_, err := NewKeyStore(db).LiveKeys(context.Background(), tenant, store.KeyQuery{
		Table: "google_workspace_groups", Column: "google_id",
	})
	assert.ErrorContains(t, err, "failed to list google_workspace_groups.google_id")
}
