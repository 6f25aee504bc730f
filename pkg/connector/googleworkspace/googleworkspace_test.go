package googleworkspace

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"

	"github.com/alxnderia/ingestion/pkg/config"
	"github.com/alxnderia/ingestion/pkg/connector/connectortest"
	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/provider"
)

const tenant = "8b0f6c1e-3f51-4c4e-9d0a-3a0f0c6b2d11"

type fakeDirectory struct {
	users       []*admin.Users
	groups      *admin.Groups
	members     map[string]*admin.Members
	rateLimited int
	customers   []string
}

func (f *fakeDirectory) Users(_ context.Context, customer, token string) (*admin.Users, error) {
	f.customers = append(f.customers, customer)
	if f.rateLimited > 0 {
		f.rateLimited--
		return nil, &googleapi.Error{Code: http.StatusTooManyRequests}
	}
	if token == "" {
		return f.users[0], nil
	}
	return f.users[1], nil
}

func (f *fakeDirectory) Groups(context.Context, string, string) (*admin.Groups, error) {
	return f.groups, nil
}

func (f *fakeDirectory) Members(_ context.Context, groupKey, _ string) (*admin.Members, error) {
	m, ok := f.members[groupKey]
	if !ok {
		return nil, &googleapi.Error{Code: http.StatusNotFound, Message: "Resource Not Found: groupKey"}
	}
	return m, nil
}

func newTestConnector(t *testing.T, dir Directory) (*Connector, *connectortest.Recorder) {
	rec := connectortest.NewRecorder()
	cfg := &config.Config{
		TenantID:        tenant,
		GoogleWorkspace: &config.GoogleWorkspaceConfig{AdminEmail: "admin@example.com", CustomerID: "C0123"},
	}
	c := NewWithDirectory(ingest.Deps{Config: cfg, Writer: rec.Writer(2), Keys: rec, Logger: zaptest.NewLogger(t)}, dir)
	c.backoff = func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3) }
	return c, rec
}

func fixture() *fakeDirectory {
	return &fakeDirectory{
		users: []*admin.Users{
			{
				Users: []*admin.User{
					{Id: "g-ann", PrimaryEmail: "ann@example.com", Name: &admin.UserName{FullName: "Ann Example"}, IsAdmin: true, CreationTime: "2024-01-02T03:04:05.000Z"},
					{Id: "g-bob", PrimaryEmail: "bob@example.com", Suspended: true},
				},
				NextPageToken: "page-2",
			},
			{Users: []*admin.User{{Id: "g-cy", PrimaryEmail: "cy@example.com"}}},
		},
		groups: &admin.Groups{Groups: []*admin.Group{
			{Id: "grp-eng", Email: "eng@example.com", Name: "Engineering", AdminCreated: true, DirectMembersCount: 2},
			{Id: "grp-gone", Email: "gone@example.com"},
		}},
		members: map[string]*admin.Members{
			"grp-eng": {Members: []*admin.Member{
				{Id: "g-ann", Email: "ann@example.com", Role: "OWNER", Type: "USER", Status: "ACTIVE"},
				{Id: "g-bob"},
			}},
		},
	}
}

func TestSync(t *testing.T) {
	dir := fixture()
	c, rec := newTestConnector(t, dir)
	assert.Equal(t, provider.TypeGoogleWorkspace, c.Provider())

	counts, err := c.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["users"])
	assert.Equal(t, int64(2), counts["groups"])
	assert.Equal(t, int64(2), counts["memberships"])
	assert.Equal(t, []string{"C0123", "C0123"}, dir.customers)

	users := rec.Rows(usersTable)
	require.Len(t, users, 3)
	assert.Equal(t, tenant, users[0]["tenant_id"])
	assert.Equal(t, "g-ann", users[0]["google_id"])
	assert.Equal(t, "Ann Example", users[0]["name_full"])
	assert.Equal(t, true, users[0]["is_admin"])
	assert.Equal(t, "2024-01-02T03:04:05.000Z", users[0]["creation_time"])
	assert.Nil(t, users[1]["name_full"])
	assert.Nil(t, users[1]["last_login_time"])
	assert.Equal(t, true, users[1]["suspended"])
	assert.Contains(t, users[0]["raw_response"], `"primaryEmail":"ann@example.com"`)

	groups := rec.Rows(groupsTable)
	require.Len(t, groups, 2)
	assert.Equal(t, "Engineering", groups[0]["name"])
	assert.Equal(t, int64(2), groups[0]["direct_members_count"])

	members := rec.Rows(membershipsTable)
	require.Len(t, members, 2)
	assert.Equal(t, "grp-eng", members[0]["group_id"])
	assert.Equal(t, "OWNER", members[0]["role"])
	assert.Equal(t, "USER", members[1]["member_type"])
	assert.Equal(t, "MEMBER", members[1]["role"])
	assert.Equal(t, "ACTIVE", members[1]["status"])
	assert.Nil(t, members[1]["member_email"])
}

func TestSyncRetriesRateLimits(t *testing.T) {
	dir := fixture()
	dir.rateLimited = 2
	c, _ := newTestConnector(t, dir)

	counts, err := c.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["users"])
}

func TestSyncWriteFailure(t *testing.T) {
	c, rec := newTestConnector(t, fixture())
	rec.FailTable = groupsTable
	rec.FailErr = errors.New("deadlock detected")

	counts, err := c.Sync(context.Background())
	assert.ErrorContains(t, err, "deadlock")
	assert.Equal(t, int64(3), counts["users"])
	assert.Empty(t, rec.Rows(membershipsTable))
}

func TestIsStatus(t *testing.T) {
	assert.True(t, isStatus(&googleapi.Error{Code: 404}, http.StatusNotFound))
	assert.False(t, isStatus(errors.New("404"), http.StatusNotFound))
	assert.False(t, isStatus(nil, http.StatusNotFound))
}
