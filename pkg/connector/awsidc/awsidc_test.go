package awsidc

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	idstypes "github.com/aws/aws-sdk-go-v2/service/identitystore/types"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	ssotypes "github.com/aws/aws-sdk-go-v2/service/ssoadmin/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alxnderia/ingestion/pkg/config"
	"github.com/alxnderia/ingestion/pkg/connector/connectortest"
	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/store"
)

const (
	tenant  = "8b0f6c1e-3f51-4c4e-9d0a-3a0f0c6b2d11"
	storeID = "d-1234567890"
	psAdmin = "arn:aws:sso:::permissionSet/ssoins-1/ps-admin"
	psRead  = "arn:aws:sso:::permissionSet/ssoins-1/ps-read"
)

type fakeIdentityStore struct{}

func (fakeIdentityStore) ListUsers(_ context.Context, in *identitystore.ListUsersInput, _ ...func(*identitystore.Options)) (*identitystore.ListUsersOutput, error) {
	if in.NextToken == nil {
		return &identitystore.ListUsersOutput{
			Users: []idstypes.User{{
				UserId:   aws.String("u-1"),
				UserName: aws.String("ann"),
				Name:     &idstypes.Name{GivenName: aws.String("Ann"), FamilyName: aws.String("Lee")},
				Emails: []idstypes.Email{
					{Value: aws.String("ann@old.example.com")},
					{Value: aws.String("ann@example.com"), Primary: true},
				},
			}},
			NextToken: aws.String("page-2"),
		}, nil
	}
	return &identitystore.ListUsersOutput{
		Users: []idstypes.User{{
			UserId:   aws.String("u-2"),
			UserName: aws.String("bob"),
			Emails:   []idstypes.Email{{Value: aws.String("bob@example.com")}},
		}},
	}, nil
}

func (fakeIdentityStore) ListGroups(_ context.Context, _ *identitystore.ListGroupsInput, _ ...func(*identitystore.Options)) (*identitystore.ListGroupsOutput, error) {
	return &identitystore.ListGroupsOutput{
		Groups: []idstypes.Group{{GroupId: aws.String("g-1"), DisplayName: aws.String("Admins")}},
	}, nil
}

func (fakeIdentityStore) ListGroupMemberships(_ context.Context, in *identitystore.ListGroupMembershipsInput, _ ...func(*identitystore.Options)) (*identitystore.ListGroupMembershipsOutput, error) {
	if aws.ToString(in.GroupId) != "g-1" {
		return &identitystore.ListGroupMembershipsOutput{}, nil
	}
	return &identitystore.ListGroupMembershipsOutput{
		GroupMemberships: []idstypes.GroupMembership{{
			MembershipId: aws.String("m-1"),
			GroupId:      aws.String("g-1"),
			MemberId:     &idstypes.MemberIdMemberUserId{Value: "u-1"},
		}},
	}, nil
}

type fakeSSOAdmin struct {
	describeErr error
}

func (fakeSSOAdmin) ListPermissionSets(_ context.Context, _ *ssoadmin.ListPermissionSetsInput, _ ...func(*ssoadmin.Options)) (*ssoadmin.ListPermissionSetsOutput, error) {
	return &ssoadmin.ListPermissionSetsOutput{PermissionSets: []string{psAdmin, psRead}}, nil
}

func (fakeSSOAdmin) ListAccountsForProvisionedPermissionSet(_ context.Context, in *ssoadmin.ListAccountsForProvisionedPermissionSetInput, _ ...func(*ssoadmin.Options)) (*ssoadmin.ListAccountsForProvisionedPermissionSetOutput, error) {
	if aws.ToString(in.PermissionSetArn) == psAdmin {
		return &ssoadmin.ListAccountsForProvisionedPermissionSetOutput{AccountIds: []string{"111111111111"}}, nil
	}
	return &ssoadmin.ListAccountsForProvisionedPermissionSetOutput{}, nil
}

func (fakeSSOAdmin) ListAccountAssignments(_ context.Context, in *ssoadmin.ListAccountAssignmentsInput, _ ...func(*ssoadmin.Options)) (*ssoadmin.ListAccountAssignmentsOutput, error) {
	return &ssoadmin.ListAccountAssignmentsOutput{
		AccountAssignments: []ssotypes.AccountAssignment{
			{AccountId: in.AccountId, PermissionSetArn: in.PermissionSetArn, PrincipalType: ssotypes.PrincipalTypeGroup, PrincipalId: aws.String("g-1")},
			{AccountId: in.AccountId, PermissionSetArn: in.PermissionSetArn, PrincipalType: ssotypes.PrincipalTypeUser, PrincipalId: aws.String("u-2")},
		},
	}, nil
}

func (f fakeSSOAdmin) DescribePermissionSet(_ context.Context, in *ssoadmin.DescribePermissionSetInput, _ ...func(*ssoadmin.Options)) (*ssoadmin.DescribePermissionSetOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &ssoadmin.DescribePermissionSetOutput{
		PermissionSet: &ssotypes.PermissionSet{PermissionSetArn: in.PermissionSetArn, Name: aws.String("AdministratorAccess")},
	}, nil
}

func newConnector(rec *connectortest.Recorder, sso SSOAdminAPI) *Connector {
	deps := ingest.Deps{
		Config: &config.Config{
			TenantID: tenant,
			AwsIdentityCenter: &config.AwsIdentityCenterConfig{
				IdentityStoreID: storeID,
				SSOInstanceArn:  "arn:aws:sso:::instance/ssoins-1",
			},
		},
		Writer: rec.Writer(100),
		Keys:   rec,
	}
	return NewWithClients(deps, fakeIdentityStore{}, sso)
}

func TestSync(t *testing.T) {
	rec := connectortest.NewRecorder()

	counts, err := newConnector(rec, fakeSSOAdmin{}).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.Counts{"users": 2, "groups": 1, "memberships": 1, "account_assignments": 2}, counts)

	users := rec.Rows(usersTable)
	require.Len(t, users, 2)
	assert.Equal(t, "ann", users[0]["user_name"])
	assert.Equal(t, "ann@example.com", *users[0]["email"].(*string))
	assert.Equal(t, "Ann", *users[0]["given_name"].(*string))
	assert.Equal(t, "bob@example.com", *users[1]["email"].(*string))
	assert.Nil(t, users[1]["given_name"].(*string))

	memberships := rec.Rows(membershipsTable)
	require.Len(t, memberships, 1)
	assert.Equal(t, "u-1", memberships[0]["member_user_id"])
	assert.Equal(t, "g-1", memberships[0]["group_id"])

	assignments := rec.Rows(assignmentsTable)
	require.Len(t, assignments, 2)
	assert.Equal(t, "AdministratorAccess", assignments[0]["permission_set_name"])
	assert.Equal(t, "GROUP", assignments[0]["principal_type"])
	assert.Equal(t, "USER", assignments[1]["principal_type"])
	assert.Equal(t, "111111111111", assignments[1]["account_id"])
}

func TestPermissionSetNameFallsBackToArn(t *testing.T) {
	rec := connectortest.NewRecorder()

	_, err := newConnector(rec, fakeSSOAdmin{describeErr: errors.New("AccessDenied")}).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{psAdmin, psAdmin}, rec.Column(assignmentsTable, "permission_set_name"))
}

func TestMembershipsOnlyForThisIdentityStore(t *testing.T) {
	rec := connectortest.NewRecorder()
	_, err := rec.UpsertBatch(context.Background(), store.Batch{
		Table:           groupsTable,
		Columns:         []string{"tenant_id", "identity_store_id", "group_id", "display_name", "description", "raw_response"},
		Rows:            [][]any{{tenant, "d-other", "g-foreign", "Foreign", nil, "{}"}},
		ConflictColumns: []string{"tenant_id", "identity_store_id", "group_id"},
	})
	require.NoError(t, err)

	c := newConnector(rec, fakeSSOAdmin{})
	_, err = c.syncGroups(context.Background())
	require.NoError(t, err)
	n, err := c.syncMemberships(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPrimaryEmail(t *testing.T) {
	assert.Nil(t, primaryEmail(nil))
	assert.Equal(t, "a", *primaryEmail([]idstypes.Email{{Value: aws.String("a")}, {Value: aws.String("b")}}))
	assert.Equal(t, "b", *primaryEmail([]idstypes.Email{{Value: aws.String("a")}, {Value: aws.String("b"), Primary: true}}))
}
