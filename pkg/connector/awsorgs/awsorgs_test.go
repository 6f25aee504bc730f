package awsorgs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alxnderia/ingestion/pkg/config"
	"github.com/alxnderia/ingestion/pkg/connector/connectortest"
	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/store"
)

const tenant = "8b0f6c1e-3f51-4c4e-9d0a-3a0f0c6b2d11"

type fakeOrganizations struct {
	describeErr error
	parentsErr  error
}

func (f fakeOrganizations) DescribeOrganization(context.Context, *organizations.DescribeOrganizationInput, ...func(*organizations.Options)) (*organizations.DescribeOrganizationOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &organizations.DescribeOrganizationOutput{Organization: &types.Organization{Id: aws.String("o-abc")}}, nil
}

func (fakeOrganizations) ListAccounts(_ context.Context, in *organizations.ListAccountsInput, _ ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error) {
	joined := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	if in.NextToken == nil {
		return &organizations.ListAccountsOutput{
			Accounts: []types.Account{{
				Id: aws.String("111111111111"), Name: aws.String("prod"), Email: aws.String("prod@example.com"),
				Status: types.AccountStatusActive, JoinedMethod: types.AccountJoinedMethodCreated, JoinedTimestamp: &joined,
			}},
			NextToken: aws.String("next"),
		}, nil
	}
	return &organizations.ListAccountsOutput{
		Accounts: []types.Account{{Id: aws.String("222222222222"), Name: aws.String("sandbox"), Status: types.AccountStatusSuspended}},
	}, nil
}

func (f fakeOrganizations) ListParents(_ context.Context, in *organizations.ListParentsInput, _ ...func(*organizations.Options)) (*organizations.ListParentsOutput, error) {
	if f.parentsErr != nil {
		return nil, f.parentsErr
	}
	if aws.ToString(in.ChildId) == "222222222222" {
		return &organizations.ListParentsOutput{}, nil
	}
	return &organizations.ListParentsOutput{Parents: []types.Parent{
		{Id: aws.String("ou-root-prod"), Type: types.ParentTypeOrganizationalUnit},
		{Id: aws.String("r-root"), Type: types.ParentTypeRoot},
	}}, nil
}

func newConnector(rec *connectortest.Recorder, api API) *Connector {
	return NewWithClient(ingest.Deps{
		Config: &config.Config{TenantID: tenant, AwsOrganizations: &config.AwsOrganizationsConfig{}},
		Writer: rec.Writer(100),
	}, api)
}

func TestSync(t *testing.T) {
	rec := connectortest.NewRecorder()

	counts, err := newConnector(rec, fakeOrganizations{}).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.Counts{"accounts": 2}, counts)

	rows := rec.Rows(accountsTable)
	require.Len(t, rows, 2)
	assert.Equal(t, "prod", rows[0]["name"])
	assert.Equal(t, "ACTIVE", rows[0]["status"])
	assert.Equal(t, "CREATED", *rows[0]["joined_method"].(*string))
	assert.Equal(t, "o-abc", *rows[0]["org_id"].(*string))
	assert.Equal(t, "ou-root-prod", *rows[0]["parent_id"].(*string))

	assert.Equal(t, "SUSPENDED", rows[1]["status"])
	assert.Nil(t, rows[1]["joined_method"])
	assert.Nil(t, rows[1]["parent_id"])
}

func TestSyncWithoutDescribeAccess(t *testing.T) {
	rec := connectortest.NewRecorder()

	_, err := newConnector(rec, fakeOrganizations{describeErr: errors.New("AccessDeniedException")}).Sync(context.Background())
	require.NoError(t, err)
	for _, orgID := range rec.Column(accountsTable, "org_id") {
		assert.Nil(t, orgID)
	}
}

func TestSyncParentsFailure(t *testing.T) {
	rec := connectortest.NewRecorder()

	_, err := newConnector(rec, fakeOrganizations{parentsErr: errors.New("throttled")}).Sync(context.Background())
	assert.ErrorContains(t, err, "failed to list parents of 111111111111")
	assert.Empty(t, rec.Rows(accountsTable))
}
