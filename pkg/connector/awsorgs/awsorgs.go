// Package awsorgs syncs the member accounts of an AWS Organization.
package awsorgs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
)

const accountsTable = "aws_accounts"

// API is the part of the organizations client the connector uses.
type API interface {
	organizations.ListAccountsAPIClient
	DescribeOrganization(ctx context.Context, in *organizations.DescribeOrganizationInput, optFns ...func(*organizations.Options)) (*organizations.DescribeOrganizationOutput, error)
	ListParents(ctx context.Context, in *organizations.ListParentsInput, optFns ...func(*organizations.Options)) (*organizations.ListParentsOutput, error)
}

type Connector struct {
	tenant string
	api    API
	writer *ingest.Writer
	logger *zap.Logger
}

// New builds a Connector from the default AWS credential chain. It must run
// with management or delegated administrator credentials.
func New(ctx context.Context, deps ingest.Deps) (ingest.Connector, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(deps.Config.AwsOrganizations.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewWithClient(deps, organizations.NewFromConfig(awsCfg)), nil
}

func NewWithClient(deps ingest.Deps, api API) *Connector {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{tenant: deps.Config.TenantID, api: api, writer: deps.Writer, logger: logger}
}

func (c *Connector) Provider() provider.Type {
	return provider.TypeAwsOrganizations
}

func (c *Connector) Sync(ctx context.Context) (store.Counts, error) {
	c.logger.Info("syncing", zap.String(logging.FieldEntityType, "accounts"))

	orgID := c.organizationID(ctx)

	var rows [][]any
	p := organizations.NewListAccountsPaginator(c.api, &organizations.ListAccountsInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return store.Counts{}, fmt.Errorf("failed to list accounts: %w", err)
		}
		for _, a := range page.Accounts {
			id := aws.ToString(a.Id)
			parentID, err := c.parentID(ctx, id)
			if err != nil {
				return store.Counts{}, err
			}
			rows = append(rows, []any{
				c.tenant, id, aws.ToString(a.Name), a.Email, string(a.Status),
				optional(string(a.JoinedMethod)), a.JoinedTimestamp, orgID, parentID, store.JSON(a),
			})
		}
	}

	n, err := c.writer.Write(ctx, store.Batch{
		Table: accountsTable,
		Columns: []string{
			"tenant_id", "account_id", "name", "email", "status",
			"joined_method", "joined_at", "org_id", "parent_id", "raw_response",
		},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", "account_id"},
		UpdateColumns:   []string{"name", "email", "status", "joined_method", "joined_at", "org_id", "parent_id", "raw_response"},
	})
	if err != nil {
		return store.Counts{}, err
	}
	c.logger.Info("entities synced",
		zap.String(logging.FieldEntityType, "accounts"),
		zap.Int64(logging.FieldRecords, n))
	return store.Counts{"accounts": n}, nil
}

// organizationID is nil when the caller may not describe the organisation.
func (c *Connector) organizationID(ctx context.Context) *string {
	out, err := c.api.DescribeOrganization(ctx, &organizations.DescribeOrganizationInput{})
	if err != nil || out.Organization == nil {
		c.logger.Warn("could not describe organization", zap.Error(err))
		return nil
	}
	return out.Organization.Id
}

// parentID returns the account's first parent, a root or an OU.
func (c *Connector) parentID(ctx context.Context, accountID string) (*string, error) {
	out, err := c.api.ListParents(ctx, &organizations.ListParentsInput{ChildId: aws.String(accountID)})
	if err != nil {
		return nil, fmt.Errorf("failed to list parents of %s: %w", accountID, err)
	}
	if len(out.Parents) == 0 {
		return nil, nil
	}
	return out.Parents[0].Id, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
