// Package awsidc syncs AWS IAM Identity Center users, groups, group
// memberships and account assignments.
package awsidc

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	idstypes "github.com/aws/aws-sdk-go-v2/service/identitystore/types"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	ssotypes "github.com/aws/aws-sdk-go-v2/service/ssoadmin/types"
	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
)

const (
	usersTable       = "aws_identity_center_users"
	groupsTable      = "aws_identity_center_groups"
	membershipsTable = "aws_identity_center_memberships"
	assignmentsTable = "aws_account_assignments"
)

// IdentityStoreAPI is the part of the identitystore client the connector
// uses.
type IdentityStoreAPI interface {
	identitystore.ListUsersAPIClient
	identitystore.ListGroupsAPIClient
	identitystore.ListGroupMembershipsAPIClient
}

// SSOAdminAPI is the part of the sso-admin client the connector uses.
type SSOAdminAPI interface {
	ssoadmin.ListPermissionSetsAPIClient
	ssoadmin.ListAccountsForProvisionedPermissionSetAPIClient
	ssoadmin.ListAccountAssignmentsAPIClient
	DescribePermissionSet(ctx context.Context, in *ssoadmin.DescribePermissionSetInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.DescribePermissionSetOutput, error)
}

// Connector syncs one identity store and its SSO instance.
type Connector struct {
	tenant          string
	identityStoreID string
	instanceArn     string
	ids             IdentityStoreAPI
	sso             SSOAdminAPI
	writer          *ingest.Writer
	keys            store.KeyReader
	logger          *zap.Logger
}

// New builds a Connector from the default AWS credential chain.
func New(ctx context.Context, deps ingest.Deps) (ingest.Connector, error) {
	idc := deps.Config.AwsIdentityCenter
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(idc.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewWithClients(deps, identitystore.NewFromConfig(awsCfg), ssoadmin.NewFromConfig(awsCfg)), nil
}

// NewWithClients builds a Connector over existing clients.
func NewWithClients(deps ingest.Deps, ids IdentityStoreAPI, sso SSOAdminAPI) *Connector {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	idc := deps.Config.AwsIdentityCenter
	return &Connector{
		tenant:          deps.Config.TenantID,
		identityStoreID: idc.IdentityStoreID,
		instanceArn:     idc.SSOInstanceArn,
		ids:             ids,
		sso:             sso,
		writer:          deps.Writer,
		keys:            deps.Keys,
		logger:          logger,
	}
}

func (c *Connector) Provider() provider.Type {
	return provider.TypeAwsIdentityCenter
}

// Sync pulls users, groups, memberships of every stored group and the
// account assignments of every permission set.
func (c *Connector) Sync(ctx context.Context) (store.Counts, error) {
	counts := store.Counts{}
	steps := []struct {
		entity string
		run    func(context.Context) (int64, error)
	}{
		{"users", c.syncUsers},
		{"groups", c.syncGroups},
		{"memberships", c.syncMemberships},
		{"account_assignments", c.syncAssignments},
	}
	for _, step := range steps {
		c.logger.Info("syncing", zap.String(logging.FieldEntityType, step.entity))
		n, err := step.run(ctx)
		if err != nil {
			return counts, err
		}
		counts[step.entity] = n
		c.logger.Info("entities synced",
			zap.String(logging.FieldEntityType, step.entity),
			zap.Int64(logging.FieldRecords, n))
	}
	return counts, nil
}

func (c *Connector) syncUsers(ctx context.Context) (int64, error) {
	var rows [][]any
	p := identitystore.NewListUsersPaginator(c.ids, &identitystore.ListUsersInput{
		IdentityStoreId: aws.String(c.identityStoreID),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list users: %w", err)
		}
		for _, u := range page.Users {
			var given, family *string
			if u.Name != nil {
				given, family = u.Name.GivenName, u.Name.FamilyName
			}
			rows = append(rows, []any{
				c.tenant, c.identityStoreID, aws.ToString(u.UserId), aws.ToString(u.UserName),
				u.DisplayName, primaryEmail(u.Emails), given, family, store.JSON(u),
			})
		}
	}
	return c.writer.Write(ctx, store.Batch{
		Table: usersTable,
		Columns: []string{
			"tenant_id", "identity_store_id", "user_id", "user_name",
			"display_name", "email", "given_name", "family_name", "raw_response",
		},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", "identity_store_id", "user_id"},
		UpdateColumns:   []string{"user_name", "display_name", "email", "given_name", "family_name", "raw_response"},
	})
}

// primaryEmail returns the address flagged primary, else the first one.
func primaryEmail(emails []idstypes.Email) *string {
	for _, e := range emails {
		if e.Primary {
			return e.Value
		}
	}
	if len(emails) > 0 {
		return emails[0].Value
	}
	return nil
}

func (c *Connector) syncGroups(ctx context.Context) (int64, error) {
	var rows [][]any
	p := identitystore.NewListGroupsPaginator(c.ids, &identitystore.ListGroupsInput{
		IdentityStoreId: aws.String(c.identityStoreID),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list groups: %w", err)
		}
		for _, g := range page.Groups {
			rows = append(rows, []any{
				c.tenant, c.identityStoreID, aws.ToString(g.GroupId),
				aws.ToString(g.DisplayName), g.Description, store.JSON(g),
			})
		}
	}
	return c.writer.Write(ctx, store.Batch{
		Table:           groupsTable,
		Columns:         []string{"tenant_id", "identity_store_id", "group_id", "display_name", "description", "raw_response"},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", "identity_store_id", "group_id"},
		UpdateColumns:   []string{"display_name", "description", "raw_response"},
	})
}

func (c *Connector) syncMemberships(ctx context.Context) (int64, error) {
	if c.keys == nil {
		return 0, fmt.Errorf("memberships need a key reader")
	}
	groupIDs, err := c.keys.LiveKeys(ctx, c.tenant, store.KeyQuery{
		Table:  groupsTable,
		Column: "group_id",
		Equals: map[string]string{"identity_store_id": c.identityStoreID},
	})
	if err != nil {
		return 0, err
	}

	var total int64
	for _, gid := range groupIDs {
		var rows [][]any
		p := identitystore.NewListGroupMembershipsPaginator(c.ids, &identitystore.ListGroupMembershipsInput{
			IdentityStoreId: aws.String(c.identityStoreID),
			GroupId:         aws.String(gid),
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return total, fmt.Errorf("failed to list memberships of %s: %w", gid, err)
			}
			for _, m := range page.GroupMemberships {
				userID := ""
				if member, ok := m.MemberId.(*idstypes.MemberIdMemberUserId); ok {
					userID = member.Value
				}
				rows = append(rows, []any{
					c.tenant, c.identityStoreID, aws.ToString(m.MembershipId), gid, userID, store.JSON(m),
				})
			}
		}
		n, err := c.writer.Write(ctx, store.Batch{
			Table:           membershipsTable,
			Columns:         []string{"tenant_id", "identity_store_id", "membership_id", "group_id", "member_user_id", "raw_response"},
			Rows:            rows,
			ConflictColumns: []string{"tenant_id", "identity_store_id", "membership_id"},
			UpdateColumns:   []string{"group_id", "member_user_id", "raw_response"},
		})
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *Connector) syncAssignments(ctx context.Context) (int64, error) {
	var arns []string
	p := ssoadmin.NewListPermissionSetsPaginator(c.sso, &ssoadmin.ListPermissionSetsInput{
		InstanceArn: aws.String(c.instanceArn),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list permission sets: %w", err)
		}
		arns = append(arns, page.PermissionSets...)
	}

	names := make(map[string]string, len(arns))
	for _, arn := range arns {
		names[arn] = c.permissionSetName(ctx, arn)
	}

	var total int64
	for _, arn := range arns {
		accounts, err := c.provisionedAccounts(ctx, arn)
		if err != nil {
			return total, err
		}
		for _, accountID := range accounts {
			n, err := c.syncAccountAssignments(ctx, accountID, arn, names)
			total += n
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// permissionSetName falls back to the ARN when the set cannot be described.
func (c *Connector) permissionSetName(ctx context.Context, arn string) string {
	out, err := c.sso.DescribePermissionSet(ctx, &ssoadmin.DescribePermissionSetInput{
		InstanceArn:      aws.String(c.instanceArn),
		PermissionSetArn: aws.String(arn),
	})
	if err != nil || out.PermissionSet == nil || out.PermissionSet.Name == nil {
		c.logger.Warn("could not describe permission set", zap.String("arn", arn), zap.Error(err))
		return arn
	}
	return *out.PermissionSet.Name
}

func (c *Connector) provisionedAccounts(ctx context.Context, arn string) ([]string, error) {
	var ids []string
	p := ssoadmin.NewListAccountsForProvisionedPermissionSetPaginator(c.sso, &ssoadmin.ListAccountsForProvisionedPermissionSetInput{
		InstanceArn:      aws.String(c.instanceArn),
		PermissionSetArn: aws.String(arn),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts for %s: %w", arn, err)
		}
		ids = append(ids, page.AccountIds...)
	}
	return ids, nil
}

func (c *Connector) syncAccountAssignments(ctx context.Context, accountID, arn string, names map[string]string) (int64, error) {
	var assignments []ssotypes.AccountAssignment
	p := ssoadmin.NewListAccountAssignmentsPaginator(c.sso, &ssoadmin.ListAccountAssignmentsInput{
		InstanceArn:      aws.String(c.instanceArn),
		AccountId:        aws.String(accountID),
		PermissionSetArn: aws.String(arn),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list assignments for %s: %w", accountID, err)
		}
		assignments = append(assignments, page.AccountAssignments...)
	}

	rows := make([][]any, 0, len(assignments))
	for _, a := range assignments {
		psArn := aws.ToString(a.PermissionSetArn)
		rows = append(rows, []any{
			c.tenant, c.identityStoreID, aws.ToString(a.AccountId), psArn, names[psArn],
			string(a.PrincipalType), aws.ToString(a.PrincipalId), store.JSON(a),
		})
	}
	return c.writer.Write(ctx, store.Batch{
		Table: assignmentsTable,
		Columns: []string{
			"tenant_id", "identity_store_id", "account_id", "permission_set_arn",
			"permission_set_name", "principal_type", "principal_id", "raw_response",
		},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", "account_id", "permission_set_arn", "principal_type", "principal_id"},
		UpdateColumns:   []string{"identity_store_id", "permission_set_name", "raw_response"},
	})
}
