// Package googleworkspace syncs Google Workspace users, groups and group
// memberships through the Admin SDK Directory API.
package googleworkspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/alxnderia/ingestion/pkg/config"
	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
)

// Scopes requested with domain-wide delegation.
var Scopes = []string{
	admin.AdminDirectoryUserReadonlyScope,
	admin.AdminDirectoryGroupReadonlyScope,
	admin.AdminDirectoryGroupMemberReadonlyScope,
}

const (
	usersTable       = "google_workspace_users"
	groupsTable      = "google_workspace_groups"
	membershipsTable = "google_workspace_memberships"
)

// Directory returns one page of Admin SDK results.
type Directory interface {
	Users(ctx context.Context, customer, pageToken string) (*admin.Users, error)
	Groups(ctx context.Context, customer, pageToken string) (*admin.Groups, error)
	Members(ctx context.Context, groupKey, pageToken string) (*admin.Members, error)
}

type serviceDirectory struct {
	svc *admin.Service
}

func (d *serviceDirectory) Users(ctx context.Context, customer, pageToken string) (*admin.Users, error) {
	return d.svc.Users.List().Customer(customer).MaxResults(500).OrderBy("email").
		Projection("full").PageToken(pageToken).Context(ctx).Do()
}

func (d *serviceDirectory) Groups(ctx context.Context, customer, pageToken string) (*admin.Groups, error) {
	return d.svc.Groups.List().Customer(customer).MaxResults(200).PageToken(pageToken).Context(ctx).Do()
}

func (d *serviceDirectory) Members(ctx context.Context, groupKey, pageToken string) (*admin.Members, error) {
	return d.svc.Members.List(groupKey).MaxResults(200).PageToken(pageToken).Context(ctx).Do()
}

// Connector syncs one Workspace customer.
type Connector struct {
	tenant   string
	customer string
	dir      Directory
	writer   *ingest.Writer
	keys     store.KeyReader
	logger   *zap.Logger
	backoff  func() backoff.BackOff
}

// New builds a Connector authenticated as the configured admin, from the
// key file when set and application default credentials otherwise.
func New(ctx context.Context, deps ingest.Deps) (ingest.Connector, error) {
	gw := deps.Config.GoogleWorkspace
	creds, err := credentials(ctx, gw)
	if err != nil {
		return nil, err
	}
	svc, err := admin.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create directory client: %w", err)
	}
	return NewWithDirectory(deps, &serviceDirectory{svc: svc}), nil
}

// NewWithDirectory builds a Connector over an existing Directory.
func NewWithDirectory(deps ingest.Deps, dir Directory) *Connector {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{
		tenant:   deps.Config.TenantID,
		customer: deps.Config.GoogleWorkspace.CustomerID,
		dir:      dir,
		writer:   deps.Writer,
		keys:     deps.Keys,
		logger:   logger,
		backoff:  rateLimitBackOff,
	}
}

func credentials(ctx context.Context, gw *config.GoogleWorkspaceConfig) (*google.Credentials, error) {
	params := google.CredentialsParams{Scopes: Scopes, Subject: gw.AdminEmail}
	if gw.SAKeyFile == "" {
		creds, err := google.FindDefaultCredentialsWithParams(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w", err)
		}
		return creds, nil
	}
	data, err := os.ReadFile(gw.SAKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}
	creds, err := google.CredentialsFromJSONWithParams(ctx, data, params)
	if err != nil {
		return nil, fmt.Errorf("invalid service account key: %w", err)
	}
	return creds, nil
}

func rateLimitBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 60 * time.Second
	b.MaxElapsedTime = 5 * time.Minute
	return b
}

func (c *Connector) Provider() provider.Type {
	return provider.TypeGoogleWorkspace
}

// Sync pulls users, then groups, then the members of every stored group.
func (c *Connector) Sync(ctx context.Context) (store.Counts, error) {
	counts := store.Counts{}

	n, err := c.syncUsers(ctx)
	if err != nil {
		return counts, err
	}
	counts["users"] = n

	groupIDs, n, err := c.syncGroups(ctx)
	if err != nil {
		return counts, err
	}
	counts["groups"] = n

	n, err = c.syncMemberships(ctx, groupIDs)
	if err != nil {
		return counts, err
	}
	counts["memberships"] = n
	return counts, nil
}

func (c *Connector) syncUsers(ctx context.Context) (int64, error) {
	c.logger.Info("syncing users", zap.String(logging.FieldEntityType, "users"))

	var users []*admin.User
	token := ""
	for {
		var page *admin.Users
		err := c.call(ctx, func() (err error) {
			page, err = c.dir.Users(ctx, c.customer, token)
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("failed to list users: %w", err)
		}
		users = append(users, page.Users...)
		if token = page.NextPageToken; token == "" {
			break
		}
	}

	rows := make([][]any, 0, len(users))
	for _, u := range users {
		var fullName any
		if u.Name != nil && u.Name.FullName != "" {
			fullName = u.Name.FullName
		}
		rows = append(rows, []any{
			c.tenant, u.Id, u.PrimaryEmail, fullName,
			u.Suspended, u.Archived, u.IsAdmin, u.IsDelegatedAdmin,
			u.IsEnrolledIn2Sv, u.IsEnforcedIn2Sv,
			optional(u.CustomerId), optional(u.SuspensionReason),
			optional(u.CreationTime), optional(u.LastLoginTime), optional(u.OrgUnitPath),
			store.JSON(u),
		})
	}
	return c.write(ctx, "users", store.Batch{
		Table: usersTable,
		Columns: []string{
			"tenant_id", "google_id", "primary_email", "name_full",
			"suspended", "archived", "is_admin", "is_delegated_admin",
			"is_enrolled_in_2sv", "is_enforced_in_2sv",
			"customer_id", "suspension_reason",
			"creation_time", "last_login_time", "org_unit_path",
			"raw_response",
		},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", "google_id"},
		UpdateColumns: []string{
			"primary_email", "name_full", "suspended", "archived", "is_admin",
			"is_delegated_admin", "is_enrolled_in_2sv", "is_enforced_in_2sv",
			"customer_id", "suspension_reason", "creation_time", "last_login_time",
			"org_unit_path", "raw_response",
		},
	})
}

func (c *Connector) syncGroups(ctx context.Context) ([]string, int64, error) {
	c.logger.Info("syncing groups", zap.String(logging.FieldEntityType, "groups"))

	var groups []*admin.Group
	token := ""
	for {
		var page *admin.Groups
		err := c.call(ctx, func() (err error) {
			page, err = c.dir.Groups(ctx, c.customer, token)
			return err
		})
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list groups: %w", err)
		}
		groups = append(groups, page.Groups...)
		if token = page.NextPageToken; token == "" {
			break
		}
	}

	ids := make([]string, 0, len(groups))
	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.Id)
		rows = append(rows, []any{
			c.tenant, g.Id, g.Email, optional(g.Name), optional(g.Description),
			g.AdminCreated, g.DirectMembersCount, store.JSON(g),
		})
	}
	n, err := c.write(ctx, "groups", store.Batch{
		Table: groupsTable,
		Columns: []string{
			"tenant_id", "google_id", "email", "name", "description",
			"admin_created", "direct_members_count", "raw_response",
		},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", "google_id"},
		UpdateColumns:   []string{"email", "name", "description", "admin_created", "direct_members_count", "raw_response"},
	})
	return ids, n, err
}

// syncMemberships lists members of every live stored group, falling back
// to the groups just fetched when no key reader is wired.
func (c *Connector) syncMemberships(ctx context.Context, fetched []string) (int64, error) {
	c.logger.Info("syncing memberships", zap.String(logging.FieldEntityType, "memberships"))

	groupIDs := fetched
	if c.keys != nil {
		ids, err := c.keys.LiveKeys(ctx, c.tenant, store.KeyQuery{Table: groupsTable, Column: "google_id"})
		if err != nil {
			return 0, err
		}
		groupIDs = ids
	}

	var total int64
	for _, gid := range groupIDs {
		members, err := c.members(ctx, gid)
		if err != nil {
			return total, err
		}

		rows := make([][]any, 0, len(members))
		for _, m := range members {
			rows = append(rows, []any{
				c.tenant, gid, m.Id,
				withDefault(m.Type, "USER"), optional(m.Email),
				withDefault(m.Role, "MEMBER"), withDefault(m.Status, "ACTIVE"),
				store.JSON(m),
			})
		}
		n, err := c.write(ctx, "memberships", store.Batch{
			Table: membershipsTable,
			Columns: []string{
				"tenant_id", "group_id", "member_id", "member_type",
				"member_email", "role", "status", "raw_response",
			},
			Rows:            rows,
			ConflictColumns: []string{"tenant_id", "group_id", "member_id"},
			UpdateColumns:   []string{"member_type", "member_email", "role", "status", "raw_response"},
		})
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// members lists a group's members. A group deleted since it was stored
// yields none.
func (c *Connector) members(ctx context.Context, groupKey string) ([]*admin.Member, error) {
	var members []*admin.Member
	token := ""
	for {
		var page *admin.Members
		err := c.call(ctx, func() (err error) {
			page, err = c.dir.Members(ctx, groupKey, token)
			return err
		})
		if isStatus(err, http.StatusNotFound) {
			c.logger.Warn("group not found, skipping members", zap.String("group_id", groupKey))
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list members of %s: %w", groupKey, err)
		}
		members = append(members, page.Members...)
		if token = page.NextPageToken; token == "" {
			return members, nil
		}
	}
}

func (c *Connector) write(ctx context.Context, entity string, b store.Batch) (int64, error) {
	n, err := c.writer.Write(ctx, b)
	if err != nil {
		return n, err
	}
	c.logger.Info("entities synced",
		zap.String(logging.FieldEntityType, entity),
		zap.Int64(logging.FieldRecords, n))
	return n, nil
}

// call retries fn while the API answers 429.
func (c *Connector) call(ctx context.Context, fn func() error) error {
	op := func() error {
		err := fn()
		if err != nil && !isStatus(err, http.StatusTooManyRequests) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("rate limited, backing off", zap.Duration("wait", wait))
	}
	return backoff.RetryNotify(op, backoff.WithContext(c.backoff(), ctx), notify)
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func withDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
