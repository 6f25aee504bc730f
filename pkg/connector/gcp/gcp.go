// Package gcp syncs a GCP organisation, its projects and the IAM bindings
// on each active project through the Cloud Resource Manager v3 API.
package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	crm "google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/option"

	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
)

const (
	orgsTable     = "gcp_organisations"
	projectsTable = "gcp_projects"
	bindingsTable = "gcp_project_iam_bindings"

	orgPrefix    = "organizations/"
	folderPrefix = "folders/"
	stateActive  = "ACTIVE"
)

// ResourceManager is the part of Cloud Resource Manager the connector reads.
type ResourceManager interface {
	Organization(ctx context.Context, name string) (*crm.Organization, error)
	SearchOrganizations(ctx context.Context, fn func([]*crm.Organization) error) error
	SearchProjects(ctx context.Context, query string, fn func([]*crm.Project) error) error
	IamPolicy(ctx context.Context, resource string) (*crm.Policy, error)
}

type serviceResourceManager struct {
	svc *crm.Service
}

func (r *serviceResourceManager) Organization(ctx context.Context, name string) (*crm.Organization, error) {
	return r.svc.Organizations.Get(name).Context(ctx).Do()
}

func (r *serviceResourceManager) SearchOrganizations(ctx context.Context, fn func([]*crm.Organization) error) error {
	return r.svc.Organizations.Search().Pages(ctx, func(page *crm.SearchOrganizationsResponse) error {
		return fn(page.Organizations)
	})
}

func (r *serviceResourceManager) SearchProjects(ctx context.Context, query string, fn func([]*crm.Project) error) error {
	return r.svc.Projects.Search().Query(query).Pages(ctx, func(page *crm.SearchProjectsResponse) error {
		return fn(page.Projects)
	})
}

func (r *serviceResourceManager) IamPolicy(ctx context.Context, resource string) (*crm.Policy, error) {
	return r.svc.Projects.GetIamPolicy(resource, &crm.GetIamPolicyRequest{}).Context(ctx).Do()
}

type Connector struct {
	tenant  string
	orgName string
	rm      ResourceManager
	writer  *ingest.Writer
	keys    store.KeyReader
	logger  *zap.Logger
}

// New builds a Connector from the key file when set and application default
// credentials otherwise.
func New(ctx context.Context, deps ingest.Deps) (ingest.Connector, error) {
	creds, err := credentials(ctx, deps.Config.Gcp.SAKeyFile)
	if err != nil {
		return nil, err
	}
	svc, err := crm.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource manager client: %w", err)
	}
	return NewWithResourceManager(deps, &serviceResourceManager{svc: svc}), nil
}

func NewWithResourceManager(deps ingest.Deps, rm ResourceManager) *Connector {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	orgName := deps.Config.Gcp.OrgID
	if !strings.HasPrefix(orgName, orgPrefix) {
		orgName = orgPrefix + orgName
	}
	return &Connector{
		tenant:  deps.Config.TenantID,
		orgName: orgName,
		rm:      rm,
		writer:  deps.Writer,
		keys:    deps.Keys,
		logger:  logger,
	}
}

func credentials(ctx context.Context, keyFile string) (*google.Credentials, error) {
	if keyFile == "" {
		creds, err := google.FindDefaultCredentials(ctx, crm.CloudPlatformReadOnlyScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w", err)
		}
		return creds, nil
	}
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, crm.CloudPlatformReadOnlyScope)
	if err != nil {
		return nil, fmt.Errorf("invalid service account key: %w", err)
	}
	return creds, nil
}

func (c *Connector) Provider() provider.Type {
	return provider.TypeGcpResourceManager
}

// Sync pulls the organisation, its projects, then the IAM policy of every
// stored active project.
func (c *Connector) Sync(ctx context.Context) (store.Counts, error) {
	counts := store.Counts{}
	steps := []struct {
		entity string
		run    func(context.Context) (int64, error)
	}{
		{"organisations", c.syncOrganisation},
		{"projects", c.syncProjects},
		{"iam_bindings", c.syncBindings},
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

// syncOrganisation falls back to the first searchable organisation when the
// configured one cannot be read.
func (c *Connector) syncOrganisation(ctx context.Context) (int64, error) {
	org, err := c.rm.Organization(ctx, c.orgName)
	if err != nil {
		c.logger.Warn("could not fetch organisation, searching instead", zap.String("org", c.orgName), zap.Error(err))
		org = nil
		err = c.rm.SearchOrganizations(ctx, func(page []*crm.Organization) error {
			if org == nil && len(page) > 0 {
				org = page[0]
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("failed to search organisations: %w", err)
		}
		if org == nil {
			return 0, nil
		}
	}
	state := stateOrActive(org.State)
	raw := map[string]string{"name": org.Name, "displayName": org.DisplayName, "state": state}
	return c.writer.Write(ctx, store.Batch{
		Table:           orgsTable,
		Columns:         []string{"tenant_id", "org_id", "display_name", "domain", "lifecycle_state", "raw_response"},
		Rows:            [][]any{{c.tenant, org.Name, org.DisplayName, optional(org.DirectoryCustomerId), state, store.JSON(raw)}},
		ConflictColumns: []string{"tenant_id", "org_id"},
		UpdateColumns:   []string{"display_name", "domain", "lifecycle_state", "raw_response"},
	})
}

func (c *Connector) syncProjects(ctx context.Context) (int64, error) {
	var rows [][]any
	err := c.rm.SearchProjects(ctx, "parent:"+c.orgName, func(page []*crm.Project) error {
		for _, p := range page {
			var orgID, folderID *string
			switch {
			case strings.HasPrefix(p.Parent, orgPrefix):
				orgID = &p.Parent
			case strings.HasPrefix(p.Parent, folderPrefix):
				folderID = &p.Parent
			}
			labels := p.Labels
			if labels == nil {
				labels = map[string]string{}
			}
			state := stateOrActive(p.State)
			raw := map[string]string{
				"projectId": p.ProjectId, "name": p.Name, "displayName": p.DisplayName,
				"state": state, "parent": p.Parent,
			}
			rows = append(rows, []any{
				c.tenant, p.ProjectId, projectNumber(p.Name), p.DisplayName, state,
				orgID, folderID, store.JSON(labels), store.JSON(raw),
			})
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to search projects: %w", err)
	}
	return c.writer.Write(ctx, store.Batch{
		Table: projectsTable,
		Columns: []string{
			"tenant_id", "project_id", "project_number", "display_name", "lifecycle_state",
			"org_id", "folder_id", "labels", "raw_response",
		},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", "project_id"},
		UpdateColumns:   []string{"project_number", "display_name", "lifecycle_state", "org_id", "folder_id", "labels", "raw_response"},
	})
}

// syncBindings reads the IAM policy of each stored active project. A
// project whose policy cannot be read is logged and skipped.
func (c *Connector) syncBindings(ctx context.Context) (int64, error) {
	if c.keys == nil {
		return 0, fmt.Errorf("iam bindings need a key reader")
	}
	projectIDs, err := c.keys.LiveKeys(ctx, c.tenant, store.KeyQuery{
		Table:  projectsTable,
		Column: "project_id",
		Equals: map[string]string{"lifecycle_state": stateActive},
	})
	if err != nil {
		return 0, err
	}

	var total int64
	for _, pid := range projectIDs {
		policy, err := c.rm.IamPolicy(ctx, "projects/"+pid)
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			c.logger.Warn("could not get iam policy", zap.String("project", pid), zap.Error(err))
			continue
		}
		n, err := c.writer.Write(ctx, store.Batch{
			Table: bindingsTable,
			Columns: []string{
				"tenant_id", "project_id", "role", "member_type", "member_id",
				"condition_expression", "condition_title", "raw_response",
			},
			Rows:            c.bindingRows(pid, policy),
			ConflictColumns: []string{"tenant_id", "project_id", "role", "member_type", "member_id"},
			UpdateColumns:   []string{"condition_expression", "condition_title", "raw_response"},
		})
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// bindingRows flattens a policy into one row per role and member. A member
// bound to the same role more than once keeps its first binding.
func (c *Connector) bindingRows(projectID string, policy *crm.Policy) [][]any {
	var rows [][]any
	seen := map[[3]string]bool{}
	for _, b := range policy.Bindings {
		var expr, title *string
		if b.Condition != nil {
			expr, title = optional(b.Condition.Expression), optional(b.Condition.Title)
		}
		for _, member := range b.Members {
			memberType, memberID := splitMember(member)
			key := [3]string{b.Role, memberType, memberID}
			if seen[key] {
				continue
			}
			seen[key] = true
			rows = append(rows, []any{
				c.tenant, projectID, b.Role, memberType, memberID, expr, title,
				store.JSON(map[string]string{"role": b.Role, "member": member}),
			})
		}
	}
	return rows
}

// splitMember splits "user:ann@example.com" into its type and id. Members
// without a prefix, such as "allUsers", use the whole value for both.
func splitMember(member string) (string, string) {
	if typ, id, ok := strings.Cut(member, ":"); ok {
		return typ, id
	}
	return member, member
}

// projectNumber is the trailing segment of "projects/<number>".
func projectNumber(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}

func stateOrActive(state string) string {
	if state == "" || state == "STATE_UNSPECIFIED" {
		return stateActive
	}
	return state
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
