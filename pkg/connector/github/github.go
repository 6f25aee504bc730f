// Package github syncs GitHub organisations: members, teams, repositories
// and the team and collaborator permissions on each repository.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
)

const (
	orgsTable            = "github_organisations"
	usersTable           = "github_users"
	orgMembershipsTable  = "github_org_memberships"
	teamsTable           = "github_teams"
	teamMembershipsTable = "github_team_memberships"
	reposTable           = "github_repositories"
	repoTeamPermsTable   = "github_repo_team_permissions"
	repoCollabPermsTable = "github_repo_collaborator_permissions"

	// repoWorkers bounds concurrent per-repository permission fetches
	repoWorkers = 4
)

// permissionRank orders collaborator permissions from highest to lowest.
var permissionRank = []string{"admin", "maintain", "push", "triage", "pull"}

type account struct {
	ID          int64           `json:"id"`
	NodeID      string          `json:"node_id"`
	Login       string          `json:"login"`
	Name        *string         `json:"name"`
	Email       *string         `json:"email"`
	Type        string          `json:"type"`
	SiteAdmin   bool            `json:"site_admin"`
	AvatarURL   *string         `json:"avatar_url"`
	Permissions map[string]bool `json:"permissions"`
	raw         json.RawMessage
}

type team struct {
	ID          int64   `json:"id"`
	NodeID      string  `json:"node_id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
	Privacy     *string `json:"privacy"`
	Permission  *string `json:"permission"`
	Parent      *struct {
		ID     int64  `json:"id"`
		NodeID string `json:"node_id"`
	} `json:"parent"`
	raw json.RawMessage
}

type repository struct {
	ID            int64   `json:"id"`
	NodeID        string  `json:"node_id"`
	Name          string  `json:"name"`
	FullName      string  `json:"full_name"`
	Private       bool    `json:"private"`
	Visibility    *string `json:"visibility"`
	Archived      bool    `json:"archived"`
	DefaultBranch *string `json:"default_branch"`
	Description   *string `json:"description"`
	Fork          bool    `json:"fork"`
	Language      *string `json:"language"`
	PushedAt      *string `json:"pushed_at"`
	raw           json.RawMessage
}

type Connector struct {
	tenant string
	orgs   []string
	api    *client
	writer *ingest.Writer
	logger *zap.Logger
}

// New builds a Connector authenticating with the configured token.
func New(_ context.Context, deps ingest.Deps) (ingest.Connector, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gh := deps.Config.Github
	if gh.Token == "" {
		return nil, fmt.Errorf("github token is not set")
	}
	return &Connector{
		tenant: deps.Config.TenantID,
		orgs:   gh.OrgLogins,
		api:    newClient(gh.APIBaseURL, gh.Token, gh.RequestsPerSecond, logger),
		writer: deps.Writer,
		logger: logger,
	}, nil
}

func (c *Connector) Provider() provider.Type {
	return provider.TypeGithub
}

// Sync syncs every configured organisation in order. Counts are keyed
// "<org>/<entity>".
func (c *Connector) Sync(ctx context.Context) (store.Counts, error) {
	counts := store.Counts{}
	for _, org := range c.orgs {
		orgCounts, err := c.syncOrg(ctx, org)
		for entity, n := range orgCounts {
			counts[org+"/"+entity] = n
		}
		if err != nil {
			return counts, fmt.Errorf("org %s: %w", org, err)
		}
	}
	return counts, nil
}

func (c *Connector) syncOrg(ctx context.Context, org string) (store.Counts, error) {
	counts := store.Counts{}
	logger := c.logger.With(zap.String("org", org))
	record := func(entity string, n int64) {
		counts[entity] = n
		logger.Info("entities synced", zap.String(logging.FieldEntityType, entity), zap.Int64(logging.FieldRecords, n))
	}

	orgs, err := fetch[account](ctx, c.api, "/orgs/"+url.PathEscape(org), nil)
	if err != nil {
		return counts, err
	}
	if len(orgs) == 0 {
		return counts, fmt.Errorf("organisation %s not returned", org)
	}
	orgNodeID := orgs[0].NodeID
	n, err := c.writeOrg(ctx, orgs[0])
	if err != nil {
		return counts, err
	}
	record("org", n)

	members, err := fetch[account](ctx, c.api, "/orgs/"+url.PathEscape(org)+"/members", nil)
	if err != nil {
		return counts, err
	}
	if n, err = c.writeUsers(ctx, members); err != nil {
		return counts, err
	}
	record("users", n)
	if n, err = c.writeMemberships(ctx, orgMembershipsTable, "org_node_id", orgNodeID, members); err != nil {
		return counts, err
	}
	record("org_memberships", n)

	teams, err := fetch[team](ctx, c.api, "/orgs/"+url.PathEscape(org)+"/teams", nil)
	if err != nil {
		return counts, err
	}
	if n, err = c.writeTeams(ctx, orgNodeID, teams); err != nil {
		return counts, err
	}
	record("teams", n)

	var teamMembers int64
	for _, t := range teams {
		members, err := fetch[account](ctx, c.api, "/orgs/"+url.PathEscape(org)+"/teams/"+url.PathEscape(t.Slug)+"/members", nil)
		if err != nil {
			return counts, err
		}
		n, err := c.writeMemberships(ctx, teamMembershipsTable, "team_node_id", t.NodeID, members)
		teamMembers += n
		if err != nil {
			return counts, err
		}
	}
	record("team_memberships", teamMembers)

	repos, err := fetch[repository](ctx, c.api, "/orgs/"+url.PathEscape(org)+"/repos", nil)
	if err != nil {
		return counts, err
	}
	if n, err = c.writeRepos(ctx, orgNodeID, repos); err != nil {
		return counts, err
	}
	record("repos", n)

	outside, err := fetch[account](ctx, c.api, "/orgs/"+url.PathEscape(org)+"/outside_collaborators", nil)
	if err != nil {
		return counts, err
	}
	outsiders := make(map[string]bool, len(outside))
	for _, a := range outside {
		outsiders[a.NodeID] = true
	}

	teamPerms, collabPerms, err := c.syncRepoPermissions(ctx, repos, outsiders)
	record("repo_team_permissions", teamPerms)
	record("repo_collaborator_permissions", collabPerms)
	return counts, err
}

// syncRepoPermissions fetches team and collaborator permissions for each
// repository on a bounded worker group.
func (c *Connector) syncRepoPermissions(ctx context.Context, repos []repository, outsiders map[string]bool) (int64, int64, error) {
	var (
		mu                    sync.Mutex
		teamPerms, collabPerm int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(repoWorkers)
	for _, r := range repos {
		g.Go(func() error {
			teams, err := fetch[team](gctx, c.api, "/repos/"+r.FullName+"/teams", nil)
			if err != nil {
				return err
			}
			nt, err := c.writeRepoTeamPerms(gctx, r.NodeID, teams)
			if err != nil {
				return err
			}
			collabs, err := fetch[account](gctx, c.api, "/repos/"+r.FullName+"/collaborators", url.Values{"affiliation": {"all"}})
			if err != nil {
				return err
			}
			nc, err := c.writeRepoCollabPerms(gctx, r.NodeID, collabs, outsiders)
			mu.Lock()
			teamPerms += nt
			collabPerm += nc
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	return teamPerms, collabPerm, err
}

// fetch pages through path and decodes each element into T, keeping the
// element's raw JSON.
func fetch[T account | team | repository](ctx context.Context, api *client, path string, query url.Values) ([]T, error) {
	raws, err := api.getAll(ctx, path, query)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(raws))
	for i, raw := range raws {
		if err := json.Unmarshal(raw, &out[i]); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		switch v := any(&out[i]).(type) {
		case *account:
			v.raw = raw
		case *team:
			v.raw = raw
		case *repository:
			v.raw = raw
		}
	}
	return out, nil
}

func (c *Connector) writeOrg(ctx context.Context, o account) (int64, error) {
	return c.writer.Write(ctx, store.Batch{
		Table:           orgsTable,
		Columns:         []string{"tenant_id", "github_id", "node_id", "login", "name", "email", "raw_response"},
		Rows:            [][]any{{c.tenant, o.ID, o.NodeID, o.Login, o.Name, o.Email, string(o.raw)}},
		ConflictColumns: []string{"tenant_id", "node_id"},
		UpdateColumns:   []string{"login", "name", "email", "raw_response"},
	})
}

func (c *Connector) writeUsers(ctx context.Context, users []account) (int64, error) {
	rows := make([][]any, 0, len(users))
	for _, u := range users {
		typ := u.Type
		if typ == "" {
			typ = "User"
		}
		rows = append(rows, []any{
			c.tenant, u.ID, u.NodeID, u.Login, u.Name, u.Email, typ, u.SiteAdmin, u.AvatarURL, string(u.raw),
		})
	}
	return c.writer.Write(ctx, store.Batch{
		Table: usersTable,
		Columns: []string{
			"tenant_id", "github_id", "node_id", "login", "name", "email",
			"type", "site_admin", "avatar_url", "raw_response",
		},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", "node_id"},
		UpdateColumns:   []string{"login", "name", "email", "type", "site_admin", "avatar_url", "raw_response"},
	})
}

// writeMemberships writes org or team memberships keyed by parentColumn.
// The list endpoints do not report roles, so every member is an active
// "member".
func (c *Connector) writeMemberships(ctx context.Context, table, parentColumn, parentNodeID string, members []account) (int64, error) {
	rows := make([][]any, 0, len(members))
	for _, m := range members {
		rows = append(rows, []any{c.tenant, parentNodeID, m.NodeID, "member", "active", string(m.raw)})
	}
	return c.writer.Write(ctx, store.Batch{
		Table:           table,
		Columns:         []string{"tenant_id", parentColumn, "user_node_id", "role", "state", "raw_response"},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", parentColumn, "user_node_id"},
		UpdateColumns:   []string{"role", "state", "raw_response"},
	})
}

func (c *Connector) writeTeams(ctx context.Context, orgNodeID string, teams []team) (int64, error) {
	rows := make([][]any, 0, len(teams))
	for _, t := range teams {
		var parentID, parentNodeID any
		if t.Parent != nil {
			parentID, parentNodeID = t.Parent.ID, t.Parent.NodeID
		}
		rows = append(rows, []any{
			c.tenant, t.ID, t.NodeID, orgNodeID, t.Name, t.Slug, t.Description,
			t.Privacy, t.Permission, parentID, parentNodeID, string(t.raw),
		})
	}
	return c.writer.Write(ctx, store.Batch{
		Table: teamsTable,
		Columns: []string{
			"tenant_id", "github_id", "node_id", "org_node_id", "name", "slug", "description",
			"privacy", "permission", "parent_team_id", "parent_team_node_id", "raw_response",
		},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", "node_id"},
		UpdateColumns: []string{
			"org_node_id", "name", "slug", "description", "privacy",
			"permission", "parent_team_id", "parent_team_node_id", "raw_response",
		},
	})
}

func (c *Connector) writeRepos(ctx context.Context, orgNodeID string, repos []repository) (int64, error) {
	rows := make([][]any, 0, len(repos))
	for _, r := range repos {
		rows = append(rows, []any{
			c.tenant, r.ID, r.NodeID, orgNodeID, r.Name, r.FullName, r.Private, r.Visibility, r.Archived,
			r.DefaultBranch, r.Description, r.Fork, r.Language, r.PushedAt, string(r.raw),
		})
	}
	return c.writer.Write(ctx, store.Batch{
		Table: reposTable,
		Columns: []string{
			"tenant_id", "github_id", "node_id", "org_node_id", "name", "full_name", "private", "visibility",
			"archived", "default_branch", "description", "fork", "language", "pushed_at", "raw_response",
		},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", "node_id"},
		UpdateColumns: []string{
			"org_node_id", "name", "full_name", "private", "visibility", "archived",
			"default_branch", "description", "fork", "language", "pushed_at", "raw_response",
		},
	})
}

func (c *Connector) writeRepoTeamPerms(ctx context.Context, repoNodeID string, teams []team) (int64, error) {
	rows := make([][]any, 0, len(teams))
	for _, t := range teams {
		perm := "pull"
		if t.Permission != nil && *t.Permission != "" {
			perm = *t.Permission
		}
		rows = append(rows, []any{c.tenant, repoNodeID, t.NodeID, perm, string(t.raw)})
	}
	return c.writer.Write(ctx, store.Batch{
		Table:           repoTeamPermsTable,
		Columns:         []string{"tenant_id", "repo_node_id", "team_node_id", "permission", "raw_response"},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", "repo_node_id", "team_node_id"},
		UpdateColumns:   []string{"permission", "raw_response"},
	})
}

func (c *Connector) writeRepoCollabPerms(ctx context.Context, repoNodeID string, collabs []account, outsiders map[string]bool) (int64, error) {
	rows := make([][]any, 0, len(collabs))
	for _, a := range collabs {
		rows = append(rows, []any{
			c.tenant, repoNodeID, a.NodeID, highestPermission(a.Permissions), outsiders[a.NodeID], string(a.raw),
		})
	}
	return c.writer.Write(ctx, store.Batch{
		Table:           repoCollabPermsTable,
		Columns:         []string{"tenant_id", "repo_node_id", "user_node_id", "permission", "is_outside_collaborator", "raw_response"},
		Rows:            rows,
		ConflictColumns: []string{"tenant_id", "repo_node_id", "user_node_id"},
		UpdateColumns:   []string{"permission", "is_outside_collaborator", "raw_response"},
	})
}

// highestPermission picks the strongest granted permission, "read" when
// none is set.
func highestPermission(perms map[string]bool) string {
	for _, p := range permissionRank {
		if perms[p] {
			return p
		}
	}
	return "read"
}
