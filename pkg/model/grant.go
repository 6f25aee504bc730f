package model

import "time"

// Access paths
const (
	AccessPathDirect = "direct"
	AccessPathGroup  = "group"
)

// Subject types
const (
	SubjectUser  = "user"
	SubjectGroup = "group"
	SubjectTeam  = "team"
)

// Grant is one row of the denormalized access matrix
type Grant struct {
	TenantID            string     `gorm:"column:tenant_id;not null"`
	Provider            string     `gorm:"column:provider;not null"`
	ResourceType        string     `gorm:"column:resource_type;not null"`
	ResourceID          string     `gorm:"column:resource_id;not null"`
	ResourceDisplayName *string    `gorm:"column:resource_display_name"`
	SubjectType         string     `gorm:"column:subject_type;not null"`
	SubjectProviderID   string     `gorm:"column:subject_provider_id;not null"`
	SubjectDisplayName  *string    `gorm:"column:subject_display_name"`
	CanonicalUserID     *string    `gorm:"column:canonical_user_id"`
	RoleOrPermission    string     `gorm:"column:role_or_permission;not null"`
	AccessPath          string     `gorm:"column:access_path;not null"`
	ViaGroupID          *string    `gorm:"column:via_group_id"`
	ViaGroupDisplayName *string    `gorm:"column:via_group_display_name"`
	DeletedAt           *time.Time `gorm:"column:deleted_at"`
}

func (Grant) TableName() string {
	return "resource_access_grants"
}

// GrantKey is the natural key of a grant within a tenant
type GrantKey struct {
	Provider          string
	ResourceType      string
	ResourceID        string
	SubjectType       string
	SubjectProviderID string
	RoleOrPermission  string
}

// Key returns the grant's natural key
func (g Grant) Key() GrantKey {
	return GrantKey{
		Provider:          g.Provider,
		ResourceType:      g.ResourceType,
		ResourceID:        g.ResourceID,
		SubjectType:       g.SubjectType,
		SubjectProviderID: g.SubjectProviderID,
		RoleOrPermission:  g.RoleOrPermission,
	}
}

// AccessSnapshot holds one tenant's live relationship rows and links.
// Soft-deleted rows are never part of a snapshot.
type AccessSnapshot struct {
	TenantID string

	AwsAccounts       []AwsAccount
	AwsAssignments    []AwsAccountAssignment
	AwsGroups         []AwsIdentityCenterGroup
	AwsUsers          []AwsIdentityCenterUser
	AwsMemberships    []AwsIdentityCenterMembership
	GcpProjects       []GcpProject
	GcpBindings       []GcpIamBinding
	WorkspaceUsers    []GoogleWorkspaceUser
	WorkspaceGroups   []GoogleWorkspaceGroup
	GithubRepos       []GithubRepository
	GithubTeams       []GithubTeam
	GithubUsers       []GithubUser
	GithubTeamPerms   []GithubRepoTeamPermission
	GithubCollabPerms []GithubRepoCollaboratorPermission
	Links             []ProviderLink
}
