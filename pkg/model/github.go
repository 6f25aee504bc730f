package model

// GithubUser is an organisation member or collaborator
type GithubUser struct {
	TenantID string  `gorm:"column:tenant_id;primaryKey"`
	NodeID   string  `gorm:"column:node_id;primaryKey"`
	Login    string  `gorm:"column:login"`
	Name     *string `gorm:"column:name"`
	Email    *string `gorm:"column:email"`
}

func (GithubUser) TableName() string {
	return "github_users"
}

// GithubTeam is an organisation team
type GithubTeam struct {
	TenantID  string `gorm:"column:tenant_id;primaryKey"`
	NodeID    string `gorm:"column:node_id;primaryKey"`
	OrgNodeID string `gorm:"column:org_node_id"`
	Name      string `gorm:"column:name"`
	Slug      string `gorm:"column:slug"`
}

func (GithubTeam) TableName() string {
	return "github_teams"
}

// GithubRepository is an organisation repository
type GithubRepository struct {
	TenantID  string `gorm:"column:tenant_id;primaryKey"`
	NodeID    string `gorm:"column:node_id;primaryKey"`
	OrgNodeID string `gorm:"column:org_node_id"`
	Name      string `gorm:"column:name"`
	FullName  string `gorm:"column:full_name"`
}

func (GithubRepository) TableName() string {
	return "github_repositories"
}

// GithubRepoTeamPermission grants a team a permission on a repository
type GithubRepoTeamPermission struct {
	TenantID   string `gorm:"column:tenant_id;primaryKey"`
	RepoNodeID string `gorm:"column:repo_node_id;primaryKey"`
	TeamNodeID string `gorm:"column:team_node_id;primaryKey"`
	Permission string `gorm:"column:permission"`
}

func (GithubRepoTeamPermission) TableName() string {
	return "github_repo_team_permissions"
}

// GithubRepoCollaboratorPermission grants a user a permission on a repository
type GithubRepoCollaboratorPermission struct {
	TenantID              string `gorm:"column:tenant_id;primaryKey"`
	RepoNodeID            string `gorm:"column:repo_node_id;primaryKey"`
	UserNodeID            string `gorm:"column:user_node_id;primaryKey"`
	Permission            string `gorm:"column:permission"`
	IsOutsideCollaborator bool   `gorm:"column:is_outside_collaborator"`
}

func (GithubRepoCollaboratorPermission) TableName() string {
	return "github_repo_collaborator_permissions"
}
