package model

// GcpProject is a project under the organisation
type GcpProject struct {
	TenantID       string  `gorm:"column:tenant_id;primaryKey"`
	ProjectID      string  `gorm:"column:project_id;primaryKey"`
	DisplayName    *string `gorm:"column:display_name"`
	LifecycleState string  `gorm:"column:lifecycle_state"`
}

func (GcpProject) TableName() string {
	return "gcp_projects"
}

// GcpIamBinding is one member of one role binding on a project
type GcpIamBinding struct {
	TenantID   string `gorm:"column:tenant_id;primaryKey"`
	ProjectID  string `gorm:"column:project_id;primaryKey"`
	Role       string `gorm:"column:role;primaryKey"`
	MemberType string `gorm:"column:member_type;primaryKey"`
	MemberID   string `gorm:"column:member_id;primaryKey"`
}

func (GcpIamBinding) TableName() string {
	return "gcp_project_iam_bindings"
}
