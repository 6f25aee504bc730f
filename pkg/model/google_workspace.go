package model

// GoogleWorkspaceUser is a directory user
type GoogleWorkspaceUser struct {
	TenantID     string  `gorm:"column:tenant_id;primaryKey"`
	GoogleID     string  `gorm:"column:google_id;primaryKey"`
	PrimaryEmail string  `gorm:"column:primary_email;not null"`
	NameFull     *string `gorm:"column:name_full"`
	Suspended    bool    `gorm:"column:suspended"`
}

func (GoogleWorkspaceUser) TableName() string {
	return "google_workspace_users"
}

// GoogleWorkspaceGroup is a directory group
type GoogleWorkspaceGroup struct {
	TenantID string  `gorm:"column:tenant_id;primaryKey"`
	GoogleID string  `gorm:"column:google_id;primaryKey"`
	Email    string  `gorm:"column:email;not null"`
	Name     *string `gorm:"column:name"`
}

func (GoogleWorkspaceGroup) TableName() string {
	return "google_workspace_groups"
}
