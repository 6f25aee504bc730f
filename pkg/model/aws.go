package model

// AwsIdentityCenterUser is an Identity Store user
type AwsIdentityCenterUser struct {
	TenantID        string  `gorm:"column:tenant_id;primaryKey"`
	IdentityStoreID string  `gorm:"column:identity_store_id;primaryKey"`
	UserID          string  `gorm:"column:user_id;primaryKey"`
	UserName        string  `gorm:"column:user_name"`
	DisplayName     *string `gorm:"column:display_name"`
	Email           *string `gorm:"column:email"`
}

func (AwsIdentityCenterUser) TableName() string {
	return "aws_identity_center_users"
}

// AwsIdentityCenterGroup is an Identity Store group
type AwsIdentityCenterGroup struct {
	TenantID        string `gorm:"column:tenant_id;primaryKey"`
	IdentityStoreID string `gorm:"column:identity_store_id;primaryKey"`
	GroupID         string `gorm:"column:group_id;primaryKey"`
	DisplayName     string `gorm:"column:display_name"`
}

func (AwsIdentityCenterGroup) TableName() string {
	return "aws_identity_center_groups"
}

// AwsIdentityCenterMembership places a user in a group
type AwsIdentityCenterMembership struct {
	TenantID        string `gorm:"column:tenant_id;primaryKey"`
	IdentityStoreID string `gorm:"column:identity_store_id;primaryKey"`
	MembershipID    string `gorm:"column:membership_id;primaryKey"`
	GroupID         string `gorm:"column:group_id"`
	MemberUserID    string `gorm:"column:member_user_id"`
}

func (AwsIdentityCenterMembership) TableName() string {
	return "aws_identity_center_memberships"
}

// AwsAccount is an AWS Organizations member account
type AwsAccount struct {
	TenantID  string `gorm:"column:tenant_id;primaryKey"`
	AccountID string `gorm:"column:account_id;primaryKey"`
	Name      string `gorm:"column:name"`
	Status    string `gorm:"column:status"`
}

func (AwsAccount) TableName() string {
	return "aws_accounts"
}

// AwsAccountAssignment grants a permission set on an account to a principal
type AwsAccountAssignment struct {
	TenantID          string `gorm:"column:tenant_id;primaryKey"`
	IdentityStoreID   string `gorm:"column:identity_store_id"`
	AccountID         string `gorm:"column:account_id;primaryKey"`
	PermissionSetArn  string `gorm:"column:permission_set_arn;primaryKey"`
	PermissionSetName string `gorm:"column:permission_set_name"`
	PrincipalType     string `gorm:"column:principal_type;primaryKey"`
	PrincipalID       string `gorm:"column:principal_id;primaryKey"`
}

func (AwsAccountAssignment) TableName() string {
	return "aws_account_assignments"
}
