package model

import "time"

// ProviderLink maps a provider identity to a canonical user
type ProviderLink struct {
	ID              string    `gorm:"column:id;primaryKey"`
	TenantID        string    `gorm:"column:tenant_id;not null"`
	CanonicalUserID string    `gorm:"column:canonical_user_id;not null"`
	ProviderType    string    `gorm:"column:provider_type;not null"`
	ProviderUserID  string    `gorm:"column:provider_user_id;not null"`
	ConfidenceScore int       `gorm:"column:confidence_score;not null"`
	MatchMethod     string    `gorm:"column:match_method;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProviderLink) TableName() string {
	return "canonical_user_provider_links"
}

// ReconciliationQueueEntry is an identity held back for manual review
type ReconciliationQueueEntry struct {
	ID             string    `gorm:"column:id;primaryKey"`
	TenantID       string    `gorm:"column:tenant_id;not null"`
	ProviderType   string    `gorm:"column:provider_type;not null"`
	ProviderUserID string    `gorm:"column:provider_user_id;not null"`
	ConflictReason string    `gorm:"column:conflict_reason;not null"`
	Status         string    `gorm:"column:status;not null;default:PENDING"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ReconciliationQueueEntry) TableName() string {
	return "identity_reconciliation_queue"
}
