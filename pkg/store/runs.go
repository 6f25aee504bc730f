package store

import "time"

//go:generate go run github.com/dmarkham/enumer -type RunStatus -trimprefix RunStatus -transform upper -sql -json -output runstatus.gen.go

// RunStatus is the state of an ingestion run. RUNNING moves to exactly one of
// SUCCESS or FAILED.
type RunStatus int

const (
	RunStatusRunning RunStatus = iota
	RunStatusSuccess
	RunStatusFailed
)

// RunStart describes a run about to begin
type RunStart struct {
	Tenant     string
	Provider   string
	EntityType string
	Metadata   map[string]any
}

// RunResult finalizes a run
type RunResult struct {
	ID              string
	Tenant          string
	Status          RunStatus
	RecordsUpserted int64
	RecordsDeleted  int64
	ErrorMessage    string
	ErrorDetail     map[string]any
}

// RunFilter selects recent runs
type RunFilter struct {
	Tenant   string
	Provider string
	Limit    int
}

// Run is one row of ingestion_runs
type Run struct {
	ID              string     `gorm:"column:id" json:"id"`
	TenantID        string     `gorm:"column:tenant_id" json:"tenant_id"`
	Provider        string     `gorm:"column:provider" json:"provider"`
	EntityType      *string    `gorm:"column:entity_type" json:"entity_type,omitempty"`
	Status          RunStatus  `gorm:"column:status" json:"status"`
	StartedAt       time.Time  `gorm:"column:started_at" json:"started_at"`
	FinishedAt      *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
	RecordsUpserted int64      `gorm:"column:records_upserted" json:"records_upserted"`
	RecordsDeleted  int64      `gorm:"column:records_deleted" json:"records_deleted"`
	ErrorMessage    *string    `gorm:"column:error_message" json:"error_message,omitempty"`
}

// Duration returns how long a finished run took, or zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
