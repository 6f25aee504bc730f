package store

import (
	"context"

	"github.com/alxnderia/ingestion/pkg/model"
)

// Upserter abstracts the batch upsert primitive
type Upserter interface {
	// UpsertBatch inserts rows or refreshes their update columns, returning
	// the number of rows affected. An empty batch is a no-op.
	UpsertBatch(ctx context.Context, batch Batch) (int64, error)

	// Transaction runs fn against an Upserter bound to one transaction
	Transaction(ctx context.Context, fn func(Upserter) error) error
}

// KeyQuery selects one column of a tenant's live rows
type KeyQuery struct {
	Table  string
	Column string
	// Equals adds column = value conditions
	Equals map[string]string
}

// KeyReader lists keys of rows a connector synced earlier in the same run
type KeyReader interface {
	LiveKeys(ctx context.Context, tenant string, q KeyQuery) ([]string, error)
}

// RunStore abstracts the ingestion_runs ledger
type RunStore interface {
	// StartRun records a RUNNING run and returns its id
	StartRun(ctx context.Context, run RunStart) (string, error)

	// FinishRun moves a run to SUCCESS or FAILED
	FinishRun(ctx context.Context, result RunResult) error

	// RecentRuns lists runs most recent first
	RecentRuns(ctx context.Context, filter RunFilter) ([]Run, error)
}

// IdentitySource describes where one provider keeps its user identities
type IdentitySource struct {
	// LinkType is the provider_type written to links and queue entries
	LinkType    string
	Table       string
	IDColumn    string
	EmailColumn string
	// UnreliableSuffix marks provider-generated placeholder addresses
	UnreliableSuffix string
	// CountKey labels the result of linking this source
	CountKey string
}

// IdentityStore abstracts identity resolution storage operations
type IdentityStore interface {
	// LinkExactEmail links unlinked identities whose email matches a
	// canonical email exactly, returning the links created or refreshed
	LinkExactEmail(ctx context.Context, tenant string, src IdentitySource) (int64, error)

	// QueueUnreliable queues identities with a placeholder email that have
	// no pending entry, returning the entries created
	QueueUnreliable(ctx context.Context, tenant string, src IdentitySource) (int64, error)
}

// GrantsStore abstracts grants rebuild storage operations
type GrantsStore interface {
	// SoftDeleteGrants marks every live grant of the tenant deleted
	SoftDeleteGrants(ctx context.Context, tenant string) (int64, error)

	// LoadSnapshot reads the tenant's live relationship rows and links
	LoadSnapshot(ctx context.Context, tenant string) (*model.AccessSnapshot, error)

	// UpsertBatch writes derived grants
	UpsertBatch(ctx context.Context, batch Batch) (int64, error)

	// Transaction runs fn against a GrantsStore bound to one transaction
	Transaction(ctx context.Context, fn func(GrantsStore) error) error
}
