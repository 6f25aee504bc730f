// Package store provides storage abstractions for the ingestion pipeline.
//
// This package defines the interfaces connectors, the identity resolver and
// the grants aggregator write through, allowing them to be decoupled from
// the database implementation. GORM implementations live in the gorm
// subpackage.
//
// # Available Stores
//
//   - Upserter: the idempotent batch upsert shared by every connector
//   - RunStore: the ingestion_runs ledger
//   - IdentityStore: email-exact linking and the reconciliation queue
//   - GrantsStore: soft delete, snapshot load and upsert of grants
//
// # Usage
//
//	upserter := gorm.NewUpsertStore(db)
//	n, err := upserter.UpsertBatch(ctx, store.Batch{
//	    Table:           "github_teams",
//	    Columns:         []string{"tenant_id", "node_id", "name"},
//	    Rows:            rows,
//	    ConflictColumns: []string{"tenant_id", "node_id"},
//	    UpdateColumns:   []string{"name"},
//	})
package store
