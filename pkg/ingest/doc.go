// Package ingest runs provider connectors and the post-process pipeline.
//
// # Connectors
//
// A Connector fetches one provider's records and writes them through a
// Writer, which chunks rows by the configured batch size and upserts each
// chunk in its own transaction. Sync returns the records written per entity
// type.
//
// # Tracking
//
// Tracker.SyncWithTracking records every connector invocation in
// ingestion_runs: RUNNING before Sync starts, then SUCCESS with the summed
// counts or FAILED with a truncated message and a stack capture. Failures
// are always returned to the caller.
//
// # Registry
//
// Registry is a closed table from provider.Type to a Factory. A provider
// whose settings are missing yields ErrNotConfigured and no run is recorded.
//
// # Pipeline
//
// Pipeline runs identity resolution followed by the grants rebuild and
// merges their counts. Runner ties tracking, the registry and the pipeline
// together for the CLI, the scheduler and the serverless entry points.
package ingest
