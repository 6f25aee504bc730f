// Command ingestctl runs and operates the cloud identity ingestion service.
//
// It pulls users, groups, memberships and resource permissions from Google
// Workspace, AWS IAM Identity Center, AWS Organizations, GitHub and GCP into
// Postgres, links provider identities to canonical users and rebuilds the
// tenant's resource access grants.
//
// # Quick Start
//
//	# Create or upgrade the schema
//	ingestctl db migrate
//
//	# Sync everything once, then post-process
//	ingestctl sync
//
//	# Run the periodic scheduler
//	ingestctl scheduler --watch-config
//
//	# Serve the status API
//	ingestctl server
//
// # Environment Variables
//
//   - TENANT_ID: tenant UUID (required)
//   - DATABASE_URL: PostgreSQL connection string, or PG_HOST, PG_PORT, PG_USER, PG_PASSWORD, PG_DATABASE
//   - INGEST_CONFIG_PATH: directory holding ingest.yml
//   - INGEST_LOG_LEVEL: log level (debug, info, warn, error)
//   - PORT: status API port (default: 8080)
package main
