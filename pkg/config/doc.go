// Package config provides configuration management for the ingestion
// pipeline.
//
// Configuration is assembled from three layers, later layers winning:
//
//   - Built-in defaults
//   - A YAML file at $INGEST_CONFIG_PATH/ingest.yml (default /etc/ingest/config)
//   - Environment variables, after loading a local .env file if present
//
// Every attribute remembers which layer supplied it, which is what
// "ingestctl configuration show" prints.
//
// # Key Environment Variables
//
//   - TENANT_ID: tenant whose data is ingested (required)
//   - DATABASE_URL, or PG_HOST/PG_PORT/PG_USER/PG_PASSWORD/PG_DATABASE
//   - GOOGLE_ADMIN_EMAIL, GOOGLE_CUSTOMER_ID: enable Google Workspace
//   - AWS_IDENTITY_STORE_ID, AWS_SSO_INSTANCE_ARN: enable AWS Identity Center
//   - GITHUB_TOKEN, GITHUB_ORG_LOGINS: enable GitHub
//   - GCP_ORG_ID: enable GCP Resource Manager
//   - INGEST_LOG_LEVEL: debug, info, warn or error
//
// Values of DATABASE_URL, PG_PASSWORD and GITHUB_TOKEN may be secret
// references (aws-secret://name#key, gcp-secret://name); they are resolved by
// ResolveSecrets.
package config
