// Package model defines the database models for the ingestion pipeline.
//
// This package contains GORM models that map to the raw provider tables,
// the canonical identity tables and the derived access matrix. Columns that
// are nullable in the schema are pointers.
//
// # Raw Provider Models
//
//   - GoogleWorkspaceUser, GoogleWorkspaceGroup
//   - AwsIdentityCenterUser, AwsIdentityCenterGroup, AwsIdentityCenterMembership
//   - AwsAccount, AwsAccountAssignment
//   - GcpProject, GcpIamBinding
//   - GithubUser, GithubTeam, GithubRepository
//   - GithubRepoTeamPermission, GithubRepoCollaboratorPermission
//
// # Identity Models
//
//   - ProviderLink: a provider identity resolved to a canonical user
//   - ReconciliationQueueEntry: an identity waiting for manual review
//
// # Derived Models
//
//   - Grant: one row of resource_access_grants
//   - AccessSnapshot: the raw relationship rows a grants rebuild reads
package model
