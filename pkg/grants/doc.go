// Package grants rebuilds the denormalized access matrix
// (resource_access_grants) for a tenant.
//
// # Rebuild
//
// Aggregator.Rebuild runs in one transaction: every live grant of the
// tenant is soft-deleted, the raw relationship rows are loaded as a
// model.AccessSnapshot, facts are derived and deduplicated, and the result is
// upserted. Conflicting rows get their display and resolution fields
// refreshed and their deleted_at cleared. Readers see either the previous
// matrix or the rebuilt one.
//
// # Fact Sources
//
//   - AWS group assignments on accounts (subject "group", path "direct")
//   - the same assignments expanded to each member user (path "group")
//   - GCP user bindings on projects
//   - GCP group bindings on projects
//   - GitHub team permissions on repositories
//   - GitHub collaborator permissions on repositories
//
// User subjects carry the canonical user id when a provider link exists.
//
// # Deduplication
//
// Facts sharing a natural key are reduced to one: the first under a total
// lexicographic order of the whole fact, so reruns over the same input keep
// the same row.
package grants
