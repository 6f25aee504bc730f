// Package identity links provider identities to canonical users.
//
// Resolution is deterministic and exact: a provider identity is linked when
// its email equals a canonical email of the same tenant, byte for byte. Each
// link carries confidence 100 and match method "email_exact".
//
// # Sources
//
// Three providers carry user identities:
//
//   - GOOGLE_WORKSPACE: google_workspace_users.google_id, primary_email
//   - AWS_IDENTITY_CENTER: aws_identity_center_users.user_id, email
//   - GITHUB: github_users.node_id, email
//
// GitHub substitutes placeholder addresses under users.noreply.github.com
// for private emails. Those identities are never linked; they are queued
// for manual review instead, at most once while a PENDING entry exists.
//
// # Scope
//
// Identities that are already linked are not re-examined. Identities with
// no email are neither linked nor queued.
package identity
