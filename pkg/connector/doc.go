// Package connector registers the provider connectors.
//
// Each subpackage pulls one provider's users, groups, memberships and
// resources and writes them to the raw tables through an ingest.Writer.
// Entity types are synced in a fixed order so that children can be read
// back against the parents stored moments earlier.
package connector
