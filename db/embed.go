// Package db holds the SQL schema migrations, embedded for production builds.
package db

import "embed"

// Migrations contains the golang-migrate up/down files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
