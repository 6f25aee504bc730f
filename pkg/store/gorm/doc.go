// Package gorm provides GORM-based implementations of the store interfaces
// defined in the parent store package.
//
// This package contains concrete implementations that use GORM for database
// operations. Statements are written as raw SQL through db.Exec and db.Raw;
// models from pkg/model are only used to load grants snapshots.
package gorm
