// Package migrations holds the PostgreSQL schema migrations applied at startup.
package migrations

import "embed"

// FS contains the numbered up/down migration files.
//
//go:embed *.sql
var FS embed.FS
