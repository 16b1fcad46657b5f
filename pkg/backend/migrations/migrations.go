// Package migrations embeds the SQL schema migrations applied to the live
// backend.
package migrations

import "embed"

// FS holds the versioned up/down migration files.
//
//go:embed *.sql
var FS embed.FS
