// Package migrations embeds the SQL schema migrations for the auth database.
package migrations

import "embed"

// FS contains the versioned migration files, applied in filename order.
//
//go:embed *.sql
var FS embed.FS
