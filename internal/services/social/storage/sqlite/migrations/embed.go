package migrations

import "embed"

// FS contains embedded SQLite migrations for the user directory.
//
//go:embed *.sql
var FS embed.FS
