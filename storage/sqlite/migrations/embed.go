package migrations

import "embed"

// FS contains the embedded SQLite schema of the replay store.
//
//go:embed *.sql
var FS embed.FS
