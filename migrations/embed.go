// Package migrations embeds the console's PostgreSQL schema. The console
// owns only the submission journal; business data lives in the backend.
package migrations

import "embed"

// FS holds the *.sql migrations applied by db.Migrate.
//
//go:embed *.sql
var FS embed.FS
