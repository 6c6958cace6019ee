// Package pgmigrations embeds the SQL migrations for the fetch log.
package pgmigrations

import "embed"

// FS holds the *.up.sql / *.down.sql files applied by platform/postgres.New.
//
//go:embed *.sql
var FS embed.FS
