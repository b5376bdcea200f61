// Package migrations embeds the SQLite schema for goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
