// Package migrations embeds the forward-only Postgres schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
