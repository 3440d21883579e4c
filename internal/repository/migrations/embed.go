// Package migrations embeds the goose SQL migrations for the vault schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
