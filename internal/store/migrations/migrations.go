// Package migrations embeds the goose migration set for the Postgres
// record store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
