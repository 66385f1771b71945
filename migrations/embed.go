// Package migrations embeds the SQL schema for the dataset tables.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
