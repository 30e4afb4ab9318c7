// Package migrations embeds the SQL for the finished-game archive.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
