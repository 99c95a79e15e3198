// Package migrations embeds the outbox schema applied at startup and in tests.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
