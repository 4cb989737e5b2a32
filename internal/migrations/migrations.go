// Package migrations embeds the course database's schema migrations so
// the CLI binary carries them without depending on a filesystem path at
// run time.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
