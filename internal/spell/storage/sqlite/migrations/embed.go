// Package migrations contains embedded SQL migrations for the SQLite store.
package migrations

import "embed"

//go:embed state/*.sql
var StateFS embed.FS
