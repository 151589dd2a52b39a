// Package migrations holds the goose migrations of both SQL dialects.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
