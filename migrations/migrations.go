// Package migrations contains the SQL migrations for the smhconnect
// database.
package migrations

import (
	"embed"
)

//go:embed *.sql
var FS embed.FS
