// Package migrations carries the SQL schema scripts applied by the migration
// runner. Filenames are numbered so lexicographic order matches application
// order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
