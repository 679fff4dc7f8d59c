// Package migrations holds the SQL schema applied by `clinicflow-server migrate up`.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
