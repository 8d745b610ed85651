// Package migrations holds the goose SQL migrations for the delivery store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
