//go:build duckdb

package store

import (
	// DuckDB needs cgo, so it is only linked into binaries built with -tags duckdb
	_ "github.com/marcboeker/go-duckdb"
)
