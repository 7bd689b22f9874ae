package store

import (
	// database/sql drivers selectable through Config.Driver
	_ "github.com/genjidb/genji/driver"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)
