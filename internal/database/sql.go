package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names registered by the blank imports above.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenSQL opens and pings a database/sql handle for driver ("sqlite" or "postgres").
// SQLite handles are limited to one connection; the file is written by a single process.
func OpenSQL(ctx context.Context, driver, dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s open: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s ping: %w", driver, err)
	}
	return db, nil
}
