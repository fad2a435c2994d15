// Package metastore persists run history and data-quality metrics in a
// SQLite database, separate from the DuckDB analytics warehouse.
package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite DSN parameters for production hardening.
const (
	busyTimeout = "5000" // 5 seconds
	synchronous = "NORMAL"
	journalMode = "WAL"
)

// OpenSQLite opens a hardened *sql.DB pool for the given SQLite file path.
// The metrics store is written by a single run at a time, so the pool is
// kept at one open connection.
func OpenSQLite(path string) (*sql.DB, error) {
	params := url.Values{}
	params.Set("_busy_timeout", busyTimeout)
	params.Set("_journal_mode", journalMode)
	params.Set("_synchronous", synchronous)
	params.Set("_foreign_keys", "on")
	params.Set("_txlock", "immediate")

	db, err := sql.Open("sqlite3", "file:"+path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}
