package metastore

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestStore opens a SQLite metrics store in t.TempDir(), runs all
// pending migrations, and registers cleanup.
func OpenTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "metrics.sqlite")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := RunMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return NewStore(db), db
}
