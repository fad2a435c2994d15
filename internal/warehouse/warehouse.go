// Package warehouse provides DuckDB connectivity and table introspection
// for the analytics warehouse.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Warehouse schemas. Marts holds the dimensional tables produced by the
// transformation layer; Failures holds per-check failure-capture tables.
const (
	SchemaMarts    = "marts"
	SchemaFailures = "dq_failures"
)

// Warehouse wraps a DuckDB connection to the analytics database.
type Warehouse struct {
	db *sql.DB
}

// Open opens a DuckDB database at the given path (empty for in-memory) and
// ensures the engine-owned schemas exist.
func Open(path string) (*Warehouse, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	w := &Warehouse{db: db}
	if err := w.ensureSchemas(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

// DB exposes the underlying connection pool.
func (w *Warehouse) DB() *sql.DB { return w.db }

// Close closes the underlying connection pool.
func (w *Warehouse) Close() error { return w.db.Close() }

func (w *Warehouse) ensureSchemas(ctx context.Context) error {
	for _, schema := range []string{SchemaMarts, SchemaFailures} {
		if _, err := w.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+QuoteIdent(schema)); err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
	}
	return nil
}

// TableExists reports whether a table exists in the given schema.
func (w *Warehouse) TableExists(ctx context.Context, schema, table string) (bool, error) {
	var n int
	err := w.db.QueryRowContext(ctx,
		`SELECT count(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?`,
		schema, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("table lookup %s.%s: %w", schema, table, err)
	}
	return n > 0, nil
}

// ColumnExists reports whether a column exists on the given table.
func (w *Warehouse) ColumnExists(ctx context.Context, schema, table, column string) (bool, error) {
	var n int
	err := w.db.QueryRowContext(ctx,
		`SELECT count(*) FROM information_schema.columns
		 WHERE table_schema = ? AND table_name = ? AND column_name = ?`,
		schema, table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("column lookup %s.%s.%s: %w", schema, table, column, err)
	}
	return n > 0, nil
}

// ListTables returns the table names in a schema in name order. This is the
// storage-layer listing API failure discovery is built on: the set of capture
// tables is enumerated at call time, never kept in a static registry.
func (w *Warehouse) ListTables(ctx context.Context, schema string) ([]string, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = ? ORDER BY table_name`, schema)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", schema, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// RowCount returns the exact row count of a table.
func (w *Warehouse) RowCount(ctx context.Context, schema, table string) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT count(*) FROM %s.%s", QuoteIdent(schema), QuoteIdent(table))
	if err := w.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s.%s: %w", schema, table, err)
	}
	return n, nil
}

// SplitTableName splits a possibly schema-qualified table name. Unqualified
// names default to the marts schema.
func SplitTableName(name string) (schema, table string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return SchemaMarts, name
}

// QuoteIdent quotes a SQL identifier for DuckDB.
func QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// QualifyTable returns a quoted, schema-qualified table reference.
func QualifyTable(schema, table string) string {
	return QuoteIdent(schema) + "." + QuoteIdent(table)
}
