package warehouse

import (
	"context"
	"testing"
)

// OpenTestWarehouse opens an in-memory DuckDB warehouse with the marts
// tables created (but not seeded) and registers cleanup.
func OpenTestWarehouse(t *testing.T) *Warehouse {
	t.Helper()

	w, err := Open("")
	if err != nil {
		t.Fatalf("open test warehouse: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if err := w.CreateMartsTables(context.Background()); err != nil {
		t.Fatalf("create marts tables: %v", err)
	}
	return w
}
