package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackdq/internal/domain"
	"trackdq/internal/warehouse"
)

func testService(t *testing.T) (*Service, *warehouse.Warehouse) {
	t.Helper()
	w := warehouse.OpenTestWarehouse(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(w, logger), w
}

func createCaptureTable(t *testing.T, w *warehouse.Warehouse, name string, rows int) {
	t.Helper()
	ctx := context.Background()
	target := warehouse.QualifyTable(warehouse.SchemaFailures, name)
	_, err := w.DB().ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE %s (record_key VARCHAR, column_name VARCHAR, actual_value VARCHAR,
		 violation VARCHAR, run_id VARCHAR, captured_at TIMESTAMP)`, target))
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		_, err := w.DB().ExecContext(ctx, fmt.Sprintf(
			`INSERT INTO %s VALUES ('k%d', 'c', NULL, 'NULL_VALUE', 'run', now())`, target, i))
		require.NoError(t, err)
	}
}

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		table string
		want  string
	}{
		{"marts_not_null_fct_tracks_genre", domain.CheckTypeNullCheck},
		{"marts_unique_fct_tracks_track_id", domain.CheckTypeUniqueness},
		{"marts_accepted_values_fct_tracks_genre", domain.CheckTypeValidValues},
		{"marts_relationship_fct_tracks_artist_id", domain.CheckTypeFKReference},
		{"marts_expect_range_fct_tracks_tempo", domain.CheckTypeExpectation},
		{"marts_expect_fct_tracks_sane", domain.CheckTypeExpectation},
		{"some_custom_capture", domain.CheckTypeOther},
		// First matching rule wins when several substrings are present.
		{"source_not_null_unique_mix", domain.CheckTypeNullCheck},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyTable(tt.table), tt.table)
	}
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, domain.SeverityError, SeverityOf("source_not_null_raw_tracks_isrc"))
	assert.Equal(t, domain.SeverityWarn, SeverityOf("marts_not_null_fct_tracks_genre"))
	assert.Equal(t, domain.SeverityWarn, SeverityOf("resourceful_table"))
}

func TestDiscoverSuppressesEmptyTables(t *testing.T) {
	s, w := testService(t)
	createCaptureTable(t, w, "marts_unique_fct_tracks_track_id", 0)
	createCaptureTable(t, w, "source_not_null_raw_tracks_isrc", 21)

	found, err := s.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)

	assert.Equal(t, "source_not_null_raw_tracks_isrc", found[0].TableName)
	assert.Equal(t, domain.CheckTypeNullCheck, found[0].CheckType)
	assert.Equal(t, domain.SeverityError, found[0].Severity)
	assert.Equal(t, int64(21), found[0].RowCount)
}

func TestDiscoverEmptySchema(t *testing.T) {
	s, _ := testService(t)

	found, err := s.Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDiscoverSeesNewTablesWithoutRestart(t *testing.T) {
	s, w := testService(t)

	found, err := s.Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, found)

	// Tables created after the service was built are picked up immediately.
	createCaptureTable(t, w, "marts_relationship_fct_tracks_artist_id", 3)
	found, err = s.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, domain.CheckTypeFKReference, found[0].CheckType)
}
