package runner

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackdq/internal/aggregate"
	"trackdq/internal/alert"
	"trackdq/internal/capture"
	"trackdq/internal/discovery"
	"trackdq/internal/domain"
	"trackdq/internal/evaluator"
	"trackdq/internal/metastore"
	"trackdq/internal/registry"
	"trackdq/internal/warehouse"
)

type harness struct {
	runner *Runner
	wh     *warehouse.Warehouse
	store  *metastore.Store
	metaDB *sql.DB
	reg    *registry.Registry
	eval   *evaluator.Evaluator
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	wh := warehouse.OpenTestWarehouse(t)
	store, metaDB := metastore.OpenTestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New()
	eval := evaluator.New(wh, logger)

	runner := New(Config{
		Registry:     reg,
		Evaluator:    eval,
		Captures:     capture.NewStore(wh, logger),
		Aggregator:   aggregate.New(store, logger),
		Alerts:       alert.New(domain.DefaultAlertThresholds(), logger),
		Discovery:    discovery.New(wh, logger),
		Store:        store,
		Logger:       logger,
		PipelineName: "music_catalog_etl",
		SLAHours:     24,
	})
	return &harness{runner: runner, wh: wh, store: store, metaDB: metaDB, reg: reg, eval: eval}
}

func (h *harness) register(t *testing.T, checks ...domain.CheckDefinition) {
	t.Helper()
	for _, c := range checks {
		require.NoError(t, h.reg.Register(c))
	}
}

func (h *harness) exec(t *testing.T, stmt string) {
	t.Helper()
	_, err := h.wh.DB().ExecContext(context.Background(), stmt)
	require.NoError(t, err)
}

func standardChecks() []domain.CheckDefinition {
	return []domain.CheckDefinition{
		{
			Dimension: domain.DimCompleteness, Table: "marts.fct_tracks",
			MetricName: "genre_completeness", Column: "genre", KeyColumn: "track_id",
			Kind: domain.MetricNotNullRatio, Threshold: 0.95, Direction: domain.HigherIsBetter,
		},
		{
			Dimension: domain.DimUniqueness, Table: "marts.fct_tracks",
			MetricName: "track_id_unique", Column: "track_id",
			Kind: domain.MetricUniquenessRatio, Threshold: 1.0, Direction: domain.HigherIsBetter,
		},
		{
			Dimension: domain.DimTimeliness, Table: "marts.fct_tracks",
			MetricName: "load_freshness", Column: "dbt_loaded_at",
			Kind: domain.MetricFreshnessHours, Threshold: 48, Direction: domain.LowerIsBetter,
		},
	}
}

func TestRunAllCleanData(t *testing.T) {
	h := newHarness(t)
	h.exec(t, `INSERT INTO marts.fct_tracks (track_id, genre, dbt_loaded_at) VALUES
		('t1', 'pop', now() - INTERVAL 1 HOUR),
		('t2', 'rock', now() - INTERVAL 1 HOUR)`)
	h.register(t, standardChecks()...)

	report, err := h.runner.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPassed, report.Status)
	assert.True(t, report.Report.OverallPassed)
	assert.Equal(t, 3, report.Report.PassedCount)
	assert.Empty(t, report.CheckErrors)
	assert.True(t, report.Decision.AllClear)
	assert.Empty(t, report.Discovered)

	status, err := h.store.RunStatus(context.Background(), report.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPassed, status)

	stored, err := h.store.ListRunMetrics(context.Background(), report.Run.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestRunAllCapturesFailures(t *testing.T) {
	h := newHarness(t)
	// Duplicate track id plus two null genres.
	h.exec(t, `INSERT INTO marts.fct_tracks (track_id, genre, dbt_loaded_at) VALUES
		('t1', 'pop', now()), ('t1', 'rock', now()),
		('t2', NULL, now()), ('t3', NULL, now())`)
	checks := standardChecks()
	h.register(t, checks...)

	report, err := h.runner.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, report.Status)
	assert.False(t, report.Report.OverallPassed)
	assert.Equal(t, 2, report.Report.FailedCount)

	// Capture table row counts equal this run's violation counts.
	n, err := h.wh.RowCount(context.Background(), warehouse.SchemaFailures, capture.TableName(checks[0]))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = h.wh.RowCount(context.Background(), warehouse.SchemaFailures, capture.TableName(checks[1]))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Discovery saw both populated capture tables.
	require.Len(t, report.Discovered, 2)
	assert.True(t, report.Decision.Triggered)
}

func TestRerunAfterFixClearsCaptures(t *testing.T) {
	h := newHarness(t)
	h.exec(t, `INSERT INTO marts.fct_tracks (track_id, genre, dbt_loaded_at) VALUES
		('t1', NULL, now()), ('t2', 'pop', now())`)
	checks := standardChecks()
	h.register(t, checks...)

	first, err := h.runner.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, first.Status)

	// Fix the data and rerun: the capture table is truncated back to zero
	// and discovery suppresses it.
	h.exec(t, `UPDATE marts.fct_tracks SET genre = 'pop' WHERE genre IS NULL`)
	second, err := h.runner.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPassed, second.Status)
	assert.Empty(t, second.Discovered)

	n, err := h.wh.RowCount(context.Background(), warehouse.SchemaFailures, capture.TableName(checks[0]))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// The first run's metric rows survive: the summary table is append-only.
	stored, err := h.store.ListRunMetrics(context.Background(), first.Run.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestTableLevelPredicatePasses(t *testing.T) {
	h := newHarness(t)
	h.exec(t, `INSERT INTO marts.fct_tracks (track_id, genre, tempo, energy, dbt_loaded_at) VALUES
		('t1', 'pop', 118, 0.7, now()), ('t2', 'rock', 96, 0.4, now())`)
	h.register(t, domain.CheckDefinition{
		Dimension: domain.DimAccuracy, Table: "marts.fct_tracks",
		MetricName: "tempo_energy_sane",
		Kind:       domain.MetricPredicateRatio,
		Predicate:  "tempo > 0 AND energy BETWEEN 0 AND 1",
		Threshold:  1.0, Direction: domain.HigherIsBetter,
	})

	// A column-less predicate has no rows to capture, which must not count
	// against the check.
	report, err := h.runner.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPassed, report.Status)
	assert.Empty(t, report.CheckErrors)
	require.Len(t, report.Report.Results, 1)
	assert.Equal(t, domain.OutcomePassed, report.Report.Results[0].Outcome)
	assert.Empty(t, report.Report.Results[0].Reason)
}

func TestCheckTimeoutDegradesRun(t *testing.T) {
	h := newHarness(t)
	h.exec(t, `INSERT INTO marts.fct_tracks (track_id, genre, dbt_loaded_at) VALUES
		('t1', 'pop', now())`)
	h.register(t, standardChecks()...)

	// An unreachable deadline forces every check over its budget. The run
	// still completes instead of hanging, with each check undetermined.
	h.eval.SetTimeout(time.Nanosecond)

	report, err := h.runner.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusDegraded, report.Status)
	assert.Equal(t, 3, report.Report.UndetCount)
	assert.NotEmpty(t, report.CheckErrors)
}

func TestUndeterminedCheckClearsStaleCaptures(t *testing.T) {
	h := newHarness(t)
	h.exec(t, `INSERT INTO marts.fct_tracks (track_id, genre, dbt_loaded_at) VALUES
		('t1', NULL, now()), ('t2', 'pop', now())`)
	checks := standardChecks()
	h.register(t, checks...)

	first, err := h.runner.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, first.Status)

	n, err := h.wh.RowCount(context.Background(), warehouse.SchemaFailures, capture.TableName(checks[0]))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	// The column disappears, so the next run cannot evaluate the check. Its
	// old rows must not surface as current failures.
	h.exec(t, `ALTER TABLE marts.fct_tracks DROP COLUMN genre`)

	second, err := h.runner.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusDegraded, second.Status)
	assert.Empty(t, second.Discovered)

	n, err = h.wh.RowCount(context.Background(), warehouse.SchemaFailures, capture.TableName(checks[0]))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestSchemaMismatchDegradesRun(t *testing.T) {
	h := newHarness(t)
	h.exec(t, `INSERT INTO marts.fct_tracks (track_id, genre, dbt_loaded_at) VALUES
		('t1', 'pop', now())`)
	checks := standardChecks()
	checks = append(checks, domain.CheckDefinition{
		Dimension: domain.DimCompleteness, Table: "marts.fct_albums",
		MetricName: "album_completeness", Column: "album_id",
		Kind: domain.MetricNotNullRatio, Threshold: 0.95, Direction: domain.HigherIsBetter,
	})
	h.register(t, checks...)

	report, err := h.runner.RunAll(context.Background())
	require.NoError(t, err, "check-local failures must not abort the run")
	assert.Equal(t, domain.RunStatusDegraded, report.Status)
	assert.True(t, report.Report.Degraded)
	assert.Equal(t, 1, report.Report.UndetCount)
	assert.Equal(t, 3, report.Report.PassedCount)
	require.Len(t, report.CheckErrors, 1)
	assert.Contains(t, report.CheckErrors[0].Error(), "album_completeness")
}

func TestRunDimension(t *testing.T) {
	h := newHarness(t)
	h.exec(t, `INSERT INTO marts.fct_tracks (track_id, genre, dbt_loaded_at) VALUES
		('t1', 'pop', now() - INTERVAL 1 HOUR)`)
	h.register(t, standardChecks()...)

	report, err := h.runner.RunDimension(context.Background(), domain.DimTimeliness)
	require.NoError(t, err)
	require.Len(t, report.Report.Results, 1)
	assert.Equal(t, "load_freshness", report.Report.Results[0].MetricName)
}

func TestResultsKeepRegistrationOrder(t *testing.T) {
	h := newHarness(t)
	h.exec(t, `INSERT INTO marts.fct_tracks (track_id, genre, dbt_loaded_at) VALUES
		('t1', 'pop', now())`)
	h.register(t, standardChecks()...)

	report, err := h.runner.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Report.Results, 3)
	assert.Equal(t, "genre_completeness", report.Report.Results[0].MetricName)
	assert.Equal(t, "track_id_unique", report.Report.Results[1].MetricName)
	assert.Equal(t, "load_freshness", report.Report.Results[2].MetricName)
}

func TestAbortedRunRecordsFailure(t *testing.T) {
	h := newHarness(t)
	h.exec(t, `INSERT INTO marts.fct_tracks (track_id, genre, dbt_loaded_at) VALUES
		('t1', 'pop', now())`)
	h.register(t, standardChecks()...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.runner.RunAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSLARecordsWritten(t *testing.T) {
	h := newHarness(t)
	h.exec(t, `INSERT INTO marts.fct_tracks (track_id, genre, dbt_loaded_at) VALUES
		('t1', 'pop', now() - INTERVAL 30 HOUR)`)
	h.register(t, standardChecks()...)

	report, err := h.runner.RunAll(context.Background())
	require.NoError(t, err)

	var met int
	var deviation int64
	err = h.metaDB.QueryRowContext(context.Background(),
		`SELECT sla_met, deviation_minutes FROM sla_monitoring WHERE run_id = ?`,
		report.Run.ID).Scan(&met, &deviation)
	require.NoError(t, err)

	// 30h stale against a 24h SLA: missed by about 360 minutes.
	assert.Equal(t, 0, met)
	assert.InDelta(t, 360, float64(deviation), 5)
}
