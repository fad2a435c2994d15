package metastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackdq/internal/domain"
)

func f(v float64) *float64 { return &v }

func sampleResults(runID string) []domain.MetricResult {
	now := time.Now().UTC()
	return []domain.MetricResult{
		{
			RunID: runID, Dimension: domain.DimCompleteness, TableName: "marts.fct_tracks",
			MetricName: "genre_completeness", Value: f(0.98), Threshold: 0.95,
			Outcome: domain.OutcomePassed, CalculatedAt: now,
		},
		{
			RunID: runID, Dimension: domain.DimUniqueness, TableName: "marts.fct_tracks",
			MetricName: "track_id_unique", Value: f(0.6667), Threshold: 1.0,
			Outcome: domain.OutcomeFailed, CalculatedAt: now,
		},
		{
			RunID: runID, Dimension: domain.DimAccuracy, TableName: "marts.fct_tracks",
			MetricName: "tempo_valid_ratio", Value: nil, Threshold: 0.999,
			Outcome: domain.OutcomeUndetermined, Reason: "no rows to evaluate", CalculatedAt: now,
		},
	}
}

func TestRunLifecycle(t *testing.T) {
	s, _ := OpenTestStore(t)
	ctx := context.Background()
	run := domain.NewRunContext()

	require.NoError(t, s.CreateRun(ctx, run))
	status, err := s.RunStatus(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusRunning, status)

	require.NoError(t, s.FinishRun(ctx, run.ID, domain.RunStatusFailed, 1, 1, 1, nil))
	status, err = s.RunStatus(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, status)
}

func TestAppendAndListMetrics(t *testing.T) {
	s, _ := OpenTestStore(t)
	ctx := context.Background()
	run := domain.NewRunContext()
	require.NoError(t, s.CreateRun(ctx, run))
	require.NoError(t, s.AppendMetrics(ctx, sampleResults(run.ID)))

	listed, err := s.ListRunMetrics(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "genre_completeness", listed[0].MetricName)
	assert.Equal(t, domain.OutcomePassed, listed[0].Outcome)
	require.NotNil(t, listed[1].Value)
	assert.Equal(t, 0.6667, *listed[1].Value)
	assert.Nil(t, listed[2].Value)
	assert.Equal(t, "no rows to evaluate", listed[2].Reason)
}

func TestListFailingIncludesUndetermined(t *testing.T) {
	s, _ := OpenTestStore(t)
	ctx := context.Background()
	run := domain.NewRunContext()
	require.NoError(t, s.CreateRun(ctx, run))
	require.NoError(t, s.AppendMetrics(ctx, sampleResults(run.ID)))

	failing, err := s.ListFailing(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, failing, 2)
	assert.Equal(t, domain.OutcomeFailed, failing[0].Outcome)
	assert.Equal(t, domain.OutcomeUndetermined, failing[1].Outcome)
}

func TestMetricsAppendOnlyAcrossRuns(t *testing.T) {
	s, _ := OpenTestStore(t)
	ctx := context.Background()

	first := domain.NewRunContext()
	require.NoError(t, s.CreateRun(ctx, first))
	require.NoError(t, s.AppendMetrics(ctx, sampleResults(first.ID)))

	second := domain.NewRunContext()
	require.NoError(t, s.CreateRun(ctx, second))
	require.NoError(t, s.AppendMetrics(ctx, sampleResults(second.ID)))

	// Rows of the earlier run survive untouched.
	listed, err := s.ListRunMetrics(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	var total int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT count(*) FROM dq_metrics`).Scan(&total))
	assert.Equal(t, 6, total)
}

func TestLatestRunID(t *testing.T) {
	s, _ := OpenTestStore(t)
	ctx := context.Background()

	id, err := s.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	first := domain.RunContext{ID: "run-1", StartedAt: time.Now().UTC().Add(-time.Hour)}
	second := domain.RunContext{ID: "run-2", StartedAt: time.Now().UTC()}
	require.NoError(t, s.CreateRun(ctx, first))
	require.NoError(t, s.CreateRun(ctx, second))

	id, err = s.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", id)
}

func TestInsertSLARecord(t *testing.T) {
	s, _ := OpenTestStore(t)
	ctx := context.Background()

	loaded := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, s.InsertSLARecord(ctx, domain.SLARecord{
		PipelineName:       "music_catalog_etl",
		ExpectedCompletion: "06:00:00",
		LatestLoad:         &loaded,
		SLAMet:             true,
		DeviationMinutes:   120,
		RunID:              "run-1",
		RecordedAt:         time.Now().UTC(),
	}))

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sla_monitoring WHERE pipeline_name = 'music_catalog_etl'`).Scan(&n))
	assert.Equal(t, 1, n)
}
