package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trackdq/internal/domain"
)

// Store persists runs, metric summaries, and SLA records.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an open metrics-store connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRun inserts the run record in RUNNING state.
func (s *Store) CreateRun(ctx context.Context, run domain.RunContext) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dq_runs (run_id, started_at, status) VALUES (?, ?, ?)`,
		run.ID, run.StartedAt, domain.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records the terminal status and outcome counts of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string, passed, failed, undetermined int, errMsg *string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE dq_runs
		 SET finished_at = ?, status = ?, passed_count = ?, failed_count = ?,
		     undetermined_count = ?, error_message = ?
		 WHERE run_id = ?`,
		time.Now().UTC(), status, passed, failed, undetermined, errMsg, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// AppendMetrics writes one summary row per metric result. The table is
// append-only across runs: historical rows are never touched.
func (s *Store) AppendMetrics(ctx context.Context, results []domain.MetricResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metrics tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dq_metrics
		 (run_id, dimension, table_name, metric_name, metric_value, threshold_value,
		  passed, outcome, reason, calculated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare metrics insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		var value sql.NullFloat64
		if r.Value != nil {
			value = sql.NullFloat64{Float64: *r.Value, Valid: true}
		}
		var reason sql.NullString
		if r.Reason != "" {
			reason = sql.NullString{String: r.Reason, Valid: true}
		}
		passed := 0
		if r.Outcome == domain.OutcomePassed {
			passed = 1
		}
		if _, err := stmt.ExecContext(ctx,
			r.RunID, string(r.Dimension), r.TableName, r.MetricName, value,
			r.Threshold, passed, string(r.Outcome), reason, r.CalculatedAt); err != nil {
			return fmt.Errorf("insert metric %s/%s: %w", r.TableName, r.MetricName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metrics: %w", err)
	}
	return nil
}

// ListRunMetrics returns all metric rows of one run in insertion order.
func (s *Store) ListRunMetrics(ctx context.Context, runID string) ([]domain.MetricResult, error) {
	return s.queryMetrics(ctx,
		`SELECT run_id, dimension, table_name, metric_name, metric_value,
		        threshold_value, outcome, reason, calculated_at
		 FROM dq_metrics WHERE run_id = ? ORDER BY id`, runID)
}

// ListFailing returns the non-passing metric rows of one run, undetermined
// included. "Can't tell" is never folded into the pass count.
func (s *Store) ListFailing(ctx context.Context, runID string) ([]domain.MetricResult, error) {
	return s.queryMetrics(ctx,
		`SELECT run_id, dimension, table_name, metric_name, metric_value,
		        threshold_value, outcome, reason, calculated_at
		 FROM dq_metrics WHERE run_id = ? AND passed = 0 ORDER BY id`, runID)
}

func (s *Store) queryMetrics(ctx context.Context, query string, args ...interface{}) ([]domain.MetricResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricResult
	for rows.Next() {
		var (
			r       domain.MetricResult
			dim     string
			value   sql.NullFloat64
			outcome string
			reason  sql.NullString
		)
		if err := rows.Scan(&r.RunID, &dim, &r.TableName, &r.MetricName,
			&value, &r.Threshold, &outcome, &reason, &r.CalculatedAt); err != nil {
			return nil, err
		}
		r.Dimension = domain.Dimension(dim)
		r.Outcome = domain.Outcome(outcome)
		if value.Valid {
			v := value.Float64
			r.Value = &v
		}
		r.Reason = reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRunID returns the id of the most recently started run, or "" when
// no run has been recorded yet.
func (s *Store) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id FROM dq_runs ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return id, nil
}

// RunStatus returns the persisted status of a run.
func (s *Store) RunStatus(ctx context.Context, runID string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM dq_runs WHERE run_id = ?`, runID).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("run status %s: %w", runID, err)
	}
	return status, nil
}

// InsertSLARecord appends one SLA compliance row.
func (s *Store) InsertSLARecord(ctx context.Context, rec domain.SLARecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sla_monitoring
		 (pipeline_name, expected_completion_time, actual_completion_time,
		  sla_met, deviation_minutes, run_id, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.PipelineName, rec.ExpectedCompletion, rec.LatestLoad,
		rec.SLAMet, rec.DeviationMinutes, rec.RunID, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert sla record: %w", err)
	}
	return nil
}
