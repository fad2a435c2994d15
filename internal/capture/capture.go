// Package capture persists the specific rows that violated a check into
// per-check failure tables in the warehouse.
package capture

import (
	"context"
	"fmt"
	"hash/fnv"
	"iter"
	"log/slog"
	"strings"
	"time"

	"trackdq/internal/domain"
	"trackdq/internal/warehouse"
)

// retryBackoff is the pause before the single capture-write retry.
const retryBackoff = 250 * time.Millisecond

// Store writes failing rows into deterministic per-check tables under the
// dq_failures schema. Each table is fully replaced per run: its row count
// always equals the violation count of the run that wrote it.
type Store struct {
	wh     *warehouse.Warehouse
	logger *slog.Logger
}

// NewStore creates a capture Store.
func NewStore(wh *warehouse.Warehouse, logger *slog.Logger) *Store {
	return &Store{wh: wh, logger: logger}
}

// slugKinds maps metric kinds to the check-type segment of capture table
// names. The segments line up with discovery's name classification.
var slugKinds = map[domain.MetricKind]string{
	domain.MetricNotNullRatio:        "not_null",
	domain.MetricUniquenessRatio:     "unique",
	domain.MetricAcceptedValuesRatio: "accepted_values",
	domain.MetricRelationshipRatio:   "relationship",
	domain.MetricRangeRatio:          "expect_range",
	domain.MetricPredicateRatio:      "expect",
}

// TableName returns the deterministic capture table name for a check:
// <scope>_<check_type>_<table>_<column>_<identity digest>. Repeated runs of
// the same check always write to the same table; the digest keeps names
// collision-free for checks that share a kind, table, and column but differ
// in dimension or metric name.
func TableName(check domain.CheckDefinition) string {
	scope := "marts"
	if check.SourceLevel {
		scope = "source"
	}
	_, table := warehouse.SplitTableName(check.Table)

	parts := []string{scope, slugKinds[check.Kind], table}
	if check.Column != "" {
		parts = append(parts, check.Column)
	} else {
		parts = append(parts, slugify(check.MetricName))
	}
	return slugify(strings.Join(parts, "_")) + "_" + identityDigest(check)
}

func identityDigest(check domain.CheckDefinition) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(check.Identity()))
	return fmt.Sprintf("%08x", h.Sum32())
}

func slugify(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// Capture drains the failing-row sequence and replaces the check's capture
// table with exactly those rows. An error produced by the sequence itself is
// returned as-is (an evaluation problem); a write failure is retried once
// with backoff and then surfaced as a CaptureWriteError.
func (s *Store) Capture(ctx context.Context, check domain.CheckDefinition,
	rows iter.Seq2[domain.FailureRecord, error], run domain.RunContext) (domain.CaptureResult, error) {

	tableName := TableName(check)
	result := domain.CaptureResult{TableName: tableName}

	var records []domain.FailureRecord
	for rec, err := range rows {
		if err != nil {
			return result, err
		}
		records = append(records, rec)
	}

	var writeErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			s.logger.Warn("capture write failed, retrying",
				"table", tableName, "error", writeErr)
			time.Sleep(retryBackoff)
		}
		writeErr = s.replaceTable(ctx, tableName, check, records, run)
		if writeErr == nil {
			result.RowCount = int64(len(records))
			s.logger.Debug("captured failing rows",
				"table", tableName, "rows", result.RowCount, "run_id", run.ID)
			return result, nil
		}
	}
	return result, domain.ErrCaptureWrite("capture %s: %v", tableName, writeErr)
}

// Clear replaces the check's capture table with zero rows. Called when a
// check is undetermined for the current run, so rows left by an earlier run
// cannot read as current failures.
func (s *Store) Clear(ctx context.Context, check domain.CheckDefinition, run domain.RunContext) error {
	tableName := TableName(check)
	if err := s.replaceTable(ctx, tableName, check, nil, run); err != nil {
		return domain.ErrCaptureWrite("clear %s: %v", tableName, err)
	}
	return nil
}

// replaceTable truncates and repopulates one capture table in a single
// transaction, so concurrent readers never see a half-written state.
func (s *Store) replaceTable(ctx context.Context, tableName string,
	check domain.CheckDefinition, records []domain.FailureRecord, run domain.RunContext) error {

	target := warehouse.QualifyTable(warehouse.SchemaFailures, tableName)

	_, err := s.wh.DB().ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			record_key   VARCHAR,
			column_name  VARCHAR,
			actual_value VARCHAR,
			violation    VARCHAR,
			run_id       VARCHAR,
			captured_at  TIMESTAMP
		)`, target))
	if err != nil {
		return fmt.Errorf("create capture table: %w", err)
	}

	tx, err := s.wh.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin capture tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+target); err != nil {
		return fmt.Errorf("truncate capture table: %w", err)
	}

	if len(records) > 0 {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			`INSERT INTO %s VALUES (?, ?, ?, ?, ?, ?)`, target))
		if err != nil {
			return fmt.Errorf("prepare capture insert: %w", err)
		}
		defer stmt.Close()

		capturedAt := time.Now().UTC()
		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx,
				rec.RecordKey, rec.Column, rec.ActualValue,
				string(rec.Violation), run.ID, capturedAt); err != nil {
				return fmt.Errorf("insert capture row: %w", err)
			}
		}
	}

	return tx.Commit()
}
