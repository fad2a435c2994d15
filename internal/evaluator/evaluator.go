package evaluator

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"trackdq/internal/domain"
	"trackdq/internal/warehouse"
)

// DefaultTimeout bounds a single check evaluation when the caller supplies
// no tighter deadline.
const DefaultTimeout = 30 * time.Second

// Evaluator executes registered checks against the live warehouse. It holds
// no per-run cache: re-evaluating a check within a run re-reads the
// warehouse.
type Evaluator struct {
	wh      *warehouse.Warehouse
	logger  *slog.Logger
	timeout time.Duration
}

// New creates an Evaluator with the default per-check timeout.
func New(wh *warehouse.Warehouse, logger *slog.Logger) *Evaluator {
	return &Evaluator{wh: wh, logger: logger, timeout: DefaultTimeout}
}

// SetTimeout overrides the per-check evaluation timeout.
func (e *Evaluator) SetTimeout(d time.Duration) { e.timeout = d }

// Timeout returns the per-check evaluation timeout.
func (e *Evaluator) Timeout() time.Duration { return e.timeout }

// Evaluate runs one check and returns its MetricResult.
//
// Failure modes degrade the check, never the run: a missing table or column
// returns a SchemaMismatchError alongside an undetermined result, and a
// deadline hit returns an undetermined result with a timeout reason. The
// threshold comparison happens on the unrounded value; the stored value is
// rounded to 4 decimals.
func (e *Evaluator) Evaluate(ctx context.Context, check domain.CheckDefinition, run domain.RunContext) (domain.MetricResult, error) {
	result := domain.MetricResult{
		Dimension:    check.Dimension,
		TableName:    check.Table,
		MetricName:   check.MetricName,
		Threshold:    check.Threshold,
		Outcome:      domain.OutcomeUndetermined,
		CalculatedAt: time.Now().UTC(),
		RunID:        run.ID,
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.checkSchema(ctx, check); err != nil {
		result.Reason = err.Error()
		return result, err
	}

	query, args, err := metricQuery(check)
	if err != nil {
		result.Reason = err.Error()
		return result, err
	}

	e.logger.Debug("evaluating check",
		"check", check.Identity(),
		"query", query)

	started := time.Now()
	var value sql.NullFloat64
	err = e.wh.DB().QueryRowContext(ctx, query, args...).Scan(&value)
	elapsed := time.Since(started).Milliseconds()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.Reason = "evaluation timed out"
			e.logger.Warn("check timed out", "check", check.Identity(), "elapsed_ms", elapsed)
			return result, context.DeadlineExceeded
		}
		result.Reason = err.Error()
		return result, err
	}

	if !value.Valid {
		// Empty table: undetermined, never coerced to pass or fail.
		result.Reason = "no rows to evaluate"
		e.logger.Debug("check undetermined", "check", check.Identity(), "reason", result.Reason)
		return result, nil
	}

	result.Outcome = domain.CompareToThreshold(value.Float64, check.Threshold, check.Direction)
	rounded := domain.Round4(value.Float64)
	result.Value = &rounded

	e.logger.Debug("check evaluated",
		"check", check.Identity(),
		"value", rounded,
		"outcome", result.Outcome,
		"elapsed_ms", elapsed)

	return result, nil
}

// checkSchema verifies the check's target table and columns exist before the
// metric query runs, so a renamed column is reported as a schema mismatch
// rather than an opaque query error.
func (e *Evaluator) checkSchema(ctx context.Context, check domain.CheckDefinition) error {
	schema, table := warehouse.SplitTableName(check.Table)
	exists, err := e.wh.TableExists(ctx, schema, table)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrSchemaMismatch("table %s does not exist", check.Table)
	}
	if check.Column != "" {
		ok, err := e.wh.ColumnExists(ctx, schema, table, check.Column)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrSchemaMismatch("column %s.%s does not exist", check.Table, check.Column)
		}
	}
	if check.Kind == domain.MetricRelationshipRatio {
		refSchema, refTable := warehouse.SplitTableName(check.RefTable)
		ok, err := e.wh.TableExists(ctx, refSchema, refTable)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrSchemaMismatch("referenced table %s does not exist", check.RefTable)
		}
		ok, err = e.wh.ColumnExists(ctx, refSchema, refTable, check.RefColumn)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrSchemaMismatch("referenced column %s.%s does not exist", check.RefTable, check.RefColumn)
		}
	}
	return nil
}
