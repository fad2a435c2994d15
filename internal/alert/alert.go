// Package alert decides pass/alert status for a run against dimension-level
// alert thresholds and formats the notification payload.
package alert

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trackdq/internal/domain"
)

// Evaluator applies the alert-tier thresholds. These are deliberately
// coarser than per-check pass thresholds: a check can fail its own strict
// threshold without the dimension crossing the alert-worthy line.
type Evaluator struct {
	thresholds domain.AlertThresholds
	logger     *slog.Logger
}

// New creates an alert Evaluator.
func New(thresholds domain.AlertThresholds, logger *slog.Logger) *Evaluator {
	return &Evaluator{thresholds: thresholds, logger: logger}
}

// Evaluate applies each alert rule independently; any triggering condition
// produces an alert-worthy decision. A clean evaluation returns an explicit
// all-clear, distinguishable from "not yet evaluated".
func (e *Evaluator) Evaluate(report *domain.AggregateReport, discovered []domain.DiscoveredFailure) domain.AlertDecision {
	decision := domain.AlertDecision{
		RunID:       report.RunID,
		EvaluatedAt: time.Now().UTC(),
	}

	// Rolled-up dimension averages against their alert minimums.
	for _, dim := range domain.Dimensions {
		min, configured := e.thresholds.DimensionMinimums[dim]
		if !configured {
			continue
		}
		avg, ok := report.DimensionAverage(dim)
		if !ok {
			continue
		}
		if avg < min {
			decision.Reasons = append(decision.Reasons, domain.AlertReason{
				Dimension: dim,
				Metric:    "dimension_average",
				Measured:  avg,
				Message: fmt.Sprintf("LOW %s: average %.2f%% below alert threshold %.2f%%",
					strings.ToUpper(string(dim)), avg*100, min*100),
			})
		}
	}

	// Duplicate rate: uniqueness below 1 - max_duplicate_rate.
	uniqueFloor := 1 - e.thresholds.MaxDuplicateRate
	if avg, ok := report.DimensionAverage(domain.DimUniqueness); ok && avg < uniqueFloor {
		decision.Reasons = append(decision.Reasons, domain.AlertReason{
			Dimension: domain.DimUniqueness,
			Metric:    "duplicate_rate",
			Measured:  1 - avg,
			Message: fmt.Sprintf("DUPLICATES: %.2f%% of records duplicated (alert limit %.2f%%)",
				(1-avg)*100, e.thresholds.MaxDuplicateRate*100),
		})
	}

	// Staleness: any freshness measurement above the alert SLA. The alert
	// SLA is intentionally tighter than the per-check pass threshold.
	for _, r := range report.Results {
		if r.Dimension != domain.DimTimeliness || r.Value == nil {
			continue
		}
		if *r.Value > e.thresholds.MaxStalenessHours {
			decision.Reasons = append(decision.Reasons, domain.AlertReason{
				Dimension: domain.DimTimeliness,
				Metric:    r.MetricName,
				Measured:  *r.Value,
				Message: fmt.Sprintf("SLA VIOLATION: data is %.1f hours stale (alert SLA %.0fh)",
					*r.Value, e.thresholds.MaxStalenessHours),
			})
		}
	}

	// Any ERROR-severity capture table found by discovery.
	for _, d := range discovered {
		if d.Severity != domain.SeverityError {
			continue
		}
		decision.Reasons = append(decision.Reasons, domain.AlertReason{
			Metric:   d.TableName,
			Measured: float64(d.RowCount),
			Message: fmt.Sprintf("SOURCE FAILURES: %s (%s) has %d failing rows",
				d.TableName, d.CheckType, d.RowCount),
		})
	}

	decision.Triggered = len(decision.Reasons) > 0
	decision.AllClear = !decision.Triggered

	e.logger.Info("alert evaluation completed",
		"run_id", report.RunID,
		"triggered", decision.Triggered,
		"reasons", len(decision.Reasons))

	return decision
}
