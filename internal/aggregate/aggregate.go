// Package aggregate combines per-check metric results into a run-level
// summary and appends it to the historical trend table.
package aggregate

import (
	"context"
	"log/slog"
	"time"

	"trackdq/internal/domain"
	"trackdq/internal/metastore"
)

// Aggregator persists run summaries. Unlike capture tables, the summary is
// append-only across runs: each run adds rows, nothing is overwritten.
type Aggregator struct {
	store  *metastore.Store
	logger *slog.Logger
}

// New creates an Aggregator.
func New(store *metastore.Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger}
}

// Aggregate combines all results of one run into an AggregateReport and
// appends one summary row per result. OverallPassed is the logical AND
// across results; an undetermined result counts as not-passed, since
// "can't tell" must never read as "fine".
func (a *Aggregator) Aggregate(ctx context.Context, results []domain.MetricResult, run domain.RunContext) (*domain.AggregateReport, error) {
	report := &domain.AggregateReport{
		RunID:         run.ID,
		GeneratedAt:   time.Now().UTC(),
		Results:       results,
		OverallPassed: true,
	}

	for _, r := range results {
		switch r.Outcome {
		case domain.OutcomePassed:
			report.PassedCount++
		case domain.OutcomeFailed:
			report.FailedCount++
			report.OverallPassed = false
		default:
			report.UndetCount++
			report.OverallPassed = false
			report.Degraded = true
		}
	}

	if err := a.store.AppendMetrics(ctx, results); err != nil {
		return nil, err
	}

	a.logger.Info("run aggregated",
		"run_id", run.ID,
		"checks", len(results),
		"passed", report.PassedCount,
		"failed", report.FailedCount,
		"undetermined", report.UndetCount,
		"overall_passed", report.OverallPassed)

	return report, nil
}
