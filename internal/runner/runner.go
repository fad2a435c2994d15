// Package runner orchestrates a full data-quality run: parallel check
// evaluation, failure capture, aggregation, SLA logging, and alerting.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"trackdq/internal/aggregate"
	"trackdq/internal/alert"
	"trackdq/internal/capture"
	"trackdq/internal/discovery"
	"trackdq/internal/domain"
	"trackdq/internal/evaluator"
	"trackdq/internal/metastore"
	"trackdq/internal/registry"
)

// DefaultConcurrency bounds parallel check evaluation.
const DefaultConcurrency = 4

// Runner wires the engine components together for one run at a time.
// It does not deduplicate concurrent runs across processes; that is the
// orchestrator's job.
type Runner struct {
	registry     *registry.Registry
	evaluator    *evaluator.Evaluator
	captures     *capture.Store
	aggregator   *aggregate.Aggregator
	alerts       *alert.Evaluator
	discovery    *discovery.Service
	store        *metastore.Store
	logger       *slog.Logger
	concurrency  int
	pipelineName string
	dashboardURL string
	slaHours     float64
}

// Config carries the runner's construction parameters.
type Config struct {
	Registry     *registry.Registry
	Evaluator    *evaluator.Evaluator
	Captures     *capture.Store
	Aggregator   *aggregate.Aggregator
	Alerts       *alert.Evaluator
	Discovery    *discovery.Service
	Store        *metastore.Store
	Logger       *slog.Logger
	Concurrency  int
	PipelineName string
	DashboardURL string
	SLAHours     float64 // alert-tier staleness bound used for the SLA log
}

// New creates a Runner.
func New(cfg Config) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Runner{
		registry:     cfg.Registry,
		evaluator:    cfg.Evaluator,
		captures:     cfg.Captures,
		aggregator:   cfg.Aggregator,
		alerts:       cfg.Alerts,
		discovery:    cfg.Discovery,
		store:        cfg.Store,
		logger:       cfg.Logger,
		concurrency:  cfg.Concurrency,
		pipelineName: cfg.PipelineName,
		dashboardURL: cfg.DashboardURL,
		slaHours:     cfg.SLAHours,
	}
}

// RunReport is the full outcome of one run.
type RunReport struct {
	Run          domain.RunContext
	Report       *domain.AggregateReport
	Discovered   []domain.DiscoveredFailure
	Decision     domain.AlertDecision
	Notification alert.Notification
	Status       string
	CheckErrors  []error // per-check degradations; never abort the run
}

// RunAll evaluates every registered check.
func (r *Runner) RunAll(ctx context.Context) (*RunReport, error) {
	return r.run(ctx, r.registry.List())
}

// RunDimension evaluates the checks of a single dimension.
func (r *Runner) RunDimension(ctx context.Context, dim domain.Dimension) (*RunReport, error) {
	return r.run(ctx, r.registry.ListByDimension(dim))
}

func (r *Runner) run(ctx context.Context, checks []domain.CheckDefinition) (*RunReport, error) {
	run := domain.NewRunContext()
	logger := r.logger.With("run_id", run.ID)

	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	logger.Info("data quality run started", "checks", len(checks))

	// Checks are independent and read-only apart from each check's own
	// capture table, so they run in parallel. Results land at their
	// registration index to keep reporting order stable.
	results := make([]domain.MetricResult, len(checks))
	var mu sync.Mutex
	var checkErrors []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, check := range checks {
		g.Go(func() error {
			res := r.runCheck(gctx, check, run, logger)
			mu.Lock()
			results[i] = res.result
			if res.err != nil {
				checkErrors = append(checkErrors, res.err)
			}
			mu.Unlock()
			return nil
		})
	}
	// Barrier: aggregation must see every result.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		// Aborted mid-flight: partial capture tables stay as-is and the
		// report is never written, so consumers cannot half-trust it.
		msg := err.Error()
		_ = r.store.FinishRun(context.WithoutCancel(ctx), run.ID, domain.RunStatusFailed, 0, 0, 0, &msg)
		return nil, fmt.Errorf("run %s aborted: %w", run.ID, err)
	}

	report, err := r.aggregator.Aggregate(ctx, results, run)
	if err != nil {
		msg := err.Error()
		_ = r.store.FinishRun(ctx, run.ID, domain.RunStatusFailed, 0, 0, 0, &msg)
		return nil, err
	}

	r.logSLA(ctx, report, run, logger)

	discovered, err := r.discovery.Discover(ctx)
	if err != nil {
		logger.Warn("failure discovery failed", "error", err)
		checkErrors = append(checkErrors, err)
	}

	decision := r.alerts.Evaluate(report, discovered)
	notification := alert.FormatNotification(decision, r.pipelineName, r.dashboardURL)

	status := domain.RunStatusFailed
	switch {
	case report.Degraded:
		status = domain.RunStatusDegraded
	case report.OverallPassed:
		status = domain.RunStatusPassed
	}

	var errMsg *string
	if len(checkErrors) > 0 {
		msg := joinErrors(checkErrors)
		errMsg = &msg
	}
	if err := r.store.FinishRun(ctx, run.ID, status,
		report.PassedCount, report.FailedCount, report.UndetCount, errMsg); err != nil {
		return nil, err
	}

	logger.Info("data quality run finished",
		"status", status,
		"overall_passed", report.OverallPassed,
		"alert_triggered", decision.Triggered)

	return &RunReport{
		Run:          run,
		Report:       report,
		Discovered:   discovered,
		Decision:     decision,
		Notification: notification,
		Status:       status,
		CheckErrors:  checkErrors,
	}, nil
}

type checkOutcome struct {
	result domain.MetricResult
	err    error
}

// runCheck evaluates one check and, for row-level kinds, captures its
// failing rows. Evaluation and capture form an atomic pair for that check's
// table; no other writer touches it. The pair shares one deadline so a
// wedged capture query cannot stall the run.
func (r *Runner) runCheck(ctx context.Context, check domain.CheckDefinition,
	run domain.RunContext, logger *slog.Logger) checkOutcome {

	cctx, cancel := context.WithTimeout(ctx, r.evaluator.Timeout())
	defer cancel()

	result, err := r.evaluator.Evaluate(cctx, check, run)
	if err != nil {
		// Degraded, not fatal: the result is already undetermined.
		logger.Warn("check degraded",
			"check", check.Identity(), "error", err)
		r.clearCapture(ctx, check, run, logger)
		return checkOutcome{result: result, err: fmt.Errorf("%s: %w", check.Identity(), err)}
	}

	if !evaluator.HasRowCapture(check) {
		return checkOutcome{result: result}
	}
	if result.Outcome == domain.OutcomeUndetermined {
		// Rows captured by an earlier run must not read as current.
		r.clearCapture(ctx, check, run, logger)
		return checkOutcome{result: result}
	}

	capRes, capErr := r.captures.Capture(cctx, check, r.evaluator.FailingRows(cctx, check), run)
	if capErr != nil {
		logger.Warn("failure capture degraded check",
			"check", check.Identity(), "error", capErr)
		result.Outcome = domain.OutcomeUndetermined
		result.Reason = capErr.Error()
		return checkOutcome{result: result, err: fmt.Errorf("%s: %w", check.Identity(), capErr)}
	}

	logger.Debug("check completed",
		"check", check.Identity(),
		"outcome", result.Outcome,
		"capture_table", capRes.TableName,
		"captured_rows", capRes.RowCount)
	return checkOutcome{result: result}
}

// clearCapture truncates an undetermined check's capture table. Best effort:
// on an aborted run the parent context is gone and earlier rows stay, which
// matches the report being treated as invalid.
func (r *Runner) clearCapture(ctx context.Context, check domain.CheckDefinition,
	run domain.RunContext, logger *slog.Logger) {

	if !evaluator.HasRowCapture(check) {
		return
	}
	if err := r.captures.Clear(ctx, check, run); err != nil {
		logger.Warn("capture table clear failed",
			"check", check.Identity(), "error", err)
	}
}

// logSLA writes one sla_monitoring row per freshness measurement, mirroring
// the monitoring surface operations dashboards track.
func (r *Runner) logSLA(ctx context.Context, report *domain.AggregateReport,
	run domain.RunContext, logger *slog.Logger) {

	for _, res := range report.Results {
		if res.Dimension != domain.DimTimeliness || res.Value == nil {
			continue
		}
		hours := *res.Value
		met := hours <= r.slaHours
		latest := run.StartedAt.Add(-time.Duration(hours * float64(time.Hour)))
		var deviation int64
		if !met {
			deviation = int64((hours - r.slaHours) * 60)
		}
		rec := domain.SLARecord{
			PipelineName:       r.pipelineName,
			ExpectedCompletion: "06:00:00",
			LatestLoad:         &latest,
			SLAMet:             met,
			DeviationMinutes:   deviation,
			RunID:              run.ID,
			RecordedAt:         time.Now().UTC(),
		}
		if err := r.store.InsertSLARecord(ctx, rec); err != nil {
			logger.Warn("sla record write failed", "error", err)
		}
	}
}

func joinErrors(errs []error) string {
	msg := ""
	for i, err := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += err.Error()
	}
	return msg
}
