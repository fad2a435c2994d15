package runner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule mirrors the monitoring cadence: every 4 hours.
const DefaultSchedule = "0 */4 * * *"

// Scheduler triggers full data-quality runs on a cron cadence. An in-process
// mutex keeps overlapping timer fires from running concurrently; cross-process
// deduplication stays with the external orchestrator.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	logger *slog.Logger
	mu     sync.Mutex
}

// NewScheduler creates a Scheduler for the given runner.
func NewScheduler(r *Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: r,
		logger: logger,
	}
}

// Start registers the schedule and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	_, err := s.cron.AddFunc(schedule, func() {
		if !s.mu.TryLock() {
			s.logger.Warn("skipping scheduled run: previous run still in flight")
			return
		}
		defer s.mu.Unlock()

		report, err := s.runner.RunAll(context.Background())
		if err != nil {
			s.logger.Error("scheduled run failed", "error", err)
			return
		}
		s.logger.Info("scheduled run completed",
			"run_id", report.Run.ID,
			"status", report.Status)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("data quality scheduler started", "schedule", schedule)
	return nil
}

// Stop gracefully stops the cron loop.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("data quality scheduler stopped")
}
