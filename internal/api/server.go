// Package api exposes the read-only query surface dashboards and alerting
// consume, plus a trigger endpoint for ad-hoc runs.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"trackdq/internal/alert"
	"trackdq/internal/discovery"
	"trackdq/internal/domain"
	"trackdq/internal/metastore"
	"trackdq/internal/runner"
)

// Server wires the HTTP query surface.
type Server struct {
	store     *metastore.Store
	discovery *discovery.Service
	alerts    *alert.Evaluator
	runner    *runner.Runner
	logger    *slog.Logger
}

// NewServer creates the API server.
func NewServer(store *metastore.Store, disc *discovery.Service,
	alerts *alert.Evaluator, run *runner.Runner, logger *slog.Logger) *Server {
	return &Server{store: store, discovery: disc, alerts: alerts, runner: run, logger: logger}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/summary", s.handleLatestSummary)
		r.Get("/summary/{runID}", s.handleRunSummary)
		r.Get("/failing", s.handleFailing)
		r.Get("/failures", s.handleDiscovery)
		r.Get("/alerts", s.handleAlerts)
		r.Post("/runs", s.handleTriggerRun)
	})

	return r
}

// summaryRow is the wire shape of one dq_metrics row.
type summaryRow struct {
	Dimension      string   `json:"dimension"`
	TableName      string   `json:"table_name"`
	MetricName     string   `json:"metric_name"`
	MetricValue    *float64 `json:"metric_value"`
	ThresholdValue float64  `json:"threshold_value"`
	Passed         bool     `json:"passed"`
	Outcome        string   `json:"outcome"`
	CalculatedAt   string   `json:"calculated_at"`
	RunID          string   `json:"run_id"`
}

func toSummaryRows(results []domain.MetricResult) []summaryRow {
	out := make([]summaryRow, len(results))
	for i, r := range results {
		out[i] = summaryRow{
			Dimension:      string(r.Dimension),
			TableName:      r.TableName,
			MetricName:     r.MetricName,
			MetricValue:    r.Value,
			ThresholdValue: r.Threshold,
			Passed:         r.Passed(),
			Outcome:        string(r.Outcome),
			CalculatedAt:   r.CalculatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			RunID:          r.RunID,
		}
	}
	return out
}

func (s *Server) handleLatestSummary(w http.ResponseWriter, r *http.Request) {
	runID, err := s.store.LatestRunID(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runID == "" {
		s.writeJSON(w, http.StatusOK, []summaryRow{})
		return
	}
	results, err := s.store.ListRunMetrics(r.Context(), runID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSummaryRows(results))
}

func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.ListRunMetrics(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSummaryRows(results))
}

func (s *Server) handleFailing(w http.ResponseWriter, r *http.Request) {
	runID, err := s.store.LatestRunID(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runID == "" {
		s.writeJSON(w, http.StatusOK, []summaryRow{})
		return
	}
	results, err := s.store.ListFailing(r.Context(), runID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSummaryRows(results))
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	found, err := s.discovery.Discover(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if found == nil {
		found = []domain.DiscoveredFailure{}
	}
	s.writeJSON(w, http.StatusOK, found)
}

// handleAlerts re-evaluates the alert tier over the latest run's stored
// metrics plus live discovery, so the endpoint stays a single source of
// truth with the scheduler path.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	runID, err := s.store.LatestRunID(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runID == "" {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no runs recorded"})
		return
	}
	results, err := s.store.ListRunMetrics(r.Context(), runID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report := &domain.AggregateReport{RunID: runID, Results: results}
	found, err := s.discovery.Discover(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.alerts.Evaluate(report, found))
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	report, err := s.runner.RunAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"run_id":         report.Run.ID,
		"status":         report.Status,
		"overall_passed": report.Report.OverallPassed,
		"passed":         report.Report.PassedCount,
		"failed":         report.Report.FailedCount,
		"undetermined":   report.Report.UndetCount,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
