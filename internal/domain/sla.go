package domain

import "time"

// SLARecord logs freshness-SLA compliance for one run, mirroring the
// sla_monitoring table consumed by operations dashboards.
type SLARecord struct {
	PipelineName       string
	ExpectedCompletion string // wall-clock target, e.g. "06:00:00"
	LatestLoad         *time.Time
	SLAMet             bool
	DeviationMinutes   int64
	RunID              string
	RecordedAt         time.Time
}
