package domain

import (
	"math"
	"time"
)

// Outcome is the three-valued result of a single check: a check that could
// not be evaluated is undetermined, never silently a pass or a fail.
type Outcome string

const (
	OutcomePassed       Outcome = "PASSED"
	OutcomeFailed       Outcome = "FAILED"
	OutcomeUndetermined Outcome = "UNDETERMINED"
)

// MetricResult is produced once per check per run.
type MetricResult struct {
	Dimension    Dimension `json:"dimension"`
	TableName    string    `json:"table_name"`
	MetricName   string    `json:"metric_name"`
	Value        *float64  `json:"metric_value"` // nil when the metric could not be computed (empty table)
	Threshold    float64   `json:"threshold_value"`
	Outcome      Outcome   `json:"outcome"`
	Reason       string    `json:"reason,omitempty"` // populated for undetermined results
	CalculatedAt time.Time `json:"calculated_at"`
	RunID        string    `json:"run_id"`
}

// Passed reports whether the check passed. Undetermined is not a pass.
func (r MetricResult) Passed() bool { return r.Outcome == OutcomePassed }

// CompareToThreshold returns the direction-aware outcome for a computed value.
// Callers must pass the unrounded value so boundary comparisons do not
// flicker with display rounding.
func CompareToThreshold(value, threshold float64, dir Direction) Outcome {
	var ok bool
	if dir == LowerIsBetter {
		ok = value <= threshold
	} else {
		ok = value >= threshold
	}
	if ok {
		return OutcomePassed
	}
	return OutcomeFailed
}

// Round4 rounds a metric value to the 4-decimal display/storage precision.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// AggregateReport combines all MetricResults of one run. OverallPassed is the
// logical AND across results, with undetermined counting as not-passed.
type AggregateReport struct {
	RunID         string
	GeneratedAt   time.Time
	Results       []MetricResult
	OverallPassed bool
	Degraded      bool // true when any result is undetermined
	PassedCount   int
	FailedCount   int
	UndetCount    int
}

// DimensionAverage returns the mean computed value across the results of one
// dimension. The second return is false when no result in that dimension has
// a computed value.
func (r *AggregateReport) DimensionAverage(dim Dimension) (float64, bool) {
	var sum float64
	var n int
	for _, res := range r.Results {
		if res.Dimension != dim || res.Value == nil {
			continue
		}
		sum += *res.Value
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
