package domain

import "time"

// AlertThresholds is the dimension-level alert tier. It is deliberately
// coarser than per-check pass thresholds: a check can fail its own strict
// threshold without crossing the alert-worthy line.
type AlertThresholds struct {
	// DimensionMinimums maps a dimension to the minimum acceptable rolled-up
	// average metric value (0..1).
	DimensionMinimums map[Dimension]float64

	// MaxDuplicateRate is the alert bound for duplicates: uniqueness below
	// 1-MaxDuplicateRate triggers.
	MaxDuplicateRate float64

	// MaxStalenessHours is the alert-tier freshness SLA. Intentionally
	// tighter than the per-check SLA.
	MaxStalenessHours float64
}

// DefaultAlertThresholds returns the default alert tier: 90% for
// completeness and accuracy, max 10% duplicates, 24h staleness.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		DimensionMinimums: map[Dimension]float64{
			DimCompleteness: 0.90,
			DimAccuracy:     0.90,
		},
		MaxDuplicateRate:  0.10,
		MaxStalenessHours: 24,
	}
}

// AlertReason is one triggering condition with its measured value.
type AlertReason struct {
	Dimension Dimension `json:"dimension,omitempty"`
	Metric    string    `json:"metric"`
	Measured  float64   `json:"measured"`
	Message   string    `json:"message"`
}

// AlertDecision is the outcome of evaluating a run against the alert tier.
// AllClear is explicit so consumers can distinguish "evaluated clean" from
// "not yet evaluated".
type AlertDecision struct {
	RunID       string        `json:"run_id"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
	Triggered   bool          `json:"triggered"`
	AllClear    bool          `json:"all_clear"`
	Reasons     []AlertReason `json:"reasons"`
}
