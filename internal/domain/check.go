// Package domain defines core types, interfaces, and errors for the data-quality engine.
package domain

import "fmt"

// Dimension is one of the six quality axes a check can belong to.
type Dimension string

// The closed set of quality dimensions.
const (
	DimCompleteness Dimension = "Completeness"
	DimAccuracy     Dimension = "Accuracy"
	DimConsistency  Dimension = "Consistency"
	DimTimeliness   Dimension = "Timeliness"
	DimValidity     Dimension = "Validity"
	DimUniqueness   Dimension = "Uniqueness"
)

// Dimensions lists all quality dimensions in canonical order.
var Dimensions = []Dimension{
	DimCompleteness, DimAccuracy, DimConsistency,
	DimTimeliness, DimValidity, DimUniqueness,
}

// ParseDimension converts a string to a Dimension.
func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions {
		if string(d) == s {
			return d, nil
		}
	}
	return "", ErrValidation("unknown dimension %q", s)
}

// MetricKind names one of the closed set of metric computations.
type MetricKind string

const (
	MetricNotNullRatio        MetricKind = "not_null_ratio"
	MetricRangeRatio          MetricKind = "range_ratio"
	MetricAcceptedValuesRatio MetricKind = "accepted_values_ratio"
	MetricPredicateRatio      MetricKind = "predicate_ratio"
	MetricRelationshipRatio   MetricKind = "relationship_ratio"
	MetricFreshnessHours      MetricKind = "freshness_hours"
	MetricUniquenessRatio     MetricKind = "uniqueness_ratio"
)

// Direction controls how a metric value is compared against its threshold.
type Direction string

const (
	HigherIsBetter Direction = "higher_is_better"
	LowerIsBetter  Direction = "lower_is_better"
)

// compatibleKinds maps each metric kind to the dimensions it may be
// registered under. A freshness metric only makes sense for Timeliness,
// a uniqueness ratio for Uniqueness or Consistency, and so on.
var compatibleKinds = map[MetricKind][]Dimension{
	MetricNotNullRatio:        {DimCompleteness, DimValidity},
	MetricRangeRatio:          {DimAccuracy, DimValidity},
	MetricAcceptedValuesRatio: {DimValidity, DimConsistency},
	MetricPredicateRatio:      {DimAccuracy, DimValidity, DimConsistency},
	MetricRelationshipRatio:   {DimConsistency, DimValidity},
	MetricFreshnessHours:      {DimTimeliness},
	MetricUniquenessRatio:     {DimUniqueness, DimConsistency},
}

// KindCompatibleWith reports whether a metric kind may be registered
// under the given dimension.
func KindCompatibleWith(kind MetricKind, dim Dimension) bool {
	for _, d := range compatibleKinds[kind] {
		if d == dim {
			return true
		}
	}
	return false
}

// CheckDefinition declares a single data-quality check. It is pure data:
// the evaluator interprets it into a warehouse query at run time.
// Definitions are immutable once registered.
type CheckDefinition struct {
	Dimension  Dimension
	Table      string // schema-qualified table name, e.g. "marts.fct_tracks"
	MetricName string
	Column     string // optional, table-level checks leave it empty
	Kind       MetricKind
	Threshold  float64
	Direction  Direction
	AllowNull  bool

	// KeyColumn identifies failing rows in capture tables. Defaults to the
	// check column when empty.
	KeyColumn string

	// SourceLevel marks checks that guard source-grade tables; their
	// capture tables are classified at ERROR severity by discovery.
	SourceLevel bool

	// Kind-specific parameters.
	Min            *float64 // range_ratio lower bound
	Max            *float64 // range_ratio upper bound
	AcceptedValues []string // accepted_values_ratio
	Predicate      string   // predicate_ratio: boolean SQL expression over the row
	RefTable       string   // relationship_ratio: referenced table
	RefColumn      string   // relationship_ratio: referenced column
}

// Identity returns the registry identity tuple (dimension, table, metric name).
func (c CheckDefinition) Identity() string {
	return fmt.Sprintf("%s/%s/%s", c.Dimension, c.Table, c.MetricName)
}

// Validate checks that the definition is internally consistent.
func (c CheckDefinition) Validate() error {
	if c.Table == "" {
		return ErrValidation("check %q: table is required", c.MetricName)
	}
	if c.MetricName == "" {
		return ErrValidation("check on %q: metric name is required", c.Table)
	}
	if c.Direction != HigherIsBetter && c.Direction != LowerIsBetter {
		return ErrValidation("check %q: invalid direction %q", c.MetricName, c.Direction)
	}
	switch c.Kind {
	case MetricNotNullRatio, MetricUniquenessRatio, MetricFreshnessHours:
		if c.Column == "" {
			return ErrValidation("check %q: %s requires a column", c.MetricName, c.Kind)
		}
	case MetricRangeRatio:
		if c.Column == "" {
			return ErrValidation("check %q: range_ratio requires a column", c.MetricName)
		}
		if c.Min == nil && c.Max == nil {
			return ErrValidation("check %q: range_ratio requires min and/or max", c.MetricName)
		}
	case MetricAcceptedValuesRatio:
		if c.Column == "" || len(c.AcceptedValues) == 0 {
			return ErrValidation("check %q: accepted_values_ratio requires a column and values", c.MetricName)
		}
	case MetricPredicateRatio:
		if c.Predicate == "" {
			return ErrValidation("check %q: predicate_ratio requires a predicate", c.MetricName)
		}
	case MetricRelationshipRatio:
		if c.Column == "" || c.RefTable == "" || c.RefColumn == "" {
			return ErrValidation("check %q: relationship_ratio requires column, ref_table and ref_column", c.MetricName)
		}
	default:
		return ErrValidation("check %q: unknown metric kind %q", c.MetricName, c.Kind)
	}
	return nil
}
