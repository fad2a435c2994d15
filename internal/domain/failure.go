package domain

// ViolationKind classifies why a row failed its check.
type ViolationKind string

const (
	ViolationNullValue    ViolationKind = "NULL_VALUE"
	ViolationBelowMin     ViolationKind = "BELOW_MIN"
	ViolationAboveMax     ViolationKind = "ABOVE_MAX"
	ViolationInvalidValue ViolationKind = "INVALID_VALUE"
	ViolationOrphanFK     ViolationKind = "ORPHAN_FK"
	ViolationDuplicateKey ViolationKind = "DUPLICATE_KEY"
	ViolationNegative     ViolationKind = "NEGATIVE_VALUE"
)

// FailureRecord is one row-level check violation: the row's identifying key,
// the offending column, its actual value, and the violation classification.
type FailureRecord struct {
	RecordKey   string
	Column      string
	ActualValue *string // nil when the offending value itself was NULL
	Violation   ViolationKind
}

// CaptureResult reports where failing rows were persisted and how many.
// RowCount always equals the violation count of the same run: capture tables
// are fully replaced, never appended to.
type CaptureResult struct {
	TableName string
	RowCount  int64
}

// Discovery check-type labels, inferred from capture table names.
const (
	CheckTypeNullCheck   = "NULL Check"
	CheckTypeUniqueness  = "Uniqueness"
	CheckTypeValidValues = "Valid Values"
	CheckTypeFKReference = "FK Reference"
	CheckTypeExpectation = "Expectation"
	CheckTypeOther       = "Other"
)

// Discovery severity labels.
const (
	SeverityError = "ERROR"
	SeverityWarn  = "WARN"
)

// DiscoveredFailure is one nonzero capture table found at query time.
type DiscoveredFailure struct {
	TableName string `json:"table_identifier"`
	CheckType string `json:"check_type"`
	Severity  string `json:"severity"`
	RowCount  int64  `json:"failing_row_count"`
}
