// Package discovery enumerates failure-capture tables at query time and
// classifies them by name, so adding or removing checks never requires a
// discovery code change.
package discovery

import (
	"context"
	"log/slog"
	"strings"

	"trackdq/internal/domain"
	"trackdq/internal/warehouse"
)

// Service inspects the dq_failures schema through the warehouse's table
// listing API rather than a static registry.
type Service struct {
	wh     *warehouse.Warehouse
	logger *slog.Logger
}

// New creates a discovery Service.
func New(wh *warehouse.Warehouse, logger *slog.Logger) *Service {
	return &Service{wh: wh, logger: logger}
}

// classifierRules is ordered; the first matching substring wins.
var classifierRules = []struct {
	substr    string
	checkType string
}{
	{"not_null", domain.CheckTypeNullCheck},
	{"unique", domain.CheckTypeUniqueness},
	{"accepted_values", domain.CheckTypeValidValues},
	{"relationship", domain.CheckTypeFKReference},
	{"expect", domain.CheckTypeExpectation},
}

// ClassifyTable infers the check type from a capture table name.
func ClassifyTable(name string) string {
	for _, rule := range classifierRules {
		if strings.Contains(name, rule.substr) {
			return rule.checkType
		}
	}
	return domain.CheckTypeOther
}

// SeverityOf infers severity: tables originating from source-level checks
// are ERROR, everything else WARN.
func SeverityOf(name string) string {
	if strings.HasPrefix(name, "source_") {
		return domain.SeverityError
	}
	return domain.SeverityWarn
}

// Discover returns every capture table currently holding failing rows.
// Tables with zero rows are suppressed: a check that passed this run leaves
// an empty table behind, and that emptiness must not read as a failure.
func (s *Service) Discover(ctx context.Context) ([]domain.DiscoveredFailure, error) {
	tables, err := s.wh.ListTables(ctx, warehouse.SchemaFailures)
	if err != nil {
		return nil, err
	}

	var found []domain.DiscoveredFailure
	for _, table := range tables {
		count, err := s.wh.RowCount(ctx, warehouse.SchemaFailures, table)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			continue
		}
		found = append(found, domain.DiscoveredFailure{
			TableName: table,
			CheckType: ClassifyTable(table),
			Severity:  SeverityOf(table),
			RowCount:  count,
		})
	}

	s.logger.Debug("failure discovery completed",
		"tables_inspected", len(tables),
		"tables_with_failures", len(found))

	return found, nil
}
