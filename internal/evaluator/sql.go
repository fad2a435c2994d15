// Package evaluator interprets check definitions into warehouse queries and
// executes them, producing per-check metric results.
package evaluator

import (
	"fmt"
	"strings"

	"trackdq/internal/domain"
	"trackdq/internal/warehouse"
)

// metricQuery builds the aggregate SQL for a check. Every query returns a
// single nullable DOUBLE: NULL whenever the denominator is zero, so an empty
// table surfaces as undetermined rather than 0 or 1.
func metricQuery(check domain.CheckDefinition) (string, []interface{}, error) {
	schema, table := warehouse.SplitTableName(check.Table)
	target := warehouse.QualifyTable(schema, table)
	col := warehouse.QuoteIdent(check.Column)

	switch check.Kind {
	case domain.MetricNotNullRatio:
		q := fmt.Sprintf(
			`SELECT CASE WHEN count(*) = 0 THEN NULL ELSE count(%s) * 1.0 / count(*) END FROM %s`,
			col, target)
		return q, nil, nil

	case domain.MetricRangeRatio:
		cond, args := rangeCondition(col, check.Min, check.Max)
		return ratioQuery(target, col, cond, check.AllowNull), args, nil

	case domain.MetricAcceptedValuesRatio:
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(check.AcceptedValues)), ", ")
		cond := fmt.Sprintf("%s IN (%s)", col, placeholders)
		args := make([]interface{}, len(check.AcceptedValues))
		for i, v := range check.AcceptedValues {
			args[i] = v
		}
		return ratioQuery(target, col, cond, check.AllowNull), args, nil

	case domain.MetricPredicateRatio:
		cond := "(" + check.Predicate + ")"
		if check.Column == "" {
			q := fmt.Sprintf(
				`SELECT CASE WHEN count(*) = 0 THEN NULL ELSE count(CASE WHEN %s THEN 1 END) * 1.0 / count(*) END FROM %s`,
				cond, target)
			return q, nil, nil
		}
		return ratioQuery(target, col, cond, check.AllowNull), nil, nil

	case domain.MetricRelationshipRatio:
		refSchema, refTable := warehouse.SplitTableName(check.RefTable)
		ref := warehouse.QualifyTable(refSchema, refTable)
		refCol := warehouse.QuoteIdent(check.RefColumn)
		cond := fmt.Sprintf("%s IN (SELECT %s FROM %s)", col, refCol, ref)
		return ratioQuery(target, col, cond, check.AllowNull), nil, nil

	case domain.MetricUniquenessRatio:
		denom := "count(*)"
		if check.AllowNull {
			denom = "count(" + col + ")"
		}
		q := fmt.Sprintf(
			`SELECT CASE WHEN %s = 0 THEN NULL ELSE count(DISTINCT %s) * 1.0 / %s END FROM %s`,
			denom, col, denom, target)
		return q, nil, nil

	case domain.MetricFreshnessHours:
		q := fmt.Sprintf(
			`SELECT CASE WHEN count(%s) = 0 THEN NULL ELSE epoch(now() - max(%s)) / 3600.0 END FROM %s`,
			col, col, target)
		return q, nil, nil
	}

	return "", nil, domain.ErrValidation("unknown metric kind %q", check.Kind)
}

// ratioQuery assembles matching/total for a column condition under the
// check's null policy: allow_null excludes nulls from both counts, otherwise
// a null counts in the denominator and never the numerator.
func ratioQuery(target, col, cond string, allowNull bool) string {
	denom := "count(*)"
	matching := fmt.Sprintf("count(CASE WHEN %s THEN 1 END)", cond)
	if allowNull {
		denom = "count(" + col + ")"
		matching = fmt.Sprintf("count(CASE WHEN %s IS NOT NULL AND %s THEN 1 END)", col, cond)
	}
	return fmt.Sprintf(
		`SELECT CASE WHEN %s = 0 THEN NULL ELSE %s * 1.0 / %s END FROM %s`,
		denom, matching, denom, target)
}

func rangeCondition(col string, min, max *float64) (string, []interface{}) {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("%s BETWEEN ? AND ?", col), []interface{}{*min, *max}
	case min != nil:
		return fmt.Sprintf("%s >= ?", col), []interface{}{*min}
	default:
		return fmt.Sprintf("%s <= ?", col), []interface{}{*max}
	}
}
