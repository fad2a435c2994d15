package evaluator

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"trackdq/internal/domain"
	"trackdq/internal/warehouse"
)

// HasRowCapture reports whether a check produces row-level failures.
// Freshness is a table-level property with no individual offending rows, and
// a table-level predicate has no column to identify offenders by.
func HasRowCapture(check domain.CheckDefinition) bool {
	if check.Kind == domain.MetricFreshnessHours {
		return false
	}
	if check.Kind == domain.MetricPredicateRatio && check.Column == "" {
		return false
	}
	return true
}

// FailingRows streams the rows currently violating a check as a lazy
// sequence of FailureRecords. The query runs when the sequence is consumed,
// so capture reads the same warehouse state it writes from.
func (e *Evaluator) FailingRows(ctx context.Context, check domain.CheckDefinition) iter.Seq2[domain.FailureRecord, error] {
	return func(yield func(domain.FailureRecord, error) bool) {
		if !HasRowCapture(check) {
			return
		}

		query, args, err := failingRowsQuery(check)
		if err != nil {
			yield(domain.FailureRecord{}, err)
			return
		}

		rows, err := e.wh.DB().QueryContext(ctx, query, args...)
		if err != nil {
			yield(domain.FailureRecord{}, fmt.Errorf("query failing rows for %s: %w", check.Identity(), err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				rec       domain.FailureRecord
				key       sql.NullString
				actual    sql.NullString
				violation string
			)
			if err := rows.Scan(&key, &actual, &violation); err != nil {
				yield(domain.FailureRecord{}, err)
				return
			}
			rec.RecordKey = key.String
			rec.Column = check.Column
			if actual.Valid {
				v := actual.String
				rec.ActualValue = &v
			}
			rec.Violation = domain.ViolationKind(violation)
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.FailureRecord{}, err)
		}
	}
}

// failingRowsQuery builds a SELECT of (record key, actual value, violation)
// for every row violating the check.
func failingRowsQuery(check domain.CheckDefinition) (string, []interface{}, error) {
	schema, table := warehouse.SplitTableName(check.Table)
	target := warehouse.QualifyTable(schema, table)
	col := warehouse.QuoteIdent(check.Column)

	keyName := check.KeyColumn
	if keyName == "" {
		keyName = check.Column
	}
	key := warehouse.QuoteIdent(keyName)

	sel := func(where, violation string) string {
		return fmt.Sprintf(
			`SELECT CAST(%s AS VARCHAR), CAST(%s AS VARCHAR), %s FROM %s WHERE %s`,
			key, col, violation, target, where)
	}

	switch check.Kind {
	case domain.MetricNotNullRatio:
		return sel(col+" IS NULL", quoteViolation(domain.ViolationNullValue)), nil, nil

	case domain.MetricRangeRatio:
		where, violation := rangeFailure(col, check.Min, check.Max, check.AllowNull)
		return sel(where, violation), nil, nil

	case domain.MetricAcceptedValuesRatio:
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(check.AcceptedValues)), ", ")
		where := fmt.Sprintf("%s IS NOT NULL AND %s NOT IN (%s)", col, col, placeholders)
		violation := quoteViolation(domain.ViolationInvalidValue)
		if !check.AllowNull {
			where = fmt.Sprintf("%s IS NULL OR (%s)", col, where)
			violation = fmt.Sprintf("CASE WHEN %s IS NULL THEN %s ELSE %s END",
				col, quoteViolation(domain.ViolationNullValue), quoteViolation(domain.ViolationInvalidValue))
		}
		args := make([]interface{}, len(check.AcceptedValues))
		for i, v := range check.AcceptedValues {
			args[i] = v
		}
		return sel(where, violation), args, nil

	case domain.MetricPredicateRatio:
		if check.Column == "" {
			return "", nil, domain.ErrValidation(
				"check %q: row capture for predicate_ratio requires a column", check.MetricName)
		}
		where := fmt.Sprintf("NOT (%s) OR (%s) IS NULL", check.Predicate, check.Predicate)
		if check.AllowNull {
			where = fmt.Sprintf("%s IS NOT NULL AND (%s)", col, where)
		}
		return sel(where, quoteViolation(domain.ViolationInvalidValue)), nil, nil

	case domain.MetricRelationshipRatio:
		refSchema, refTable := warehouse.SplitTableName(check.RefTable)
		ref := warehouse.QualifyTable(refSchema, refTable)
		refCol := warehouse.QuoteIdent(check.RefColumn)
		orphan := fmt.Sprintf("%s IS NOT NULL AND %s NOT IN (SELECT %s FROM %s)", col, col, refCol, ref)
		where := orphan
		violation := quoteViolation(domain.ViolationOrphanFK)
		if !check.AllowNull {
			where = fmt.Sprintf("%s IS NULL OR (%s)", col, orphan)
			violation = fmt.Sprintf("CASE WHEN %s IS NULL THEN %s ELSE %s END",
				col, quoteViolation(domain.ViolationNullValue), quoteViolation(domain.ViolationOrphanFK))
		}
		return sel(where, violation), nil, nil

	case domain.MetricUniquenessRatio:
		where := fmt.Sprintf("%s IN (SELECT %s FROM %s GROUP BY %s HAVING count(*) > 1)",
			col, col, target, col)
		return sel(where, quoteViolation(domain.ViolationDuplicateKey)), nil, nil
	}

	return "", nil, domain.ErrValidation("no row capture for metric kind %q", check.Kind)
}

// rangeFailure builds the WHERE clause and violation expression for range
// checks. Bounds are embedded as numeric literals since they come from the
// typed definition, never user input.
func rangeFailure(col string, min, max *float64, allowNull bool) (where, violation string) {
	var conds []string
	var cases []string
	if min != nil {
		lit := strconv.FormatFloat(*min, 'g', -1, 64)
		conds = append(conds, fmt.Sprintf("%s < %s", col, lit))
		below := quoteViolation(domain.ViolationBelowMin)
		if *min >= 0 {
			below = fmt.Sprintf("CASE WHEN %s < 0 THEN %s ELSE %s END",
				col, quoteViolation(domain.ViolationNegative), below)
		}
		cases = append(cases, fmt.Sprintf("WHEN %s < %s THEN %s", col, lit, below))
	}
	if max != nil {
		lit := strconv.FormatFloat(*max, 'g', -1, 64)
		conds = append(conds, fmt.Sprintf("%s > %s", col, lit))
		cases = append(cases, fmt.Sprintf("WHEN %s > %s THEN %s", col, lit, quoteViolation(domain.ViolationAboveMax)))
	}

	outOfRange := strings.Join(conds, " OR ")
	if allowNull {
		where = fmt.Sprintf("%s IS NOT NULL AND (%s)", col, outOfRange)
		violation = "CASE " + strings.Join(cases, " ") + " END"
		return where, violation
	}

	where = fmt.Sprintf("%s IS NULL OR %s", col, outOfRange)
	violation = fmt.Sprintf("CASE WHEN %s IS NULL THEN %s %s END",
		col, quoteViolation(domain.ViolationNullValue), strings.Join(cases, " "))
	return where, violation
}

func quoteViolation(v domain.ViolationKind) string {
	return "'" + string(v) + "'"
}
