package types

import (
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm/clause"
)

type CommonFilterOperator string

const (
	CommonFilterOperatorEq        CommonFilterOperator = "eq"
	CommonFilterOperatorNotEq     CommonFilterOperator = "not_eq"
	CommonFilterOperatorLt        CommonFilterOperator = "lt"
	CommonFilterOperatorLte       CommonFilterOperator = "lte"
	CommonFilterOperatorGt        CommonFilterOperator = "gt"
	CommonFilterOperatorGte       CommonFilterOperator = "gte"
	CommonFilterOperatorDateRange CommonFilterOperator = "date_range"
	CommonFilterOperatorRange     CommonFilterOperator = "range"
	CommonFilterOperatorIn        CommonFilterOperator = "in"
)

const filterDateLayout = "2006-01-02"

// filterFieldPattern accepts plain column names only. Field is rendered
// into SQL as an identifier, never as a bound value.
var filterFieldPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// CommonFilter is one condition of a dashboard query.
//
// date_range takes two YYYY-MM-DD values and matches whole days, the
// second one inclusive.
type CommonFilter struct {
	Field    string               `json:"field"`
	Operator CommonFilterOperator `json:"operator"`
	Values   []any                `json:"values"`
}

// Validate rejects unknown operators, unsafe field names and malformed
// date ranges.
func (f *CommonFilter) Validate() error {
	if !filterFieldPattern.MatchString(f.Field) {
		return fmt.Errorf("invalid filter field %q", f.Field)
	}
	switch f.Operator {
	case CommonFilterOperatorEq, CommonFilterOperatorNotEq,
		CommonFilterOperatorLt, CommonFilterOperatorLte,
		CommonFilterOperatorGt, CommonFilterOperatorGte,
		CommonFilterOperatorIn:
		if len(f.Values) == 0 {
			return fmt.Errorf("filter %s: values required", f.Field)
		}
	case CommonFilterOperatorRange:
		if len(f.Values) < 2 {
			return fmt.Errorf("filter %s: range needs two values", f.Field)
		}
	case CommonFilterOperatorDateRange:
		if _, _, err := f.dateRange(); err != nil {
			return fmt.Errorf("filter %s: %w", f.Field, err)
		}
	default:
		return fmt.Errorf("filter %s: unknown operator %q", f.Field, f.Operator)
	}
	return nil
}

func (f *CommonFilter) dateRange() (time.Time, time.Time, error) {
	if len(f.Values) < 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("date_range needs two dates")
	}
	from, err := time.Parse(filterDateLayout, fmt.Sprint(f.Values[0]))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse(filterDateLayout, fmt.Sprint(f.Values[1]))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("date_range ends before it starts")
	}
	return from, to.AddDate(0, 0, 1), nil
}

// Build constructs a GORM expression. Callers run Validate first; an
// invalid filter renders as always-true.
func (f *CommonFilter) Build(builder clause.Builder) {
	if f.Validate() != nil {
		builder.WriteString("1=1")
		return
	}
	value := f.Values[0]

	switch f.Operator {
	case CommonFilterOperatorEq:
		clause.Eq{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorNotEq:
		clause.Neq{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorLt:
		clause.Lt{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorLte:
		clause.Lte{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorGt:
		clause.Gt{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorGte:
		clause.Gte{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorRange:
		clause.And(clause.Gte{Column: f.Field, Value: f.Values[0]}, clause.Lte{Column: f.Field, Value: f.Values[1]}).Build(builder)
	case CommonFilterOperatorDateRange:
		from, until, _ := f.dateRange()
		clause.And(clause.Gte{Column: f.Field, Value: from}, clause.Lt{Column: f.Field, Value: until}).Build(builder)
	case CommonFilterOperatorIn:
		clause.IN{Column: f.Field, Values: f.Values}.Build(builder)
	}
}
