package query

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerscope/ledgerscope/internal/domain"
)

// matches evaluates a single filter against a transaction. Filters are
// AND-combined by the executor. Queries are validated before execution,
// so unknown fields cannot reach this point; value coercion can still
// fail on mistyped literals.
func matches(t domain.Transaction, f Filter) (bool, error) {
	if f.Op == OpCustom {
		return f.Predicate(t), nil
	}

	if get, ok := numericAccessors[f.Field]; ok {
		return matchNumeric(get(t), f)
	}
	return matchString(stringAccessors[f.Field](t), f)
}

func matchNumeric(actual decimal.Decimal, f Filter) (bool, error) {
	switch f.Op {
	case OpEquals:
		want, err := toDecimal(f.Value)
		if err != nil {
			return false, err
		}
		return actual.Equal(want), nil
	case OpGreater:
		want, err := toDecimal(f.Value)
		if err != nil {
			return false, err
		}
		return actual.GreaterThan(want), nil
	case OpLess:
		want, err := toDecimal(f.Value)
		if err != nil {
			return false, err
		}
		return actual.LessThan(want), nil
	case OpBetween:
		lo, err := toDecimal(f.Values[0])
		if err != nil {
			return false, err
		}
		hi, err := toDecimal(f.Values[1])
		if err != nil {
			return false, err
		}
		return actual.GreaterThanOrEqual(lo) && actual.LessThanOrEqual(hi), nil
	case OpIn:
		for _, v := range f.Values {
			want, err := toDecimal(v)
			if err != nil {
				return false, err
			}
			if actual.Equal(want) {
				return true, nil
			}
		}
		return false, nil
	case OpContains:
		return false, fmt.Errorf("contains is not defined for numeric field %q", f.Field)
	}
	return false, fmt.Errorf("unknown filter operator %q", f.Op)
}

func matchString(actual string, f Filter) (bool, error) {
	switch f.Op {
	case OpEquals:
		return actual == toString(f.Value), nil
	case OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(toString(f.Value))), nil
	case OpGreater:
		return actual > toString(f.Value), nil
	case OpLess:
		return actual < toString(f.Value), nil
	case OpBetween:
		return actual >= toString(f.Values[0]) && actual <= toString(f.Values[1]), nil
	case OpIn:
		for _, v := range f.Values {
			if actual == toString(v) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown filter operator %q", f.Op)
}

// toDecimal coerces a filter literal to decimal. JSON decoding hands us
// float64; typed callers may pass decimals, ints or numeric strings.
func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case string:
		return decimal.NewFromString(val)
	}
	return decimal.Zero, fmt.Errorf("cannot use %T as a numeric filter value", v)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
