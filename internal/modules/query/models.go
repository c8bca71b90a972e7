// Package query executes declarative filter/group/aggregate/sort/limit
// pipelines over an in-memory transaction batch. It is a minimal
// embeddable planner: single table, single pass, no joins.
package query

import (
	"errors"
	"fmt"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/metrics"
)

// ErrUnknownField is returned when a query references a field outside the
// closed accessor mapping. Unknown names fail fast at validation instead
// of silently reading zero.
var ErrUnknownField = errors.New("query: unknown field")

// Op is a filter operator
type Op string

const (
	OpEquals   Op = "equals"
	OpContains Op = "contains" // case-insensitive substring
	OpGreater  Op = "greater"
	OpLess     Op = "less"
	OpBetween  Op = "between" // inclusive two-element range
	OpIn       Op = "in"      // membership in a fixed list
	OpCustom   Op = "custom"  // caller-supplied predicate
)

// Filter is one conjunct of the query's WHERE clause
type Filter struct {
	Field     Field                         `json:"field"`
	Op        Op                            `json:"op"`
	Value     any                           `json:"value,omitempty"`  // equals/contains/greater/less
	Values    []any                         `json:"values,omitempty"` // between/in
	Predicate func(domain.Transaction) bool `json:"-"`                // custom only
}

// AggFn is a generic aggregation over a numeric field
type AggFn string

const (
	AggSum     AggFn = "sum"
	AggAverage AggFn = "average"
	AggMedian  AggFn = "median"
	AggMin     AggFn = "min"
	AggMax     AggFn = "max"
	AggCount   AggFn = "count"
	AggStdDev  AggFn = "stddev"
)

// Aggregation requests one output column per group: either a metric kind
// computed through the metrics primitives, or a generic function over a
// numeric field.
type Aggregation struct {
	Name   string       `json:"name,omitempty"` // output column; defaults to metric/fn name
	Metric metrics.Kind `json:"metric,omitempty"`
	Fn     AggFn        `json:"fn,omitempty"`
	Field  Field        `json:"field,omitempty"` // numeric field for Fn
}

// column resolves the output column name
func (a Aggregation) column() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Metric != "" {
		return string(a.Metric)
	}
	return string(a.Fn)
}

// SortOrder directs result ordering
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Sort orders result rows by a named output column (or "group")
type Sort struct {
	Column string    `json:"column"`
	Order  SortOrder `json:"order"`
}

// Query is a declarative description of one analytics pass
type Query struct {
	Filters      []Filter          `json:"filters,omitempty"`
	Range        *domain.TimeRange `json:"range,omitempty"`
	GroupBy      Field             `json:"group_by,omitempty"` // empty = single "all" group
	Aggregations []Aggregation     `json:"aggregations"`
	Sort         *Sort             `json:"sort,omitempty"`
	Limit        int               `json:"limit,omitempty"` // 0 = all rows
}

// Validate checks the query against the closed field mapping and operator
// set so malformed queries fail before execution.
func (q Query) Validate() error {
	for _, f := range q.Filters {
		if err := f.validate(); err != nil {
			return err
		}
	}

	if q.GroupBy != "" {
		if _, ok := stringAccessors[q.GroupBy]; !ok {
			return fmt.Errorf("%w: cannot group by %q", ErrUnknownField, q.GroupBy)
		}
	}

	if len(q.Aggregations) == 0 {
		return fmt.Errorf("query requires at least one aggregation")
	}
	for _, a := range q.Aggregations {
		if err := a.validate(); err != nil {
			return err
		}
	}

	if q.Range != nil && !q.Range.Valid() {
		return fmt.Errorf("query range start must not be after end")
	}
	if q.Limit < 0 {
		return fmt.Errorf("query limit must not be negative, got %d", q.Limit)
	}
	return nil
}

func (f Filter) validate() error {
	if f.Op == OpCustom {
		if f.Predicate == nil {
			return fmt.Errorf("custom filter requires a predicate")
		}
		return nil
	}

	if !knownField(f.Field) {
		return fmt.Errorf("%w: %q", ErrUnknownField, f.Field)
	}

	switch f.Op {
	case OpEquals, OpContains, OpGreater, OpLess:
		if f.Value == nil {
			return fmt.Errorf("filter %s on %q requires a value", f.Op, f.Field)
		}
	case OpBetween:
		if len(f.Values) != 2 {
			return fmt.Errorf("between filter on %q requires exactly 2 values, got %d", f.Field, len(f.Values))
		}
	case OpIn:
		if len(f.Values) == 0 {
			return fmt.Errorf("in filter on %q requires at least one value", f.Field)
		}
	default:
		return fmt.Errorf("unknown filter operator %q", f.Op)
	}
	return nil
}

func (a Aggregation) validate() error {
	if a.Metric != "" {
		if !a.Metric.Valid() {
			return fmt.Errorf("unknown metric %q", a.Metric)
		}
		return nil
	}

	switch a.Fn {
	case AggSum, AggAverage, AggMedian, AggMin, AggMax, AggCount, AggStdDev:
	default:
		return fmt.Errorf("unknown aggregation %q", a.Fn)
	}
	if a.Fn != AggCount {
		if _, ok := numericAccessors[a.Field]; !ok {
			return fmt.Errorf("%w: %q is not numeric", ErrUnknownField, a.Field)
		}
	}
	return nil
}
