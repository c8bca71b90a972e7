package query

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/metrics"
)

// allGroup is the key used when the query has no GroupBy
const allGroup = "all"

// Row is one group's aggregated output
type Row struct {
	Group  string                     `json:"group"`
	Values map[string]decimal.Decimal `json:"values"`
}

// Engine executes declarative queries
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a new query engine
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("service", "query").Logger()}
}

// Execute runs the pipeline: filter -> group -> aggregate -> sort -> limit
func (e *Engine) Execute(txns []domain.Transaction, q Query) ([]Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	filtered, err := e.filter(txns, q)
	if err != nil {
		return nil, err
	}

	groups, order := e.group(filtered, q.GroupBy)

	rows := make([]Row, 0, len(groups))
	for _, key := range order {
		row := Row{Group: key, Values: make(map[string]decimal.Decimal, len(q.Aggregations))}
		for _, agg := range q.Aggregations {
			row.Values[agg.column()] = aggregate(groups[key], agg)
		}
		rows = append(rows, row)
	}

	if q.Sort != nil {
		if err := sortRows(rows, *q.Sort); err != nil {
			return nil, err
		}
	}

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	e.log.Debug().
		Int("input", len(txns)).
		Int("filtered", len(filtered)).
		Int("rows", len(rows)).
		Msg("Query executed")

	return rows, nil
}

func (e *Engine) filter(txns []domain.Transaction, q Query) ([]domain.Transaction, error) {
	if q.Range != nil {
		txns = metrics.FilterByRange(txns, *q.Range)
	}
	if len(q.Filters) == 0 {
		return txns, nil
	}

	out := make([]domain.Transaction, 0, len(txns))
	for _, t := range txns {
		keep := true
		for _, f := range q.Filters {
			ok, err := matches(t, f)
			if err != nil {
				return nil, err
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, t)
		}
	}
	return out, nil
}

// group partitions transactions by the grouping field, preserving first-
// seen order of keys. Without a grouping field everything lands in "all".
func (e *Engine) group(txns []domain.Transaction, groupBy Field) (map[string][]domain.Transaction, []string) {
	if groupBy == "" {
		return map[string][]domain.Transaction{allGroup: txns}, []string{allGroup}
	}

	accessor := stringAccessors[groupBy]
	groups := make(map[string][]domain.Transaction)
	order := make([]string, 0)
	for _, t := range txns {
		key := accessor(t)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
	}
	return groups, order
}

func aggregate(txns []domain.Transaction, agg Aggregation) decimal.Decimal {
	if agg.Metric != "" {
		return metrics.Metric(txns, agg.Metric)
	}
	if agg.Fn == AggCount {
		return decimal.NewFromInt(int64(len(txns)))
	}

	accessor := numericAccessors[agg.Field]
	values := make([]decimal.Decimal, len(txns))
	for i, t := range txns {
		values[i] = accessor(t)
	}
	return applyFn(values, agg.Fn)
}

func applyFn(values []decimal.Decimal, fn AggFn) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	switch fn {
	case AggSum:
		return decimalSum(values)
	case AggAverage:
		return decimalSum(values).Div(decimal.NewFromInt(int64(len(values))))
	case AggMedian:
		return decimalMedian(values)
	case AggMin:
		min := values[0]
		for _, v := range values[1:] {
			if v.LessThan(min) {
				min = v
			}
		}
		return min
	case AggMax:
		max := values[0]
		for _, v := range values[1:] {
			if v.GreaterThan(max) {
				max = v
			}
		}
		return max
	case AggStdDev:
		return decimalStdDev(values)
	}
	return decimal.Zero
}

func decimalSum(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum
}

func decimalMedian(values []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
}

// decimalStdDev computes the sample standard deviation; the square root
// passes through float64
func decimalStdDev(values []decimal.Decimal) decimal.Decimal {
	n := len(values)
	if n < 2 {
		return decimal.Zero
	}

	mean := decimalSum(values).Div(decimal.NewFromInt(int64(n)))
	sumSq := decimal.Zero
	for _, v := range values {
		d := v.Sub(mean)
		sumSq = sumSq.Add(d.Mul(d))
	}
	variance := sumSq.Div(decimal.NewFromInt(int64(n - 1)))
	return decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))
}

func sortRows(rows []Row, s Sort) error {
	if s.Column != "group" {
		if len(rows) > 0 {
			if _, ok := rows[0].Values[s.Column]; !ok {
				return fmt.Errorf("cannot sort by unknown column %q", s.Column)
			}
		}
	}

	desc := s.Order == SortDesc
	sort.SliceStable(rows, func(i, j int) bool {
		var less bool
		if s.Column == "group" {
			less = rows[i].Group < rows[j].Group
		} else {
			less = rows[i].Values[s.Column].LessThan(rows[j].Values[s.Column])
		}
		if desc {
			return !less && !equalRows(rows[i], rows[j], s.Column)
		}
		return less
	})
	return nil
}

func equalRows(a, b Row, column string) bool {
	if column == "group" {
		return a.Group == b.Group
	}
	return a.Values[column].Equal(b.Values[column])
}
