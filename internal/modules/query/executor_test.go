package query

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/metrics"
	"github.com/ledgerscope/ledgerscope/pkg/logger"
)

func testEngine() *Engine {
	return NewEngine(logger.New(logger.Config{Level: "error"}))
}

func sampleBatch() []domain.Transaction {
	mk := func(id, date string, amount float64, typ domain.TransactionType, category, account string) domain.Transaction {
		d, _ := time.Parse("2006-01-02", date)
		return domain.Transaction{
			ID: id, Date: d, Amount: decimal.NewFromFloat(amount),
			Type: typ, Category: category, AccountID: account,
		}
	}
	return []domain.Transaction{
		mk("t1", "2024-01-05", 3000, domain.TypeIncome, "Salary", "checking"),
		mk("t2", "2024-01-12", 120, domain.TypeExpense, "Groceries", "checking"),
		mk("t3", "2024-01-20", 80, domain.TypeExpense, "Groceries", "credit"),
		mk("t4", "2024-02-03", 3000, domain.TypeIncome, "Salary", "checking"),
		mk("t5", "2024-02-14", 250, domain.TypeExpense, "Dining", "credit"),
		mk("t6", "2024-02-21", 95, domain.TypeExpense, "Groceries", "checking"),
	}
}

func TestExecute_GroupByCategoryWithExpenseMetric(t *testing.T) {
	q := Query{
		Filters:      []Filter{{Field: FieldType, Op: OpEquals, Value: "expense"}},
		GroupBy:      FieldCategory,
		Aggregations: []Aggregation{{Metric: metrics.KindExpenses}},
		Sort:         &Sort{Column: "expenses", Order: SortDesc},
	}

	rows, err := testEngine().Execute(sampleBatch(), q)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Groceries", rows[0].Group)
	assert.True(t, rows[0].Values["expenses"].Equal(decimal.NewFromInt(295)))
	assert.Equal(t, "Dining", rows[1].Group)
}

func TestExecute_NoGroupByUsesAllGroup(t *testing.T) {
	q := Query{
		Aggregations: []Aggregation{{Metric: metrics.KindNet}},
	}

	rows, err := testEngine().Execute(sampleBatch(), q)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "all", rows[0].Group)
	assert.True(t, rows[0].Values["net"].Equal(decimal.NewFromInt(5455)), "6000 income - 545 expenses")
}

func TestExecute_ContainsIsCaseInsensitive(t *testing.T) {
	q := Query{
		Filters:      []Filter{{Field: FieldCategory, Op: OpContains, Value: "groc"}},
		Aggregations: []Aggregation{{Fn: AggCount}},
	}

	rows, err := testEngine().Execute(sampleBatch(), q)

	require.NoError(t, err)
	assert.True(t, rows[0].Values["count"].Equal(decimal.NewFromInt(3)))
}

func TestExecute_BetweenOnAmountIsInclusive(t *testing.T) {
	q := Query{
		Filters:      []Filter{{Field: FieldAmount, Op: OpBetween, Values: []any{95.0, 250.0}}},
		Aggregations: []Aggregation{{Fn: AggCount}},
	}

	rows, err := testEngine().Execute(sampleBatch(), q)

	require.NoError(t, err)
	assert.True(t, rows[0].Values["count"].Equal(decimal.NewFromInt(3)), "120, 250 and 95 fall inside [95, 250]")
}

func TestExecute_InFilterOnAccount(t *testing.T) {
	q := Query{
		Filters:      []Filter{{Field: FieldAccountID, Op: OpIn, Values: []any{"credit"}}},
		Aggregations: []Aggregation{{Fn: AggSum, Field: FieldAmount}},
	}

	rows, err := testEngine().Execute(sampleBatch(), q)

	require.NoError(t, err)
	assert.True(t, rows[0].Values["sum"].Equal(decimal.NewFromInt(330)))
}

func TestExecute_CustomPredicate(t *testing.T) {
	q := Query{
		Filters: []Filter{{Op: OpCustom, Predicate: func(t domain.Transaction) bool {
			return t.Date.Month() == time.February
		}}},
		Aggregations: []Aggregation{{Fn: AggCount}},
	}

	rows, err := testEngine().Execute(sampleBatch(), q)

	require.NoError(t, err)
	assert.True(t, rows[0].Values["count"].Equal(decimal.NewFromInt(3)))
}

func TestExecute_TimeRangeRestriction(t *testing.T) {
	q := Query{
		Range: &domain.TimeRange{
			Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		Aggregations: []Aggregation{{Metric: metrics.KindExpenses}},
	}

	rows, err := testEngine().Execute(sampleBatch(), q)

	require.NoError(t, err)
	assert.True(t, rows[0].Values["expenses"].Equal(decimal.NewFromInt(345)))
}

func TestExecute_GenericAggregations(t *testing.T) {
	q := Query{
		Filters: []Filter{{Field: FieldType, Op: OpEquals, Value: "expense"}},
		Aggregations: []Aggregation{
			{Fn: AggMedian, Field: FieldAmount},
			{Fn: AggMin, Field: FieldAmount},
			{Fn: AggMax, Field: FieldAmount},
			{Fn: AggAverage, Field: FieldAmount, Name: "avg_amount"},
		},
	}

	rows, err := testEngine().Execute(sampleBatch(), q)

	require.NoError(t, err)
	row := rows[0]
	// Expense amounts: 120, 80, 250, 95 -> sorted 80, 95, 120, 250
	assert.True(t, row.Values["median"].Equal(decimal.NewFromFloat(107.5)))
	assert.True(t, row.Values["min"].Equal(decimal.NewFromInt(80)))
	assert.True(t, row.Values["max"].Equal(decimal.NewFromInt(250)))
	assert.True(t, row.Values["avg_amount"].Equal(decimal.NewFromFloat(136.25)))
}

func TestExecute_SortAscAndLimit(t *testing.T) {
	q := Query{
		GroupBy:      FieldMonth,
		Aggregations: []Aggregation{{Metric: metrics.KindExpenses}},
		Sort:         &Sort{Column: "group", Order: SortAsc},
		Limit:        1,
	}

	rows, err := testEngine().Execute(sampleBatch(), q)

	require.NoError(t, err)
	require.Len(t, rows, 1, "Limit truncates after sorting")
	assert.Equal(t, "2024-01", rows[0].Group)
}

func TestValidate_UnknownFieldFailsFast(t *testing.T) {
	q := Query{
		Filters:      []Filter{{Field: Field("merchant"), Op: OpEquals, Value: "x"}},
		Aggregations: []Aggregation{{Fn: AggCount}},
	}

	_, err := testEngine().Execute(sampleBatch(), q)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestValidate_BetweenArity(t *testing.T) {
	q := Query{
		Filters:      []Filter{{Field: FieldAmount, Op: OpBetween, Values: []any{1.0}}},
		Aggregations: []Aggregation{{Fn: AggCount}},
	}

	_, err := testEngine().Execute(sampleBatch(), q)

	assert.Error(t, err, "between requires exactly two values")
}

func TestValidate_RequiresAggregation(t *testing.T) {
	_, err := testEngine().Execute(sampleBatch(), Query{})

	assert.Error(t, err)
}

func TestExecute_StdDevAggregation(t *testing.T) {
	q := Query{
		Filters:      []Filter{{Field: FieldCategory, Op: OpEquals, Value: "Groceries"}},
		Aggregations: []Aggregation{{Fn: AggStdDev, Field: FieldAmount}},
	}

	rows, err := testEngine().Execute(sampleBatch(), q)

	require.NoError(t, err)
	// Sample stddev of 120, 80, 95
	assert.InDelta(t, 20.207, rows[0].Values["stddev"].InexactFloat64(), 1e-3)
}
