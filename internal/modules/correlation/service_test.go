package correlation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/pkg/logger"
)

func testService() *Service {
	return NewService(logger.New(logger.Config{Level: "error"}))
}

func monthTx(month int, amount float64, typ domain.TransactionType) domain.Transaction {
	return domain.Transaction{
		Date:   time.Date(2024, time.Month(month), 10, 0, 0, 0, 0, time.UTC),
		Amount: decimal.NewFromFloat(amount),
		Type:   typ,
	}
}

func TestCorrelate_SeriesWithItself(t *testing.T) {
	series := []float64{100, 200, 150, 300, 250, 400}

	result, err := Correlate(series, series, "income", "income_copy")

	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Correlation, 1e-9)
	assert.Equal(t, DirectionPositive, result.Direction)
	assert.Equal(t, StrengthStrong, result.Strength)
	assert.InDelta(t, 0.0, result.PValue, 1e-9, "Perfect correlation has p-value 0")
}

func TestCorrelate_TooFewMonthsSkipped(t *testing.T) {
	_, err := Correlate([]float64{1, 2}, []float64{2, 4}, "a", "b")

	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCorrelate_InverseSeries(t *testing.T) {
	x := []float64{10, 20, 30, 40, 50}
	y := []float64{50, 40, 30, 20, 10}

	result, err := Correlate(x, y, "expenses", "savings")

	require.NoError(t, err)
	assert.InDelta(t, -1.0, result.Correlation, 1e-9)
	assert.Equal(t, DirectionNegative, result.Direction)
	assert.Equal(t, StrengthStrong, result.Strength)
}

func TestCorrelate_ExactlyThreeMonthsHasNeutralPValue(t *testing.T) {
	result, err := Correlate([]float64{1, 2, 3}, []float64{2, 4, 6}, "a", "b")

	require.NoError(t, err)
	assert.Equal(t, 3, result.Months)
	// Fisher SE is undefined at n=3, so the p-value reports no evidence...
	// except for a mathematically perfect correlation, which short-circuits
	assert.Equal(t, 0.0, result.PValue)
}

func TestAnalyze_DefaultMetricSet(t *testing.T) {
	txns := []domain.Transaction{}
	for month := 1; month <= 6; month++ {
		txns = append(txns,
			monthTx(month, 3000+float64(month)*100, domain.TypeIncome),
			monthTx(month, 1000+float64(month)*50, domain.TypeExpense),
		)
	}

	results, err := testService().Analyze(txns, nil)

	require.NoError(t, err)
	// income/expenses, income/savings, expenses/savings
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, 6, r.Months)
		assert.False(t, r.Correlation > 1 || r.Correlation < -1, "r must stay in [-1,1]")
		assert.GreaterOrEqual(t, r.PValue, 0.0)
		assert.LessOrEqual(t, r.PValue, 1.0)
	}

	// Income and expenses both rise linearly with month -> strong positive
	first := results[0]
	assert.Equal(t, "income", first.Variable1)
	assert.Equal(t, "expenses", first.Variable2)
	assert.InDelta(t, 1.0, first.Correlation, 1e-6)
	assert.Equal(t, StrengthStrong, first.Strength)
}

func TestAnalyze_UnknownMetricRejected(t *testing.T) {
	txns := []domain.Transaction{monthTx(1, 100, domain.TypeIncome)}

	_, err := testService().Analyze(txns, []string{"income", "volatility"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "volatility")
}

func TestAnalyze_ThinHistorySkipsAllPairs(t *testing.T) {
	txns := []domain.Transaction{
		monthTx(1, 100, domain.TypeIncome),
		monthTx(2, 120, domain.TypeIncome),
	}

	results, err := testService().Analyze(txns, nil)

	require.NoError(t, err)
	assert.Empty(t, results, "Pairs under 3 overlapping months are omitted, not placeholders")
}
