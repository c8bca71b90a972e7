package anomalies

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/pkg/logger"
)

func testDetector(cfg DetectorConfig) *Detector {
	return NewDetector(cfg, logger.New(logger.Config{Level: "error"}))
}

func expense(date time.Time, amount float64, category string) domain.Transaction {
	return domain.Transaction{
		Date:     date,
		Amount:   decimal.NewFromFloat(amount),
		Type:     domain.TypeExpense,
		Category: category,
	}
}

func TestAdaptiveThreshold_MonotonicallyNonIncreasing(t *testing.T) {
	assert.Equal(t, 3.0, adaptiveThreshold(4))
	assert.Equal(t, 2.5, adaptiveThreshold(8))
	assert.Equal(t, 2.0, adaptiveThreshold(15))
	assert.Equal(t, 1.8, adaptiveThreshold(25))

	assert.GreaterOrEqual(t, adaptiveThreshold(4), adaptiveThreshold(8))
	assert.GreaterOrEqual(t, adaptiveThreshold(8), adaptiveThreshold(15))
	assert.GreaterOrEqual(t, adaptiveThreshold(15), adaptiveThreshold(25))
}

func TestDetect_NeverFlagsBelowMean(t *testing.T) {
	now := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{}
	// Baseline around 100 with some spread
	for i := 1; i <= 5; i++ {
		txns = append(txns, expense(now.AddDate(0, 0, -30-i), 100+float64(i)*10, "Dining"))
	}
	// Recent transaction well below the mean
	txns = append(txns, expense(now.AddDate(0, 0, -2), 5, "Dining"))

	got := testDetector(DefaultDetectorConfig()).Detect(txns, now)

	assert.Empty(t, got, "Transactions below the category mean must never flag")
}

func TestDetect_DegenerateBaselineProducesNoAnomalies(t *testing.T) {
	now := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{
		expense(now.AddDate(0, 0, -40), 50, "Pets"),
		expense(now.AddDate(0, 0, -35), 52, "Pets"),
		// Only two historical observations; this spike has no baseline to beat
		expense(now.AddDate(0, 0, -3), 5000, "Pets"),
	}

	got := testDetector(DefaultDetectorConfig()).Detect(txns, now)

	assert.Empty(t, got, "Fewer than 3 observations is a no-signal outcome, not an anomaly")
}

func TestDetect_AbsoluteFloorSuppressesTinyDeviations(t *testing.T) {
	now := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{}
	// Tight baseline around 10: the 25 charge clears the z threshold
	// (z ~ 2.67 with itself in the sample) but not the $20 floor
	for i := 1; i <= 8; i++ {
		txns = append(txns, expense(now.AddDate(0, 0, -30-i), 10, "Coffee"))
	}
	txns = append(txns, expense(now.AddDate(0, 0, -1), 25, "Coffee"))

	got := testDetector(DefaultDetectorConfig()).Detect(txns, now)

	assert.Empty(t, got, "Deviations inside the absolute floor must not flag regardless of z")
}

func TestDetect_UtilitiesSpikeScenario(t *testing.T) {
	// 12 monthly Utilities totals with one 650 spike. Robust statistics
	// exclude the spike, so the baseline mean stays near 100 and a later
	// 300 charge lands roughly 200% above it.
	now := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	monthly := []float64{100, 102, 98, 101, 99, 650, 103, 97, 100, 101, 99, 102}

	txns := []domain.Transaction{}
	for i, amount := range monthly {
		txns = append(txns, expense(time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC), amount, "Utilities"))
	}
	suspect := expense(time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC), 300, "Utilities")
	txns = append(txns, suspect)

	cfg := DefaultDetectorConfig()
	cfg.LookbackMonths = 12
	detector := testDetector(cfg)

	baseline := detector.Baselines(txns, now)["Utilities"]
	assert.InDelta(t, 100, baseline.Mean.InexactFloat64(), 1.0, "Robust baseline excludes the 650 spike")

	got := detector.Detect(txns, now)

	require.Len(t, got, 1)
	assert.Equal(t, SeverityHigh, got[0].Severity)
	assert.Equal(t, suspect.Date, got[0].Transaction.Date)
	assert.InDelta(t, 200, got[0].PercentAbove, 5, "300 against a ~100 mean is ~200% above")
	assert.NotEmpty(t, got[0].ID)
}

func TestDetect_SortsBySeverityDescending(t *testing.T) {
	now := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{}

	// The scored transaction also sits inside the lookback window, so each
	// baseline below includes its own spike (n=9, naive statistics).
	// Groceries: 8x100 + 200 -> z ~ 2.67, percent above ~ 80 -> medium.
	// Rent: 8x~800 + 1500 -> z ~ 2.67 but amount > 1000 -> high.
	for i := 1; i <= 8; i++ {
		txns = append(txns, expense(now.AddDate(0, 0, -30-i), 100, "Groceries"))
	}
	for i := 1; i <= 8; i++ {
		txns = append(txns, expense(now.AddDate(0, 0, -30-i), 800+float64(i%5), "Rent"))
	}

	medium := expense(now.AddDate(0, 0, -4), 200, "Groceries")
	high := expense(now.AddDate(0, 0, -2), 1500, "Rent")
	txns = append(txns, medium, high)

	got := testDetector(DefaultDetectorConfig()).Detect(txns, now)

	require.Len(t, got, 2)
	assert.Equal(t, SeverityHigh, got[0].Severity, "High severity sorts first")
	assert.True(t, got[0].Transaction.Amount.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, SeverityMedium, got[1].Severity)
}

func TestDetect_IgnoresIncomeTransactions(t *testing.T) {
	now := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{}
	for i := 1; i <= 5; i++ {
		txns = append(txns, domain.Transaction{
			Date:     now.AddDate(0, 0, -30-i),
			Amount:   decimal.NewFromInt(100),
			Type:     domain.TypeIncome,
			Category: "Salary",
		})
	}
	txns = append(txns, domain.Transaction{
		Date:     now.AddDate(0, 0, -2),
		Amount:   decimal.NewFromInt(99999),
		Type:     domain.TypeIncome,
		Category: "Salary",
	})

	got := testDetector(DefaultDetectorConfig()).Detect(txns, now)

	assert.Empty(t, got, "Only expense transactions participate in spending baselines")
}
