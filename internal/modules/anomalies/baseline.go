package anomalies

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

const (
	// minObservations is the sample size below which a baseline is
	// degenerate (mean=0, stdDev=0, never flags).
	minObservations = 3
	// robustMinObservations is the sample size at which naive statistics
	// are replaced by IQR-filtered robust statistics.
	robustMinObservations = 10
)

// iqrMultiplier is the standard Tukey fence factor
var iqrMultiplier = decimal.NewFromFloat(1.5)

// computeBaseline derives a category baseline from the observed expense
// amounts within the lookback window.
//
// All currency arithmetic stays in decimal; only the final square root
// for the standard deviation passes through float64, since comparisons
// near the anomaly thresholds are sensitive to binary rounding.
func computeBaseline(category string, amounts []decimal.Decimal, maxFilteredFraction float64) Baseline {
	n := len(amounts)
	if n < minObservations {
		// Insufficient evidence: degenerate baseline that never flags
		return Baseline{Category: category, Mean: decimal.Zero, StdDev: decimal.Zero, Count: n}
	}

	used := amounts
	if n >= robustMinObservations {
		filtered := filterOutliersIQR(amounts)
		// Outlier removal is untrustworthy when it eats too much of the
		// sample; fall back to the unfiltered statistics in that case.
		kept := float64(len(filtered)) / float64(n)
		if kept >= 1-maxFilteredFraction {
			used = filtered
		}
	}

	mean, stdDev := meanStdDev(used)
	return Baseline{Category: category, Mean: mean, StdDev: stdDev, Count: len(used)}
}

// filterOutliersIQR discards values outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR].
// Quartiles use sorted-index selection: Q1 = sorted[floor(0.25n)],
// Q3 = sorted[floor(0.75n)].
func filterOutliersIQR(amounts []decimal.Decimal) []decimal.Decimal {
	n := len(amounts)
	sorted := make([]decimal.Decimal, n)
	copy(sorted, amounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	q1 := sorted[int(math.Floor(0.25*float64(n)))]
	q3Idx := int(math.Floor(0.75 * float64(n)))
	if q3Idx >= n {
		q3Idx = n - 1
	}
	q3 := sorted[q3Idx]

	iqr := q3.Sub(q1)
	lower := q1.Sub(iqr.Mul(iqrMultiplier))
	upper := q3.Add(iqr.Mul(iqrMultiplier))

	filtered := make([]decimal.Decimal, 0, n)
	for _, v := range amounts {
		if v.GreaterThanOrEqual(lower) && v.LessThanOrEqual(upper) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// meanStdDev computes the mean and sample standard deviation (n-1
// denominator) of the amounts. A single observation has zero spread.
func meanStdDev(amounts []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	n := len(amounts)
	if n == 0 {
		return decimal.Zero, decimal.Zero
	}

	sum := decimal.Zero
	for _, v := range amounts {
		sum = sum.Add(v)
	}
	mean := sum.Div(decimal.NewFromInt(int64(n)))

	if n < 2 {
		return mean, decimal.Zero
	}

	sumSq := decimal.Zero
	for _, v := range amounts {
		d := v.Sub(mean)
		sumSq = sumSq.Add(d.Mul(d))
	}
	variance := sumSq.Div(decimal.NewFromInt(int64(n - 1)))

	stdDev := decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))
	return mean, stdDev
}
