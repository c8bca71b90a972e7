package anomalies

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(values ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func TestComputeBaseline_DegenerateBelowThreeObservations(t *testing.T) {
	b := computeBaseline("Dining", dec(50, 60), 0.5)

	assert.True(t, b.Degenerate())
	assert.True(t, b.Mean.IsZero(), "Degenerate baseline reports mean=0")
	assert.True(t, b.StdDev.IsZero(), "Degenerate baseline reports stdDev=0")
	assert.Equal(t, 2, b.Count)
}

func TestComputeBaseline_SampleStdDevForSmallSamples(t *testing.T) {
	// 3-9 observations use naive mean and sample (n-1) stddev
	b := computeBaseline("Dining", dec(10, 20, 30), 0.5)

	require.False(t, b.Degenerate())
	assert.True(t, b.Mean.Equal(decimal.NewFromInt(20)))
	assert.InDelta(t, 10.0, b.StdDev.InexactFloat64(), 1e-9, "Sample stddev of [10,20,30] is 10")
	assert.Equal(t, 3, b.Count)
}

func TestComputeBaseline_RobustFiltersOutlier(t *testing.T) {
	// n=10 triggers IQR filtering; the 1000 spike sits far outside the fences
	b := computeBaseline("Utilities", dec(10, 10, 10, 10, 10, 10, 10, 10, 10, 1000), 0.5)

	assert.True(t, b.Mean.Equal(decimal.NewFromInt(10)), "Filtered mean should exclude the outlier")
	assert.True(t, b.StdDev.IsZero())
	assert.Equal(t, 9, b.Count, "Count reflects the observations actually used after filtering")
}

func TestComputeBaseline_FallbackWhenFilteringEatsSample(t *testing.T) {
	// Zero IQR collapses the fences to a single point, discarding both tails
	// (40% of the sample). With the allowed drop tightened below that, the
	// naive statistics must be kept.
	values := dec(0, 0, 10, 10, 10, 10, 10, 10, 1000, 1000)

	b := computeBaseline("Travel", values, 0.3)

	assert.Equal(t, 10, b.Count, "Fallback keeps every observation")
	assert.InDelta(t, 206.0, b.Mean.InexactFloat64(), 1e-9)
}

func TestComputeBaseline_StdDevNeverNegative(t *testing.T) {
	cases := [][]decimal.Decimal{
		dec(5, 5, 5),
		dec(1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
		dec(0, 0, 0, 0),
	}
	for _, amounts := range cases {
		b := computeBaseline("x", amounts, 0.5)
		assert.True(t, b.StdDev.GreaterThanOrEqual(decimal.Zero), "stdDev must be >= 0")
	}
}
