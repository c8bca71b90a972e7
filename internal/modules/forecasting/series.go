package forecasting

import (
	"fmt"
	"sort"
	"time"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/metrics"
)

// BuildSeries aggregates transactions into an ordered, gap-free period
// series of the chosen metric. Periods between the first and last observed
// transaction with no activity carry a zero value, so period indices stay
// uniform for regression and autocorrelation.
func BuildSeries(txns []domain.Transaction, kind metrics.Kind, granularity Granularity) []PeriodValue {
	if len(txns) == 0 {
		return nil
	}

	grouped := make(map[time.Time][]domain.Transaction)
	for _, t := range txns {
		start := periodStart(t.Date, granularity)
		grouped[start] = append(grouped[start], t)
	}

	first, last := periodSpan(grouped)

	series := make([]PeriodValue, 0, len(grouped))
	for p := first; !p.After(last); p = nextPeriod(p, granularity) {
		value := 0.0
		if bucket, ok := grouped[p]; ok {
			value = metrics.Metric(bucket, kind).InexactFloat64()
		}
		series = append(series, PeriodValue{
			Start: p,
			Label: periodLabel(p, granularity),
			Value: value,
		})
	}
	return series
}

func periodStart(t time.Time, granularity Granularity) time.Time {
	d := domain.DateOnly(t)
	if granularity == GranularityWeek {
		// ISO weeks start on Monday
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	}
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func nextPeriod(p time.Time, granularity Granularity) time.Time {
	if granularity == GranularityWeek {
		return p.AddDate(0, 0, 7)
	}
	return p.AddDate(0, 1, 0)
}

func periodLabel(p time.Time, granularity Granularity) string {
	if granularity == GranularityWeek {
		year, week := p.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return domain.MonthKey(p)
}

func periodSpan(grouped map[time.Time][]domain.Transaction) (first, last time.Time) {
	keys := make([]time.Time, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys[0], keys[len(keys)-1]
}

// values extracts the value column of a series
func values(series []PeriodValue) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Value
	}
	return out
}

// indices returns 0..n-1 as floats, the regression x axis
func indices(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
