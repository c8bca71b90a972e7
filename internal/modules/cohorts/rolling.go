// Package cohorts provides rolling-window averages and cohort analysis
// (retention, value and frequency relative to each cohort's first-seen
// date).
package cohorts

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/metrics"
)

// Unit is the calendar unit a rolling window is measured in
type Unit string

const (
	UnitDay   Unit = "day"
	UnitMonth Unit = "month"
)

// Valid reports whether the unit is supported
func (u Unit) Valid() bool {
	return u == UnitDay || u == UnitMonth
}

// WindowPoint is one trailing window's per-unit average
type WindowPoint struct {
	Start time.Time       `json:"start"`
	End   time.Time       `json:"end"`
	Value decimal.Decimal `json:"value"` // metric over the window divided by window size
}

// RollingWindows computes count trailing windows of the given size ending
// at progressively earlier points from now, oldest first. Each value is
// the metric over [end - size, end] divided by the window size, a per-unit
// average. The result always has exactly count points.
func RollingWindows(txns []domain.Transaction, kind metrics.Kind, size int, unit Unit, count int, now time.Time) ([]WindowPoint, error) {
	if size < 1 {
		return nil, fmt.Errorf("window size must be at least 1, got %d", size)
	}
	if count < 1 {
		return nil, fmt.Errorf("window count must be at least 1, got %d", count)
	}
	if !unit.Valid() {
		return nil, fmt.Errorf("unknown window unit %q", unit)
	}

	divisor := decimal.NewFromInt(int64(size))
	points := make([]WindowPoint, 0, count)

	// Oldest window first: i = count-1 is the furthest back
	for i := count - 1; i >= 0; i-- {
		end := shift(domain.DateOnly(now), -i*size, unit)
		start := shift(end, -size, unit)

		window := domain.TimeRange{Start: start, End: end}
		value := metrics.Metric(metrics.FilterByRange(txns, window), kind)

		points = append(points, WindowPoint{
			Start: start,
			End:   end,
			Value: value.Div(divisor),
		})
	}

	return points, nil
}

func shift(t time.Time, amount int, unit Unit) time.Time {
	if unit == UnitMonth {
		return t.AddDate(0, amount, 0)
	}
	return t.AddDate(0, 0, amount)
}
