package metrics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerscope/ledgerscope/internal/domain"
)

// Trend classifies how a metric moved against the previous period
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// MetricValue is the result of a point computation: the metric over a
// range, plus movement relative to the immediately preceding range of
// equal length.
type MetricValue struct {
	Value         decimal.Decimal `json:"value"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Trend         Trend           `json:"trend"`
}

// stableBand is the |change_percent| below which movement reads as stable
var stableBand = decimal.NewFromInt(1)

// Summary computes a metric over the range and compares it against the
// preceding range of the same length (ending the day before r.Start).
func Summary(txns []domain.Transaction, kind Kind, r domain.TimeRange) MetricValue {
	current := Metric(FilterByRange(txns, r), kind)

	spanDays := int(domain.DateOnly(r.End).Sub(domain.DateOnly(r.Start)).Hours()/24) + 1
	prevEnd := domain.DateOnly(r.Start).AddDate(0, 0, -1)
	prevRange := domain.TimeRange{
		Start: prevEnd.AddDate(0, 0, -(spanDays - 1)),
		End:   prevEnd,
	}
	previous := Metric(FilterByRange(txns, prevRange), kind)

	change := current.Sub(previous)
	changePercent := decimal.Zero
	if !previous.IsZero() {
		changePercent = change.Div(previous.Abs()).Mul(decimal.NewFromInt(100))
	}

	trend := TrendStable
	switch {
	case changePercent.GreaterThan(stableBand):
		trend = TrendUp
	case changePercent.LessThan(stableBand.Neg()):
		trend = TrendDown
	}

	return MetricValue{
		Value:         current,
		Change:        change,
		ChangePercent: changePercent,
		Trend:         trend,
	}
}

// MonthRange returns the inclusive calendar range covering n whole months
// ending at the reference date (the range ends on now's calendar date).
func MonthRange(now time.Time, months int) domain.TimeRange {
	end := domain.DateOnly(now)
	return domain.TimeRange{
		Start: end.AddDate(0, -months, 0).AddDate(0, 0, 1),
		End:   end,
	}
}
