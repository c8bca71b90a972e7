// Package anomalies flags transactions that deviate from their category's
// historical spending baseline. Baselines are recomputed from the input
// batch on every call; the detector carries no state between calls.
package anomalies

import (
	"github.com/shopspring/decimal"

	"github.com/ledgerscope/ledgerscope/internal/domain"
)

// Severity classifies how far an anomaly deviates from its baseline
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// rank orders severities for sorting (higher = more severe)
func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Baseline holds the expected spending statistics for one category.
// Count is the number of observations actually used to compute Mean and
// StdDev - after outlier filtering when robust mode applied.
type Baseline struct {
	Category string          `json:"category"`
	Mean     decimal.Decimal `json:"mean"`
	StdDev   decimal.Decimal `json:"std_dev"`
	Count    int             `json:"count"`
}

// Degenerate reports whether the baseline has too few observations to
// support anomaly scoring. Degenerate baselines never produce anomalies;
// this is a documented "no signal" outcome, not an error.
func (b Baseline) Degenerate() bool {
	return b.Count < minObservations
}

// Anomaly is a transaction flagged against its category baseline
type Anomaly struct {
	ID           string             `json:"id"`
	Transaction  domain.Transaction `json:"transaction"`
	BaselineMean decimal.Decimal    `json:"baseline_mean"`
	ZScore       float64            `json:"z_score"`
	PercentAbove float64            `json:"percent_above"` // (amount - mean) / mean * 100
	Severity     Severity           `json:"severity"`
}

// DetectorConfig holds the tunable parameters of anomaly detection.
// AbsoluteFloor and MaxFilteredFraction are empirically chosen in the
// source data; they are parameters here rather than constants.
type DetectorConfig struct {
	LookbackMonths      int             // baseline window ending at "now"
	RecentWindowMonths  int             // window of transactions to score
	AbsoluteFloor       decimal.Decimal // amount must exceed mean by at least this much
	MaxFilteredFraction float64         // revert to naive stats when IQR filtering drops more than this share
}

// DefaultDetectorConfig returns the detector defaults: 6 month lookback,
// 1 month scoring window, $20 floor, 50% filter fallback.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		LookbackMonths:      6,
		RecentWindowMonths:  1,
		AbsoluteFloor:       decimal.NewFromInt(20),
		MaxFilteredFraction: 0.5,
	}
}
