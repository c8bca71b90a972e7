package anomalies

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/metrics"
)

var (
	hundred      = decimal.NewFromInt(100)
	twoHundred   = decimal.NewFromInt(200)
	oneThousand  = decimal.NewFromInt(1000)
	severityHighZ   = 3.5
	severityMediumZ = 2.5
)

// Detector scores recent expense transactions against per-category
// baselines. It is safe for concurrent use: Detect is a pure function of
// its arguments and the immutable config.
type Detector struct {
	cfg DetectorConfig
	log zerolog.Logger
}

// NewDetector creates a new anomaly detector
func NewDetector(cfg DetectorConfig, log zerolog.Logger) *Detector {
	return &Detector{
		cfg: cfg,
		log: log.With().Str("service", "anomalies").Logger(),
	}
}

// Baselines computes the per-category spending baselines from expense
// transactions inside the lookback window ending at now.
func (d *Detector) Baselines(txns []domain.Transaction, now time.Time) map[string]Baseline {
	window := metrics.MonthRange(now, d.cfg.LookbackMonths)

	byCategory := make(map[string][]decimal.Decimal)
	for _, t := range metrics.FilterByRange(txns, window) {
		if t.Type != domain.TypeExpense {
			continue
		}
		byCategory[t.Category] = append(byCategory[t.Category], t.Magnitude())
	}

	baselines := make(map[string]Baseline, len(byCategory))
	for category, amounts := range byCategory {
		baselines[category] = computeBaseline(category, amounts, d.cfg.MaxFilteredFraction)
	}
	return baselines
}

// Detect flags anomalous expense transactions within the most recent
// window, sorted by severity descending (ties keep input order).
// Detect never fails: insufficient data simply yields no anomalies.
func (d *Detector) Detect(txns []domain.Transaction, now time.Time) []Anomaly {
	baselines := d.Baselines(txns, now)
	recent := metrics.MonthRange(now, d.cfg.RecentWindowMonths)

	anomalies := make([]Anomaly, 0)
	for _, t := range metrics.FilterByRange(txns, recent) {
		if t.Type != domain.TypeExpense {
			continue
		}

		baseline, ok := baselines[t.Category]
		if !ok || baseline.Degenerate() {
			continue
		}

		amount := t.Magnitude()
		zScore := zScore(amount, baseline)
		percentAbove := percentAbove(amount, baseline.Mean)

		if !d.isAnomalous(amount, baseline, zScore) {
			continue
		}

		anomalies = append(anomalies, Anomaly{
			ID:           uuid.New().String(),
			Transaction:  t,
			BaselineMean: baseline.Mean,
			ZScore:       zScore,
			PercentAbove: percentAbove.InexactFloat64(),
			Severity:     classifySeverity(amount, zScore, percentAbove),
		})
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Severity.rank() > anomalies[j].Severity.rank()
	})

	d.log.Debug().
		Int("transactions", len(txns)).
		Int("baselines", len(baselines)).
		Int("anomalies", len(anomalies)).
		Msg("Anomaly detection completed")

	return anomalies
}

// isAnomalous applies the three-way guard: above the mean, above the
// sample-size-adaptive z threshold, and above the mean by the absolute
// floor (so trivially small relative deviations never flag).
func (d *Detector) isAnomalous(amount decimal.Decimal, baseline Baseline, z float64) bool {
	if !amount.GreaterThan(baseline.Mean) {
		return false
	}
	if abs(z) <= adaptiveThreshold(baseline.Count) {
		return false
	}
	return amount.GreaterThan(baseline.Mean.Add(d.cfg.AbsoluteFloor))
}

// adaptiveThreshold returns the required |z| for a sample of the given
// size. Smaller samples require stronger statistical evidence.
func adaptiveThreshold(count int) float64 {
	switch {
	case count < 5:
		return 3.0
	case count < 10:
		return 2.5
	case count < 20:
		return 2.0
	default:
		return 1.8
	}
}

// classifySeverity applies the ordered severity rules; first match wins
func classifySeverity(amount decimal.Decimal, z float64, percentAbove decimal.Decimal) Severity {
	if abs(z) > severityHighZ || percentAbove.GreaterThan(twoHundred) || amount.GreaterThan(oneThousand) {
		return SeverityHigh
	}
	if abs(z) > severityMediumZ || (percentAbove.GreaterThan(hundred) && amount.GreaterThan(hundred)) {
		return SeverityMedium
	}
	return SeverityLow
}

// zScore computes (amount - mean) / stdDev, 0 when stdDev is 0
func zScore(amount decimal.Decimal, baseline Baseline) float64 {
	if baseline.StdDev.IsZero() {
		return 0
	}
	return amount.Sub(baseline.Mean).Div(baseline.StdDev).InexactFloat64()
}

// percentAbove computes (amount - mean) / mean * 100, 0 when mean is 0
func percentAbove(amount, mean decimal.Decimal) decimal.Decimal {
	if mean.IsZero() {
		return decimal.Zero
	}
	return amount.Sub(mean).Div(mean).Mul(hundred)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
