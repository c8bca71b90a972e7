// Package correlation discovers pairwise statistical association between
// derived monthly metrics (income, expenses, savings, activity).
package correlation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/metrics"
	"github.com/ledgerscope/ledgerscope/pkg/formulas"
)

// ErrInsufficientData is returned when fewer than 3 overlapping months are
// available for a requested pair.
var ErrInsufficientData = errors.New("correlation: need at least 3 overlapping months")

// minOverlap is the smallest month count a pair may be computed from
const minOverlap = 3

// Strength classifies |r|
type Strength string

const (
	StrengthStrong   Strength = "strong"   // |r| > 0.7
	StrengthModerate Strength = "moderate" // |r| > 0.4
	StrengthWeak     Strength = "weak"     // |r| > 0.2
	StrengthNone     Strength = "none"
)

// Direction classifies the sign of r
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionNone     Direction = "none"
)

// Metric names accepted by Analyze
const (
	MetricIncome   = "income"
	MetricExpenses = "expenses"
	MetricSavings  = "savings" // income - expenses
	MetricCount    = "count"
)

// DefaultMetrics is the metric set used when the caller does not pick one
var DefaultMetrics = []string{MetricIncome, MetricExpenses, MetricSavings}

// Result describes the association between two monthly metric series
type Result struct {
	Variable1   string    `json:"variable1"`
	Variable2   string    `json:"variable2"`
	Correlation float64   `json:"correlation"`
	PValue      float64   `json:"p_value"`
	Strength    Strength  `json:"strength"`
	Direction   Direction `json:"direction"`
	Months      int       `json:"months"` // overlapping months used
}

// Service provides correlation analysis
type Service struct {
	log zerolog.Logger
}

// NewService creates a new correlation service
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("service", "correlation").Logger()}
}

// Analyze builds one monthly value per requested metric and computes the
// Pearson correlation with a Fisher-z p-value for every unordered pair
// with at least 3 months of data. Thin pairs are skipped entirely rather
// than reported with a placeholder.
func (s *Service) Analyze(txns []domain.Transaction, metricNames []string) ([]Result, error) {
	if len(metricNames) == 0 {
		metricNames = DefaultMetrics
	}

	series := make(map[string][]float64, len(metricNames))
	for _, name := range metricNames {
		values, err := monthlyValues(txns, name)
		if err != nil {
			return nil, err
		}
		series[name] = values
	}

	results := make([]Result, 0)
	for i := 0; i < len(metricNames); i++ {
		for j := i + 1; j < len(metricNames); j++ {
			result, err := Correlate(series[metricNames[i]], series[metricNames[j]], metricNames[i], metricNames[j])
			if errors.Is(err, ErrInsufficientData) {
				continue
			}
			if err != nil {
				return nil, err
			}
			results = append(results, result)
		}
	}

	s.log.Debug().
		Int("metrics", len(metricNames)).
		Int("pairs", len(results)).
		Msg("Correlation analysis completed")

	return results, nil
}

// Correlate computes the Pearson correlation of two aligned series and its
// two-sided Fisher-z p-value.
func Correlate(x, y []float64, name1, name2 string) (Result, error) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < minOverlap {
		return Result{}, ErrInsufficientData
	}
	x, y = x[:n], y[:n]

	r := formulas.Correlation(x, y)

	return Result{
		Variable1:   name1,
		Variable2:   name2,
		Correlation: r,
		PValue:      fisherPValue(r, n),
		Strength:    classifyStrength(r),
		Direction:   classifyDirection(r),
		Months:      n,
	}, nil
}

// fisherPValue computes the two-sided p-value of r via Fisher's
// z-transformation with standard error 1/sqrt(n-3).
func fisherPValue(r float64, n int) float64 {
	// Treat numerically-perfect correlation as exact: the z-transform
	// diverges there and float rounding can land a hair under 1
	if math.Abs(r) >= 1-1e-12 {
		return 0
	}
	if n <= minOverlap {
		// SE is undefined at n=3; no evidence against the null
		return 1
	}

	z := 0.5 * math.Log((1+r)/(1-r))
	se := 1 / math.Sqrt(float64(n-3))
	p := 2 * (1 - formulas.NormalCDF(math.Abs(z/se)))
	return math.Max(0, math.Min(1, p))
}

func classifyStrength(r float64) Strength {
	switch abs := math.Abs(r); {
	case abs > 0.7:
		return StrengthStrong
	case abs > 0.4:
		return StrengthModerate
	case abs > 0.2:
		return StrengthWeak
	default:
		return StrengthNone
	}
}

func classifyDirection(r float64) Direction {
	switch {
	case r > 0:
		return DirectionPositive
	case r < 0:
		return DirectionNegative
	default:
		return DirectionNone
	}
}

// monthlyValues aggregates one value per calendar month across the span
// covered by the batch, oldest first. Months with no activity carry zero
// so every metric series stays aligned.
func monthlyValues(txns []domain.Transaction, name string) ([]float64, error) {
	byMonth := make(map[string][]domain.Transaction)
	for _, t := range txns {
		byMonth[domain.MonthKey(t.Date)] = append(byMonth[domain.MonthKey(t.Date)], t)
	}
	if len(byMonth) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(byMonth))
	for m := range byMonth {
		keys = append(keys, m)
	}
	sort.Strings(keys)

	first, _ := time.Parse("2006-01", keys[0])
	last, _ := time.Parse("2006-01", keys[len(keys)-1])

	out := make([]float64, 0, len(keys))
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		bucket := byMonth[m.Format("2006-01")]
		var v float64
		switch name {
		case MetricIncome:
			v = metrics.Metric(bucket, metrics.KindIncome).InexactFloat64()
		case MetricExpenses:
			v = metrics.Metric(bucket, metrics.KindExpenses).InexactFloat64()
		case MetricSavings:
			v = metrics.Metric(bucket, metrics.KindNet).InexactFloat64()
		case MetricCount:
			v = float64(len(bucket))
		default:
			return nil, fmt.Errorf("unknown correlation metric %q", name)
		}
		out = append(out, v)
	}
	return out, nil
}
