package cohorts

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/metrics"
)

// Key selects how transactions are partitioned into cohorts
type Key string

const (
	KeyAccount  Key = "account"
	KeyCategory Key = "category"
	KeyMonth    Key = "month" // cohort = calendar month of the transaction
)

// Valid reports whether the key is supported
func (k Key) Valid() bool {
	return k == KeyAccount || k == KeyCategory || k == KeyMonth
}

// Measure selects what each cohort period reports
type Measure string

const (
	// MeasureRetention is 1 when any transaction exists in the period, else 0
	MeasureRetention Measure = "retention"
	// MeasureValue is the net flow in the period
	MeasureValue Measure = "value"
	// MeasureFrequency is the transaction count in the period
	MeasureFrequency Measure = "frequency"
)

// Valid reports whether the measure is supported
func (m Measure) Valid() bool {
	return m == MeasureRetention || m == MeasureValue || m == MeasureFrequency
}

// Row is one cohort's ordered period series. Period 0 is anchored at the
// cohort's earliest transaction; each later period is one month further
// out. The shape feeds a retention-heatmap directly.
type Row struct {
	Cohort    string            `json:"cohort"`
	FirstSeen time.Time         `json:"first_seen"`
	Periods   []decimal.Decimal `json:"periods"`
}

// Service provides cohort analysis
type Service struct {
	log zerolog.Logger
}

// NewService creates a new cohorts service
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("service", "cohorts").Logger()}
}

// Analyze partitions the batch into cohorts and computes the chosen
// measure for periods 0..periods-1 from each cohort's anchor. Context
// cancellation is honored between cohorts: computed rows are abandoned
// and the context error returned.
func (s *Service) Analyze(ctx context.Context, txns []domain.Transaction, key Key, measure Measure, periods int) ([]Row, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("unknown cohort key %q", key)
	}
	if !measure.Valid() {
		return nil, fmt.Errorf("unknown cohort measure %q", measure)
	}
	if periods < 1 {
		return nil, fmt.Errorf("periods must be at least 1, got %d", periods)
	}

	grouped := make(map[string][]domain.Transaction)
	for _, t := range txns {
		grouped[cohortOf(t, key)] = append(grouped[cohortOf(t, key)], t)
	}

	rows := make([]Row, 0, len(grouped))
	for cohort, members := range grouped {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows = append(rows, buildRow(cohort, members, measure, periods))
	}

	// Deterministic output: oldest cohort first, name breaking ties
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FirstSeen.Equal(rows[j].FirstSeen) {
			return rows[i].Cohort < rows[j].Cohort
		}
		return rows[i].FirstSeen.Before(rows[j].FirstSeen)
	})

	s.log.Debug().
		Str("key", string(key)).
		Str("measure", string(measure)).
		Int("cohorts", len(rows)).
		Msg("Cohort analysis completed")

	return rows, nil
}

func cohortOf(t domain.Transaction, key Key) string {
	switch key {
	case KeyAccount:
		return t.AccountID
	case KeyCategory:
		return t.Category
	default:
		return domain.MonthKey(t.Date)
	}
}

func buildRow(cohort string, members []domain.Transaction, measure Measure, periods int) Row {
	anchor := members[0].Date
	for _, t := range members[1:] {
		if t.Date.Before(anchor) {
			anchor = t.Date
		}
	}
	anchor = domain.DateOnly(anchor)

	series := make([]decimal.Decimal, 0, periods)
	for p := 0; p < periods; p++ {
		window := domain.TimeRange{
			Start: anchor.AddDate(0, p, 0),
			End:   anchor.AddDate(0, p+1, 0).AddDate(0, 0, -1),
		}
		inPeriod := metrics.FilterByRange(members, window)

		switch measure {
		case MeasureRetention:
			if len(inPeriod) > 0 {
				series = append(series, decimal.NewFromInt(1))
			} else {
				series = append(series, decimal.Zero)
			}
		case MeasureValue:
			series = append(series, metrics.Metric(inPeriod, metrics.KindNet))
		case MeasureFrequency:
			series = append(series, decimal.NewFromInt(int64(len(inPeriod))))
		}
	}

	return Row{Cohort: cohort, FirstSeen: anchor, Periods: series}
}
