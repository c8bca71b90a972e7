package forecasting

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/ledgerscope/ledgerscope/internal/domain"
	"github.com/ledgerscope/ledgerscope/internal/modules/metrics"
	"github.com/ledgerscope/ledgerscope/pkg/formulas"
)

const (
	// trendSlopeBand: |slope/mean| below this reads as stable
	trendSlopeBand = 0.05
	// trendMinR2: below this fit confidence, direction is forced stable
	trendMinR2 = 0.3
	// seasonalLag is the autocorrelation lag tested for yearly patterns
	seasonalLag = 12
	// seasonalityThreshold: |autocorrelation| above this counts as detected
	seasonalityThreshold = 0.3
	// smoothingWindow for the moving-average overlay on trend series
	smoothingWindow = 3
	// z95 is the two-sided 95% normal quantile
	z95 = 1.96
)

// Service provides trend, seasonality and forecasting operations
type Service struct {
	log zerolog.Logger
}

// NewService creates a new forecasting service
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("service", "forecasting").Logger()}
}

// Trend aggregates transactions into a period series and fits an ordinary
// least squares line over the period indices. Direction uses the
// slope-to-mean ratio, but a noisy fit (R² < 0.3) always reads stable.
func (s *Service) Trend(txns []domain.Transaction, kind metrics.Kind, granularity Granularity) TrendResult {
	series := BuildSeries(txns, kind, granularity)
	vals := values(series)

	fit := formulas.LinearRegression(indices(len(vals)), vals)

	direction := DirectionStable
	mean := formulas.Mean(vals)
	if fit.R2 >= trendMinR2 && mean != 0 {
		ratio := fit.Slope / mean
		switch {
		case ratio > trendSlopeBand:
			direction = DirectionIncreasing
		case ratio < -trendSlopeBand:
			direction = DirectionDecreasing
		}
	}

	return TrendResult{
		Direction: direction,
		Slope:     fit.Slope,
		Intercept: fit.Intercept,
		R2:        fit.R2,
		Series:    series,
		Smoothed:  formulas.SMA(vals, smoothingWindow),
	}
}

// Seasonality detrends the period series and measures the lag-12
// autocorrelation of the residuals. Fewer than 12 observations reports
// not-detected without attempting the computation.
func (s *Service) Seasonality(txns []domain.Transaction, kind metrics.Kind, granularity Granularity) SeasonalityResult {
	series := BuildSeries(txns, kind, granularity)
	vals := values(series)
	n := len(vals)

	if n < seasonalLag {
		return SeasonalityResult{Detected: false, Periods: n}
	}

	fit := formulas.LinearRegression(indices(n), vals)
	residuals := make([]float64, n)
	for i, v := range vals {
		residuals[i] = v - (fit.Slope*float64(i) + fit.Intercept)
	}

	r := lagAutocorrelation(residuals, seasonalLag)
	return SeasonalityResult{
		Detected:        math.Abs(r) > seasonalityThreshold,
		Autocorrelation: r,
		Periods:         n,
	}
}

// lagAutocorrelation computes r = Σ(x[i]-μ)(x[i+lag]-μ) / ((n-lag)·σ²)
// with a zero-variance guard.
func lagAutocorrelation(x []float64, lag int) float64 {
	n := len(x)
	if n <= lag {
		return 0
	}

	mu := formulas.Mean(x)
	variance := 0.0
	for _, v := range x {
		variance += (v - mu) * (v - mu)
	}
	variance /= float64(n)
	if variance == 0 {
		return 0
	}

	sum := 0.0
	for i := 0; i+lag < n; i++ {
		sum += (x[i] - mu) * (x[i+lag] - mu)
	}
	return sum / (float64(n-lag) * variance)
}

// Forecast projects the period series horizon periods past the last
// observation. With ModelAuto, all three regression variants are fitted
// and the highest R² wins; a pinned model skips the contest. Fewer than 3
// historical periods is an explicit ErrInsufficientData.
func (s *Service) Forecast(txns []domain.Transaction, kind metrics.Kind, granularity Granularity, horizon int, model ModelKind) (*ForecastResult, error) {
	series := BuildSeries(txns, kind, granularity)
	return s.ForecastSeries(series, granularity, horizon, model)
}

// ForecastSeries is the series-level entry point used by Forecast and by
// callers that already hold aggregated period values.
func (s *Service) ForecastSeries(series []PeriodValue, granularity Granularity, horizon int, model ModelKind) (*ForecastResult, error) {
	n := len(series)
	if n < 3 {
		return nil, ErrInsufficientData
	}
	if horizon < 1 {
		return nil, fmt.Errorf("forecast horizon must be at least 1, got %d", horizon)
	}

	ys := values(series)
	xs := indices(n)

	best, err := s.selectModel(xs, ys, model)
	if err != nil {
		return nil, err
	}

	// Prediction-interval scale: stddev of in-sample residuals, widened
	// per point by distance from the training data's center of mass.
	residuals := make([]float64, n)
	for i, x := range xs {
		residuals[i] = ys[i] - best.predict(x)
	}
	stdError := formulas.StdDev(residuals)

	xMean := formulas.Mean(xs)
	sxx := 0.0
	for _, x := range xs {
		sxx += (x - xMean) * (x - xMean)
	}

	predictions := make([]Prediction, 0, horizon)
	last := series[n-1].Start
	for h := 1; h <= horizon; h++ {
		x0 := float64(n - 1 + h)
		value := best.predict(x0)

		halfWidth := 0.0
		if sxx > 0 {
			halfWidth = z95 * stdError * math.Sqrt(1+1/float64(n)+(x0-xMean)*(x0-xMean)/sxx)
		}

		// Financial magnitudes cannot be negative
		value = math.Max(0, value)
		lower := math.Max(0, value-halfWidth)

		last = nextPeriod(last, granularity)
		predictions = append(predictions, Prediction{
			Date:  last,
			Value: value,
			Lower: lower,
			Upper: value + halfWidth,
		})
	}

	s.log.Debug().
		Str("model", string(best.kind)).
		Float64("r2", best.r2).
		Int("horizon", horizon).
		Msg("Forecast generated")

	return &ForecastResult{
		Predictions: predictions,
		Accuracy:    best.r2,
		Model:       best.kind,
		Parameters:  best.params,
	}, nil
}

// selectModel fits the requested model, or runs the three-way contest
// when the caller did not pin one.
func (s *Service) selectModel(xs, ys []float64, model ModelKind) (modelFit, error) {
	if model != ModelAuto {
		fit, ok := fitModel(model, xs, ys)
		if !ok {
			return modelFit{}, fmt.Errorf("model %q cannot be fitted to this series", model)
		}
		return fit, nil
	}

	candidates := []ModelKind{ModelLinear, ModelExponential, ModelPolynomial}
	var best modelFit
	found := false
	for _, kind := range candidates {
		fit, ok := fitModel(kind, xs, ys)
		if !ok {
			continue
		}
		if !found || fit.r2 > best.r2 {
			best = fit
			found = true
		}
	}
	if !found {
		// Linear always fits, so this is unreachable in practice
		return modelFit{}, fmt.Errorf("no regression model could be fitted")
	}
	return best, nil
}
