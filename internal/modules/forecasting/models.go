// Package forecasting provides trend fitting, seasonality detection and
// multi-model forecasting over period-aggregated transaction series.
package forecasting

import (
	"errors"
	"time"
)

// ErrInsufficientData is returned when there is not enough history to fit
// a model. It must be surfaced to the caller, never replaced by a zero
// forecast: a silent default would be misleading for financial decisions.
var ErrInsufficientData = errors.New("forecasting: insufficient historical data (need at least 3 periods)")

// Granularity selects the period size series are aggregated into
type Granularity string

const (
	GranularityMonth Granularity = "month"
	GranularityWeek  Granularity = "week"
)

// Valid reports whether the granularity is supported
func (g Granularity) Valid() bool {
	return g == GranularityMonth || g == GranularityWeek
}

// ModelKind identifies a regression model
type ModelKind string

const (
	ModelLinear      ModelKind = "linear"
	ModelExponential ModelKind = "exponential"
	ModelPolynomial  ModelKind = "polynomial"
	// ModelAuto selects the candidate with the highest R²
	ModelAuto ModelKind = ""
)

// Direction classifies the fitted trend
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// PeriodValue is one aggregated observation in a period series
type PeriodValue struct {
	Start time.Time `json:"start"`
	Label string    `json:"label"`
	Value float64   `json:"value"`
}

// TrendResult describes an ordinary least squares fit over a period series
type TrendResult struct {
	Direction Direction     `json:"direction"`
	Slope     float64       `json:"slope"`
	Intercept float64       `json:"intercept"`
	R2        float64       `json:"r2"`
	Series    []PeriodValue `json:"series"`
	Smoothed  []float64     `json:"smoothed"` // 3-period moving average of the series values
}

// SeasonalityResult reports lag-12 autocorrelation of detrended residuals
type SeasonalityResult struct {
	Detected        bool    `json:"detected"`
	Autocorrelation float64 `json:"autocorrelation"`
	Periods         int     `json:"periods"` // observations available
}

// Prediction is a single forecasted point with its 95% interval
type Prediction struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// ForecastResult holds the selected model's projection
type ForecastResult struct {
	Predictions []Prediction       `json:"predictions"`
	Accuracy    float64            `json:"accuracy"` // in-sample R², in [0,1]
	Model       ModelKind          `json:"model"`
	Parameters  map[string]float64 `json:"parameters"`
}
