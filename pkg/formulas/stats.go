// Package formulas provides shared statistical primitives used by the
// analytics modules. All functions are pure and guard against empty or
// degenerate input by returning zero values rather than NaN/Inf.
package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation (n-1 denominator)
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Correlation calculates the Pearson correlation coefficient between two datasets
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// LinearFit holds the result of an ordinary least squares fit y = Slope*x + Intercept
type LinearFit struct {
	Slope     float64
	Intercept float64
	R2        float64
}

// LinearRegression fits y = slope*x + intercept by ordinary least squares
// and reports the coefficient of determination. Degenerate input (fewer
// than 2 points, or zero variance in x) yields a flat fit with R2 = 0.
func LinearRegression(x, y []float64) LinearFit {
	if len(x) < 2 || len(x) != len(y) {
		return LinearFit{Intercept: Mean(y)}
	}
	if Variance(x) == 0 {
		return LinearFit{Intercept: Mean(y)}
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	estimates := make([]float64, len(x))
	for i, xi := range x {
		estimates[i] = slope*xi + intercept
	}

	r2 := stat.RSquaredFrom(estimates, y, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		r2 = 0
	}

	return LinearFit{Slope: slope, Intercept: intercept, R2: r2}
}

// Quartiles returns Q1 and Q3 of the data using sorted-index selection:
// Q1 = sorted[floor(0.25*n)], Q3 = sorted[floor(0.75*n)].
// This index convention (rather than interpolation) is deliberate: it keeps
// the IQR fences stable on small samples.
func Quartiles(data []float64) (q1, q3 float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}

	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)

	q1 = sorted[int(math.Floor(0.25*float64(n)))]
	q3Idx := int(math.Floor(0.75 * float64(n)))
	if q3Idx >= n {
		q3Idx = n - 1
	}
	q3 = sorted[q3Idx]
	return q1, q3
}

// NormalCDF approximates the standard normal cumulative distribution
// function using the Abramowitz & Stegun polynomial approximation
// (formula 26.2.17, absolute error < 7.5e-8).
func NormalCDF(z float64) float64 {
	if z < 0 {
		return 1 - NormalCDF(-z)
	}

	t := 1 / (1 + 0.2316419*z)
	poly := t * (0.319381530 + t*(-0.356563782+t*(1.781477937+t*(-1.821255978+t*1.330274429))))
	return 1 - math.Exp(-z*z/2)/math.Sqrt(2*math.Pi)*poly
}
