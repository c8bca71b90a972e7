package forecasting

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ledgerscope/ledgerscope/pkg/formulas"
)

// modelFit is the uniform contract every regression variant satisfies:
// a prediction function plus its in-sample goodness of fit. Model
// selection is just "evaluate all variants, keep the max R²".
type modelFit struct {
	kind    ModelKind
	predict func(x float64) float64
	r2      float64
	params  map[string]float64
}

// fitModel fits one regression variant over the index sequence.
// ok is false when the variant cannot be fitted to this data
// (e.g. exponential with non-positive values).
func fitModel(kind ModelKind, xs, ys []float64) (modelFit, bool) {
	switch kind {
	case ModelLinear:
		return fitLinear(xs, ys), true
	case ModelExponential:
		return fitExponential(xs, ys)
	case ModelPolynomial:
		return fitPolynomial(xs, ys)
	}
	return modelFit{}, false
}

func fitLinear(xs, ys []float64) modelFit {
	f := formulas.LinearRegression(xs, ys)
	return modelFit{
		kind:    ModelLinear,
		predict: func(x float64) float64 { return f.Slope*x + f.Intercept },
		r2:      f.R2,
		params:  map[string]float64{"slope": f.Slope, "intercept": f.Intercept},
	}
}

// fitExponential fits y = a*e^(bx) by ordinary least squares in log space.
// Requires strictly positive values; R² is computed in the original space
// so it is comparable with the other variants.
func fitExponential(xs, ys []float64) (modelFit, bool) {
	logs := make([]float64, len(ys))
	for i, y := range ys {
		if y <= 0 {
			return modelFit{}, false
		}
		logs[i] = math.Log(y)
	}

	f := formulas.LinearRegression(xs, logs)
	a := math.Exp(f.Intercept)
	b := f.Slope
	predict := func(x float64) float64 { return a * math.Exp(b*x) }

	return modelFit{
		kind:    ModelExponential,
		predict: predict,
		r2:      rSquared(xs, ys, predict),
		params:  map[string]float64{"a": a, "b": b},
	}, true
}

// fitPolynomial fits a degree-2 polynomial y = c0 + c1*x + c2*x² by
// least squares over the Vandermonde matrix.
func fitPolynomial(xs, ys []float64) (modelFit, bool) {
	n := len(xs)
	if n < 3 {
		return modelFit{}, false
	}

	a := mat.NewDense(n, 3, nil)
	for i, x := range xs {
		a.Set(i, 0, 1)
		a.Set(i, 1, x)
		a.Set(i, 2, x*x)
	}
	b := mat.NewVecDense(n, ys)

	var coef mat.VecDense
	var qr mat.QR
	qr.Factorize(a)
	if err := qr.SolveVecTo(&coef, false, b); err != nil {
		return modelFit{}, false
	}

	c0, c1, c2 := coef.AtVec(0), coef.AtVec(1), coef.AtVec(2)
	if math.IsNaN(c0) || math.IsNaN(c1) || math.IsNaN(c2) {
		return modelFit{}, false
	}
	predict := func(x float64) float64 { return c0 + c1*x + c2*x*x }

	return modelFit{
		kind:    ModelPolynomial,
		predict: predict,
		r2:      rSquared(xs, ys, predict),
		params:  map[string]float64{"c0": c0, "c1": c1, "c2": c2},
	}, true
}

// rSquared computes the coefficient of determination of a prediction
// function in the original value space, clamped to [0, 1].
func rSquared(xs, ys []float64, predict func(float64) float64) float64 {
	estimates := make([]float64, len(xs))
	for i, x := range xs {
		estimates[i] = predict(x)
	}
	r2 := stat.RSquaredFrom(estimates, ys, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) || r2 < 0 {
		return 0
	}
	if r2 > 1 {
		return 1
	}
	return r2
}
