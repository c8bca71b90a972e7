package formulas

import (
	"github.com/markcheno/go-talib"
)

// SMA calculates the simple moving average of a series with the given
// window. Positions before the window is full carry the raw input value so
// the output always has the same length as the input.
func SMA(values []float64, window int) []float64 {
	if window <= 1 || len(values) < window {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}

	out := talib.Sma(values, window)

	// talib zero-pads the warm-up region; keep the raw values there instead
	for i := 0; i < window-1 && i < len(values); i++ {
		out[i] = values[i]
	}
	return out
}

// EMA calculates the exponential moving average of a series. Falls back to
// the raw series when there is not enough data for the requested window.
func EMA(values []float64, window int) []float64 {
	if window <= 1 || len(values) < window {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}

	out := talib.Ema(values, window)
	for i := 0; i < window-1 && i < len(values); i++ {
		out[i] = values[i]
	}
	return out
}
