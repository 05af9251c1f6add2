// Package indicators implements the closed catalog of rolling technical
// indicator functions (component C3) and the dispatcher that routes a
// (ticker, metric, window) triple to the right one while handling ratio,
// branch and custom-formula tickers (component C4).
//
// Every function here maps (values[], period) -> values[] of the same
// length; output positions before warm-up are NaN ("null"). Functions are
// deterministic and total: they never panic on malformed input, they
// return NaN for that position instead.
package indicators

import "math"

// nanSeries returns a new slice of length n filled with NaN.
func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func isNull(v float64) bool { return math.IsNaN(v) }

func isValidNum(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// fillLeadingNaN overwrites the first n entries of out with NaN, clamped to
// len(out). Used after delegating to github.com/markcheno/go-talib, whose
// warm-up padding convention (leading zeros) does not match this engine's
// "leading NaN" contract -- the authoritative lookback count always comes
// from this package's own per-metric table (internal/indicators/lookback.go),
// not from talib's internal unstable-period bookkeeping.
func fillLeadingNaN(out []float64, n int) []float64 {
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = math.NaN()
	}
	return out
}

// mean returns the arithmetic mean of a window, ignoring nothing -- callers
// are expected to have already validated there are no NaNs in range.
func mean(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func stddevPopOrSample(v []float64, sample bool) float64 {
	n := len(v)
	if n == 0 || (sample && n < 2) {
		return math.NaN()
	}
	m := mean(v)
	sumSq := 0.0
	for _, x := range v {
		d := x - m
		sumSq += d * d
	}
	denom := float64(n)
	if sample {
		denom = float64(n - 1)
	}
	return math.Sqrt(sumSq / denom)
}

// hasRunOfNonNaN reports whether v[i-p+1 .. i] are all non-NaN.
func hasRunOfNonNaN(v []float64, i, p int) bool {
	if i-p+1 < 0 {
		return false
	}
	for j := i - p + 1; j <= i; j++ {
		if isNull(v[j]) {
			return false
		}
	}
	return true
}
