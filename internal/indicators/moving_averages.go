package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

// SMA is the classical sliding-window mean. Valid once a full window of
// non-NaN values has been observed; a NaN entering the window resets
// validity and re-requires p consecutive non-NaN values.
//
// Delegates to go-talib for the sliding sum, but re-derives the warm-up
// mask itself since TA-Lib's own NaN handling doesn't match this
// NaN-reset convention.
func SMA(v []float64, p int) []float64 {
	if p <= 0 || len(v) == 0 {
		return nanSeries(len(v))
	}
	clean := replaceNaNWithZero(v)
	raw := talib.Sma(clean, p)
	out := make([]float64, len(v))
	for i := range v {
		if hasRunOfNonNaN(v, i, p) {
			out[i] = raw[i]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// replaceNaNWithZero is only used to keep go-talib's internal arithmetic
// finite; every output position is independently re-validated against the
// original NaN-bearing input by hasRunOfNonNaN before being trusted.
func replaceNaNWithZero(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		if isNull(x) {
			out[i] = 0
		} else {
			out[i] = x
		}
	}
	return out
}

// EMA: alpha = 2/(p+1), seeded with the arithmetic mean of the first p
// non-NaN values; after seeding, the recursive update runs. A NaN resets the
// seeding state.
func EMA(v []float64, p int) []float64 {
	return emaLike(v, p, 2.0/float64(p+1))
}

// WilderMA: alpha = 1/p, seeded with the mean of the first p values.
func WilderMA(v []float64, p int) []float64 {
	return emaLike(v, p, 1.0/float64(p))
}

// emaLike implements the shared EMA/Wilder-MA seeding+recursion contract:
// seed with the mean of the first run of p non-NaN values, then recurse with
// the given alpha; a NaN encountered after seeding resets the state and the
// engine re-seeds from the next run of p non-NaN values.
func emaLike(v []float64, p int, alpha float64) []float64 {
	n := len(v)
	out := nanSeries(n)
	if p <= 0 || n == 0 {
		return out
	}

	i := 0
	for i < n {
		if !hasRunOfNonNaN(v, i+p-1, p) {
			i++
			continue
		}
		// Seed at index i+p-1.
		seedIdx := i + p - 1
		out[seedIdx] = mean(v[i : i+p])
		prev := out[seedIdx]
		j := seedIdx + 1
		for ; j < n; j++ {
			if isNull(v[j]) {
				break
			}
			prev = alpha*v[j] + (1-alpha)*prev
			out[j] = prev
		}
		i = j + 1
	}
	return out
}

// WMA is the classical linearly-weighted moving average:
// WMA[i] = Σ_{k=0..p-1} (p-k)*v[i-k] / Σ_{k=0..p-1}(p-k).
func WMA(v []float64, p int) []float64 {
	if p <= 0 {
		return nanSeries(len(v))
	}
	clean := replaceNaNWithZero(v)
	raw := talib.Wma(clean, p)
	out := make([]float64, len(v))
	for i := range v {
		if hasRunOfNonNaN(v, i, p) {
			out[i] = raw[i]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// HMA is the Hull Moving Average: HMA(p) = WMA(2*WMA(v,p/2) - WMA(v,p), sqrt(p)).
func HMA(v []float64, p int) []float64 {
	if p <= 1 {
		return nanSeries(len(v))
	}
	halfP := p / 2
	if halfP < 1 {
		halfP = 1
	}
	sqrtP := int(math.Round(math.Sqrt(float64(p))))
	if sqrtP < 1 {
		sqrtP = 1
	}

	wmaHalf := WMA(v, halfP)
	wmaFull := WMA(v, p)
	diff := make([]float64, len(v))
	for i := range v {
		if isNull(wmaHalf[i]) || isNull(wmaFull[i]) {
			diff[i] = math.NaN()
			continue
		}
		diff[i] = 2*wmaHalf[i] - wmaFull[i]
	}
	return WMA(diff, sqrtP)
}

// DEMA: DEMA = 2*EMA(v,p) - EMA(EMA(v,p),p). Lookback ~= 2p.
func DEMA(v []float64, p int) []float64 {
	e1 := EMA(v, p)
	e2 := EMA(e1, p)
	out := make([]float64, len(v))
	for i := range v {
		if isNull(e1[i]) || isNull(e2[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = 2*e1[i] - e2[i]
	}
	return out
}

// TEMA: TEMA = 3*EMA1 - 3*EMA2 + EMA3. Lookback ~= 3p.
func TEMA(v []float64, p int) []float64 {
	e1 := EMA(v, p)
	e2 := EMA(e1, p)
	e3 := EMA(e2, p)
	out := make([]float64, len(v))
	for i := range v {
		if isNull(e1[i]) || isNull(e2[i]) || isNull(e3[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = 3*e1[i] - 3*e2[i] + e3[i]
	}
	return out
}

// KAMA is Kaufman's Adaptive Moving Average: the smoothing constant is
// driven by an efficiency ratio over the window, scaled between a fast
// (2-period) and slow (30-period) EMA constant. Lookback is p+30, since the
// slow constant's 30-period EMA floor must itself be available.
func KAMA(v []float64, p int) []float64 {
	n := len(v)
	out := nanSeries(n)
	if p <= 0 || n <= p {
		return out
	}

	fastSC := 2.0 / (2.0 + 1.0)
	slowSC := 2.0 / (30.0 + 1.0)

	for i := p; i < n; i++ {
		if !hasRunOfNonNaN(v, i, p+1) {
			continue
		}
		change := math.Abs(v[i] - v[i-p])
		volatility := 0.0
		for k := i - p + 1; k <= i; k++ {
			volatility += math.Abs(v[k] - v[k-1])
		}
		var er float64
		if volatility == 0 {
			er = 0
		} else {
			er = change / volatility
		}
		sc := math.Pow(er*(fastSC-slowSC)+slowSC, 2)

		var prev float64
		if i == p || isNull(out[i-1]) {
			prev = v[i-1]
		} else {
			prev = out[i-1]
		}
		out[i] = prev + sc*(v[i]-prev)
	}
	return out
}
