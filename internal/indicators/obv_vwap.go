package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

// OBVROC is the rate-of-change of On-Balance Volume over p days, delegated
// to go-talib's cumulative OBV line and this package's own ROC: OBV itself
// is unbounded and not directly comparable across tickers, so the catalog
// only exposes its rate of change.
func OBVROC(close, volume []float64, p int) []float64 {
	n := len(close)
	if p <= 0 || n == 0 {
		return nanSeries(n)
	}
	c, v := replaceNaNWithZero(close), replaceNaNWithZero(volume)
	obv := talib.Obv(c, v)
	return ROC(obv, p)
}

// VWAPRatio is close divided by the trailing p-day volume-weighted average
// price, minus one, expressed as a percent. Not part of TA-Lib's catalog,
// so hand-rolled here.
func VWAPRatio(high, low, close, volume []float64, p int) []float64 {
	n := len(close)
	out := nanSeries(n)
	if p <= 0 || n == 0 {
		return out
	}

	typical := make([]float64, n)
	for i := 0; i < n; i++ {
		if isNull(high[i]) || isNull(low[i]) || isNull(close[i]) {
			typical[i] = math.NaN()
			continue
		}
		typical[i] = (high[i] + low[i] + close[i]) / 3
	}

	for i := p - 1; i < n; i++ {
		if !hasRunOfNonNaN(typical, i, p) || !hasRunOfNonNaN(volume, i, p) {
			continue
		}
		var pvSum, vSum float64
		for k := i - p + 1; k <= i; k++ {
			if isNull(volume[k]) || volume[k] < 0 {
				pvSum, vSum = 0, 0
				break
			}
			pvSum += typical[k] * volume[k]
			vSum += volume[k]
		}
		if vSum == 0 {
			continue
		}
		vwap := pvSum / vSum
		if vwap == 0 || isNull(close[i]) {
			continue
		}
		out[i] = (close[i]/vwap - 1) * 100
	}
	return out
}
