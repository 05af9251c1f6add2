package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

// RSI is Wilder's Relative Strength Index: alpha = 1/p on average gain/loss,
// seeded from p differences.
func RSI(close []float64, p int) []float64 {
	n := len(close)
	if p <= 0 || n < 2 {
		return nanSeries(n)
	}
	diffs := make([]float64, n)
	diffs[0] = math.NaN()
	for i := 1; i < n; i++ {
		if isNull(close[i]) || isNull(close[i-1]) {
			diffs[i] = math.NaN()
			continue
		}
		diffs[i] = close[i] - close[i-1]
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i, d := range diffs {
		if isNull(d) {
			gains[i], losses[i] = math.NaN(), math.NaN()
			continue
		}
		if d > 0 {
			gains[i], losses[i] = d, 0
		} else {
			gains[i], losses[i] = 0, -d
		}
	}

	avgGain := WilderMA(gains, p)
	avgLoss := WilderMA(losses, p)

	out := nanSeries(n)
	for i := 0; i < n; i++ {
		if isNull(avgGain[i]) || isNull(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// RSISMA smooths an RSI series with a further SMA (a common "RSI of RSI"
// indicator in the catalog).
func RSISMA(close []float64, rsiPeriod, smaPeriod int) []float64 {
	return SMA(RSI(close, rsiPeriod), smaPeriod)
}

// RSIEMA smooths an RSI series with a further EMA.
func RSIEMA(close []float64, rsiPeriod, emaPeriod int) []float64 {
	return EMA(RSI(close, rsiPeriod), emaPeriod)
}

// StochasticRSI applies the stochastic oscillator formula to an RSI series
// over stochPeriod: (RSI - min(RSI,n)) / (max(RSI,n) - min(RSI,n)) * 100.
func StochasticRSI(close []float64, rsiPeriod, stochPeriod int) []float64 {
	rsi := RSI(close, rsiPeriod)
	n := len(rsi)
	out := nanSeries(n)
	for i := stochPeriod - 1; i < n; i++ {
		if !hasRunOfNonNaN(rsi, i, stochPeriod) {
			continue
		}
		lo, hi := rsi[i], rsi[i]
		for k := i - stochPeriod + 1; k <= i; k++ {
			if rsi[k] < lo {
				lo = rsi[k]
			}
			if rsi[k] > hi {
				hi = rsi[k]
			}
		}
		if hi == lo {
			out[i] = 0.5 * 100
			continue
		}
		out[i] = (rsi[i] - lo) / (hi - lo) * 100
	}
	return out
}

// ADX is Wilder-smoothed Average Directional Index, delegated to go-talib
// (which implements the same Wilder-smoothing convention), with this
// package's own NaN warm-up mask applied: lookback is 2p.
func ADX(high, low, close []float64, p int) []float64 {
	n := len(close)
	if p <= 0 || n == 0 {
		return nanSeries(n)
	}
	h, l, c := replaceNaNWithZero(high), replaceNaNWithZero(low), replaceNaNWithZero(close)
	raw := talib.Adx(h, l, c, p)
	return fillLeadingNaN(append([]float64{}, raw...), 2*p)
}

// CCI is the Commodity Channel Index with the standard 0.015 scaling
// factor, delegated to go-talib.
func CCI(high, low, close []float64, p int) []float64 {
	n := len(close)
	if p <= 0 || n == 0 {
		return nanSeries(n)
	}
	h, l, c := replaceNaNWithZero(high), replaceNaNWithZero(low), replaceNaNWithZero(close)
	raw := talib.Cci(h, l, c, p)
	return fillLeadingNaN(append([]float64{}, raw...), p)
}

// WilliamsR is Williams %R, delegated to go-talib.
func WilliamsR(high, low, close []float64, p int) []float64 {
	n := len(close)
	if p <= 0 || n == 0 {
		return nanSeries(n)
	}
	h, l, c := replaceNaNWithZero(high), replaceNaNWithZero(low), replaceNaNWithZero(close)
	raw := talib.WillR(h, l, c, p)
	return fillLeadingNaN(append([]float64{}, raw...), p)
}

// StochK and StochD are the classic stochastic oscillator %K/%D lines,
// delegated to go-talib with a 3-period %D smoothing.
func StochK(high, low, close []float64, p int) []float64 {
	k, _ := stoch(high, low, close, p)
	return k
}

func StochD(high, low, close []float64, p int) []float64 {
	_, d := stoch(high, low, close, p)
	return d
}

func stoch(high, low, close []float64, p int) ([]float64, []float64) {
	n := len(close)
	if p <= 0 || n == 0 {
		return nanSeries(n), nanSeries(n)
	}
	h, l, c := replaceNaNWithZero(high), replaceNaNWithZero(low), replaceNaNWithZero(close)
	k, d := talib.Stoch(h, l, c, p, 3, talib.SMA, 3, talib.SMA)
	return fillLeadingNaN(append([]float64{}, k...), p), fillLeadingNaN(append([]float64{}, d...), p+2)
}

// MFI is the Money Flow Index, delegated to go-talib.
func MFI(high, low, close, volume []float64, p int) []float64 {
	n := len(close)
	if p <= 0 || n == 0 {
		return nanSeries(n)
	}
	h, l, c, v := replaceNaNWithZero(high), replaceNaNWithZero(low), replaceNaNWithZero(close), replaceNaNWithZero(volume)
	raw := talib.Mfi(h, l, c, v, p)
	return fillLeadingNaN(append([]float64{}, raw...), p)
}

// AroonUp / AroonDown / AroonOscillator are the classic Aroon formulas on
// highs/lows, delegated to go-talib.
func AroonUp(high, low []float64, p int) []float64 {
	up, _ := aroon(high, low, p)
	return up
}

func AroonDown(high, low []float64, p int) []float64 {
	_, down := aroon(high, low, p)
	return down
}

func aroon(high, low []float64, p int) ([]float64, []float64) {
	n := len(high)
	if p <= 0 || n == 0 {
		return nanSeries(n), nanSeries(n)
	}
	h, l := replaceNaNWithZero(high), replaceNaNWithZero(low)
	down, up := talib.Aroon(h, l, p)
	return fillLeadingNaN(append([]float64{}, up...), p), fillLeadingNaN(append([]float64{}, down...), p)
}

func AroonOscillator(high, low []float64, p int) []float64 {
	n := len(high)
	if p <= 0 || n == 0 {
		return nanSeries(n)
	}
	h, l := replaceNaNWithZero(high), replaceNaNWithZero(low)
	raw := talib.AroonOsc(h, l, p)
	return fillLeadingNaN(append([]float64{}, raw...), p)
}
