package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

// momentumLookbacks are the four fixed trading-day horizons (1, 3, 6, 12
// months) shared by the 13612W/13612U/SMA12 momentum family. The family
// name comes from the "1-3-6-12 month" weighted-momentum screen common in
// dual-momentum strategies.
var momentumLookbacks = [4]int{21, 63, 126, 252}

func momentumReturn(v []float64, i, lb int) float64 {
	if i-lb < 0 {
		return math.NaN()
	}
	start := v[i-lb]
	if isNull(start) || isNull(v[i]) || start == 0 {
		return math.NaN()
	}
	return v[i]/start - 1
}

// Momentum13612W is the weighted 1-3-6-12 momentum score:
// 12*r1 + 4*r3 + 2*r6 + r12, all over 4. Requires 252 days of lookback.
func Momentum13612W(v []float64) []float64 {
	n := len(v)
	out := nanSeries(n)
	for i := 0; i < n; i++ {
		r1 := momentumReturn(v, i, momentumLookbacks[0])
		r3 := momentumReturn(v, i, momentumLookbacks[1])
		r6 := momentumReturn(v, i, momentumLookbacks[2])
		r12 := momentumReturn(v, i, momentumLookbacks[3])
		if isNull(r1) || isNull(r3) || isNull(r6) || isNull(r12) {
			continue
		}
		out[i] = (12*r1 + 4*r3 + 2*r6 + r12) / 4
	}
	return out
}

// Momentum13612U is the unweighted average of the same four horizon returns.
func Momentum13612U(v []float64) []float64 {
	n := len(v)
	out := nanSeries(n)
	for i := 0; i < n; i++ {
		r1 := momentumReturn(v, i, momentumLookbacks[0])
		r3 := momentumReturn(v, i, momentumLookbacks[1])
		r6 := momentumReturn(v, i, momentumLookbacks[2])
		r12 := momentumReturn(v, i, momentumLookbacks[3])
		if isNull(r1) || isNull(r3) || isNull(r6) || isNull(r12) {
			continue
		}
		out[i] = (r1 + r3 + r6 + r12) / 4
	}
	return out
}

// MomentumSMA12 averages the price itself over the four horizons rather
// than their returns: mean(SMA(v,21), SMA(v,63), SMA(v,126), SMA(v,252))
// relative to the current price, minus one.
func MomentumSMA12(v []float64) []float64 {
	s1 := SMA(v, momentumLookbacks[0])
	s3 := SMA(v, momentumLookbacks[1])
	s6 := SMA(v, momentumLookbacks[2])
	s12 := SMA(v, momentumLookbacks[3])
	n := len(v)
	out := nanSeries(n)
	for i := 0; i < n; i++ {
		if isNull(s1[i]) || isNull(s3[i]) || isNull(s6[i]) || isNull(s12[i]) || isNull(v[i]) {
			continue
		}
		avg := (s1[i] + s3[i] + s6[i] + s12[i]) / 4
		if avg == 0 {
			continue
		}
		out[i] = v[i]/avg - 1
	}
	return out
}

// MACDHistogram is the classic MACD histogram (12,26,9 by default, but
// parameterized here), delegated to go-talib. Its first slow+signal-1
// values are null (34 for 12/26/9, so the first value is on the 35th bar).
func MACDHistogram(close []float64, fast, slow, signal int) []float64 {
	n := len(close)
	if fast <= 0 || slow <= 0 || signal <= 0 || n == 0 {
		return nanSeries(n)
	}
	clean := replaceNaNWithZero(close)
	_, _, hist := talib.Macd(clean, fast, slow, signal)
	lb := slow + signal - 1
	return fillLeadingNaN(append([]float64{}, hist...), lb)
}

// PPOHistogram is the Percentage Price Oscillator histogram:
// PPO = (EMA(fast) - EMA(slow)) / EMA(slow) * 100, minus its own
// EMA(signal).
func PPOHistogram(close []float64, fast, slow, signal int) []float64 {
	n := len(close)
	if fast <= 0 || slow <= 0 || signal <= 0 || n == 0 {
		return nanSeries(n)
	}
	fastEMA, slowEMA := EMA(close, fast), EMA(close, slow)
	ppo := nanSeries(n)
	for i := range ppo {
		if !isNull(fastEMA[i]) && !isNull(slowEMA[i]) && slowEMA[i] != 0 {
			ppo[i] = (fastEMA[i] - slowEMA[i]) / slowEMA[i] * 100
		}
	}
	sig := EMA(ppo, signal)
	out := nanSeries(n)
	for i := range out {
		if !isNull(ppo[i]) && !isNull(sig[i]) {
			out[i] = ppo[i] - sig[i]
		}
	}
	return out
}

// ROC is the simple rate-of-change over p days, delegated to go-talib.
func ROC(v []float64, p int) []float64 {
	n := len(v)
	if p <= 0 || n == 0 {
		return nanSeries(n)
	}
	clean := replaceNaNWithZero(v)
	raw := talib.RocP(clean, p)
	out := fillLeadingNaN(append([]float64{}, raw...), p)
	for i := range out {
		if !isNull(out[i]) {
			out[i] *= 100
		}
	}
	return out
}
