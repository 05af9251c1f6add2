package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

// StdDevReturnsPct is the sample standard deviation of daily simple returns
// over the window, multiplied by 100.
func StdDevReturnsPct(close []float64, p int) []float64 {
	n := len(close)
	out := nanSeries(n)
	if p <= 0 {
		return out
	}
	rets := make([]float64, n)
	rets[0] = math.NaN()
	for i := 1; i < n; i++ {
		if isNull(close[i]) || isNull(close[i-1]) || close[i-1] == 0 {
			rets[i] = math.NaN()
			continue
		}
		rets[i] = close[i]/close[i-1] - 1
	}
	for i := p; i < n; i++ {
		if !hasRunOfNonNaN(rets, i, p) {
			continue
		}
		out[i] = stddevPopOrSample(rets[i-p+1:i+1], true) * 100
	}
	return out
}

// StdDevPrice is the sample standard deviation of raw values over the
// window (not multiplied by 100, unlike StdDevReturnsPct).
func StdDevPrice(v []float64, p int) []float64 {
	n := len(v)
	out := nanSeries(n)
	if p <= 0 {
		return out
	}
	for i := p - 1; i < n; i++ {
		if !hasRunOfNonNaN(v, i, p) {
			continue
		}
		out[i] = stddevPopOrSample(v[i-p+1:i+1], true)
	}
	return out
}

// MaxDrawdownWindow is, within a rolling window of length p, the absolute
// value of the worst peak-to-trough fraction on closes.
func MaxDrawdownWindow(close []float64, p int) []float64 {
	n := len(close)
	out := nanSeries(n)
	if p <= 0 {
		return out
	}
	for i := p - 1; i < n; i++ {
		if !hasRunOfNonNaN(close, i, p) {
			continue
		}
		window := close[i-p+1 : i+1]
		peak := window[0]
		worst := 0.0
		for _, px := range window {
			if px > peak {
				peak = px
			}
			if peak > 0 {
				dd := (peak - px) / peak
				if dd > worst {
					worst = dd
				}
			}
		}
		out[i] = worst
	}
	return out
}

// DrawdownFromATH is the running positive fraction (peak-v)/peak, with the
// peak carried across all history (windowless).
func DrawdownFromATH(close []float64) []float64 {
	n := len(close)
	out := nanSeries(n)
	peak := math.NaN()
	for i := 0; i < n; i++ {
		if isNull(close[i]) {
			continue
		}
		if isNull(peak) || close[i] > peak {
			peak = close[i]
		}
		if peak > 0 {
			out[i] = (peak - close[i]) / peak
		}
	}
	return out
}

// CumulativeReturn is v[i]/v[i-p+1] - 1.
func CumulativeReturn(v []float64, p int) []float64 {
	n := len(v)
	out := nanSeries(n)
	if p <= 0 {
		return out
	}
	for i := p - 1; i < n; i++ {
		start := v[i-p+1]
		if isNull(start) || isNull(v[i]) || start == 0 {
			continue
		}
		out[i] = v[i]/start - 1
	}
	return out
}

// ATR and ATRPercent are Wilder's Average True Range, delegated to
// go-talib, and its percent-of-close normalization.
func ATR(high, low, close []float64, p int) []float64 {
	n := len(close)
	if p <= 0 || n == 0 {
		return nanSeries(n)
	}
	h, l, c := replaceNaNWithZero(high), replaceNaNWithZero(low), replaceNaNWithZero(close)
	raw := talib.Atr(h, l, c, p)
	return fillLeadingNaN(append([]float64{}, raw...), p)
}

func ATRPercent(high, low, close []float64, p int) []float64 {
	atr := ATR(high, low, close, p)
	n := len(close)
	out := nanSeries(n)
	for i := 0; i < n; i++ {
		if isNull(atr[i]) || isNull(close[i]) || close[i] == 0 {
			continue
		}
		out[i] = atr[i] / close[i] * 100
	}
	return out
}

// AnnualizedHistoricalVolatility is the sample stddev of daily returns over
// the window, annualized by sqrt(252).
func AnnualizedHistoricalVolatility(close []float64, p int) []float64 {
	pct := StdDevReturnsPct(close, p)
	out := make([]float64, len(pct))
	for i, x := range pct {
		if isNull(x) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (x / 100) * math.Sqrt(252)
	}
	return out
}

// UlcerIndex measures the depth and duration of drawdowns within a window:
// sqrt(mean of squared drawdowns).
func UlcerIndex(close []float64, p int) []float64 {
	n := len(close)
	out := nanSeries(n)
	if p <= 0 {
		return out
	}
	for i := p - 1; i < n; i++ {
		if !hasRunOfNonNaN(close, i, p) {
			continue
		}
		window := close[i-p+1 : i+1]
		peak := window[0]
		sumSq := 0.0
		for _, px := range window {
			if px > peak {
				peak = px
			}
			if peak > 0 {
				dd := (peak - px) / peak
				sumSq += dd * dd
			}
		}
		out[i] = math.Sqrt(sumSq / float64(p))
	}
	return out
}

// BollingerPercentB and BollingerBandwidth are derived from go-talib's
// Bollinger Bands. %B returns 0.5 when the bands are collapsed (range == 0).
func BollingerPercentB(close []float64, p int, devUp, devDn float64) []float64 {
	upper, _, lower := bbands(close, p, devUp, devDn)
	n := len(close)
	out := nanSeries(n)
	for i := 0; i < n; i++ {
		if isNull(upper[i]) || isNull(lower[i]) || isNull(close[i]) {
			continue
		}
		width := upper[i] - lower[i]
		if width == 0 {
			out[i] = 0.5
			continue
		}
		out[i] = (close[i] - lower[i]) / width
	}
	return out
}

func BollingerBandwidth(close []float64, p int, devUp, devDn float64) []float64 {
	upper, middle, lower := bbands(close, p, devUp, devDn)
	n := len(close)
	out := nanSeries(n)
	for i := 0; i < n; i++ {
		if isNull(upper[i]) || isNull(lower[i]) || isNull(middle[i]) || middle[i] == 0 {
			continue
		}
		out[i] = (upper[i] - lower[i]) / middle[i]
	}
	return out
}

func bbands(close []float64, p int, devUp, devDn float64) (upper, middle, lower []float64) {
	n := len(close)
	if p <= 0 || n == 0 {
		return nanSeries(n), nanSeries(n), nanSeries(n)
	}
	clean := replaceNaNWithZero(close)
	u, m, l := talib.BBands(clean, p, devUp, devDn, 0)
	return fillLeadingNaN(append([]float64{}, u...), p),
		fillLeadingNaN(append([]float64{}, m...), p),
		fillLeadingNaN(append([]float64{}, l...), p)
}
