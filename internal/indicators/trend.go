package indicators

import (
	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// LinearRegValue and LinearRegSlope delegate to go-talib's linear-regression
// family for trend strength.
func LinearRegValue(v []float64, p int) []float64 {
	n := len(v)
	if p <= 0 || n == 0 {
		return nanSeries(n)
	}
	clean := replaceNaNWithZero(v)
	raw := talib.LinearReg(clean, p)
	return fillLeadingNaN(append([]float64{}, raw...), p)
}

func LinearRegSlope(v []float64, p int) []float64 {
	n := len(v)
	if p <= 0 || n == 0 {
		return nanSeries(n)
	}
	clean := replaceNaNWithZero(v)
	raw := talib.LinearRegSlope(clean, p)
	return fillLeadingNaN(append([]float64{}, raw...), p)
}

// TrendClarity is the R^2 of an ordinary-least-squares fit of v against the
// index over the trailing window: how well a straight line explains the
// recent price path. Uses gonum/stat's R2 for the regression diagnostic.
func TrendClarity(v []float64, p int) []float64 {
	n := len(v)
	out := nanSeries(n)
	if p < 2 {
		return out
	}
	x := make([]float64, p)
	for i := range x {
		x[i] = float64(i)
	}
	for i := p - 1; i < n; i++ {
		if !hasRunOfNonNaN(v, i, p) {
			continue
		}
		y := v[i-p+1 : i+1]
		alpha, beta := stat.LinearRegression(x, y, nil, false)
		out[i] = stat.RSquared(x, y, nil, alpha, beta)
	}
	return out
}

// PriceVsSMARatio is close/SMA(close,p) - 1, expressed as a percent: how
// far current price has stretched from its moving average.
func PriceVsSMARatio(close []float64, p int) []float64 {
	sma := SMA(close, p)
	n := len(close)
	out := nanSeries(n)
	for i := 0; i < n; i++ {
		if isNull(sma[i]) || isNull(close[i]) || sma[i] == 0 {
			continue
		}
		out[i] = (close[i]/sma[i] - 1) * 100
	}
	return out
}
