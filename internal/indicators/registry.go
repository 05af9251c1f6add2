package indicators

import "strings"

// Inputs bundles the raw OHLCV arrays a metric computation may need. Most
// metrics only read Close (by convention, the adjusted close — see
// internal/seriescache); the OHLCV-based ones (ADX, ATR, Aroon, MFI,
// Stochastic, VWAP) need the full bundle.
type Inputs struct {
	Open, High, Low, Close, Volume []float64
}

// names maps the tree-level metric string to its resolved MetricID. Kept
// as a flat table rather than a reflective lookup.
var names = map[string]MetricID{
	"sma": MetricSMA, "ema": MetricEMA, "wilder_ma": MetricWilderMA,
	"wma": MetricWMA, "hma": MetricHMA, "dema": MetricDEMA, "tema": MetricTEMA,
	"kama": MetricKAMA, "rsi": MetricRSI, "rsi_sma": MetricRSISMA,
	"rsi_ema": MetricRSIEMA, "stoch_rsi": MetricStochasticRSI,
	"laguerre_rsi": MetricLaguerreRSI, "adx": MetricADX, "cci": MetricCCI,
	"williams_r": MetricWilliamsR, "stoch_k": MetricStochK, "stoch_d": MetricStochD,
	"mfi": MetricMFI, "aroon_up": MetricAroonUp, "aroon_down": MetricAroonDown,
	"aroon_osc": MetricAroonOscillator, "stddev_returns_pct": MetricStdDevReturnsPct,
	"stddev_price": MetricStdDevPrice, "max_drawdown_window": MetricMaxDrawdownWindow,
	"drawdown_from_ath": MetricDrawdownFromATH, "cumulative_return": MetricCumulativeReturn,
	"atr": MetricATR, "atr_percent": MetricATRPercent, "annualized_vol": MetricAnnualizedVol,
	"ulcer_index": MetricUlcerIndex, "bollinger_percent_b": MetricBollingerPercentB,
	"bollinger_bandwidth": MetricBollingerBandwidth, "linreg_value": MetricLinearRegValue,
	"linreg_slope": MetricLinearRegSlope, "trend_clarity": MetricTrendClarity,
	"price_vs_sma_ratio": MetricPriceVsSMARatio, "momentum_13612w": Metric13612W,
	"momentum_13612u": Metric13612U, "momentum_sma12": MetricSMA12Momentum,
	"macd_histogram": MetricMACDHistogram, "ppo_histogram": MetricPPOHistogram,
	"roc": MetricROC, "ultimate_smoother": MetricUltimateSmoother,
	"super_smoother": MetricSuperSmoother, "obv_roc": MetricOBVROC,
	"vwap_ratio": MetricVWAPRatio,
}

// Resolve maps a tree-level metric string onto its MetricID, normalizing
// case and surrounding space. Returns ok=false for anything outside the
// closed catalog; an unknown metric name is a validation error, not a
// null result.
func Resolve(name string) (MetricID, bool) {
	id, ok := names[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// hlvMetrics are the metrics that read High, Low or Volume rather than
// Close alone. Branch/custom tickers have no real OHLCV beyond their own
// synthetic close series, so these are unsupported there and yield null.
var hlvMetrics = map[MetricID]bool{
	MetricADX: true, MetricCCI: true, MetricWilliamsR: true,
	MetricStochK: true, MetricStochD: true, MetricMFI: true,
	MetricAroonUp: true, MetricAroonDown: true, MetricAroonOscillator: true,
	MetricATR: true, MetricATRPercent: true, MetricVWAPRatio: true,
	MetricOBVROC: true,
}

// RequiresHLV reports whether id needs real high/low/volume data rather
// than just a close series.
func RequiresHLV(id MetricID) bool {
	return hlvMetrics[id]
}

// Compute dispatches a resolved MetricID to its implementation. p is the
// metric's declared window. MACD and PPO histograms always use the standard
// 12/26/9 periods and ignore p; the Bollinger metrics use p as their period
// with fixed 2-standard-deviation bands.
func Compute(id MetricID, in Inputs, p int) []float64 {
	switch id {
	case MetricSMA:
		return SMA(in.Close, p)
	case MetricEMA:
		return EMA(in.Close, p)
	case MetricWilderMA:
		return WilderMA(in.Close, p)
	case MetricWMA:
		return WMA(in.Close, p)
	case MetricHMA:
		return HMA(in.Close, p)
	case MetricDEMA:
		return DEMA(in.Close, p)
	case MetricTEMA:
		return TEMA(in.Close, p)
	case MetricKAMA:
		return KAMA(in.Close, p)
	case MetricRSI:
		return RSI(in.Close, p)
	case MetricRSISMA:
		return RSISMA(in.Close, p, p)
	case MetricRSIEMA:
		return RSIEMA(in.Close, p, p)
	case MetricStochasticRSI:
		return StochasticRSI(in.Close, p, p)
	case MetricLaguerreRSI:
		return LaguerreRSI(in.Close)
	case MetricADX:
		return ADX(in.High, in.Low, in.Close, p)
	case MetricCCI:
		return CCI(in.High, in.Low, in.Close, p)
	case MetricWilliamsR:
		return WilliamsR(in.High, in.Low, in.Close, p)
	case MetricStochK:
		return StochK(in.High, in.Low, in.Close, p)
	case MetricStochD:
		return StochD(in.High, in.Low, in.Close, p)
	case MetricMFI:
		return MFI(in.High, in.Low, in.Close, in.Volume, p)
	case MetricAroonUp:
		return AroonUp(in.High, in.Low, p)
	case MetricAroonDown:
		return AroonDown(in.High, in.Low, p)
	case MetricAroonOscillator:
		return AroonOscillator(in.High, in.Low, p)
	case MetricStdDevReturnsPct:
		return StdDevReturnsPct(in.Close, p)
	case MetricStdDevPrice:
		return StdDevPrice(in.Close, p)
	case MetricMaxDrawdownWindow:
		return MaxDrawdownWindow(in.Close, p)
	case MetricDrawdownFromATH:
		return DrawdownFromATH(in.Close)
	case MetricCumulativeReturn:
		return CumulativeReturn(in.Close, p)
	case MetricATR:
		return ATR(in.High, in.Low, in.Close, p)
	case MetricATRPercent:
		return ATRPercent(in.High, in.Low, in.Close, p)
	case MetricAnnualizedVol:
		return AnnualizedHistoricalVolatility(in.Close, p)
	case MetricUlcerIndex:
		return UlcerIndex(in.Close, p)
	case MetricBollingerPercentB:
		return BollingerPercentB(in.Close, p, 2, 2)
	case MetricBollingerBandwidth:
		return BollingerBandwidth(in.Close, p, 2, 2)
	case MetricLinearRegValue:
		return LinearRegValue(in.Close, p)
	case MetricLinearRegSlope:
		return LinearRegSlope(in.Close, p)
	case MetricTrendClarity:
		return TrendClarity(in.Close, p)
	case MetricPriceVsSMARatio:
		return PriceVsSMARatio(in.Close, p)
	case Metric13612W:
		return Momentum13612W(in.Close)
	case Metric13612U:
		return Momentum13612U(in.Close)
	case MetricSMA12Momentum:
		return MomentumSMA12(in.Close)
	case MetricMACDHistogram:
		return MACDHistogram(in.Close, 12, 26, 9)
	case MetricPPOHistogram:
		return PPOHistogram(in.Close, 12, 26, 9)
	case MetricROC:
		return ROC(in.Close, p)
	case MetricUltimateSmoother:
		return UltimateSmoother(in.Close, p)
	case MetricSuperSmoother:
		return SuperSmoother(in.Close, p)
	case MetricOBVROC:
		return OBVROC(in.Close, in.Volume, p)
	case MetricVWAPRatio:
		return VWAPRatio(in.High, in.Low, in.Close, in.Volume, p)
	default:
		return nanSeries(len(in.Close))
	}
}
