package indicators

// MetricID names an entry in the closed indicator catalog. It is resolved
// once from the tree-level domain.Metric string at ingest time.
type MetricID string

const (
	MetricSMA                MetricID = "sma"
	MetricEMA                MetricID = "ema"
	MetricWilderMA           MetricID = "wilder_ma"
	MetricWMA                MetricID = "wma"
	MetricHMA                MetricID = "hma"
	MetricDEMA               MetricID = "dema"
	MetricTEMA               MetricID = "tema"
	MetricKAMA               MetricID = "kama"
	MetricRSI                MetricID = "rsi"
	MetricRSISMA             MetricID = "rsi_sma"
	MetricRSIEMA             MetricID = "rsi_ema"
	MetricStochasticRSI      MetricID = "stoch_rsi"
	MetricLaguerreRSI        MetricID = "laguerre_rsi"
	MetricADX                MetricID = "adx"
	MetricCCI                MetricID = "cci"
	MetricWilliamsR          MetricID = "williams_r"
	MetricStochK             MetricID = "stoch_k"
	MetricStochD             MetricID = "stoch_d"
	MetricMFI                MetricID = "mfi"
	MetricAroonUp            MetricID = "aroon_up"
	MetricAroonDown          MetricID = "aroon_down"
	MetricAroonOscillator    MetricID = "aroon_osc"
	MetricStdDevReturnsPct   MetricID = "stddev_returns_pct"
	MetricStdDevPrice        MetricID = "stddev_price"
	MetricMaxDrawdownWindow  MetricID = "max_drawdown_window"
	MetricDrawdownFromATH    MetricID = "drawdown_from_ath"
	MetricCumulativeReturn   MetricID = "cumulative_return"
	MetricATR                MetricID = "atr"
	MetricATRPercent         MetricID = "atr_percent"
	MetricAnnualizedVol      MetricID = "annualized_vol"
	MetricUlcerIndex         MetricID = "ulcer_index"
	MetricBollingerPercentB  MetricID = "bollinger_percent_b"
	MetricBollingerBandwidth MetricID = "bollinger_bandwidth"
	MetricLinearRegValue     MetricID = "linreg_value"
	MetricLinearRegSlope     MetricID = "linreg_slope"
	MetricTrendClarity       MetricID = "trend_clarity"
	MetricPriceVsSMARatio    MetricID = "price_vs_sma_ratio"
	Metric13612W             MetricID = "momentum_13612w"
	Metric13612U             MetricID = "momentum_13612u"
	MetricSMA12Momentum      MetricID = "momentum_sma12"
	MetricMACDHistogram      MetricID = "macd_histogram"
	MetricPPOHistogram       MetricID = "ppo_histogram"
	MetricROC                MetricID = "roc"
	MetricUltimateSmoother   MetricID = "ultimate_smoother"
	MetricSuperSmoother      MetricID = "super_smoother"
	MetricOBVROC             MetricID = "obv_roc"
	MetricVWAPRatio          MetricID = "vwap_ratio"
)

// Lookback returns the minimum number of trailing bars required before a
// metric's value at a given period p is first meaningful, feeding
// component C8's static warm-up planner. Metrics fixed to the 1-3-6-12
// month family ignore p and always require 252.
func Lookback(id MetricID, p int) int {
	switch id {
	case MetricSMA, MetricWMA, MetricWilderMA, MetricRSI, MetricCCI,
		MetricWilliamsR, MetricStochK, MetricMFI, MetricAroonUp, MetricAroonDown,
		MetricAroonOscillator, MetricStdDevReturnsPct, MetricStdDevPrice,
		MetricMaxDrawdownWindow, MetricCumulativeReturn, MetricATR, MetricATRPercent,
		MetricAnnualizedVol, MetricUlcerIndex, MetricBollingerPercentB,
		MetricBollingerBandwidth, MetricLinearRegValue, MetricLinearRegSlope,
		MetricTrendClarity, MetricPriceVsSMARatio, MetricROC, MetricOBVROC,
		MetricVWAPRatio, MetricLaguerreRSI, MetricSuperSmoother, MetricUltimateSmoother,
		MetricEMA:
		return p

	case MetricStochD:
		return p + 2

	case MetricRSISMA, MetricRSIEMA, MetricStochasticRSI:
		return p + p // RSI window plus its own smoothing window, conservatively doubled.

	case MetricADX:
		return 2 * p

	case MetricDEMA:
		return 2 * p
	case MetricTEMA:
		return 3 * p
	case MetricKAMA:
		return p + 30
	case MetricHMA:
		return p

	case Metric13612W, Metric13612U, MetricSMA12Momentum:
		return 252

	case MetricMACDHistogram, MetricPPOHistogram:
		return 35 // canonical (12,26,9): slow(26)+signal(9)-1 = 34 leading nulls, first value on bar 35.

	case MetricDrawdownFromATH:
		return 1 // windowless, but needs at least one valid bar.

	default:
		return p
	}
}

// WithForDays adds the additional (k-1) trailing bars a for-N-days
// condition requires on top of its underlying metric's own lookback.
func WithForDays(base, forDays int) int {
	if forDays <= 1 {
		return base
	}
	return base + (forDays - 1)
}
