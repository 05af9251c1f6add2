package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/stratbacktest/internal/domain"
)

func flatResult(returns, benchReturns []float64, equity []float64) *Result {
	allocs := make([]domain.Allocation, len(returns))
	for i := range allocs {
		allocs[i] = domain.Allocation{"SPY": 1}
	}
	turnover := make([]float64, len(returns))
	holdings := make([]int, len(returns))
	for i := range holdings {
		holdings[i] = 1
	}
	return &Result{
		Returns: returns, BenchmarkReturns: benchReturns, Equity: equity,
		Allocations: allocs, Turnover: turnover, Holdings: holdings,
	}
}

func TestCagr_DoublingOverOneYearIsHundredPercent(t *testing.T) {
	equity := make([]float64, 253)
	for i := range equity {
		equity[i] = 1 + float64(i)/252
	}
	got := cagr(equity, 0, len(equity))
	// 252 daily returns take equity from 1 to 2: 2^(252/252) - 1 = 1.
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestCagr_ZeroOrNegativeEquityIsZero(t *testing.T) {
	assert.Equal(t, 0.0, cagr([]float64{0, 1.0}, 0, 2))
	assert.Equal(t, 0.0, cagr([]float64{-1, 1.0}, 0, 2))
}

func TestMaxDrawdown_TracksWorstPeakToTrough(t *testing.T) {
	equity := []float64{1.0, 1.2, 0.6, 0.9}
	got := maxDrawdown(equity)
	assert.InDelta(t, 0.6/1.2-1, got, 1e-9)
}

func TestMaxDrawdown_MonotonicRiseIsZero(t *testing.T) {
	equity := []float64{1.0, 1.1, 1.2, 1.3}
	assert.Equal(t, 0.0, maxDrawdown(equity))
}

func TestWinRate_CountsOnlyNonzeroReturns(t *testing.T) {
	r := []float64{0.01, -0.01, 0, 0.02}
	got := winRate(r)
	assert.InDelta(t, 2.0/3.0, got, 1e-9)
}

func TestSharpe_ZeroVolatilityIsZero(t *testing.T) {
	r := []float64{0.01, 0.01, 0.01}
	assert.Equal(t, 0.0, sharpe(r))
}

func TestSortino_IgnoresUpsideReturnsInTheDenominator(t *testing.T) {
	r := []float64{0.05, 0.05, 0.05, -0.01, -0.02}
	got := sortino(r)
	assert.NotEqual(t, 0.0, got)
}

func TestBeta_ZeroBenchmarkVarianceIsZero(t *testing.T) {
	r := []float64{0.01, 0.02, -0.01}
	bench := []float64{0, 0, 0}
	assert.Equal(t, 0.0, beta(r, bench))
}

func TestTimeInMarket_FractionOfDaysWithAPosition(t *testing.T) {
	allocs := []domain.Allocation{{"SPY": 1}, {}, {"QQQ": 0.5}, {}}
	assert.InDelta(t, 0.5, timeInMarket(allocs), 1e-9)
}

func TestFilterFinite_DropsNaN(t *testing.T) {
	got := filterFinite([]float64{1, math.NaN(), 2, math.NaN(), 3})
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestCompute_EmptyRangeYieldsZeroMetrics(t *testing.T) {
	res := flatResult(nil, nil, nil)
	m := Compute(res, 0, 0)
	assert.Equal(t, 0, m.TradingDays)
	assert.Equal(t, 0.0, m.CAGR)
}

func TestCompute_TradingDaysCountsOnlyFiniteReturns(t *testing.T) {
	returns := []float64{math.NaN(), 0.01, -0.005, 0.02}
	bench := []float64{math.NaN(), 0.005, -0.002, 0.01}
	equity := []float64{1.0, 1.01, 1.01 * 0.995, 1.01 * 0.995 * 1.02}
	res := flatResult(returns, bench, equity)
	m := Compute(res, 0, len(returns))
	assert.Equal(t, 3, m.TradingDays)
}
