package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/evalctx"
	"github.com/aristath/stratbacktest/internal/evaluator"
	"github.com/aristath/stratbacktest/internal/indicators"
	"github.com/aristath/stratbacktest/internal/pricedb"
	"github.com/aristath/stratbacktest/internal/seriescache"
)

func driverBars(closes []float64) []domain.Bar {
	const day = 86400
	out := make([]domain.Bar, len(closes))
	for i, p := range closes {
		out[i] = domain.Bar{
			EpochSeconds: int64(i) * day,
			Open:         p, High: p + 1, Low: p - 1,
			Close: p, AdjClose: p, Volume: 10,
		}
	}
	return out
}

// allInPositionTree builds a root that is always 100% in one ticker,
// so the realization loop's output depends only on prices and Config.
func allInPositionTree(ticker domain.TickerKey) *domain.Node {
	return &domain.Node{ID: "root", Kind: domain.KindPosition, PositionTickers: []domain.TickerKey{ticker}}
}

func buildDriverContext(t *testing.T, closes []float64) (*evalctx.Context, *evaluator.Evaluator, *evaluator.Planner, *domain.Node) {
	t.Helper()
	db, err := pricedb.Build(
		[]pricedb.TickerSeries{{Ticker: "SPY", Bars: driverBars(closes)}},
		map[domain.TickerKey]bool{"SPY": true},
	)
	require.NoError(t, err)

	cache := seriescache.New(db)
	disp := indicators.NewDispatcher(cache, nil, nil)
	ctx := evalctx.New(db, cache, disp)

	root := allInPositionTree("SPY")
	nodesByID := map[string]*domain.Node{"root": root}
	planner := evaluator.NewPlanner(cache, nodesByID)
	eval := evaluator.New(nil, nil)
	return ctx, eval, planner, root
}

func TestRun_ConstantPriceProducesFlatEquityCurve(t *testing.T) {
	ctx, eval, planner, root := buildDriverContext(t, []float64{100, 100, 100, 100, 100})
	res, err := Run(ctx, eval, root, planner, Config{Mode: ModeCC, BenchmarkTicker: "SPY"})
	require.NoError(t, err)
	for i := range res.Equity {
		assert.InDelta(t, 1.0, res.Equity[i], 1e-9)
	}
}

func TestRun_CCModeRealizesAdjCloseToAdjCloseReturn(t *testing.T) {
	ctx, eval, planner, root := buildDriverContext(t, []float64{100, 110, 110, 121, 121})
	res, err := Run(ctx, eval, root, planner, Config{Mode: ModeCC, BenchmarkTicker: "SPY"})
	require.NoError(t, err)
	assert.InDelta(t, 1.1, res.Equity[1], 1e-9)
	assert.InDelta(t, 1.1, res.Equity[2], 1e-9)
	assert.InDelta(t, 1.21, res.Equity[3], 1e-9)
}

func TestRun_CostBpsReducesNetReturn(t *testing.T) {
	ctx, eval, planner, root := buildDriverContext(t, []float64{100, 110, 121, 133.1, 146.41})
	free, err := Run(ctx, eval, root, planner, Config{Mode: ModeCC, BenchmarkTicker: "SPY"})
	require.NoError(t, err)
	taxed, err := Run(ctx, eval, root, planner, Config{Mode: ModeCC, CostBps: 100, BenchmarkTicker: "SPY"})
	require.NoError(t, err)
	assert.Less(t, taxed.Equity[len(taxed.Equity)-1], free.Equity[len(free.Equity)-1])
}

func TestRun_InsufficientDatesErrors(t *testing.T) {
	// Built directly rather than via pricedb.Build, which enforces its own
	// (identical) minimum -- this exercises Run's own defensive check.
	db := &pricedb.PriceDB{
		Dates:    []int64{0, 86400},
		Close:    map[domain.TickerKey][]float64{"SPY": {100, 110}},
		AdjClose: map[domain.TickerKey][]float64{"SPY": {100, 110}},
		Open:     map[domain.TickerKey][]float64{"SPY": {100, 110}},
	}
	cache := seriescache.New(db)
	ctx := evalctx.New(db, cache, indicators.NewDispatcher(cache, nil, nil))
	root := allInPositionTree("SPY")
	planner := evaluator.NewPlanner(cache, map[string]*domain.Node{"root": root})
	eval := evaluator.New(nil, nil)

	_, err := Run(ctx, eval, root, planner, Config{Mode: ModeCC})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRun_WarmupExceedingHistoryErrors(t *testing.T) {
	ctx, eval, _, root := buildDriverContext(t, []float64{100, 110, 121, 133.1, 146.41})
	// A scaling root whose control SMA needs a 1000-day window, far wider
	// than the 5 available dates, so the planner's warm-up exceeds history.
	planner := evaluator.NewPlanner(ctx.Series, map[string]*domain.Node{"root": root})
	stubRoot := &domain.Node{ID: "stub-root-needs-huge-warmup", Kind: domain.KindScaling,
		ControlInput: domain.Input{Kind: domain.InputTicker, Ticker: "SPY"},
		ControlMetric: domain.Metric("sma"), ControlWindow: 1000}
	_, err := Run(ctx, eval, stubRoot, planner, Config{Mode: ModeCC})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRun_UnknownBenchmarkFallsBackToDefault(t *testing.T) {
	ctx, eval, planner, root := buildDriverContext(t, []float64{100, 110, 121, 133.1, 146.41})
	res, err := Run(ctx, eval, root, planner, Config{Mode: ModeCC, BenchmarkTicker: "NOPE"})
	require.NoError(t, err)
	assert.InDelta(t, res.Equity[1], res.BenchmarkEquity[1], 1e-9, "NOPE has no data, should fall back to SPY, same ticker as the position")
}

func TestIndicatorIndexFor_OOAndOCLagByOneDay(t *testing.T) {
	assert.Equal(t, 0, indicatorIndexFor(ModeOO, 0))
	assert.Equal(t, 4, indicatorIndexFor(ModeOO, 5))
	assert.Equal(t, 4, indicatorIndexFor(ModeOC, 5))
}

func TestIndicatorIndexFor_CCAndCOReadTheSameDay(t *testing.T) {
	assert.Equal(t, 5, indicatorIndexFor(ModeCC, 5))
	assert.Equal(t, 5, indicatorIndexFor(ModeCO, 5))
}

func TestRealizationIndices_OCTradesWithinTheSameBar(t *testing.T) {
	entry, exit := realizationIndices(ModeOC, 5)
	assert.Equal(t, 5, entry)
	assert.Equal(t, 5, exit)
}

func TestRealizationIndices_OtherModesTradeIntoTheNextBar(t *testing.T) {
	entry, exit := realizationIndices(ModeCC, 5)
	assert.Equal(t, 5, entry)
	assert.Equal(t, 6, exit)
}

func TestTurnoverOf_FullSwitchIsOne(t *testing.T) {
	cur := domain.Allocation{"QQQ": 1}
	prev := domain.Allocation{"SPY": 1}
	assert.InDelta(t, 1.0, turnoverOf(cur, prev), 1e-9)
}

func TestTurnoverOf_NoChangeIsZero(t *testing.T) {
	alloc := domain.Allocation{"SPY": 0.6, "QQQ": 0.4}
	assert.InDelta(t, 0.0, turnoverOf(alloc, alloc.Clone()), 1e-9)
}

func TestCountHoldings_IgnoresEmptyAndZeroWeight(t *testing.T) {
	alloc := domain.Allocation{"SPY": 0.5, domain.Empty: 0.5, "QQQ": 0}
	assert.Equal(t, 1, countHoldings(alloc))
}
