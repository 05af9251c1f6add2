package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/evalctx"
	"github.com/aristath/stratbacktest/internal/indicators"
	"github.com/aristath/stratbacktest/internal/pricedb"
	"github.com/aristath/stratbacktest/internal/seriescache"
)

// splitBars gives Close and AdjClose very different values, as a stock
// split would, so realizeCC's choice of series is observable.
func splitBars(n int) []domain.Bar {
	const day = 86400
	out := make([]domain.Bar, n)
	for i := 0; i < n; i++ {
		out[i] = domain.Bar{
			EpochSeconds: int64(i) * day,
			Open:         100 + float64(i), High: 101 + float64(i), Low: 99 + float64(i),
			Close:    100 + float64(i)*10, // large raw moves
			AdjClose: 50 + float64(i),     // smaller, split-adjusted moves
			Volume:   10,
		}
	}
	return out
}

func buildSplitContext(t *testing.T) *evalctx.Context {
	t.Helper()
	db, err := pricedb.Build(
		[]pricedb.TickerSeries{{Ticker: "SPY", Bars: splitBars(5)}},
		map[domain.TickerKey]bool{"SPY": true},
	)
	require.NoError(t, err)
	cache := seriescache.New(db)
	disp := indicators.NewDispatcher(cache, nil, nil)
	return evalctx.New(db, cache, disp)
}

func TestRealizeCC_UsesRawCloseNotAdjClose(t *testing.T) {
	ctx := buildSplitContext(t)
	alloc := domain.Allocation{"SPY": 1}

	got := realizeCC(ctx, alloc, 0)

	closes := ctx.Series.DB().Close["SPY"]
	wantFromClose := closes[1]/closes[0] - 1
	adjCloses := ctx.Series.DB().AdjClose["SPY"]
	wantFromAdjClose := adjCloses[1]/adjCloses[0] - 1

	assert.InDelta(t, wantFromClose, got, 1e-9)
	assert.NotInDelta(t, wantFromAdjClose, got, 1e-9, "realizeCC must not read the adjusted-close series")
}

func TestRealizeCC_DropsEmptyAndZeroWeightLegs(t *testing.T) {
	ctx := buildSplitContext(t)
	alloc := domain.Allocation{"SPY": 1, domain.Empty: 0.5}

	got := realizeCC(ctx, alloc, 0)
	closes := ctx.Series.DB().Close["SPY"]
	want := closes[1]/closes[0] - 1
	assert.InDelta(t, want, got, 1e-9)
}

func TestRealizeCC_FloorsCatastrophicLossAtMinusOne(t *testing.T) {
	ctx := buildSplitContext(t)
	alloc := domain.Allocation{"SPY": 1000} // absurd weight to force a huge negative return
	// Force a crash: overwrite day 1's close to near zero.
	ctx.Series.DB().Close["SPY"][1] = 0.0001

	got := realizeCC(ctx, alloc, 0)
	assert.InDelta(t, -0.9999, got, 1e-9)
}

func TestRealizeCC_SkipsTickerWithNoCloseSeries(t *testing.T) {
	ctx := buildSplitContext(t)
	alloc := domain.Allocation{"UNKNOWN": 1}
	got := realizeCC(ctx, alloc, 0)
	assert.Equal(t, 0.0, got)
}

func TestBranchEquitySimulator_ResolveMemoizesBySubtreeID(t *testing.T) {
	ctx := buildSplitContext(t)
	kid := &domain.Node{ID: "leaf", Kind: domain.KindPosition, PositionTickers: []domain.TickerKey{"SPY"}}
	parent := &domain.Node{ID: "parent", Children: map[domain.Slot][]*domain.Node{domain.SlotThen: {kid}}}
	nodesByID := map[string]*domain.Node{"parent": parent, "leaf": kid}

	planner := NewPlanner(ctx.Series, nodesByID)
	sim := NewBranchEquitySimulator(ctx, nil, planner, nodesByID)

	first, err := sim.Resolve("parent", domain.SlotThen)
	require.NoError(t, err)
	second, err := sim.Resolve("parent", domain.SlotThen)
	require.NoError(t, err)
	assert.Same(t, &first[0], &second[0])
}

func TestBranchEquitySimulator_UnknownParentErrors(t *testing.T) {
	ctx := buildSplitContext(t)
	sim := NewBranchEquitySimulator(ctx, nil, nil, map[string]*domain.Node{})
	_, err := sim.Resolve("nope", domain.SlotThen)
	assert.Error(t, err)
}
