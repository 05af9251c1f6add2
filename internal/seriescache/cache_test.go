package seriescache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/pricedb"
)

func testBars(n int, start float64) []domain.Bar {
	const day = 86400
	out := make([]domain.Bar, n)
	for i := 0; i < n; i++ {
		p := start + float64(i)
		out[i] = domain.Bar{
			EpochSeconds: int64(i) * day,
			Open:         p, High: p + 1, Low: p - 1,
			Close: p, AdjClose: p, Volume: 10,
		}
	}
	return out
}

func testDB(t *testing.T) *pricedb.PriceDB {
	t.Helper()
	db, err := pricedb.Build(
		[]pricedb.TickerSeries{
			{Ticker: "SPY", Bars: testBars(10, 100)},
			{Ticker: "QQQ", Bars: testBars(10, 200)},
		},
		map[domain.TickerKey]bool{"SPY": true, "QQQ": true},
	)
	require.NoError(t, err)
	return db
}

func TestCloseArray_PlainTicker(t *testing.T) {
	c := New(testDB(t))
	arr := c.CloseArray(domain.Input{Kind: domain.InputTicker, Ticker: "SPY"})
	require.Len(t, arr, 10)
	assert.Equal(t, 100.0, arr[0])
	assert.Equal(t, 109.0, arr[9])
}

func TestCloseArray_RatioResolvesTransparently(t *testing.T) {
	c := New(testDB(t))
	arr := c.CloseArray(domain.Input{Kind: domain.InputRatio, RatioNumerator: "SPY", RatioDenominator: "QQQ"})
	require.Len(t, arr, 10)
	assert.InDelta(t, 100.0/200.0, arr[0], 1e-9)
}

func TestCloseArray_MemoizesResult(t *testing.T) {
	c := New(testDB(t))
	in := domain.Input{Kind: domain.InputTicker, Ticker: "SPY"}
	first := c.CloseArray(in)
	second := c.CloseArray(in)
	// Same backing array: memoized, not recomputed.
	assert.Same(t, &first[0], &second[0])
}

func TestReturns_NullAtIndexZeroAndWellFormedAfter(t *testing.T) {
	c := New(testDB(t))
	in := domain.Input{Kind: domain.InputTicker, Ticker: "SPY"}
	r := c.Returns(in)
	require.Len(t, r, 10)
	assert.True(t, domain.IsNull(r[0]))
	assert.InDelta(t, 101.0/100.0-1, r[1], 1e-9)
}

func TestRatioArray_NullWhenDenominatorIsZeroOrMissing(t *testing.T) {
	c := New(testDB(t))
	arr := c.ratioArray("SPY", "NONEXISTENT")
	for _, v := range arr {
		assert.True(t, domain.IsNull(v))
	}
}

func TestFirstValidIndex_RatioTakesLaterOfBothComponents(t *testing.T) {
	const day = 86400
	spy := testBars(10, 100) // epochs 0..9*day
	qqq := make([]domain.Bar, 5)
	copy(qqq, testBars(5, 200))
	for i := range qqq {
		qqq[i].EpochSeconds += 5 * day // epochs 5*day..9*day, starts later
	}

	db, err := pricedb.Build(
		[]pricedb.TickerSeries{{Ticker: "SPY", Bars: spy}, {Ticker: "QQQ", Bars: qqq}},
		map[domain.TickerKey]bool{"SPY": true},
	)
	require.NoError(t, err)
	require.Equal(t, 0, db.FirstValidIndex["SPY"])
	require.Equal(t, 5, db.FirstValidIndex["QQQ"])

	c := New(db)
	idx := c.FirstValidIndex(domain.Input{Kind: domain.InputRatio, RatioNumerator: "SPY", RatioDenominator: "QQQ"})
	assert.Equal(t, 5, idx)
}
