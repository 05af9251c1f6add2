// Package seriescache implements the per-request memoization table for
// derived per-ticker arrays (component C2): adjusted close, daily returns,
// highs/lows/volumes and ratio-ticker synthetic closes.
package seriescache

import (
	"sync"

	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/pricedb"
)

// Kind names an outer-layer cache bucket.
type Kind string

const (
	KindClose    Kind = "close"
	KindAdjClose Kind = "adjClose"
	KindOpen     Kind = "open"
	KindHigh     Kind = "high"
	KindLow      Kind = "low"
	KindVolume   Kind = "volume"
	KindReturns  Kind = "returns"
)

type key struct {
	kind   Kind
	ticker string
}

// Cache is a per-backtest memoization table. Its map is guarded by a
// mutex; a single request is evaluated single-threaded, and separate
// requests each own an independent Cache.
type Cache struct {
	mu  sync.Mutex
	db  *pricedb.PriceDB
	arr map[key][]float64
}

// New creates a series cache bound to a built PriceDB.
func New(db *pricedb.PriceDB) *Cache {
	return &Cache{db: db, arr: map[key][]float64{}}
}

// CloseArray resolves the close-price array for an Input, transparently
// handling ratio tickers. It always resolves adjClose for ratio
// numerators/denominators, matching the synthetic-close definition shared
// with the rest of this package.
func (c *Cache) CloseArray(in domain.Input) []float64 {
	return c.arrayFor(KindClose, in)
}

// AdjCloseArray resolves the adjusted-close array for a plain or ratio
// ticker.
func (c *Cache) AdjCloseArray(in domain.Input) []float64 {
	return c.arrayFor(KindAdjClose, in)
}

func (c *Cache) arrayFor(kind Kind, in domain.Input) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{kind: kind, ticker: in.Key()}
	if v, ok := c.arr[k]; ok {
		return v
	}

	var out []float64
	switch in.Kind {
	case domain.InputTicker:
		out = c.plainArray(kind, in.Ticker)
	case domain.InputRatio:
		out = c.ratioArray(in.RatioNumerator, in.RatioDenominator)
	default:
		// Branch/custom inputs are not close-price series; callers must
		// route those through the indicator dispatcher instead.
		out = nil
	}

	c.arr[k] = out
	return out
}

func (c *Cache) plainArray(kind Kind, ticker domain.TickerKey) []float64 {
	var src map[domain.TickerKey][]float64
	switch kind {
	case KindOpen:
		src = c.db.Open
	case KindHigh:
		src = c.db.High
	case KindLow:
		src = c.db.Low
	case KindClose, KindAdjClose:
		// CC realization and most indicators read adjClose; raw close is
		// used only for price-mode realization at entry/exit (see
		// RawClose below). Both are stored separately in PriceDB;
		// KindClose here means "the series indicators read", which is
		// adjClose by convention.
		src = c.db.AdjClose
	case KindVolume:
		src = c.db.Volume
	default:
		return nil
	}
	return src[ticker]
}

// RawClose returns the raw (non-adjusted) close array for a ticker.
func (c *Cache) RawClose(ticker domain.TickerKey) []float64 {
	return c.db.Close[ticker]
}

// RawOpen returns the raw open array for a ticker.
func (c *Cache) RawOpen(ticker domain.TickerKey) []float64 {
	return c.db.Open[ticker]
}

func (c *Cache) ratioArray(num, den domain.TickerKey) []float64 {
	numArr := c.db.AdjClose[num]
	denArr := c.db.AdjClose[den]
	n := c.db.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var nv, dv float64 = domain.NaN(), domain.NaN()
		if numArr != nil {
			nv = numArr[i]
		}
		if denArr != nil {
			dv = denArr[i]
		}
		if domain.IsNull(nv) || domain.IsNull(dv) || dv == 0 {
			out[i] = domain.NaN()
			continue
		}
		out[i] = nv / dv
	}
	return out
}

// Returns computes (and memoizes) the daily simple-return array for an
// Input's adjusted-close series: Returns[i] = AdjClose[i]/AdjClose[i-1] - 1,
// null at i==0 and wherever either side is null.
func (c *Cache) Returns(in domain.Input) []float64 {
	c.mu.Lock()
	k := key{kind: KindReturns, ticker: in.Key()}
	if v, ok := c.arr[k]; ok {
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	closes := c.AdjCloseArray(in)
	out := make([]float64, len(closes))
	if len(closes) > 0 {
		out[0] = domain.NaN()
	}
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if domain.IsNull(prev) || domain.IsNull(cur) || prev == 0 {
			out[i] = domain.NaN()
			continue
		}
		out[i] = cur/prev - 1
	}

	c.mu.Lock()
	c.arr[k] = out
	c.mu.Unlock()
	return out
}

// FirstValidIndex returns the first index at which an Input's price series
// is defined, used by the warm-up planner. Ratio tickers report the later
// of their two components' first-valid indices.
func (c *Cache) FirstValidIndex(in domain.Input) int {
	switch in.Kind {
	case domain.InputTicker:
		if idx, ok := c.db.FirstValidIndex[in.Ticker]; ok {
			return idx
		}
		return c.db.Len()
	case domain.InputRatio:
		a := c.db.FirstValidIndex[in.RatioNumerator]
		b := c.db.FirstValidIndex[in.RatioDenominator]
		if a > b {
			return a
		}
		return b
	default:
		return 0
	}
}

// DB exposes the underlying PriceDB (e.g. for the backtest driver's
// realization loop, which needs raw open/close directly).
func (c *Cache) DB() *pricedb.PriceDB { return c.db }
