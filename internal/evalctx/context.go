// Package evalctx holds the per-request Context object: the one place all
// mutable backtest state lives. A Context is built once per backtest
// request and discarded at request end; nothing in it is shared across
// concurrent requests, so requests can run in parallel without locking.
package evalctx

import (
	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/indicators"
	"github.com/aristath/stratbacktest/internal/pricedb"
	"github.com/aristath/stratbacktest/internal/seriescache"
)

// AltExitState is the persistent per-node "entered" boolean an altExit
// gate carries across days. Keyed by node id so a fresh map can be handed
// to a branch-equity sub-simulation without disturbing the outer
// backtest's state.
type AltExitState map[string]bool

// Context bundles everything one backtest evaluation needs: the aligned
// price database, the series and indicator caches, per-node altExit state,
// and a ticker-location index recording which nodes reference which
// tickers (filled through RecordTickerLocation, read through
// NodesReferencing).
type Context struct {
	DB         *pricedb.PriceDB
	Series     *seriescache.Cache
	Indicators *indicators.Dispatcher
	AltExit    AltExitState

	// IndicatorIndex is the day index condition evaluation must read at —
	// d for CC/CO trade-timing modes, d-1 for OO/OC. Set once per day by
	// the backtest driver before evaluating the tree.
	IndicatorIndex int

	// tickerLocations maps a normalized ticker key to the node ids that
	// reference it anywhere in the tree (position lists, condition
	// left/right inputs, scaling controls), filled once when the engine
	// builds the Context. The warm-up planner does not read it; it walks
	// the tree itself.
	tickerLocations map[domain.TickerKey][]string
}

// New builds a fresh per-request Context. AltExit always starts empty; a
// branch-equity sub-simulation must call Fork, never reuse the outer map.
func New(db *pricedb.PriceDB, series *seriescache.Cache, disp *indicators.Dispatcher) *Context {
	return &Context{
		DB:              db,
		Series:          series,
		Indicators:      disp,
		AltExit:         AltExitState{},
		tickerLocations: map[domain.TickerKey][]string{},
	}
}

// Fork returns a new Context sharing this one's read-only price/series/
// indicator layers but with a fresh, independent AltExitState map — used
// by component C7's branch-equity simulator so nested sub-backtests never
// observe or mutate the outer altExit state.
func (c *Context) Fork() *Context {
	return &Context{
		DB:              c.DB,
		Series:          c.Series,
		Indicators:      c.Indicators,
		AltExit:         AltExitState{},
		tickerLocations: c.tickerLocations,
	}
}

// RecordTickerLocation registers that nodeID references ticker somewhere in
// its configuration. Called once while walking the tree at ingest time.
func (c *Context) RecordTickerLocation(ticker domain.TickerKey, nodeID string) {
	if ticker == domain.Empty {
		return
	}
	c.tickerLocations[ticker] = append(c.tickerLocations[ticker], nodeID)
}

// NodesReferencing returns the node ids that reference a given ticker.
func (c *Context) NodesReferencing(ticker domain.TickerKey) []string {
	return c.tickerLocations[ticker]
}

// MetricAt is the single explicit-index metric accessor every evaluation
// path uses, so every caller — current-day or lookback, outer backtest or
// branch sub-simulation — goes through one function taking an explicit
// index rather than an implicit "current day" assumption.
func (c *Context) MetricAt(in domain.Input, metric domain.Metric, window, i int) (float64, error) {
	return c.Indicators.MetricAt(in, metric, window, i)
}

// MetricAtCurrent is a thin wrapper passing c.IndicatorIndex when the
// caller has no more specific index in mind.
func (c *Context) MetricAtCurrent(in domain.Input, metric domain.Metric, window int) (float64, error) {
	return c.MetricAt(in, metric, window, c.IndicatorIndex)
}
