// Package indicators implements the closed catalog of rolling technical
// indicator functions (component C3) and the dispatcher that routes a
// (ticker, metric, window) triple to the right one while handling ratio,
// branch and custom-formula tickers (component C4).
package indicators

import (
	"fmt"
	"sync"

	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/seriescache"
)

// BranchSeriesFunc resolves the branch-equity curve for a (parentNodeID,
// slot) pair, lazily running component C7's sub-backtest the first time it
// is needed. Supplied by the evaluator so this package stays independent of
// the tree/backtest layers.
type BranchSeriesFunc func(parentNodeID string, slot domain.Slot) ([]float64, error)

// CustomSeriesFunc resolves a user-defined formula series by id, identified
// by its "custom:" prefix. Not part of the base catalog; left as an
// extension point wired by the evaluator.
type CustomSeriesFunc func(id string) ([]float64, error)

// Dispatcher is component C4: given an Input, a metric name and a window,
// it returns the metric's full series, memoized per (input key, metric,
// window) for the lifetime of one backtest request.
type Dispatcher struct {
	mu       sync.Mutex
	series   *seriescache.Cache
	branch   BranchSeriesFunc
	custom   CustomSeriesFunc
	computed map[string][]float64
}

// NewDispatcher builds a Dispatcher bound to a request's series cache and
// the branch/custom resolvers supplied by the evaluator.
func NewDispatcher(series *seriescache.Cache, branch BranchSeriesFunc, custom CustomSeriesFunc) *Dispatcher {
	return &Dispatcher{
		series:   series,
		branch:   branch,
		custom:   custom,
		computed: map[string][]float64{},
	}
}

func cacheKey(in domain.Input, metric domain.Metric, window int) string {
	return fmt.Sprintf("%s|%s|%d", in.Key(), metric, window)
}

// MetricAt computes (or returns the memoized) series for an Input/metric/
// window triple, then returns the single value at index i, or NaN if i is
// out of range.
func (d *Dispatcher) MetricAt(in domain.Input, metric domain.Metric, window, i int) (float64, error) {
	series, err := d.Series(in, metric, window)
	if err != nil {
		return domain.NaN(), err
	}
	if i < 0 || i >= len(series) {
		return domain.NaN(), nil
	}
	return series[i], nil
}

// Series computes (or returns the memoized) full series for an Input/
// metric/window triple.
func (d *Dispatcher) Series(in domain.Input, metric domain.Metric, window int) ([]float64, error) {
	d.mu.Lock()
	k := cacheKey(in, metric, window)
	if v, ok := d.computed[k]; ok {
		d.mu.Unlock()
		return v, nil
	}
	d.mu.Unlock()

	id, ok := Resolve(string(metric))
	if !ok {
		return nil, fmt.Errorf("indicators: unknown metric %q", metric)
	}

	closeArr, err := d.closeSeriesFor(in)
	if err != nil {
		return nil, err
	}

	// Branch and custom-formula inputs have no real high/low/volume, only a
	// synthetic close/equity series: a metric that needs the full OHLCV
	// bundle is unsupported on them and yields null rather than a bogus
	// value computed against close-as-high/close-as-low.
	if (in.Kind == domain.InputBranch || in.Kind == domain.InputCustom) && RequiresHLV(id) {
		out := nanSeries(len(closeArr))
		d.mu.Lock()
		d.computed[k] = out
		d.mu.Unlock()
		return out, nil
	}

	var high, low, volume []float64
	if in.Kind == domain.InputTicker {
		db := d.series.DB()
		high = db.High[in.Ticker]
		low = db.Low[in.Ticker]
		volume = db.Volume[in.Ticker]
	}
	// Ratio inputs have no ticker of their own either; OHLC-dependent
	// metrics on a ratio fall back to its synthetic close series so they
	// stay total functions (a ratio is still a price-like series, unlike a
	// branch/custom series which may not even be price-shaped).
	if high == nil {
		high = closeArr
	}
	if low == nil {
		low = closeArr
	}
	if volume == nil {
		volume = make([]float64, len(closeArr))
	}

	out := Compute(id, Inputs{Close: closeArr, High: high, Low: low, Volume: volume}, window)

	d.mu.Lock()
	d.computed[k] = out
	d.mu.Unlock()
	return out, nil
}

func (d *Dispatcher) closeSeriesFor(in domain.Input) ([]float64, error) {
	switch in.Kind {
	case domain.InputTicker, domain.InputRatio:
		return d.series.AdjCloseArray(in), nil
	case domain.InputBranch:
		if d.branch == nil {
			return nil, fmt.Errorf("indicators: branch input %s has no resolver", in.Key())
		}
		slot, err := in.BranchSlot.ResolvedSlot()
		if err != nil {
			return nil, err
		}
		return d.branch(in.BranchParentID, slot)
	case domain.InputCustom:
		if d.custom == nil {
			return nil, fmt.Errorf("indicators: custom input %s has no resolver", in.Key())
		}
		return d.custom(in.CustomID)
	default:
		return nil, fmt.Errorf("indicators: unsupported input kind for %s", in.Key())
	}
}
