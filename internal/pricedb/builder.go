// Package pricedb implements the Price Database Builder (component C1): it
// aligns per-ticker bar arrays onto a single sorted date axis, using the
// intersection of "indicator ticker" dates as the axis and projecting
// every other ticker onto it with null-filled gaps.
package pricedb

import (
	"fmt"
	"sort"

	"github.com/aristath/stratbacktest/internal/domain"
)

// MinAlignedDates is the minimum number of aligned dates a backtest can run
// with; fewer than this fails with ErrInsufficientData.
const MinAlignedDates = 3

// ErrInsufficientData is returned when the aligned date axis has fewer than
// MinAlignedDates entries.
var ErrInsufficientData = fmt.Errorf("pricedb: insufficient aligned data (need at least %d dates)", MinAlignedDates)

// TickerSeries holds the full per-ticker bar history, keyed by epoch.
type TickerSeries struct {
	Ticker domain.TickerKey
	Bars   []domain.Bar
}

// PriceDB is the result of aligning N ticker bar-series onto a single sorted
// date vector.
type PriceDB struct {
	Dates []int64 // strictly increasing epoch seconds, length D

	Open     map[domain.TickerKey][]float64
	High     map[domain.TickerKey][]float64
	Low      map[domain.TickerKey][]float64
	Close    map[domain.TickerKey][]float64
	AdjClose map[domain.TickerKey][]float64
	Volume   map[domain.TickerKey][]float64

	// FirstValidIndex[ticker] is the first index i where Close[ticker][i]
	// is non-null; used by the warm-up planner for ratio/branch lookback.
	FirstValidIndex map[domain.TickerKey]int

	// DataQualityNotes records informational, non-fatal observations made
	// while aligning tickers (e.g. "AAPL history starts well after the
	// indicator-driven date axis").
	DataQualityNotes []string
}

// Len returns the number of aligned dates (D).
func (p *PriceDB) Len() int { return len(p.Dates) }

// Build aligns the given ticker series onto a common date axis. indicatorTickers
// identifies the subset of tickers that drive decisions (conditions, scaling
// controls, function-node ranking); the axis is the sorted intersection of
// their dates, falling back to the union of all ticker dates when that set is
// empty.
func Build(series []TickerSeries, indicatorTickers map[domain.TickerKey]bool) (*PriceDB, error) {
	byTicker := make(map[domain.TickerKey]map[int64]domain.Bar, len(series))
	for _, s := range series {
		m := make(map[int64]domain.Bar, len(s.Bars))
		for _, b := range s.Bars {
			if b.Valid() {
				m[b.EpochSeconds] = b
			}
		}
		byTicker[s.Ticker] = m
	}

	dates := computeAxis(byTicker, indicatorTickers)
	if len(dates) < MinAlignedDates {
		return nil, ErrInsufficientData
	}

	db := &PriceDB{
		Dates:           dates,
		Open:            map[domain.TickerKey][]float64{},
		High:            map[domain.TickerKey][]float64{},
		Low:             map[domain.TickerKey][]float64{},
		Close:           map[domain.TickerKey][]float64{},
		AdjClose:        map[domain.TickerKey][]float64{},
		Volume:          map[domain.TickerKey][]float64{},
		FirstValidIndex: map[domain.TickerKey]int{},
	}

	axisStart := dates[0]

	for ticker, bars := range byTicker {
		open := make([]float64, len(dates))
		high := make([]float64, len(dates))
		low := make([]float64, len(dates))
		closeArr := make([]float64, len(dates))
		adj := make([]float64, len(dates))
		vol := make([]float64, len(dates))

		firstValid := -1
		for i, d := range dates {
			b, ok := bars[d]
			if !ok {
				open[i], high[i], low[i], closeArr[i], adj[i], vol[i] = domain.NaN(), domain.NaN(), domain.NaN(), domain.NaN(), domain.NaN(), domain.NaN()
				continue
			}
			open[i], high[i], low[i], closeArr[i], adj[i], vol[i] = b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume
			if firstValid == -1 {
				firstValid = i
			}
		}
		if firstValid == -1 {
			firstValid = len(dates)
		}

		db.Open[ticker] = open
		db.High[ticker] = high
		db.Low[ticker] = low
		db.Close[ticker] = closeArr
		db.AdjClose[ticker] = adj
		db.Volume[ticker] = vol
		db.FirstValidIndex[ticker] = firstValid

		if firstValid > 0 {
			firstBarEpoch := earliestEpoch(bars)
			if firstBarEpoch > axisStart {
				db.DataQualityNotes = append(db.DataQualityNotes, fmt.Sprintf(
					"%s: history starts at a later date than the indicator-driven axis (position-only ticker, %d leading null days)",
					ticker, firstValid))
			}
		}
	}

	return db, nil
}

func earliestEpoch(bars map[int64]domain.Bar) int64 {
	min := int64(1<<63 - 1)
	for e := range bars {
		if e < min {
			min = e
		}
	}
	return min
}

func computeAxis(byTicker map[domain.TickerKey]map[int64]domain.Bar, indicatorTickers map[domain.TickerKey]bool) []int64 {
	var relevant []map[int64]domain.Bar
	for ticker, bars := range byTicker {
		if indicatorTickers[ticker] {
			relevant = append(relevant, bars)
		}
	}
	if len(relevant) == 0 {
		for _, bars := range byTicker {
			relevant = append(relevant, bars)
		}
		return unionDates(relevant)
	}
	return intersectionDates(relevant)
}

func intersectionDates(maps []map[int64]domain.Bar) []int64 {
	if len(maps) == 0 {
		return nil
	}
	counts := map[int64]int{}
	for _, m := range maps {
		for e := range m {
			counts[e]++
		}
	}
	out := make([]int64, 0, len(counts))
	for e, c := range counts {
		if c == len(maps) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func unionDates(maps []map[int64]domain.Bar) []int64 {
	seen := map[int64]bool{}
	for _, m := range maps {
		for e := range m {
			seen[e] = true
		}
	}
	out := make([]int64, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
