package backtest

import (
	"math"
	"sort"
	"time"
)

// SplitStrategy selects how the in-sample/out-of-sample partition is drawn
// from the date axis.
type SplitStrategy string

const (
	SplitEvenOddMonth  SplitStrategy = "even_odd_month"
	SplitEvenOddYear   SplitStrategy = "even_odd_year"
	SplitChronological SplitStrategy = "chronological"
)

// SplitConfig mirrors the request's `splitConfig` input field.
type SplitConfig struct {
	Enabled              bool
	Strategy             SplitStrategy
	SplitDate            *int64 // epoch seconds; explicit chronological threshold
	ChronologicalPercent float64
}

// Partition is a set of day indices (into a Result's daily vectors)
// belonging to one side of an IS/OOS split.
type Partition struct {
	Indices   []int
	StartDate int64
	EndDate   int64
}

// Split partitions the scored range [from, to) of res's date axis into an
// in-sample and out-of-sample Partition per cfg.Strategy. Both partitions
// are filtered subsets of the full day index range, not
// re-chained sub-backtests: an index appears in at most one partition,
// preserving the full equity curve's own day-to-day compounding.
func Split(res *Result, from, to int, cfg SplitConfig) (is, oos Partition) {
	switch cfg.Strategy {
	case SplitEvenOddYear:
		return splitByPredicate(res, from, to, func(d int64) bool {
			return time.Unix(d, 0).UTC().Year()%2 != 0
		})
	case SplitChronological:
		threshold := chronologicalThreshold(res, from, to, cfg)
		return splitByPredicate(res, from, to, func(d int64) bool { return d < threshold })
	default: // SplitEvenOddMonth
		return splitByPredicate(res, from, to, func(d int64) bool {
			return int(time.Unix(d, 0).UTC().Month())%2 != 0
		})
	}
}

func splitByPredicate(res *Result, from, to int, isSample func(int64) bool) (is, oos Partition) {
	for i := from; i < to; i++ {
		d := res.Dates[i]
		if isSample(d) {
			is.Indices = append(is.Indices, i)
		} else {
			oos.Indices = append(oos.Indices, i)
		}
	}
	fillBounds(res, &is)
	fillBounds(res, &oos)
	return is, oos
}

func fillBounds(res *Result, p *Partition) {
	if len(p.Indices) == 0 {
		return
	}
	p.StartDate = res.Dates[p.Indices[0]]
	p.EndDate = res.Dates[p.Indices[len(p.Indices)-1]]
}

// chronologicalThreshold resolves the IS/OOS cutoff date: an explicit
// SplitDate if given, otherwise the ChronologicalPercent-th quantile of the
// scored date range.
func chronologicalThreshold(res *Result, from, to int, cfg SplitConfig) int64 {
	if cfg.SplitDate != nil {
		return *cfg.SplitDate
	}
	pct := cfg.ChronologicalPercent
	if pct <= 0 || pct >= 100 {
		pct = 70
	}
	dates := append([]int64{}, res.Dates[from:to]...)
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	if len(dates) == 0 {
		return 0
	}
	idx := int(float64(len(dates)-1) * pct / 100)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(dates) {
		idx = len(dates) - 1
	}
	return dates[idx]
}

// FilteredMetrics scores a Partition using the same formulas as Compute,
// against the filtered (non-contiguous) subset of daily vectors it names,
// rather than a re-chained equity curve.
func FilteredMetrics(res *Result, p Partition) Metrics {
	if len(p.Indices) == 0 {
		return Metrics{}
	}

	returns := make([]float64, 0, len(p.Indices))
	benchReturns := make([]float64, 0, len(p.Indices))
	var turnover []float64
	var holdings []int
	for _, i := range p.Indices {
		returns = append(returns, res.Returns[i])
		benchReturns = append(benchReturns, res.BenchmarkReturns[i])
		if i < len(res.Turnover) {
			turnover = append(turnover, res.Turnover[i])
		}
		if i < len(res.Holdings) {
			holdings = append(holdings, res.Holdings[i])
		}
	}

	first, last := p.Indices[0], p.Indices[len(p.Indices)-1]
	m := Metrics{TradingDays: len(filterFinite(returns))}
	if m.TradingDays == 0 {
		return m
	}

	m.CAGR = cagr(res.Equity, first, last+1)
	m.MaxDrawdown = maxDrawdown(res.Equity[first : last+1])
	fr := filterFinite(returns)
	frBench := filterFinite(benchReturns)
	m.Volatility = sampleStdDev(fr) * math.Sqrt(252)
	m.SharpeRatio = sharpe(fr)
	m.SortinoRatio = sortino(fr)
	if m.MaxDrawdown != 0 {
		m.CalmarRatio = m.CAGR / absFloat(m.MaxDrawdown)
	}
	m.Beta = beta(fr, frBench)
	if m.Beta > 0 {
		m.TreynorRatio = m.CAGR / m.Beta
	}
	m.WinRate = winRate(fr)
	m.AvgTurnover = meanOf(turnover)
	m.AvgHoldings = meanIntOf(holdings)
	m.BestDay, m.WorstDay = bestWorst(fr)

	activeDays := 0
	for _, i := range p.Indices {
		if res.Allocations[i].Sum() > 1e-9 {
			activeDays++
		}
	}
	m.TIM = float64(activeDays) / float64(len(p.Indices))
	if m.TIM > 0 {
		m.TIMAR = m.CAGR / m.TIM
	}
	return m
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
