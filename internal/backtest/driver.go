package backtest

import (
	"fmt"

	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/evalctx"
	"github.com/aristath/stratbacktest/internal/evaluator"
)

// Mode is the trade-timing model: which bar's price a decision reads its
// indicators from, and which pair of prices it trades between.
type Mode string

const (
	ModeOO Mode = "OO"
	ModeCC Mode = "CC"
	ModeCO Mode = "CO"
	ModeOC Mode = "OC"
)

// Config holds the knobs of a single backtest request, restricted to the
// core driver's own concerns.
type Config struct {
	Mode            Mode
	CostBps         float64
	BenchmarkTicker domain.TickerKey
}

// DefaultBenchmarkTicker is used when Config.BenchmarkTicker is empty or
// its data is missing from the price DB.
const DefaultBenchmarkTicker domain.TickerKey = "SPY"

// Result is the day-indexed output of the C9 day loop and realization loop.
type Result struct {
	Dates            []int64
	Allocations      []domain.Allocation
	Returns          []float64 // net portfolio return realized ending at this index; NaN before the first realized day
	BenchmarkReturns []float64
	Equity           []float64
	BenchmarkEquity  []float64
	Turnover         []float64
	Holdings         []int
	StartIndex       int
}

// Run executes component C9: the day loop (compute allocation at day d)
// followed by the realization loop (realize day d -> d+1 return under the
// configured price mode), accumulating equity, turnover and costs.
func Run(ctx *evalctx.Context, eval *evaluator.Evaluator, root *domain.Node, planner *evaluator.Planner, cfg Config) (*Result, error) {
	n := ctx.DB.Len()
	if n < 3 {
		return nil, fmt.Errorf("%w: %d aligned dates", ErrInsufficientData, n)
	}

	start := planner.StartIndex(root)
	if start >= n-1 {
		return nil, fmt.Errorf("%w: warm-up (%d) exceeds available history (%d)", ErrInsufficientData, start, n)
	}

	bench := cfg.BenchmarkTicker
	if bench == domain.Empty {
		bench = DefaultBenchmarkTicker
	}
	if _, ok := ctx.DB.AdjClose[bench]; !ok {
		bench = DefaultBenchmarkTicker
	}

	res := &Result{
		Dates:            ctx.DB.Dates,
		Allocations:      make([]domain.Allocation, n),
		Returns:          make([]float64, n),
		BenchmarkReturns: make([]float64, n),
		Equity:           make([]float64, n),
		BenchmarkEquity:  make([]float64, n),
		Turnover:         make([]float64, n),
		Holdings:         make([]int, n),
		StartIndex:       start,
	}
	for i := 0; i < n; i++ {
		res.Returns[i] = domain.NaN()
		res.BenchmarkReturns[i] = domain.NaN()
	}
	for i := 0; i <= start && i < n; i++ {
		res.Equity[i] = 1.0
		res.BenchmarkEquity[i] = 1.0
	}

	sameBar := cfg.Mode == ModeOC
	lastDay := n - 1
	if !sameBar {
		lastDay = n - 2 // the realization loop needs d+1 to exist
	}

	var prevAlloc domain.Allocation
	held := false
	for d := start; d <= lastDay; d++ {
		ctx.IndicatorIndex = indicatorIndexFor(cfg.Mode, d)
		alloc, err := eval.Evaluate(ctx, root)
		if err != nil {
			return nil, err
		}
		res.Allocations[d] = alloc
		if countHoldings(alloc) > 0 {
			held = true
		}

		entryIdx, exitIdx := realizationIndices(cfg.Mode, d)
		gross := grossReturn(ctx, alloc, cfg.Mode, entryIdx, exitIdx)
		turnover := turnoverOf(alloc, prevAlloc)
		cost := cfg.CostBps * turnover / 10000
		net := gross - cost
		if net < -0.9999 {
			net = -0.9999
		}

		realizedDay := exitIdx
		if sameBar {
			realizedDay = d
		}
		prevEquity := 1.0
		if realizedDay > 0 {
			prevEquity = res.Equity[realizedDay-1]
		}
		res.Equity[realizedDay] = prevEquity * (1 + net)
		res.Returns[realizedDay] = net
		res.Turnover[realizedDay] = turnover
		res.Holdings[realizedDay] = countHoldings(alloc)

		benchAlloc := domain.Allocation{bench: 1}
		benchGross := grossReturn(ctx, benchAlloc, cfg.Mode, entryIdx, exitIdx)
		prevBenchEquity := 1.0
		if realizedDay > 0 {
			prevBenchEquity = res.BenchmarkEquity[realizedDay-1]
		}
		res.BenchmarkEquity[realizedDay] = prevBenchEquity * (1 + benchGross)
		res.BenchmarkReturns[realizedDay] = benchGross

		prevAlloc = alloc
	}
	if !held {
		return nil, fmt.Errorf("%w: tree allocates to no ticker on any evaluated day", ErrInsufficientData)
	}

	// Carry the final equity value forward through any trailing days the
	// realization loop did not reach (e.g. the very last bar under a
	// next-day mode).
	for i := start + 1; i < n; i++ {
		if res.Equity[i] == 0 {
			res.Equity[i] = res.Equity[i-1]
			res.BenchmarkEquity[i] = res.BenchmarkEquity[i-1]
		}
	}

	return res, nil
}

func indicatorIndexFor(mode Mode, d int) int {
	switch mode {
	case ModeOO, ModeOC:
		if d == 0 {
			return 0
		}
		return d - 1
	default: // CC, CO
		return d
	}
}

// realizationIndices returns the (entry, exit) day indices a decision on
// day d trades between.
func realizationIndices(mode Mode, d int) (int, int) {
	switch mode {
	case ModeOC:
		return d, d
	default:
		return d, d + 1
	}
}

func grossReturn(ctx *evalctx.Context, alloc domain.Allocation, mode Mode, entryIdx, exitIdx int) float64 {
	gross := 0.0
	for t, w := range alloc {
		if t == domain.Empty || w <= 0 {
			continue
		}
		entry, exit := entryExitPrice(ctx, t, mode, entryIdx, exitIdx)
		if domain.IsNull(entry) || domain.IsNull(exit) || entry <= 0 {
			// A null or non-positive entry/exit price: this ticker
			// contributes 0 for the day; no error is raised.
			continue
		}
		gross += w * (exit/entry - 1)
	}
	return gross
}

func entryExitPrice(ctx *evalctx.Context, t domain.TickerKey, mode Mode, entryIdx, exitIdx int) (float64, float64) {
	open := ctx.DB.Open[t]
	closeArr := ctx.DB.Close[t]
	adj := ctx.DB.AdjClose[t]

	inBounds := func(arr []float64, i int) float64 {
		if arr == nil || i < 0 || i >= len(arr) {
			return domain.NaN()
		}
		return arr[i]
	}

	switch mode {
	case ModeOO:
		return inBounds(open, entryIdx), inBounds(open, exitIdx)
	case ModeCC:
		return inBounds(adj, entryIdx), inBounds(adj, exitIdx)
	case ModeCO:
		return inBounds(closeArr, entryIdx), inBounds(open, exitIdx)
	case ModeOC:
		return inBounds(open, entryIdx), inBounds(closeArr, exitIdx)
	default:
		return domain.NaN(), domain.NaN()
	}
}

func turnoverOf(cur, prev domain.Allocation) float64 {
	seen := map[domain.TickerKey]bool{}
	total := 0.0
	for t, w := range cur {
		total += absDiff(w, prev[t])
		seen[t] = true
	}
	for t, w := range prev {
		if seen[t] {
			continue
		}
		total += absDiff(0, w)
	}
	return total / 2
}

func absDiff(a, b float64) float64 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}

func countHoldings(alloc domain.Allocation) int {
	n := 0
	for t, w := range alloc {
		if t != domain.Empty && w > 0 {
			n++
		}
	}
	return n
}
