package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/stratbacktest/internal/domain"
)

// Metrics is component C10's summary statistics block.
type Metrics struct {
	CAGR          float64
	MaxDrawdown   float64
	CalmarRatio   float64
	SharpeRatio   float64
	SortinoRatio  float64
	TreynorRatio  float64
	Beta          float64
	Volatility    float64
	WinRate       float64
	AvgTurnover   float64
	AvgHoldings   float64
	BestDay       float64
	WorstDay      float64
	TradingDays   int
	TIM           float64
	TIMAR         float64
}

// Compute derives the full Metrics block from a realized Result, scored
// over the half-open index range [from, to) of its daily vectors. Passing
// the full result's bounds scores the whole backtest; IS/OOS partitions,
// which need not be contiguous, are scored by FilteredMetrics instead.
func Compute(res *Result, from, to int) Metrics {
	r := filterFinite(res.Returns[from:to])
	rBench := filterFinite(res.BenchmarkReturns[from:to])

	var m Metrics
	m.TradingDays = len(r)
	if len(r) == 0 {
		return m
	}

	m.CAGR = cagr(res.Equity, from, to)
	m.MaxDrawdown = maxDrawdown(res.Equity[from:to])
	m.Volatility = sampleStdDev(r) * math.Sqrt(252)
	m.SharpeRatio = sharpe(r)
	m.SortinoRatio = sortino(r)
	if m.MaxDrawdown != 0 {
		m.CalmarRatio = m.CAGR / math.Abs(m.MaxDrawdown)
	}
	m.Beta = beta(r, rBench)
	if m.Beta > 0 {
		m.TreynorRatio = m.CAGR / m.Beta
	}
	m.WinRate = winRate(r)
	m.AvgTurnover = meanOf(res.Turnover[from:to])
	m.AvgHoldings = meanIntOf(res.Holdings[from:to])
	m.BestDay, m.WorstDay = bestWorst(r)
	m.TIM = timeInMarket(res.Allocations[from:to])
	if m.TIM > 0 {
		m.TIMAR = m.CAGR / m.TIM
	}
	return m
}

func filterFinite(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !domain.IsNull(x) {
			out = append(out, x)
		}
	}
	return out
}

// cagr uses the equity curve's endpoints over the scored range, annualized
// by 252 trading days: E[n]^(252/n) - 1, where n is the number of daily
// returns between the two endpoints.
func cagr(equity []float64, from, to int) float64 {
	if to <= from || to > len(equity) {
		return 0
	}
	start, end := equity[from], equity[to-1]
	n := to - from - 1
	if start <= 0 || end <= 0 || n <= 0 {
		return 0
	}
	return math.Pow(end/start, 252.0/float64(n)) - 1
}

// maxDrawdown is the worst peak-to-trough fraction of the equity curve over
// the scored range: min_i(E[i]/peak[i] - 1), negative.
func maxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	worst := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			dd := e/peak - 1
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

func sampleStdDev(r []float64) float64 {
	if len(r) < 2 {
		return 0
	}
	return stat.StdDev(r, nil)
}

func sharpe(r []float64) float64 {
	sd := sampleStdDev(r)
	if sd == 0 {
		return 0
	}
	return math.Sqrt(252) * stat.Mean(r, nil) / sd
}

// sortino uses downside semi-deviation (only negative returns contribute
// to the denominator).
func sortino(r []float64) float64 {
	downside := make([]float64, 0, len(r))
	for _, x := range r {
		if x < 0 {
			downside = append(downside, x)
		}
	}
	if len(downside) < 2 {
		return 0
	}
	semiDev := stat.StdDev(downside, nil)
	if semiDev == 0 {
		return 0
	}
	return math.Sqrt(252) * stat.Mean(r, nil) / semiDev
}

// beta is Cov(r, rBench)/Var(rBench) over the overlapping, same-length
// range.
func beta(r, rBench []float64) float64 {
	n := len(r)
	if len(rBench) < n {
		n = len(rBench)
	}
	if n < 2 {
		return 0
	}
	rr, rb := r[:n], rBench[:n]
	v := stat.Variance(rb, nil)
	if v == 0 {
		return 0
	}
	return stat.Covariance(rr, rb, nil) / v
}

func winRate(r []float64) float64 {
	wins, losses := 0, 0
	for _, x := range r {
		if x > 0 {
			wins++
		} else if x < 0 {
			losses++
		}
	}
	if wins+losses == 0 {
		return 0
	}
	return float64(wins) / float64(wins+losses)
}

func meanOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return stat.Mean(v, nil)
}

func meanIntOf(v []int) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0
	for _, x := range v {
		sum += x
	}
	return float64(sum) / float64(len(v))
}

func bestWorst(r []float64) (best, worst float64) {
	if len(r) == 0 {
		return 0, 0
	}
	best, worst = r[0], r[0]
	for _, x := range r {
		if x > best {
			best = x
		}
		if x < worst {
			worst = x
		}
	}
	return best, worst
}

// timeInMarket is the fraction of days whose non-cash, non-Empty weight is
// positive.
func timeInMarket(allocs []domain.Allocation) float64 {
	if len(allocs) == 0 {
		return 0
	}
	active := 0
	for _, a := range allocs {
		if a.Sum() > domain.AllocationEpsilon {
			active++
		}
	}
	return float64(active) / float64(len(allocs))
}
