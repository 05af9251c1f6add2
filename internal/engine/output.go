package engine

import (
	"math"
	"sort"

	"github.com/aristath/stratbacktest/internal/backtest"
	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/evalctx"
	"github.com/aristath/stratbacktest/internal/ingest"
	"github.com/aristath/stratbacktest/internal/pricedb"
)

// Output is the full response payload: base and partition metrics, equity
// curves, both allocation-date views, turnover/holdings percentiles, any
// requested indicator overlays, and data-quality notes.
type Output struct {
	Metrics MetricsPayload `json:"metrics"`

	ISMetrics    *PartitionMetricsPayload `json:"isMetrics,omitempty"`
	OOSMetrics   *PartitionMetricsPayload `json:"oosMetrics,omitempty"`
	OOSStartDate *string                  `json:"oosStartDate,omitempty"`

	EquityCurve    []PointPayload `json:"equityCurve"`
	BenchmarkCurve []PointPayload `json:"benchmarkCurve"`

	// Allocations is entry-date-indexed (the day the tree was evaluated
	// and the decision made); AllocationsByHoldingDate is indexed by the
	// day the position is actually held, one bar later under next-day
	// trade-timing modes.
	Allocations              []AllocationDayPayload `json:"allocations"`
	AllocationsByHoldingDate []AllocationDayPayload `json:"allocationsByHoldingDate"`

	ISAllocations  []AllocationDayPayload `json:"isAllocations,omitempty"`
	OOSAllocations []AllocationDayPayload `json:"oosAllocations,omitempty"`

	DailyReturns []float64 `json:"dailyReturns"`

	IndicatorOverlays []OverlayResultPayload `json:"indicatorOverlays,omitempty"`

	DataQualityNotes []string `json:"dataQualityNotes,omitempty"`
}

// MetricsPayload is the base statistics block.
type MetricsPayload struct {
	CAGR               float64 `json:"cagr"`
	MaxDrawdown        float64 `json:"maxDrawdown"`
	CalmarRatio        float64 `json:"calmarRatio"`
	SharpeRatio        float64 `json:"sharpeRatio"`
	SortinoRatio       float64 `json:"sortinoRatio"`
	TreynorRatio       float64 `json:"treynorRatio"`
	Beta               float64 `json:"beta"`
	Volatility         float64 `json:"volatility"`
	WinRate            float64 `json:"winRate"`
	AvgTurnover        float64 `json:"avgTurnover"`
	AvgHoldings        float64 `json:"avgHoldings"`
	BestDay            float64 `json:"bestDay"`
	WorstDay           float64 `json:"worstDay"`
	TradingDays        int     `json:"tradingDays"`
	TurnoverP90 float64 `json:"turnoverP90"`
	HoldingsP90 float64 `json:"holdingsP90"`
}

// PartitionMetricsPayload is an IS/OOS partition's metrics block: the base
// statistics plus the partition-specific fields.
type PartitionMetricsPayload struct {
	MetricsPayload
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	Years       float64 `json:"years"`
	TotalReturn float64 `json:"totalReturn"`
	TIM         float64 `json:"tim"`
	TIMAR       float64 `json:"timar"`
}

// PointPayload is one equity-curve sample.
type PointPayload struct {
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
}

// AllocationEntryPayload is one ticker's weight on a given day.
type AllocationEntryPayload struct {
	Ticker string  `json:"ticker"`
	Weight float64 `json:"weight"`
}

// AllocationDayPayload is one day's full allocation.
type AllocationDayPayload struct {
	Date    string                   `json:"date"`
	Entries []AllocationEntryPayload `json:"entries"`
}

func buildOutput(res *backtest.Result, plan *ingest.Plan, ctx *evalctx.Context, db *pricedb.PriceDB) (*Output, error) {
	n := len(res.Dates)
	from, to := res.StartIndex, n

	out := &Output{
		Metrics:          toMetricsPayload(backtest.Compute(res, from, to), res, from, to),
		EquityCurve:      toCurve(res.Dates, res.Equity, from),
		BenchmarkCurve:   toCurve(res.Dates, res.BenchmarkEquity, from),
		Allocations:      toAllocations(res.Dates, res.Allocations, from, 0),
		DailyReturns:     append([]float64{}, res.Returns[from:]...),
		DataQualityNotes: db.DataQualityNotes,
	}

	holdingOffset := 1
	if plan.Mode == backtest.ModeOC {
		holdingOffset = 0
	}
	out.AllocationsByHoldingDate = toAllocations(res.Dates, res.Allocations, from, holdingOffset)

	if plan.Split.Enabled {
		is, oos := backtest.Split(res, from, to, plan.Split)
		if len(is.Indices) > 0 {
			out.ISMetrics = toPartitionPayload(backtest.FilteredMetrics(res, is), is)
			out.ISAllocations = toFilteredAllocations(res.Dates, res.Allocations, is.Indices)
		}
		if len(oos.Indices) > 0 {
			out.OOSMetrics = toPartitionPayload(backtest.FilteredMetrics(res, oos), oos)
			out.OOSAllocations = toFilteredAllocations(res.Dates, res.Allocations, oos.Indices)
			d := formatDate(oos.StartDate)
			out.OOSStartDate = &d
		}
	}

	overlays, err := buildOverlays(plan.Overlays, ctx, res.Dates, from)
	if err != nil {
		return nil, err
	}
	out.IndicatorOverlays = overlays

	return out, nil
}

func toMetricsPayload(m backtest.Metrics, res *backtest.Result, from, to int) MetricsPayload {
	return MetricsPayload{
		CAGR: m.CAGR, MaxDrawdown: m.MaxDrawdown, CalmarRatio: m.CalmarRatio,
		SharpeRatio: m.SharpeRatio, SortinoRatio: m.SortinoRatio, TreynorRatio: m.TreynorRatio,
		Beta: m.Beta, Volatility: m.Volatility, WinRate: m.WinRate,
		AvgTurnover: m.AvgTurnover, AvgHoldings: m.AvgHoldings,
		BestDay: m.BestDay, WorstDay: m.WorstDay, TradingDays: m.TradingDays,
		TurnoverP90: percentile(res.Turnover[from:to], 0.90),
		HoldingsP90: percentileInt(res.Holdings[from:to], 0.90),
	}
}

func toPartitionPayload(m backtest.Metrics, p backtest.Partition) *PartitionMetricsPayload {
	years := float64(len(p.Indices)) / 252.0
	// TotalReturn is compounded from CAGR over Years, where Years is the
	// partition's day count divided by 252.
	totalReturn := math.Pow(1+m.CAGR, years) - 1

	return &PartitionMetricsPayload{
		MetricsPayload: MetricsPayload{
			CAGR: m.CAGR, MaxDrawdown: m.MaxDrawdown, CalmarRatio: m.CalmarRatio,
			SharpeRatio: m.SharpeRatio, SortinoRatio: m.SortinoRatio, TreynorRatio: m.TreynorRatio,
			Beta: m.Beta, Volatility: m.Volatility, WinRate: m.WinRate,
			AvgTurnover: m.AvgTurnover, AvgHoldings: m.AvgHoldings,
			BestDay: m.BestDay, WorstDay: m.WorstDay, TradingDays: m.TradingDays,
		},
		StartDate:   formatDate(p.StartDate),
		EndDate:     formatDate(p.EndDate),
		Years:       years,
		TotalReturn: totalReturn,
		TIM:         m.TIM,
		TIMAR:       m.TIMAR,
	}
}

func toCurve(dates []int64, equity []float64, from int) []PointPayload {
	out := make([]PointPayload, 0, len(dates)-from)
	for i := from; i < len(dates); i++ {
		out = append(out, PointPayload{Date: formatDate(dates[i]), Equity: equity[i]})
	}
	return out
}

// toAllocations renders the allocation series with dates shifted by offset
// days, clamped to the available range: offset 0 is entry-date-indexed,
// offset 1 (the default for next-day modes) is holding-date-indexed. Days
// the driver never evaluated (the last bar under a next-day mode) are left
// out.
func toAllocations(dates []int64, allocs []domain.Allocation, from, offset int) []AllocationDayPayload {
	out := make([]AllocationDayPayload, 0, len(dates)-from)
	for i := from; i < len(dates); i++ {
		if allocs[i] == nil {
			continue
		}
		di := i + offset
		if di >= len(dates) {
			di = len(dates) - 1
		}
		out = append(out, AllocationDayPayload{Date: formatDate(dates[di]), Entries: entriesOf(allocs[i])})
	}
	return out
}

func toFilteredAllocations(dates []int64, allocs []domain.Allocation, indices []int) []AllocationDayPayload {
	out := make([]AllocationDayPayload, 0, len(indices))
	for _, i := range indices {
		out = append(out, AllocationDayPayload{Date: formatDate(dates[i]), Entries: entriesOf(allocs[i])})
	}
	return out
}

func entriesOf(alloc domain.Allocation) []AllocationEntryPayload {
	out := make([]AllocationEntryPayload, 0, len(alloc))
	for t, w := range alloc {
		if t == domain.Empty || w <= 0 {
			continue
		}
		out = append(out, AllocationEntryPayload{Ticker: string(t), Weight: w})
	}
	return out
}

// percentile is a simple sorted-index percentile over the finite subset of v.
func percentile(v []float64, p float64) float64 {
	finite := make([]float64, 0, len(v))
	for _, x := range v {
		if !domain.IsNull(x) {
			finite = append(finite, x)
		}
	}
	if len(finite) == 0 {
		return 0
	}
	sort.Float64s(finite)
	idx := int(float64(len(finite)-1) * p)
	return finite[idx]
}

func percentileInt(v []int, p float64) float64 {
	if len(v) == 0 {
		return 0
	}
	cp := append([]int{}, v...)
	sort.Ints(cp)
	idx := int(float64(len(cp)-1) * p)
	return float64(cp[idx])
}
