package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stratbacktest/internal/domain"
)

func dailyDates(start time.Time, n int) []int64 {
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = start.AddDate(0, 0, i).Unix()
	}
	return out
}

func splitTestResult(dates []int64) *Result {
	n := len(dates)
	returns := make([]float64, n)
	bench := make([]float64, n)
	equity := make([]float64, n)
	allocs := make([]domain.Allocation, n)
	for i := range returns {
		returns[i] = 0.001
		bench[i] = 0.0005
		equity[i] = 1.0 + float64(i)*0.001
		allocs[i] = domain.Allocation{"SPY": 1}
	}
	return &Result{Dates: dates, Returns: returns, BenchmarkReturns: bench, Equity: equity, Allocations: allocs}
}

func TestSplit_EvenOddMonthPartitionsByCalendarMonth(t *testing.T) {
	dates := dailyDates(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 70) // spans Jan (odd) and part of Feb/Mar
	res := splitTestResult(dates)

	is, oos := Split(res, 0, len(dates), SplitConfig{Strategy: SplitEvenOddMonth})
	for _, i := range is.Indices {
		assert.Equal(t, 1, int(time.Unix(res.Dates[i], 0).UTC().Month())%2, "in-sample should be odd months")
	}
	for _, i := range oos.Indices {
		assert.Equal(t, 0, int(time.Unix(res.Dates[i], 0).UTC().Month())%2, "out-of-sample should be even months")
	}
}

func TestSplit_EvenOddYearPartitionsByCalendarYear(t *testing.T) {
	dates := append(dailyDates(time.Date(2023, time.December, 20, 0, 0, 0, 0, time.UTC), 20),
		dailyDates(time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC), 5)...)
	res := splitTestResult(dates)

	is, oos := Split(res, 0, len(dates), SplitConfig{Strategy: SplitEvenOddYear})
	for _, i := range is.Indices {
		assert.Equal(t, 1, time.Unix(res.Dates[i], 0).UTC().Year()%2)
	}
	for _, i := range oos.Indices {
		assert.Equal(t, 0, time.Unix(res.Dates[i], 0).UTC().Year()%2)
	}
}

func TestSplit_ChronologicalWithExplicitDate(t *testing.T) {
	dates := dailyDates(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 10)
	res := splitTestResult(dates)
	threshold := dates[5]

	is, oos := Split(res, 0, len(dates), SplitConfig{Strategy: SplitChronological, SplitDate: &threshold})
	require.NotEmpty(t, is.Indices)
	require.NotEmpty(t, oos.Indices)
	for _, i := range is.Indices {
		assert.Less(t, res.Dates[i], threshold)
	}
	for _, i := range oos.Indices {
		assert.GreaterOrEqual(t, res.Dates[i], threshold)
	}
}

func TestSplit_ChronologicalDefaultPercentIsSeventy(t *testing.T) {
	dates := dailyDates(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 10)
	res := splitTestResult(dates)

	is, oos := Split(res, 0, len(dates), SplitConfig{Strategy: SplitChronological})
	assert.Equal(t, 6, len(is.Indices))
	assert.Equal(t, 4, len(oos.Indices))
}

func TestFillBounds_EmptyPartitionLeavesDatesZero(t *testing.T) {
	res := splitTestResult(dailyDates(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 5))
	p := Partition{}
	fillBounds(res, &p)
	assert.Equal(t, int64(0), p.StartDate)
	assert.Equal(t, int64(0), p.EndDate)
}

func TestFilteredMetrics_EmptyPartitionIsZeroValue(t *testing.T) {
	res := splitTestResult(dailyDates(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 5))
	m := FilteredMetrics(res, Partition{})
	assert.Equal(t, Metrics{}, m)
}

func TestFilteredMetrics_ScoresOnlyTheFilteredSubset(t *testing.T) {
	dates := dailyDates(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 5)
	res := splitTestResult(dates)
	p := Partition{Indices: []int{0, 1, 2}}
	m := FilteredMetrics(res, p)
	assert.Equal(t, 3, m.TradingDays)
}
