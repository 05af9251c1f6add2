package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/ingest"
)

// syntheticBars builds n daily bars starting at a fixed epoch, with close
// prices following a simple deterministic upward walk so indicator windows
// have something non-degenerate to compute over.
func syntheticBars(n int, start, step float64) []domain.Bar {
	const dayInSeconds = 86400
	const epoch0 = int64(1577836800) // 2020-01-01 UTC
	bars := make([]domain.Bar, n)
	for i := 0; i < n; i++ {
		price := start + float64(i)*step
		bars[i] = domain.Bar{
			EpochSeconds: epoch0 + int64(i)*dayInSeconds,
			Open:         price, High: price * 1.01, Low: price * 0.99,
			Close: price, AdjClose: price, Volume: 1_000_000,
		}
	}
	return bars
}

func fakeBarSource(n int) BarSource {
	return func(ticker domain.TickerKey) ([]domain.Bar, error) {
		switch ticker {
		case "SPY":
			return syntheticBars(n, 100, 0.1), nil
		case "QQQ":
			return syntheticBars(n, 200, -0.05), nil
		case "BIL":
			return syntheticBars(n, 90, 0.001), nil
		default:
			return nil, fmt.Errorf("unknown ticker %s", ticker)
		}
	}
}

func TestRun_SinglePositionNode(t *testing.T) {
	req := ingest.RequestPayload{
		Tree: ingest.NodePayload{ID: "root", Kind: "position", Tickers: []string{"SPY"}},
		Mode: "CC",
	}

	out, err := Run(req, fakeBarSource(60), nil)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.NotEmpty(t, out.EquityCurve)
	assert.NotEmpty(t, out.Allocations)
	assert.Equal(t, len(out.Allocations), len(out.AllocationsByHoldingDate))
	assert.Equal(t, len(out.EquityCurve), len(out.DailyReturns))

	for _, day := range out.Allocations {
		require.Len(t, day.Entries, 1)
		assert.Equal(t, "SPY", day.Entries[0].Ticker)
		assert.InDelta(t, 1.0, day.Entries[0].Weight, 1e-6)
	}
}

func TestRun_IndicatorGateNode(t *testing.T) {
	req := ingest.RequestPayload{
		Tree: ingest.NodePayload{
			ID:   "root",
			Kind: "indicator",
			Conditions: ingest.ConditionListPayload{Terms: []ingest.ConditionTermPayload{{
				Conditions: []ingest.ConditionPayload{{
					LeftTicker: "SPY", Metric: "sma", Window: 5,
					Comparator: "gt", IsScalar: true, Threshold: 0,
				}},
			}}},
			Children: map[string][]ingest.NodePayload{
				"then": {{ID: "then1", Kind: "position", Tickers: []string{"SPY"}}},
				"else": {{ID: "else1", Kind: "position", Tickers: []string{"QQQ"}}},
			},
		},
		Mode: "CC",
	}

	out, err := Run(req, fakeBarSource(60), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Allocations)
}

func TestRun_InsufficientDataErrors(t *testing.T) {
	req := ingest.RequestPayload{
		Tree: ingest.NodePayload{ID: "root", Kind: "position", Tickers: []string{"SPY"}},
		Mode: "CC",
	}
	_, err := Run(req, fakeBarSource(2), nil)
	assert.Error(t, err)
}

func TestRun_NoTickersErrors(t *testing.T) {
	req := ingest.RequestPayload{
		Tree: ingest.NodePayload{ID: "root", Kind: "position", Tickers: []string{}},
	}
	_, err := Run(req, fakeBarSource(60), nil)
	assert.Error(t, err)
}
