package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stratbacktest/internal/backtest"
	"github.com/aristath/stratbacktest/internal/domain"
)

func positionNode(id string, tickers ...string) NodePayload {
	return NodePayload{ID: id, Kind: "position", Tickers: tickers}
}

func TestBuild_SimplePositionTree(t *testing.T) {
	req := RequestPayload{
		Tree: positionNode("root", "SPY", "QQQ"),
		Mode: "CC",
	}

	plan, err := Build(req)
	require.NoError(t, err)

	assert.Equal(t, backtest.ModeCC, plan.Mode)
	assert.Equal(t, domain.KindPosition, plan.Root.Kind)
	assert.ElementsMatch(t, []domain.TickerKey{"SPY", "QQQ"}, plan.Root.PositionTickers)

	// Position-only tickers don't drive the date axis.
	assert.False(t, plan.IndicatorTickers["SPY"])
	assert.True(t, plan.AllTickers["SPY"])
	assert.True(t, plan.AllTickers["QQQ"])

	// Default and requested benchmark are always fetched.
	assert.True(t, plan.AllTickers[backtest.DefaultBenchmarkTicker])
}

func TestBuild_DefaultsModeToOC(t *testing.T) {
	req := RequestPayload{Tree: positionNode("root", "SPY")}
	plan, err := Build(req)
	require.NoError(t, err)
	assert.Equal(t, backtest.ModeOC, plan.Mode)
}

func TestBuild_UnknownModeIsInvalidPayload(t *testing.T) {
	req := RequestPayload{Tree: positionNode("root", "SPY"), Mode: "bogus"}
	_, err := Build(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, backtest.ErrInvalidPayload)
}

func TestBuild_IndicatorConditionTickerDrivesAxis(t *testing.T) {
	req := RequestPayload{
		Tree: NodePayload{
			ID:   "root",
			Kind: "indicator",
			Conditions: ConditionListPayload{Terms: []ConditionTermPayload{{
				Conditions: []ConditionPayload{{
					LeftTicker: "SPY", Metric: "rsi", Window: 14,
					Comparator: "gt", IsScalar: true, Threshold: 70,
				}},
			}}},
			Children: map[string][]NodePayload{
				"then": {positionNode("then1", "QQQ")},
				"else": {positionNode("else1", "BND")},
			},
		},
	}

	plan, err := Build(req)
	require.NoError(t, err)

	// SPY drives conditions, so it's an indicator ticker.
	assert.True(t, plan.IndicatorTickers["SPY"])
	assert.True(t, plan.AllTickers["QQQ"])
	assert.True(t, plan.AllTickers["BND"])
}

func TestBuild_FunctionNodePromotesChildTickersToIndicatorSet(t *testing.T) {
	req := RequestPayload{
		Tree: NodePayload{
			ID:   "root",
			Kind: "function",
			Children: map[string][]NodePayload{
				"next": {
					positionNode("a", "SPY"),
					positionNode("b", "QQQ"),
				},
			},
			RankMetric: "roc", RankWindow: 20, RankDir: "top", PickN: 1,
		},
	}

	plan, err := Build(req)
	require.NoError(t, err)

	assert.True(t, plan.IndicatorTickers["SPY"])
	assert.True(t, plan.IndicatorTickers["QQQ"])
}

func TestBuild_CappedWeightingRegistersFallbackTicker(t *testing.T) {
	req := RequestPayload{
		Tree: NodePayload{
			ID:        "root",
			Kind:      "basic",
			Weighting: "capped",
			MaxCap:    0.5,
			Children: map[string][]NodePayload{
				"next": {positionNode("a", "SPY"), positionNode("b", "QQQ")},
			},
		},
	}

	plan, err := Build(req)
	require.NoError(t, err)
	assert.True(t, plan.AllTickers[domain.DefaultFallbackTicker])
}

func TestBuild_DuplicateNodeIDIsInvalidPayload(t *testing.T) {
	req := RequestPayload{
		Tree: NodePayload{
			ID:   "dup",
			Kind: "basic",
			Children: map[string][]NodePayload{
				"next": {positionNode("dup", "SPY")},
			},
		},
	}

	_, err := Build(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, backtest.ErrInvalidPayload)
}

func TestBuild_PositionListRejectsNonPlainTicker(t *testing.T) {
	req := RequestPayload{Tree: positionNode("root", "SPY/QQQ")}
	_, err := Build(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, backtest.ErrInvalidPayload)
}

func TestBuild_UnknownNodeKind(t *testing.T) {
	req := RequestPayload{Tree: NodePayload{ID: "root", Kind: "bogus"}}
	_, err := Build(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, backtest.ErrInvalidPayload)
}
