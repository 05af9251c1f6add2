// Package engine wires components C1-C10 together into the single
// Run(request, bars) -> Output entry point the HTTP and batch layers call,
// translating ingest.Plan and a bar loader into the full backtest output
// payload.
package engine

import (
	"fmt"
	"time"

	"github.com/aristath/stratbacktest/internal/backtest"
	"github.com/aristath/stratbacktest/internal/conditions"
	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/evalctx"
	"github.com/aristath/stratbacktest/internal/evaluator"
	"github.com/aristath/stratbacktest/internal/indicators"
	"github.com/aristath/stratbacktest/internal/ingest"
	"github.com/aristath/stratbacktest/internal/pricedb"
	"github.com/aristath/stratbacktest/internal/seriescache"
)

// BarSource is the "bar loader" external collaborator: a pure function
// from ticker to its full, epoch-sorted bar history. Its implementation (a
// columnar per-ticker store) is out of this engine's scope; callers supply
// it.
type BarSource func(ticker domain.TickerKey) ([]domain.Bar, error)

// CustomFormulaSource evaluates a user-defined formula series by id.
// Formula parsing itself is a dedicated subsystem out of core scope; this
// engine only needs the resolved series.
type CustomFormulaSource func(id, formula string) ([]float64, error)

// Run executes one full backtest request end to end: building the price
// database (C1), wiring the series/indicator caches (C2/C4), evaluating the
// tree over the warm-up-adjusted date range (C6-C9), and computing summary
// statistics and the IS/OOS split (C10).
func Run(req ingest.RequestPayload, bars BarSource, customSrc CustomFormulaSource) (*Output, error) {
	plan, err := ingest.Build(req)
	if err != nil {
		return nil, err
	}

	tickerSeries, err := loadBars(plan, bars)
	if err != nil {
		return nil, err
	}

	db, err := pricedb.Build(tickerSeries, plan.IndicatorTickers)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	series := seriescache.New(db)

	customFns := map[string]string{}
	for _, ci := range req.CustomIndicators {
		customFns[ci.ID] = ci.Formula
	}
	customFn := func(id string) ([]float64, error) {
		formula, ok := customFns[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown custom indicator %q", backtest.ErrInvalidPayload, id)
		}
		if customSrc == nil {
			return nil, fmt.Errorf("engine: custom indicator %q requested but no formula evaluator configured", id)
		}
		return customSrc(id, formula)
	}

	// Dispatcher needs a branch resolver before the branch-equity simulator
	// (which needs the tree evaluator, which needs the dispatcher) exists;
	// close over a pointer set once construction completes.
	var branchSim *evaluator.BranchEquitySimulator
	branchFn := func(parentNodeID string, slot domain.Slot) ([]float64, error) {
		return branchSim.Resolve(parentNodeID, slot)
	}

	disp := indicators.NewDispatcher(series, branchFn, customFn)
	ctx := evalctx.New(db, series, disp)
	recordTickerLocations(ctx, plan.Root)

	condEval := conditions.New(ctx, db.Dates)
	planner := evaluator.NewPlanner(series, plan.NodesByID)
	branchSim = evaluator.NewBranchEquitySimulator(ctx, condEval, planner, plan.NodesByID)
	treeEval := evaluator.New(condEval, branchSim)

	res, err := backtest.Run(ctx, treeEval, plan.Root, planner, backtest.Config{
		Mode:            plan.Mode,
		CostBps:         plan.CostBps,
		BenchmarkTicker: plan.BenchmarkTicker,
	})
	if err != nil {
		return nil, err
	}

	return buildOutput(res, plan, ctx, db)
}

// loadBars fetches every ticker the plan touches and converts it into
// pricedb.TickerSeries input, failing if the tree resolves to no position
// tickers at all.
func loadBars(plan *ingest.Plan, bars BarSource) ([]pricedb.TickerSeries, error) {
	if len(plan.AllTickers) == 0 || !plan.HasPositionTickers {
		return nil, fmt.Errorf("%w", backtest.ErrNoPositionTickers)
	}
	out := make([]pricedb.TickerSeries, 0, len(plan.AllTickers))
	for t := range plan.AllTickers {
		b, err := bars(t)
		if err != nil {
			return nil, fmt.Errorf("engine: loading bars for %s: %w", t, err)
		}
		out = append(out, pricedb.TickerSeries{Ticker: t, Bars: b})
	}
	return out, nil
}

// recordTickerLocations walks the tree once, registering every ticker
// reference against its owning node id in ctx's diagnostics index.
func recordTickerLocations(ctx *evalctx.Context, node *domain.Node) {
	if node == nil {
		return
	}
	for _, t := range node.PositionTickers {
		ctx.RecordTickerLocation(t, node.ID)
	}
	recordConditionTickers(ctx, node.Conditions, node.ID)
	recordConditionTickers(ctx, node.EntryConditions, node.ID)
	recordConditionTickers(ctx, node.ExitConditions, node.ID)
	for _, item := range node.Items {
		recordConditionTickers(ctx, item, node.ID)
	}
	if node.Kind == domain.KindScaling && node.ControlInput.Kind == domain.InputTicker {
		ctx.RecordTickerLocation(node.ControlInput.Ticker, node.ID)
	}
	for _, kids := range node.Children {
		for _, kid := range kids {
			recordTickerLocations(ctx, kid)
		}
	}
}

func recordConditionTickers(ctx *evalctx.Context, list domain.ConditionList, nodeID string) {
	for _, term := range list.Terms {
		for _, c := range term.Conditions {
			if c.IsDateCondition {
				continue
			}
			if c.LeftInput.Kind == domain.InputTicker {
				ctx.RecordTickerLocation(c.LeftInput.Ticker, nodeID)
			}
			if !c.Right.IsScalar && c.Right.RightInput.Kind == domain.InputTicker {
				ctx.RecordTickerLocation(c.Right.RightInput.Ticker, nodeID)
			}
		}
	}
}

func formatDate(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format("2006-01-02")
}
