package evaluator

import (
	"fmt"
	"sync"

	"github.com/aristath/stratbacktest/internal/conditions"
	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/evalctx"
)

// BranchSeries holds the result of simulating a subtree in isolation:
// equity (products of 1+r, seeded at 1.0 before warm-up) and returns (NaN
// before warm-up, 0 on days with no valid return).
type BranchSeries struct {
	Equity  []float64
	Returns []float64
}

// BranchEquitySimulator is component C7: on demand, runs the tree
// evaluator recursively for a subtree starting at equity=1, memoized by
// subtree node id.
type BranchEquitySimulator struct {
	mu        sync.Mutex
	ctx       *evalctx.Context
	cond      *conditions.Evaluator
	planner   *Planner
	nodesByID map[string]*domain.Node
	memo      map[string]*BranchSeries
}

// NewBranchEquitySimulator builds a C7 simulator bound to the outer
// request's read-only price/series layers. A fresh AltExitState is forked
// per simulation, never the outer one, so a sub-simulation's alt-exit
// latch does not leak into the outer backtest's own state.
func NewBranchEquitySimulator(ctx *evalctx.Context, cond *conditions.Evaluator, planner *Planner, nodesByID map[string]*domain.Node) *BranchEquitySimulator {
	return &BranchEquitySimulator{
		ctx:       ctx,
		cond:      cond,
		planner:   planner,
		nodesByID: nodesByID,
		memo:      map[string]*BranchSeries{},
	}
}

// Resolve returns the branch-equity curve for a (parentNodeID, slot) pair,
// running the sub-backtest on first access and caching it under the key
// "<parentNodeID>:<slot>" thereafter: repeated calls for the same parent
// and slot return the same memoized array rather than re-simulating.
func (s *BranchEquitySimulator) Resolve(parentNodeID string, slot domain.Slot) ([]float64, error) {
	parent, ok := s.nodesByID[parentNodeID]
	if !ok {
		return nil, fmt.Errorf("branchequity: unknown parent node %q", parentNodeID)
	}
	kids := parent.Children[slot]
	if len(kids) == 0 {
		return nil, fmt.Errorf("branchequity: parent %q has no children in slot %q", parentNodeID, slot)
	}

	// A slot may hold several children; they are combined exactly as the
	// outer tree would combine them (component C6's own weighting policy
	// on the parent node), so the subtree simulated here is "parent's
	// children in this slot, combined" rather than a single node.
	subtreeID := parentNodeID + ":" + string(slot)

	s.mu.Lock()
	if v, ok := s.memo[subtreeID]; ok {
		s.mu.Unlock()
		return v.Equity, nil
	}
	s.mu.Unlock()

	series, err := s.simulate(parent, slot, kids)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.memo[subtreeID] = series
	s.mu.Unlock()
	return series.Equity, nil
}

// ResolveReturns is like Resolve but returns the sub-simulation's daily
// return array. The indicator dispatcher does not call it: indicators on a
// branch ticker, volatility ones included, are computed over the equity
// curve Resolve returns.
func (s *BranchEquitySimulator) ResolveReturns(parentNodeID string, slot domain.Slot) ([]float64, error) {
	if _, err := s.Resolve(parentNodeID, slot); err != nil {
		return nil, err
	}
	subtreeID := parentNodeID + ":" + string(slot)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memo[subtreeID].Returns, nil
}

func (s *BranchEquitySimulator) simulate(parent *domain.Node, slot domain.Slot, kids []*domain.Node) (*BranchSeries, error) {
	n := s.ctx.DB.Len()
	equity := make([]float64, n)
	returns := make([]float64, n)

	startIndex := 0
	for _, kid := range kids {
		if w := s.planner.StartIndex(kid); w > startIndex {
			startIndex = w
		}
	}

	for i := 0; i < startIndex && i < n; i++ {
		equity[i] = 1.0
		returns[i] = domain.NaN()
	}
	if startIndex >= n {
		for i := 0; i < n; i++ {
			equity[i] = 1.0
		}
		return &BranchSeries{Equity: equity, Returns: returns}, nil
	}

	subCtx := s.ctx.Fork()
	subEval := New(s.cond, s)

	syntheticRoot := &domain.Node{
		ID:        parent.ID + ":" + string(slot) + ":root",
		Kind:      domain.KindBasic,
		Children:  map[domain.Slot][]*domain.Node{domain.SlotNext: kids},
		Weighting: domain.WeightEqual,
	}

	equity[startIndex] = 1.0
	returns[startIndex] = 0

	for d := startIndex; d < n-1; d++ {
		subCtx.IndicatorIndex = d
		alloc, err := subEval.Evaluate(subCtx, syntheticRoot)
		if err != nil {
			return nil, err
		}

		r := realizeCC(s.ctx, alloc, d)
		equity[d+1] = equity[d] * (1 + r)
		returns[d+1] = r
	}

	return &BranchSeries{Equity: equity, Returns: returns}, nil
}

// realizeCC computes the day d -> d+1 close-to-close portfolio return for
// alloc. Sub-simulations are always realized close-to-close, independent
// of the outer backtest's own price mode.
func realizeCC(ctx *evalctx.Context, alloc domain.Allocation, d int) float64 {
	gross := 0.0
	for t, w := range alloc {
		if t == domain.Empty || w <= 0 {
			continue
		}
		closes := ctx.Series.DB().Close[t]
		if closes == nil || d+1 >= len(closes) {
			continue
		}
		entry, exit := closes[d], closes[d+1]
		if domain.IsNull(entry) || domain.IsNull(exit) || entry <= 0 {
			continue
		}
		gross += w * (exit/entry - 1)
	}
	if gross < -0.9999 {
		gross = -0.9999
	}
	return gross
}
