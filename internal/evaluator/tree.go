// Package evaluator implements component C6, the recursive strategy-tree
// evaluator, together with its weighting-policy engine (weighting.go) and
// the warm-up planner and branch-equity simulator it depends on (C7, C8).
package evaluator

import (
	"fmt"

	"github.com/aristath/stratbacktest/internal/conditions"
	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/evalctx"
)

// Evaluator is the entry point for component C6: evaluate_node(ctx, node)
// -> Allocation.
type Evaluator struct {
	cond   *conditions.Evaluator
	branch *BranchEquitySimulator
}

// New builds a tree Evaluator bound to a condition evaluator and a branch-
// equity simulator (which may be nil). The simulator passes itself when it
// builds the evaluator for its own sub-simulations.
func New(cond *conditions.Evaluator, branch *BranchEquitySimulator) *Evaluator {
	return &Evaluator{cond: cond, branch: branch}
}

// Evaluate computes node's allocation at ctx.IndicatorIndex, dispatching on
// node.Kind.
func (e *Evaluator) Evaluate(ctx *evalctx.Context, node *domain.Node) (domain.Allocation, error) {
	if node == nil {
		return domain.Allocation{}, nil
	}

	switch node.Kind {
	case domain.KindPosition:
		return domain.EqualWeight(node.PositionTickers), nil

	case domain.KindBasic:
		return e.combineSlot(ctx, node, domain.SlotNext)

	case domain.KindIndicatorGate:
		tri, err := e.cond.Evaluate(node.Conditions, ctx.IndicatorIndex)
		if err != nil {
			return nil, err
		}
		slot := domain.SlotElse
		if tri == domain.TriTrue {
			slot = domain.SlotThen
		}
		return e.combineSlot(ctx, node, slot)

	case domain.KindAltExit:
		return e.evaluateAltExit(ctx, node)

	case domain.KindNumbered:
		return e.evaluateNumbered(ctx, node)

	case domain.KindScaling:
		return e.evaluateScaling(ctx, node)

	case domain.KindFunction:
		return e.evaluateFunction(ctx, node)

	default:
		return nil, fmt.Errorf("evaluator: unknown node kind %v at %s", node.Kind, node.ID)
	}
}

// combineSlot evaluates every child in slot and combines their allocations
// per node's weighting policy.
func (e *Evaluator) combineSlot(ctx *evalctx.Context, node *domain.Node, slot domain.Slot) (domain.Allocation, error) {
	kids := node.Children[slot]
	allocs := make([]domain.Allocation, len(kids))
	for i, kid := range kids {
		a, err := e.Evaluate(ctx, kid)
		if err != nil {
			return nil, err
		}
		allocs[i] = a
	}
	return combine(ctx, node, slot, allocs), nil
}

func (e *Evaluator) evaluateAltExit(ctx *evalctx.Context, node *domain.Node) (domain.Allocation, error) {
	entered := ctx.AltExit[node.ID]

	if !entered {
		tri, err := e.cond.Evaluate(node.EntryConditions, ctx.IndicatorIndex)
		if err != nil {
			return nil, err
		}
		if tri == domain.TriTrue {
			entered = true
		}
	} else {
		tri, err := e.cond.Evaluate(node.ExitConditions, ctx.IndicatorIndex)
		if err != nil {
			return nil, err
		}
		if tri == domain.TriTrue {
			entered = false
		}
	}
	ctx.AltExit[node.ID] = entered

	slot := domain.SlotElse
	if entered {
		slot = domain.SlotThen
	}
	return e.combineSlot(ctx, node, slot)
}

func (e *Evaluator) evaluateNumbered(ctx *evalctx.Context, node *domain.Node) (domain.Allocation, error) {
	count := 0
	for _, item := range node.Items {
		tri, err := e.cond.Evaluate(item, ctx.IndicatorIndex)
		if err != nil {
			return nil, err
		}
		// Quantifier counting treats null as false, unlike the node's own
		// three-valued branch selection elsewhere.
		if tri.Bool() {
			count++
		}
	}

	n := len(node.Items)
	var slot domain.Slot
	switch node.Quantifier {
	case domain.QuantAny:
		slot = boolSlot(count >= 1)
	case domain.QuantAll:
		slot = boolSlot(count == n)
	case domain.QuantNone:
		slot = boolSlot(count == 0)
	case domain.QuantExactly:
		slot = boolSlot(count == node.QuantifierN)
	case domain.QuantAtLeast:
		slot = boolSlot(count >= node.QuantifierN)
	case domain.QuantAtMost:
		slot = boolSlot(count <= node.QuantifierN)
	case domain.QuantLadder:
		slot = domain.LadderSlot(count)
		if _, ok := node.Children[slot]; !ok {
			slot = highestLadderSlot(node, n)
		}
	default:
		slot = domain.SlotElse
	}
	return e.combineSlot(ctx, node, slot)
}

func boolSlot(b bool) domain.Slot {
	if b {
		return domain.SlotThen
	}
	return domain.SlotElse
}

// highestLadderSlot finds the highest declared "ladder-K" slot on node with
// K in 0..maxCount, used whenever node declares no slot for the exact
// count. It returns the else slot when no ladder rung is declared.
func highestLadderSlot(node *domain.Node, maxCount int) domain.Slot {
	best := domain.SlotElse
	bestCount := -1
	for k := 0; k <= maxCount; k++ {
		slot := domain.LadderSlot(k)
		if _, ok := node.Children[slot]; ok && k > bestCount {
			best = slot
			bestCount = k
		}
	}
	return best
}

func (e *Evaluator) evaluateScaling(ctx *evalctx.Context, node *domain.Node) (domain.Allocation, error) {
	thenAlloc, err := e.combineSlot(ctx, node, domain.SlotThen)
	if err != nil {
		return nil, err
	}
	elseAlloc, err := e.combineSlot(ctx, node, domain.SlotElse)
	if err != nil {
		return nil, err
	}

	v, err := ctx.MetricAt(node.ControlInput, node.ControlMetric, node.ControlWindow, ctx.IndicatorIndex)
	if err != nil {
		return nil, err
	}

	blend := 0.0
	switch {
	case domain.IsNull(v) || node.ScaleFrom == node.ScaleTo:
		blend = 0
	case node.ScaleFrom < node.ScaleTo:
		blend = clamp01((v - node.ScaleFrom) / (node.ScaleTo - node.ScaleFrom))
	default:
		blend = clamp01((node.ScaleFrom - v) / (node.ScaleFrom - node.ScaleTo))
	}

	return domain.Blend(thenAlloc, elseAlloc, blend), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (e *Evaluator) evaluateFunction(ctx *evalctx.Context, node *domain.Node) (domain.Allocation, error) {
	kids := node.Children[domain.SlotNext]
	type candidate struct {
		idx   int
		value float64
	}
	candidates := make([]candidate, 0, len(kids))
	for i, kid := range kids {
		avg, err := e.averageMetric(ctx, node, kid)
		if err != nil {
			return nil, err
		}
		if domain.IsNull(avg) {
			continue
		}
		candidates = append(candidates, candidate{idx: i, value: avg})
	}

	idxOrder := make([]int, len(candidates))
	values := make([]float64, len(kids))
	for j, c := range candidates {
		idxOrder[j] = c.idx
		values[c.idx] = c.value
	}
	sortChildrenByRank(idxOrder, values, node.RankDir)

	n := node.PickN
	if n <= 0 || n > len(idxOrder) {
		n = len(idxOrder)
	}
	picked := idxOrder[:n]

	allocs := make([]domain.Allocation, 0, len(picked))
	pickedKids := make([]*domain.Node, 0, len(picked))
	for _, i := range picked {
		a, err := e.Evaluate(ctx, kids[i])
		if err != nil {
			return nil, err
		}
		allocs = append(allocs, a)
		pickedKids = append(pickedKids, kids[i])
	}

	synthetic := &domain.Node{
		ID:             node.ID,
		Children:       map[domain.Slot][]*domain.Node{domain.SlotNext: pickedKids},
		Weighting:      node.Weighting,
		CappedBase:     node.CappedBase,
		DefinedWeights: node.DefinedWeights,
		VolWindow:      node.VolWindow,
		MinCap:         node.MinCap,
		MaxCap:         node.MaxCap,
		FallbackTicker: node.FallbackTicker,
	}
	return combine(ctx, synthetic, domain.SlotNext, allocs), nil
}

// averageMetric computes node.RankMetric over every non-Empty position
// ticker held by kid, averaged, as the function (ranker) node's score.
func (e *Evaluator) averageMetric(ctx *evalctx.Context, node *domain.Node, kid *domain.Node) (float64, error) {
	tickers := kid.PositionTickers
	sum, n := 0.0, 0
	for _, t := range tickers {
		if t == domain.Empty {
			continue
		}
		in := domain.Input{Kind: domain.InputTicker, Ticker: t}
		v, err := ctx.MetricAt(in, node.RankMetric, node.RankWindow, ctx.IndicatorIndex)
		if err != nil {
			return domain.NaN(), err
		}
		if domain.IsNull(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return domain.NaN(), nil
	}
	return sum / float64(n), nil
}
