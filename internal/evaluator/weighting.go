package evaluator

import (
	"sort"

	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/evalctx"
	"github.com/aristath/stratbacktest/internal/indicators"
)

// activeChild is one child's own allocation together with the identity
// needed by ordinal-preserving weighting modes: `defined` weights key off
// the child's id, and rank tie-breaking falls back to ordinal index.
type activeChild struct {
	id    string
	index int
	alloc domain.Allocation
}

// combine applies node's weighting policy to the children occupying slot,
// dropping empty allocations before weighting so an empty branch's share is
// redistributed among siblings rather than becoming cash.
func combine(ctx *evalctx.Context, node *domain.Node, slot domain.Slot, childAllocs []domain.Allocation) domain.Allocation {
	kids := node.Children[slot]
	active := make([]activeChild, 0, len(kids))
	for i, kid := range kids {
		a := childAllocs[i]
		if a.Sum() <= domain.AllocationEpsilon {
			continue
		}
		active = append(active, activeChild{id: kid.ID, index: i, alloc: a})
	}
	if len(active) == 0 {
		return domain.Allocation{}
	}

	weights, fallbackWeight := weightsFor(ctx, node, active)

	out := domain.Allocation{}
	for i, ac := range active {
		w := weights[i]
		if w <= 0 {
			continue
		}
		for t, wt := range ac.alloc {
			out[t] += w * wt
		}
	}
	if fallbackWeight > 0 {
		fallback := node.FallbackTicker
		if fallback == domain.Empty {
			fallback = domain.DefaultFallbackTicker
		}
		out[fallback] += fallbackWeight
	}
	return out
}

func weightsFor(ctx *evalctx.Context, node *domain.Node, active []activeChild) ([]float64, float64) {
	switch node.Weighting {
	case domain.WeightDefined:
		return definedWeights(node, active), 0
	case domain.WeightInverse:
		return volWeights(ctx, node, active, true), 0
	case domain.WeightPro:
		return volWeights(ctx, node, active, false), 0
	case domain.WeightCapped:
		return cappedWeights(ctx, node, active)
	case domain.WeightEqual, "":
		return equalWeights(active), 0
	default:
		return equalWeights(active), 0
	}
}

func equalWeights(active []activeChild) []float64 {
	w := make([]float64, len(active))
	share := 1.0 / float64(len(active))
	for i := range w {
		w[i] = share
	}
	return w
}

// definedWeights reads the per-child numeric weight from node.DefinedWeights
// (keyed by child id) and normalizes to sum 1. A child absent from the map
// gets weight 0.
func definedWeights(node *domain.Node, active []activeChild) []float64 {
	raw := make([]float64, len(active))
	total := 0.0
	for i, ac := range active {
		w := node.DefinedWeights[ac.id]
		if w < 0 {
			w = 0
		}
		raw[i] = w
		total += w
	}
	if total <= 0 {
		return equalWeights(active)
	}
	out := make([]float64, len(active))
	for i, w := range raw {
		out[i] = w / total
	}
	return out
}

// volWeights implements `inverse` (weight ∝ 1/vol) and `pro` (weight ∝ vol)
// weighting: vol is the average StdDev-of-returns(volWindow) across a
// child's held tickers at the current indicator index.
// Falls back to equal weighting if any child's vol is null or non-positive.
func volWeights(ctx *evalctx.Context, node *domain.Node, active []activeChild, inverse bool) []float64 {
	vols := make([]float64, len(active))
	for i, ac := range active {
		v := averageVol(ctx, ac.alloc, node.VolWindow)
		if domain.IsNull(v) || v <= 0 {
			return equalWeights(active)
		}
		vols[i] = v
	}

	raw := make([]float64, len(active))
	total := 0.0
	for i, v := range vols {
		var w float64
		if inverse {
			w = 1.0 / v
		} else {
			w = v
		}
		raw[i] = w
		total += w
	}
	if total <= 0 {
		return equalWeights(active)
	}
	out := make([]float64, len(active))
	for i, w := range raw {
		out[i] = w / total
	}
	return out
}

func averageVol(ctx *evalctx.Context, alloc domain.Allocation, window int) float64 {
	if window <= 0 {
		window = 20
	}
	sum, n := 0.0, 0
	for t := range alloc {
		if t == domain.Empty {
			continue
		}
		in := domain.Input{Kind: domain.InputTicker, Ticker: t}
		v, err := ctx.MetricAt(in, domain.Metric(indicators.MetricStdDevReturnsPct), window, ctx.IndicatorIndex)
		if err != nil || domain.IsNull(v) {
			return domain.NaN()
		}
		sum += v
		n++
	}
	if n == 0 {
		return domain.NaN()
	}
	return sum / float64(n)
}

// cappedWeights starts from node.CappedBase's own distribution (equal,
// defined, inverse or pro), clips every weight to [minCap, maxCap], then
// renormalizes down if the clipped sum exceeds 1. For a sum below 1:
// an inverse/pro base hands the slack out in proportion to each weight's
// headroom below maxCap (maxCap minus the clipped weight), not in
// proportion to the weights themselves; an equal/defined base sends the
// whole slack to the fallback ticker instead.
func cappedWeights(ctx *evalctx.Context, node *domain.Node, active []activeChild) ([]float64, float64) {
	base := capBaseWeights(ctx, node, active)
	minCap, maxCap := node.MinCap, node.MaxCap
	if maxCap <= 0 {
		maxCap = 1
	}

	clipped := make([]float64, len(base))
	for i, w := range base {
		c := w
		if c < minCap {
			c = minCap
		}
		if c > maxCap {
			c = maxCap
		}
		clipped[i] = c
	}

	sum := 0.0
	for _, w := range clipped {
		sum += w
	}

	if sum > 1 {
		for i := range clipped {
			clipped[i] /= sum
		}
		return clipped, 0
	}
	if sum < 1 {
		slack := 1 - sum

		if node.CappedBase != domain.WeightInverse && node.CappedBase != domain.WeightPro {
			// Equal/defined base: the whole slack routes to the fallback
			// ticker, it is never folded back into these children.
			return clipped, slack
		}

		headroom := make([]float64, len(clipped))
		totalHeadroom := 0.0
		for i, w := range clipped {
			h := maxCap - w
			if h < 0 {
				h = 0
			}
			headroom[i] = h
			totalHeadroom += h
		}
		if totalHeadroom > 0 {
			for i := range clipped {
				clipped[i] += slack * (headroom[i] / totalHeadroom)
			}
			return clipped, 0
		}
		// No uncapped headroom left: slack routes to the fallback ticker
		// rather than being folded into the already-maxed-out children.
		return clipped, slack
	}
	return clipped, 0
}

// capBaseWeights computes the pre-clip distribution node.CappedBase names.
func capBaseWeights(ctx *evalctx.Context, node *domain.Node, active []activeChild) []float64 {
	switch node.CappedBase {
	case domain.WeightDefined:
		return definedWeights(node, active)
	case domain.WeightInverse:
		return volWeights(ctx, node, active, true)
	case domain.WeightPro:
		return volWeights(ctx, node, active, false)
	default:
		return equalWeights(active)
	}
}

// sortChildrenByRank orders candidate indices by their ranking metric value,
// ascending for 'bottom', descending for 'top'; ties break by ascending
// original index so ranking is deterministic regardless of sort algorithm.
func sortChildrenByRank(idx []int, values []float64, dir domain.RankDirection) {
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if values[ia] == values[ib] {
			return ia < ib
		}
		if dir == domain.RankBottom {
			return values[ia] < values[ib]
		}
		return values[ia] > values[ib]
	})
}
