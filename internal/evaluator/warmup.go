package evaluator

import (
	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/indicators"
)

// Planner is component C8: a static walk of the tree computing the minimum
// index at which every input it references is defined.
type Planner struct {
	series    seriesLookup
	nodesByID map[string]*domain.Node
	memo      map[string]int
}

// seriesLookup is the subset of seriescache.Cache the warm-up planner needs
// (kept as an interface so tests can fake it without a real PriceDB).
type seriesLookup interface {
	FirstValidIndex(in domain.Input) int
}

// NewPlanner builds a warm-up Planner over a tree's id-indexed nodes.
func NewPlanner(series seriesLookup, nodesByID map[string]*domain.Node) *Planner {
	return &Planner{series: series, nodesByID: nodesByID, memo: map[string]int{}}
}

// StartIndex returns the minimum day index at which root's subtree can be
// safely evaluated: the maximum, over every indicator reference anywhere in
// the subtree (not just the currently active branch — the active branch
// can change over time), of that reference's own warm-up requirement.
func (p *Planner) StartIndex(root *domain.Node) int {
	if v, ok := p.memo[root.ID]; ok {
		return v
	}
	best := 0
	p.walk(root, &best)
	p.memo[root.ID] = best
	return best
}

func (p *Planner) walk(node *domain.Node, best *int) {
	if node == nil {
		return
	}

	switch node.Kind {
	case domain.KindPosition:
		// Position-only tickers may have shorter history than the
		// indicator-driving axis; they impose no warm-up.

	case domain.KindIndicatorGate:
		p.absorbConditions(node.Conditions, best)

	case domain.KindAltExit:
		p.absorbConditions(node.EntryConditions, best)
		p.absorbConditions(node.ExitConditions, best)

	case domain.KindNumbered:
		for _, item := range node.Items {
			p.absorbConditions(item, best)
		}

	case domain.KindScaling:
		p.absorbTerm(node.ControlInput, node.ControlMetric, node.ControlWindow, 1, best)

	case domain.KindFunction:
		for _, kid := range node.Children[domain.SlotNext] {
			for _, t := range kid.PositionTickers {
				if t == domain.Empty {
					continue
				}
				in := domain.Input{Kind: domain.InputTicker, Ticker: t}
				p.absorbTerm(in, node.RankMetric, node.RankWindow, 1, best)
			}
		}
	}

	for _, kids := range node.Children {
		for _, kid := range kids {
			p.walk(kid, best)
		}
	}
}

func (p *Planner) absorbConditions(list domain.ConditionList, best *int) {
	for _, term := range list.Terms {
		for _, c := range term.Conditions {
			if c.IsDateCondition {
				continue
			}
			forDays := c.ForDays
			if forDays < 1 {
				forDays = 1
			}
			p.absorbTerm(c.LeftInput, c.Metric, c.Window, forDays, best)
			if !c.Right.IsScalar {
				p.absorbTerm(c.Right.RightInput, c.Right.RightMetric, c.Right.RightWindow, forDays, best)
			}
		}
	}
}

func (p *Planner) absorbTerm(in domain.Input, metric domain.Metric, window, forDays int, best *int) {
	id, ok := indicators.Resolve(string(metric))
	var lookback int
	if ok {
		lookback = indicators.Lookback(id, window)
	} else {
		lookback = window
	}
	lookback = indicators.WithForDays(lookback, forDays)

	var need int
	switch in.Kind {
	case domain.InputTicker:
		need = lookback
	case domain.InputRatio:
		need = p.series.FirstValidIndex(in) + lookback
	case domain.InputBranch:
		parent, ok := p.nodesByID[in.BranchParentID]
		if !ok {
			need = lookback
			break
		}
		slot, err := in.BranchSlot.ResolvedSlot()
		if err != nil {
			need = lookback
			break
		}
		subWarmup := 0
		for _, kid := range parent.Children[slot] {
			if w := p.StartIndex(kid); w > subWarmup {
				subWarmup = w
			}
		}
		need = subWarmup + lookback
	case domain.InputCustom:
		need = lookback
	default:
		need = lookback
	}

	if need > *best {
		*best = need
	}
}
