package ingest

import (
	"fmt"

	"github.com/aristath/stratbacktest/internal/backtest"
	"github.com/aristath/stratbacktest/internal/domain"
)

// Plan is everything the rest of the pipeline needs to run one backtest
// request: the parsed tree, its id index, the tickers that drive decisions
// (for the price-database date axis) and every ticker the tree touches at
// all (for the bar loader, out of core scope).
type Plan struct {
	Root               *domain.Node
	NodesByID          map[string]*domain.Node
	IndicatorTickers   map[domain.TickerKey]bool
	AllTickers         map[domain.TickerKey]bool
	HasPositionTickers bool

	Mode            backtest.Mode
	CostBps         float64
	BenchmarkTicker domain.TickerKey
	Split           backtest.SplitConfig

	Overlays []OverlayPayload
}

type builder struct {
	nodesByID       map[string]*domain.Node
	indicatorTicker map[domain.TickerKey]bool
	allTicker       map[domain.TickerKey]bool
	positionTickers int // count of plain tickers named in a position list, across the whole tree
}

// Build parses a RequestPayload into a Plan. It validates node kinds and
// ticker-field shapes eagerly (ErrInvalidPayload), since the day loop must
// never see a malformed tree.
func Build(req RequestPayload) (*Plan, error) {
	b := &builder{
		nodesByID:       map[string]*domain.Node{},
		indicatorTicker: map[domain.TickerKey]bool{},
		allTicker:       map[domain.TickerKey]bool{},
	}

	root, err := b.buildNode(req.Tree, "")
	if err != nil {
		return nil, err
	}
	b.markFunctionRankTickers(root)

	mode := backtest.Mode(req.Mode)
	switch mode {
	case backtest.ModeOO, backtest.ModeCC, backtest.ModeCO, backtest.ModeOC:
	case "":
		mode = backtest.ModeOC
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", backtest.ErrInvalidPayload, req.Mode)
	}

	bench := domain.NormalizeTicker(req.BenchmarkTicker)
	if bench == domain.Empty {
		bench = backtest.DefaultBenchmarkTicker
	}
	// Both the requested and the default benchmark ticker must be fetched:
	// the driver silently falls back to the default on missing data, which
	// only works if its bars were fetched too.
	b.allTicker[bench] = true
	b.allTicker[backtest.DefaultBenchmarkTicker] = true
	b.markFallbackTickers(root)

	split, err := buildSplitConfig(req.SplitConfig)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Root:               root,
		NodesByID:          b.nodesByID,
		IndicatorTickers:   b.indicatorTicker,
		AllTickers:         b.allTicker,
		HasPositionTickers: b.positionTickers > 0,
		Mode:               mode,
		CostBps:            req.CostBps,
		BenchmarkTicker:    bench,
		Split:              split,
		Overlays:           req.IndicatorOverlays,
	}, nil
}

func (b *builder) buildNode(p NodePayload, parentID string) (*domain.Node, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("%w: node missing id", backtest.ErrInvalidPayload)
	}
	if _, dup := b.nodesByID[p.ID]; dup {
		return nil, fmt.Errorf("%w: duplicate node id %q", backtest.ErrInvalidPayload, p.ID)
	}

	n := &domain.Node{ID: p.ID, Children: map[domain.Slot][]*domain.Node{}}
	b.nodesByID[p.ID] = n

	switch p.Kind {
	case "position":
		n.Kind = domain.KindPosition
		tickers, err := b.parseTickerList(p.Tickers, p.ID)
		if err != nil {
			return nil, err
		}
		n.PositionTickers = tickers

	case "basic":
		n.Kind = domain.KindBasic
		kids, err := b.buildChildren(p.Children["next"], p.ID)
		if err != nil {
			return nil, err
		}
		n.Children[domain.SlotNext] = kids

	case "indicator":
		n.Kind = domain.KindIndicatorGate
		conds, err := b.buildConditionList(p.Conditions, p.ID)
		if err != nil {
			return nil, err
		}
		n.Conditions = conds
		if err := b.buildThenElse(n, p, p.ID); err != nil {
			return nil, err
		}

	case "altExit":
		n.Kind = domain.KindAltExit
		entry, err := b.buildConditionList(p.EntryConditions, p.ID)
		if err != nil {
			return nil, err
		}
		exit, err := b.buildConditionList(p.ExitConditions, p.ID)
		if err != nil {
			return nil, err
		}
		n.EntryConditions, n.ExitConditions = entry, exit
		if err := b.buildThenElse(n, p, p.ID); err != nil {
			return nil, err
		}

	case "numbered":
		n.Kind = domain.KindNumbered
		items := make([]domain.ConditionList, len(p.Items))
		for i, it := range p.Items {
			cl, err := b.buildConditionList(it, p.ID)
			if err != nil {
				return nil, err
			}
			items[i] = cl
		}
		n.Items = items
		quant, n2, err := parseQuantifier(p.Quantifier, p.QuantifierN)
		if err != nil {
			return nil, err
		}
		n.Quantifier, n.QuantifierN = quant, n2
		for slotName, kidsPayload := range p.Children {
			kids, err := b.buildChildren(kidsPayload, p.ID)
			if err != nil {
				return nil, err
			}
			n.Children[domain.Slot(slotName)] = kids
		}

	case "scaling":
		n.Kind = domain.KindScaling
		in, err := domain.ParseTickerField(p.ControlTicker, p.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: node %s controlTicker: %v", backtest.ErrInvalidPayload, p.ID, err)
		}
		b.recordInput(in)
		n.ControlInput = in
		n.ControlMetric = domain.Metric(p.ControlMetric)
		n.ControlWindow = p.ControlWindow
		n.ScaleFrom, n.ScaleTo = p.ScaleFrom, p.ScaleTo
		if err := b.buildThenElse(n, p, p.ID); err != nil {
			return nil, err
		}

	case "function":
		n.Kind = domain.KindFunction
		n.RankMetric = domain.Metric(p.RankMetric)
		n.RankWindow = p.RankWindow
		switch domain.RankDirection(p.RankDir) {
		case domain.RankTop, domain.RankBottom:
			n.RankDir = domain.RankDirection(p.RankDir)
		case "":
			n.RankDir = domain.RankTop
		default:
			return nil, fmt.Errorf("%w: node %s unknown rankDir %q", backtest.ErrInvalidPayload, p.ID, p.RankDir)
		}
		n.PickN = p.PickN
		kids, err := b.buildChildren(p.Children["next"], p.ID)
		if err != nil {
			return nil, err
		}
		n.Children[domain.SlotNext] = kids

	default:
		return nil, fmt.Errorf("%w: unknown node kind %q at %s", backtest.ErrInvalidPayload, p.Kind, p.ID)
	}

	if err := b.applyWeighting(n, p); err != nil {
		return nil, err
	}

	return n, nil
}

func (b *builder) buildThenElse(n *domain.Node, p NodePayload, parentID string) error {
	thenKids, err := b.buildChildren(p.Children["then"], parentID)
	if err != nil {
		return err
	}
	elseKids, err := b.buildChildren(p.Children["else"], parentID)
	if err != nil {
		return err
	}
	n.Children[domain.SlotThen] = thenKids
	n.Children[domain.SlotElse] = elseKids
	return nil
}

func (b *builder) buildChildren(kids []NodePayload, parentID string) ([]*domain.Node, error) {
	out := make([]*domain.Node, len(kids))
	for i, kp := range kids {
		kid, err := b.buildNode(kp, parentID)
		if err != nil {
			return nil, err
		}
		out[i] = kid
	}
	return out, nil
}

func (b *builder) applyWeighting(n *domain.Node, p NodePayload) error {
	switch domain.WeightingMode(p.Weighting) {
	case domain.WeightEqual, domain.WeightDefined, domain.WeightInverse, domain.WeightPro, domain.WeightCapped:
		n.Weighting = domain.WeightingMode(p.Weighting)
	case "":
		n.Weighting = domain.WeightEqual
	default:
		return fmt.Errorf("%w: node %s unknown weighting mode %q", backtest.ErrInvalidPayload, p.ID, p.Weighting)
	}
	n.DefinedWeights = p.DefinedWeights
	n.VolWindow = p.VolWindow
	n.MinCap, n.MaxCap = p.MinCap, p.MaxCap
	if p.FallbackTicker != "" {
		n.FallbackTicker = domain.NormalizeTicker(p.FallbackTicker)
	}
	if n.Weighting == domain.WeightCapped {
		switch domain.WeightingMode(p.CappedBase) {
		case domain.WeightEqual, domain.WeightDefined, domain.WeightInverse, domain.WeightPro:
			n.CappedBase = domain.WeightingMode(p.CappedBase)
		case "":
			n.CappedBase = domain.WeightEqual
		default:
			return fmt.Errorf("%w: node %s unknown cappedBase %q", backtest.ErrInvalidPayload, p.ID, p.CappedBase)
		}
	}
	return nil
}

func (b *builder) buildConditionList(p ConditionListPayload, parentID string) (domain.ConditionList, error) {
	terms := make([]domain.ConditionTerm, len(p.Terms))
	for i, tp := range p.Terms {
		conds := make([]domain.Condition, len(tp.Conditions))
		for j, cp := range tp.Conditions {
			c, err := b.buildCondition(cp, parentID)
			if err != nil {
				return domain.ConditionList{}, err
			}
			conds[j] = c
		}
		terms[i] = domain.ConditionTerm{Conditions: conds}
	}
	return domain.ConditionList{Terms: terms}, nil
}

func (b *builder) buildCondition(p ConditionPayload, parentID string) (domain.Condition, error) {
	if p.IsDateCondition {
		return domain.Condition{
			IsDateCondition: true,
			FromMonth:       p.FromMonth, FromDay: p.FromDay,
			ToMonth: p.ToMonth, ToDay: p.ToDay,
		}, nil
	}

	left, err := domain.ParseTickerField(p.LeftTicker, parentID)
	if err != nil {
		return domain.Condition{}, fmt.Errorf("%w: condition leftTicker: %v", backtest.ErrInvalidPayload, err)
	}
	b.recordInput(left)

	comparator := domain.Comparator(p.Comparator)
	switch comparator {
	case domain.CompareGT, domain.CompareLT, domain.CompareCrossAbove, domain.CompareCrossBelow:
	default:
		return domain.Condition{}, fmt.Errorf("%w: unknown comparator %q", backtest.ErrInvalidPayload, p.Comparator)
	}

	right := domain.RightSide{IsScalar: p.IsScalar, Threshold: p.Threshold}
	if !p.IsScalar {
		rin, err := domain.ParseTickerField(p.RightTicker, parentID)
		if err != nil {
			return domain.Condition{}, fmt.Errorf("%w: condition rightTicker: %v", backtest.ErrInvalidPayload, err)
		}
		b.recordInput(rin)
		right.RightInput = rin
		right.RightMetric = domain.Metric(p.RightMetric)
		right.RightWindow = p.RightWindow
	}

	forDays := p.ForDays
	if forDays < 1 {
		forDays = 1
	}

	return domain.Condition{
		LeftInput:  left,
		Metric:     domain.Metric(p.Metric),
		Window:     p.Window,
		Comparator: comparator,
		Right:      right,
		ForDays:    forDays,
	}, nil
}

func (b *builder) parseTickerList(raw []string, parentID string) ([]domain.TickerKey, error) {
	out := make([]domain.TickerKey, len(raw))
	for i, r := range raw {
		in, err := domain.ParseTickerField(r, parentID)
		if err != nil {
			return nil, fmt.Errorf("%w: position ticker: %v", backtest.ErrInvalidPayload, err)
		}
		if in.Kind != domain.InputTicker {
			// Ratio/branch/custom tickers are not directly holdable; a
			// position list only ever names plain tickers.
			return nil, fmt.Errorf("%w: position ticker %q is not a plain ticker", backtest.ErrInvalidPayload, r)
		}
		// A position list's own tickers only drive the date axis when a
		// function node later ranks them (handled by markFunctionRankTickers
		// as a post-pass); by default they may have shorter history than
		// the indicator-driven axis.
		b.allTicker[in.Ticker] = true
		b.positionTickers++
		out[i] = in.Ticker
	}
	return out, nil
}

// recordInput marks every plain/ratio ticker an Input touches as both an
// "indicator ticker" (drives the price-database date axis) and a ticker
// the request touches at all.
func (b *builder) recordInput(in domain.Input) {
	switch in.Kind {
	case domain.InputTicker:
		b.indicatorTicker[in.Ticker] = true
		b.allTicker[in.Ticker] = true
	case domain.InputRatio:
		b.indicatorTicker[in.RatioNumerator] = true
		b.indicatorTicker[in.RatioDenominator] = true
		b.allTicker[in.RatioNumerator] = true
		b.allTicker[in.RatioDenominator] = true
	}
}

// markFunctionRankTickers promotes every position ticker held beneath a
// `function` node's immediate children to an indicator ticker: its rank
// metric is evaluated on them every day, so they drive the date axis too.
func (b *builder) markFunctionRankTickers(node *domain.Node) {
	if node == nil {
		return
	}
	if node.Kind == domain.KindFunction {
		for _, kid := range node.Children[domain.SlotNext] {
			for _, t := range kid.PositionTickers {
				if t != domain.Empty {
					b.indicatorTicker[t] = true
				}
			}
		}
	}
	for _, kids := range node.Children {
		for _, kid := range kids {
			b.markFunctionRankTickers(kid)
		}
	}
}

// markFallbackTickers registers every capped-weighting node's fallback
// ticker (default BIL) as a ticker the bar loader must fetch, even though
// it never appears in a position list directly.
func (b *builder) markFallbackTickers(node *domain.Node) {
	if node == nil {
		return
	}
	if node.Weighting == domain.WeightCapped {
		t := node.FallbackTicker
		if t == domain.Empty {
			t = domain.DefaultFallbackTicker
		}
		b.allTicker[t] = true
	}
	for _, kids := range node.Children {
		for _, kid := range kids {
			b.markFallbackTickers(kid)
		}
	}
}

func parseQuantifier(raw string, n int) (domain.Quantifier, int, error) {
	switch domain.Quantifier(raw) {
	case domain.QuantAny, domain.QuantAll, domain.QuantNone, domain.QuantExactly,
		domain.QuantAtLeast, domain.QuantAtMost, domain.QuantLadder:
		return domain.Quantifier(raw), n, nil
	default:
		return "", 0, fmt.Errorf("%w: unknown quantifier %q", backtest.ErrInvalidPayload, raw)
	}
}
