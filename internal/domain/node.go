package domain

// Kind discriminates the six strategy node variants, a closed tagged union
// in place of a loose "kind" string field with arbitrary per-kind properties.
type Kind int

const (
	KindPosition Kind = iota
	KindBasic
	KindIndicatorGate
	KindAltExit
	KindNumbered
	KindScaling
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindPosition:
		return "position"
	case KindBasic:
		return "basic"
	case KindIndicatorGate:
		return "indicator"
	case KindAltExit:
		return "altExit"
	case KindNumbered:
		return "numbered"
	case KindScaling:
		return "scaling"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Slot names a child-list slot on a node: an explicit small enumerated set
// rather than an arbitrary children map.
type Slot string

const (
	SlotNext Slot = "next"
	SlotThen Slot = "then"
	SlotElse Slot = "else"
)

// LadderSlot builds the slot name for quantifier `ladder` routing
// ("ladder-<count>").
func LadderSlot(count int) Slot {
	return Slot("ladder-" + itoa(count))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Quantifier is the branch-selection rule for a `numbered` node.
type Quantifier string

const (
	QuantAny      Quantifier = "any"
	QuantAll      Quantifier = "all"
	QuantNone     Quantifier = "none"
	QuantExactly  Quantifier = "exactly"
	QuantAtLeast  Quantifier = "atLeast"
	QuantAtMost   Quantifier = "atMost"
	QuantLadder   Quantifier = "ladder"
)

// WeightingMode is the policy `combine` uses to blend active children's
// allocations.
type WeightingMode string

const (
	WeightEqual   WeightingMode = "equal"
	WeightDefined WeightingMode = "defined"
	WeightInverse WeightingMode = "inverse"
	WeightPro     WeightingMode = "pro"
	WeightCapped  WeightingMode = "capped"
)

// RankDirection is the ranking order for a `function` node.
type RankDirection string

const (
	RankTop    RankDirection = "top"
	RankBottom RankDirection = "bottom"
)

// Node is a single strategy-tree vertex. Every kind populates only the
// fields relevant to it; callers dispatch on Kind.
type Node struct {
	ID   string
	Kind Kind

	// KindPosition
	PositionTickers []TickerKey

	// KindBasic, KindFunction: children under SlotNext
	// KindIndicatorGate, KindAltExit, KindScaling: children under
	// SlotThen / SlotElse
	// KindNumbered: children under SlotThen/SlotElse, or SlotLadder-K
	Children map[Slot][]*Node

	// KindIndicatorGate
	Conditions ConditionList

	// KindAltExit
	EntryConditions ConditionList
	ExitConditions  ConditionList

	// KindNumbered
	Items      []ConditionList // one condition list per quantified item
	Quantifier Quantifier
	QuantifierN int // the N in exactly/atLeast/atMost

	// KindScaling
	ControlInput  Input
	ControlMetric Metric
	ControlWindow int
	ScaleFrom     float64
	ScaleTo       float64

	// KindFunction
	RankMetric Metric
	RankWindow int
	RankDir    RankDirection
	PickN      int

	// Weighting policy, applies to combine() at this node regardless of
	// kind (every kind with children combines its active children).
	Weighting      WeightingMode
	DefinedWeights map[string]float64 // child id -> weight, for WeightDefined
	VolWindow      int                // for WeightInverse/WeightPro
	MinCap, MaxCap float64            // for WeightCapped
	FallbackTicker TickerKey          // for WeightCapped slack redistribution, default BIL

	// CappedBase is the distribution WeightCapped starts from before
	// clipping: one of equal, defined, inverse or pro. Empty means equal.
	// Whether sum<1 slack goes to the fallback ticker or is redistributed
	// among uncapped weights depends on this, not on WeightCapped alone.
	CappedBase WeightingMode
}

// DefaultFallbackTicker is the default slack-absorbing ticker for capped
// weighting modes.
const DefaultFallbackTicker TickerKey = "BIL"

// ChildIDs returns the ids of the children in slot s, in list order —
// `defined` weighting and rank tie-breaking both depend on this original
// order being preserved.
func (n *Node) ChildIDs(s Slot) []string {
	kids := n.Children[s]
	ids := make([]string, len(kids))
	for i, c := range kids {
		ids[i] = c.ID
	}
	return ids
}
