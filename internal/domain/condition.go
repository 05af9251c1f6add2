package domain

// Comparator is the relational operator a Condition tests with.
type Comparator string

const (
	CompareGT          Comparator = "gt"
	CompareLT          Comparator = "lt"
	CompareCrossAbove  Comparator = "crossAbove"
	CompareCrossBelow  Comparator = "crossBelow"
)

// Metric identifies a rolling indicator function from the closed catalog in
// internal/indicators. It is a plain string tag at the tree level but is
// resolved to a typed registry key once at ingest time — see
// internal/indicators.Registry.Resolve.
type Metric string

// RightSide is either a scalar threshold or a second (ticker, metric,
// window) triple. Exactly one of Threshold / (RightInput, RightMetric,
// RightWindow) is meaningful, discriminated by IsScalar.
type RightSide struct {
	IsScalar    bool
	Threshold   float64
	RightInput  Input
	RightMetric Metric
	RightWindow int
}

// Condition is one comparison predicate: (leftTicker, metric, window,
// comparator, rightSide, forDays, forLogicType). A Condition may instead be
// a DateCondition, in which case LeftInput/Metric/Comparator are unused.
type Condition struct {
	LeftInput Input
	Metric    Metric
	Window    int

	Comparator Comparator
	Right      RightSide

	// ForDays >= 1: the predicate holds only if the underlying comparison
	// held on each of the last ForDays trading days. ForDays == 1 is the
	// ordinary, non-windowed case.
	ForDays int

	// Date condition, mutually exclusive with the comparator form above.
	IsDateCondition bool
	FromMonth       int
	FromDay         int
	ToMonth         int
	ToDay           int
}

// BoolOp is the two binary operators a condition list can combine with.
type BoolOp string

const (
	OpAnd BoolOp = "AND"
	OpOr  BoolOp = "OR"
)

// ConditionTerm is one AND-group ("product") inside a sum-of-products
// condition list: adjacent conditions combine with AND, binding tighter
// than the OR between terms (a two-level sum-of-products).
type ConditionTerm struct {
	Conditions []Condition // implicitly AND-ed together
}

// ConditionList is an OR of AND-groups, evaluated with three-valued logic
// by internal/conditions.Evaluate.
type ConditionList struct {
	Terms []ConditionTerm // implicitly OR-ed together
}

// Tri is a three-valued truth value: True, False or Null ("unknown" —
// produced when an indicator input is itself null for that day).
type Tri int

const (
	TriNull Tri = iota
	TriFalse
	TriTrue
)

// And implements three-valued AND: null AND X = null (unless X is false,
// which is absorbing).
func (a Tri) And(b Tri) Tri {
	if a == TriFalse || b == TriFalse {
		return TriFalse
	}
	if a == TriNull || b == TriNull {
		return TriNull
	}
	return TriTrue
}

// Or implements three-valued OR: null OR true = true; null OR false = null.
func (a Tri) Or(b Tri) Tri {
	if a == TriTrue || b == TriTrue {
		return TriTrue
	}
	if a == TriNull || b == TriNull {
		return TriNull
	}
	return TriFalse
}

// Bool collapses a Tri to a plain bool, treating Null as false — used by
// the `numbered` node's quantifier counting, which intentionally does not
// propagate three-valued nulls.
func (a Tri) Bool() bool { return a == TriTrue }
