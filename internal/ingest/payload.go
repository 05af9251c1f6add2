// Package ingest parses the JSON backtest request payload into the
// domain-level strategy tree, building the auxiliary indexes the rest
// of the pipeline needs: the node-id lookup table, the "indicator tickers"
// set the price database builder aligns against, and the full set of
// tickers the request touches (for the bar loader, out of core scope).
package ingest

// RequestPayload is the top-level input payload.
type RequestPayload struct {
	Tree              NodePayload              `json:"tree"`
	Mode              string                   `json:"mode"`
	CostBps           float64                  `json:"costBps"`
	BenchmarkTicker   string                   `json:"benchmarkTicker"`
	SplitConfig       SplitConfigPayload       `json:"splitConfig"`
	IndicatorOverlays []OverlayPayload         `json:"indicatorOverlays"`
	CustomIndicators  []CustomIndicatorPayload `json:"customIndicators"`
}

// NodePayload is the recursive wire shape of a strategy-tree node. Only
// the fields relevant to Kind are populated by a well-formed payload;
// ingest validates that the ones it needs are present.
type NodePayload struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	// position
	Tickers []string `json:"tickers"`

	// basic, indicator, altExit, numbered, scaling, function: child slots.
	// Slot names follow domain.Slot's string values ("next", "then",
	// "else", "ladder-<n>").
	Children map[string][]NodePayload `json:"children"`

	// indicator
	Conditions ConditionListPayload `json:"conditions"`

	// altExit
	EntryConditions ConditionListPayload `json:"entryConditions"`
	ExitConditions  ConditionListPayload `json:"exitConditions"`

	// numbered
	Items       []ConditionListPayload `json:"items"`
	Quantifier  string                 `json:"quantifier"`
	QuantifierN int                    `json:"quantifierN"`

	// scaling
	ControlTicker string  `json:"controlTicker"`
	ControlMetric string  `json:"controlMetric"`
	ControlWindow int     `json:"controlWindow"`
	ScaleFrom     float64 `json:"scaleFrom"`
	ScaleTo       float64 `json:"scaleTo"`

	// function
	RankMetric string `json:"rankMetric"`
	RankWindow int    `json:"rankWindow"`
	RankDir    string `json:"rankDir"`
	PickN      int    `json:"pickN"`

	// weighting policy, meaningful on any node with children
	Weighting      string             `json:"weighting"`
	DefinedWeights map[string]float64 `json:"definedWeights"`
	VolWindow      int                `json:"volWindow"`
	MinCap         float64            `json:"minCap"`
	MaxCap         float64            `json:"maxCap"`
	FallbackTicker string             `json:"fallbackTicker"`
	CappedBase     string             `json:"cappedBase"` // for weighting=capped: equal, defined, inverse or pro
}

// ConditionListPayload is a sum-of-products condition list.
type ConditionListPayload struct {
	Terms []ConditionTermPayload `json:"terms"`
}

// ConditionTermPayload is one AND-group.
type ConditionTermPayload struct {
	Conditions []ConditionPayload `json:"conditions"`
}

// ConditionPayload is one leaf predicate, or a date condition when
// IsDateCondition is true.
type ConditionPayload struct {
	LeftTicker string `json:"leftTicker"`
	Metric     string `json:"metric"`
	Window     int    `json:"window"`

	Comparator string `json:"comparator"`

	// rightSide: either Threshold (scalar) or the Right* triple
	IsScalar    bool    `json:"isScalar"`
	Threshold   float64 `json:"threshold"`
	RightTicker string  `json:"rightTicker"`
	RightMetric string  `json:"rightMetric"`
	RightWindow int     `json:"rightWindow"`

	ForDays int `json:"forDays"`

	IsDateCondition bool `json:"isDateCondition"`
	FromMonth       int  `json:"fromMonth"`
	FromDay         int  `json:"fromDay"`
	ToMonth         int  `json:"toMonth"`
	ToDay           int  `json:"toDay"`
}

// SplitConfigPayload is the IS/OOS split request.
type SplitConfigPayload struct {
	Enabled              bool    `json:"enabled"`
	Strategy             string  `json:"strategy"`
	SplitDate            *string `json:"splitDate"` // YYYY-MM-DD
	ChronologicalPercent float64 `json:"chronologicalPercent"`
}

// OverlayPayload requests an indicator series to be returned alongside the
// backtest result for charting.
type OverlayPayload struct {
	ID           string  `json:"id"`
	Ticker       string  `json:"ticker"`
	Metric       string  `json:"metric"`
	Window       int     `json:"window"`
	Expanded     bool    `json:"expanded"`
	RightTicker  string  `json:"rightTicker"`
	RightMetric  string  `json:"rightMetric"`
	RightWindow  int     `json:"rightWindow"`
	Threshold    float64 `json:"threshold"`
	Comparator   string  `json:"comparator"`
	ParentNodeID string  `json:"parentNodeId"`
}

// CustomIndicatorPayload declares a user-defined formula series. The
// formula itself is not parsed by this engine (out of core scope); only
// its id is wired through the Input.Kind == InputCustom plumbing.
type CustomIndicatorPayload struct {
	ID      string `json:"id"`
	Formula string `json:"formula"`
}
