// Package domain holds the core, infrastructure-free types shared by every
// stage of the backtesting pipeline: ticker references, bars, the strategy
// tree, conditions and allocations.
package domain

import (
	"fmt"
	"strings"
)

// TickerKey is an uppercase, trimmed ticker symbol. The zero value Empty
// means "no position" (cash).
type TickerKey string

// Empty is the sentinel ticker meaning "no position" (cash).
const Empty TickerKey = ""

// NormalizeTicker trims and uppercases a raw ticker string.
func NormalizeTicker(raw string) TickerKey {
	return TickerKey(strings.ToUpper(strings.TrimSpace(raw)))
}

// BranchSlot names the parent-relative branch a branch ticker resolves
// against.
type BranchSlot string

const (
	BranchFrom  BranchSlot = "from"
	BranchTo    BranchSlot = "to"
	BranchThen  BranchSlot = "then"
	BranchElse  BranchSlot = "else"
	BranchEnter BranchSlot = "enter"
	BranchExit  BranchSlot = "exit"
)

// ResolvedSlot maps a branch ticker's slot name onto the concrete slot of the
// parent node that must actually be simulated.
func (b BranchSlot) ResolvedSlot() (Slot, error) {
	switch b {
	case BranchFrom, BranchThen, BranchEnter:
		return SlotThen, nil
	case BranchTo, BranchElse, BranchExit:
		return SlotElse, nil
	default:
		return "", fmt.Errorf("branch: unknown branch slot %q", b)
	}
}

// InputKind discriminates the four shapes a ticker reference can take.
// Rather than sniffing prefixes like "branch:" or "custom:" at every call
// site, every reference is normalized to one of these variants once, at
// tree-ingest time.
type InputKind int

const (
	InputTicker InputKind = iota
	InputRatio
	InputBranch
	InputCustom
)

// Input is a normalized reference to a price/indicator source: a plain
// ticker, a ratio of two tickers, a branch-equity curve of a sibling
// subtree, or a user-defined custom-formula indicator.
type Input struct {
	Kind InputKind

	Ticker TickerKey // InputTicker

	RatioNumerator   TickerKey // InputRatio
	RatioDenominator TickerKey // InputRatio

	BranchParentID string     // InputBranch: node id of the parent that owns the subtree
	BranchSlot     BranchSlot // InputBranch

	CustomID string // InputCustom: id into the custom-formula registry
}

// Key returns a stable, comparable cache key string for this input — the
// series/indicator cache is keyed by this string, never by the raw ticker
// text.
func (in Input) Key() string {
	switch in.Kind {
	case InputTicker:
		return string(in.Ticker)
	case InputRatio:
		return string(in.RatioNumerator) + "/" + string(in.RatioDenominator)
	case InputBranch:
		return "branch:" + in.BranchParentID + ":" + string(in.BranchSlot)
	case InputCustom:
		return "custom:" + in.CustomID
	default:
		return "invalid"
	}
}

// ParseTickerField normalizes a raw ticker-field string (as it appears in a
// position list, a condition's left/right ticker, or a function node's
// ranking ticker) into an Input. A bare "branch:<name>" string resolves
// against the supplied parent node id.
func ParseTickerField(raw string, parentNodeID string) (Input, error) {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "custom:") {
		return Input{Kind: InputCustom, CustomID: strings.TrimPrefix(trimmed, "custom:")}, nil
	}

	if strings.HasPrefix(trimmed, "branch:") {
		name := BranchSlot(strings.TrimPrefix(trimmed, "branch:"))
		switch name {
		case BranchFrom, BranchTo, BranchThen, BranchElse, BranchEnter, BranchExit:
			return Input{Kind: InputBranch, BranchParentID: parentNodeID, BranchSlot: name}, nil
		default:
			return Input{}, fmt.Errorf("invalid branch ticker %q", raw)
		}
	}

	if idx := strings.IndexByte(trimmed, '/'); idx > 0 && idx < len(trimmed)-1 {
		num := NormalizeTicker(trimmed[:idx])
		den := NormalizeTicker(trimmed[idx+1:])
		if num == Empty || den == Empty {
			return Input{}, fmt.Errorf("malformed ratio ticker %q", raw)
		}
		return Input{Kind: InputRatio, RatioNumerator: num, RatioDenominator: den}, nil
	}

	return Input{Kind: InputTicker, Ticker: NormalizeTicker(trimmed)}, nil
}

// String renders the Input back to its source-level textual form, used in
// error messages and overlay metadata.
func (in Input) String() string {
	switch in.Kind {
	case InputTicker:
		return string(in.Ticker)
	case InputRatio:
		return string(in.RatioNumerator) + "/" + string(in.RatioDenominator)
	case InputBranch:
		return "branch:" + string(in.BranchSlot)
	case InputCustom:
		return "custom:" + in.CustomID
	default:
		return "?"
	}
}
