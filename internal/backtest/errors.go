// Package backtest implements component C9 (the day loop / realization
// loop) and component C10 (summary statistics and IS/OOS splitting).
package backtest

import "errors"

// Every backtest-level failure is one of these, wrapped with context via
// fmt.Errorf("...: %w", ...) at the point of detection — never a bare
// string, and never recovered from globally.
var (
	// ErrInsufficientData mirrors pricedb.ErrInsufficientData at the
	// backtest-request boundary: fewer than 3 aligned dates, or the root
	// tree prunes to an empty allocation throughout history.
	ErrInsufficientData = errors.New("backtest: insufficient aligned data")

	// ErrInvalidPayload covers unknown node kinds, malformed conditions,
	// malformed ratio/branch tickers, and unknown weighting modes —
	// anything caught before the day loop starts.
	ErrInvalidPayload = errors.New("backtest: invalid payload")

	// ErrNoPositionTickers is raised when a tree resolves to no tradable
	// tickers anywhere (every position list is empty or all-Empty).
	ErrNoPositionTickers = errors.New("backtest: no position tickers in tree")
)
