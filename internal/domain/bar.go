package domain

import "math"

// Bar is one trading day's OHLCV record for one ticker. Any field may be
// null; nulls are represented with math.NaN() once a Bar has been projected
// onto a PriceDB's date axis (see internal/pricedb).
type Bar struct {
	EpochSeconds int64
	Open         float64
	High         float64
	Low          float64
	Close        float64
	AdjClose     float64
	Volume       float64
}

// Valid reports whether this bar is usable: close must be finite and
// non-null.
func (b Bar) Valid() bool {
	return !math.IsNaN(b.Close) && !math.IsInf(b.Close, 0)
}

// NaN is the sentinel for "no value" across every derived series in this
// engine (price, indicator and return arrays alike).
func NaN() float64 { return math.NaN() }

// IsNull reports whether v represents "no value".
func IsNull(v float64) bool { return math.IsNaN(v) }

// IsPositiveFinite reports whether v is a usable, strictly positive price.
func IsPositiveFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
