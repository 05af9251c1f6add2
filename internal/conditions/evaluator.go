// Package conditions implements component C5: three-valued evaluation of
// a node's condition list against an evaluation context at a given day
// index.
package conditions

import (
	"time"

	"github.com/aristath/stratbacktest/internal/domain"
)

// MetricResolver is the subset of the indicator dispatcher a condition
// evaluation needs: a single value at a given day index for an
// (input, metric, window) triple.
type MetricResolver interface {
	MetricAt(in domain.Input, metric domain.Metric, window, i int) (float64, error)
}

// Evaluator evaluates domain.ConditionList values against a MetricResolver
// and a date axis (needed for date conditions).
type Evaluator struct {
	metrics MetricResolver
	dates   []int64 // epoch seconds, aligned to the same axis as i
}

// New builds a condition Evaluator bound to a dispatcher and a date axis.
func New(metrics MetricResolver, dates []int64) *Evaluator {
	return &Evaluator{metrics: metrics, dates: dates}
}

// Evaluate computes the three-valued truth of a ConditionList at day index
// i: a sum-of-products (OR of AND-groups), with each leaf a single
// Condition.
func (e *Evaluator) Evaluate(list domain.ConditionList, i int) (domain.Tri, error) {
	if len(list.Terms) == 0 {
		return domain.TriTrue, nil
	}
	result := domain.TriFalse
	for _, term := range list.Terms {
		v, err := e.evaluateTerm(term, i)
		if err != nil {
			return domain.TriNull, err
		}
		result = result.Or(v)
	}
	return result, nil
}

func (e *Evaluator) evaluateTerm(term domain.ConditionTerm, i int) (domain.Tri, error) {
	if len(term.Conditions) == 0 {
		return domain.TriTrue, nil
	}
	result := domain.TriTrue
	for _, cond := range term.Conditions {
		v, err := e.evaluateCondition(cond, i)
		if err != nil {
			return domain.TriNull, err
		}
		result = result.And(v)
		if result == domain.TriFalse {
			return domain.TriFalse, nil
		}
	}
	return result, nil
}

func (e *Evaluator) evaluateCondition(c domain.Condition, i int) (domain.Tri, error) {
	if c.IsDateCondition {
		return e.evaluateDateCondition(c, i), nil
	}

	forDays := c.ForDays
	if forDays < 1 {
		forDays = 1
	}

	result := domain.TriTrue
	for k := 0; k < forDays; k++ {
		idx := i - k
		if idx < 0 {
			return domain.TriNull, nil
		}
		v, err := e.evaluateAtIndex(c, idx)
		if err != nil {
			return domain.TriNull, err
		}
		result = result.And(v)
		if result == domain.TriFalse {
			return domain.TriFalse, nil
		}
	}
	return result, nil
}

func (e *Evaluator) evaluateAtIndex(c domain.Condition, i int) (domain.Tri, error) {
	left, err := e.metrics.MetricAt(c.LeftInput, c.Metric, c.Window, i)
	if err != nil {
		return domain.TriNull, err
	}
	if domain.IsNull(left) {
		return domain.TriNull, nil
	}

	var right float64
	if c.Right.IsScalar {
		right = c.Right.Threshold
	} else {
		right, err = e.metrics.MetricAt(c.Right.RightInput, c.Right.RightMetric, c.Right.RightWindow, i)
		if err != nil {
			return domain.TriNull, err
		}
		if domain.IsNull(right) {
			return domain.TriNull, nil
		}
	}

	switch c.Comparator {
	case domain.CompareGT:
		return boolToTri(left > right), nil
	case domain.CompareLT:
		return boolToTri(left < right), nil
	case domain.CompareCrossAbove, domain.CompareCrossBelow:
		return e.evaluateCross(c, i, left, right)
	default:
		return domain.TriNull, nil
	}
}

// evaluateCross needs the prior day's values too: a cross holds when the
// relation is strict on day i and was not strict on day i-1 (equal values
// on day i-1 count as not yet crossed). It is null on day 0 and whenever
// either day-i-1 value is null.
func (e *Evaluator) evaluateCross(c domain.Condition, i int, leftNow, rightNow float64) (domain.Tri, error) {
	if i == 0 {
		return domain.TriNull, nil
	}
	leftPrev, err := e.metrics.MetricAt(c.LeftInput, c.Metric, c.Window, i-1)
	if err != nil {
		return domain.TriNull, err
	}
	var rightPrev float64
	if c.Right.IsScalar {
		rightPrev = c.Right.Threshold
	} else {
		rightPrev, err = e.metrics.MetricAt(c.Right.RightInput, c.Right.RightMetric, c.Right.RightWindow, i-1)
		if err != nil {
			return domain.TriNull, err
		}
	}
	if domain.IsNull(leftPrev) || domain.IsNull(rightPrev) {
		return domain.TriNull, nil
	}

	switch c.Comparator {
	case domain.CompareCrossAbove:
		return boolToTri(leftPrev <= rightPrev && leftNow > rightNow), nil
	case domain.CompareCrossBelow:
		return boolToTri(leftPrev >= rightPrev && leftNow < rightNow), nil
	default:
		return domain.TriNull, nil
	}
}

// evaluateDateCondition reports whether the calendar date at axis index i
// falls within the [from, to] month/day window, wrapping across
// year-boundaries when to < from (e.g. "Nov 1 - Feb 1").
func (e *Evaluator) evaluateDateCondition(c domain.Condition, i int) domain.Tri {
	if i < 0 || i >= len(e.dates) {
		return domain.TriNull
	}
	t := time.Unix(e.dates[i], 0).UTC()
	month, day := int(t.Month()), t.Day()

	from := c.FromMonth*100 + c.FromDay
	to := c.ToMonth*100 + c.ToDay
	cur := month*100 + day

	var within bool
	if from <= to {
		within = cur >= from && cur <= to
	} else {
		within = cur >= from || cur <= to
	}
	return boolToTri(within)
}

func boolToTri(b bool) domain.Tri {
	if b {
		return domain.TriTrue
	}
	return domain.TriFalse
}
