package conditions

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stratbacktest/internal/domain"
)

// fakeResolver serves canned (input, metric, window, index) -> value
// lookups so the evaluator can be tested without a real dispatcher.
type fakeResolver struct {
	values map[string][]float64
}

func (r *fakeResolver) key(in domain.Input, metric domain.Metric) string {
	return in.Key() + "|" + string(metric)
}

func (r *fakeResolver) MetricAt(in domain.Input, metric domain.Metric, window, i int) (float64, error) {
	series, ok := r.values[r.key(in, metric)]
	if !ok || i < 0 || i >= len(series) {
		return math.NaN(), nil
	}
	return series[i], nil
}

func spyInput() domain.Input { return domain.Input{Kind: domain.InputTicker, Ticker: "SPY"} }

func gtCondition(threshold float64) domain.Condition {
	return domain.Condition{
		LeftInput: spyInput(), Metric: "sma", Window: 5,
		Comparator: domain.CompareGT,
		Right:      domain.RightSide{IsScalar: true, Threshold: threshold},
		ForDays:    1,
	}
}

func TestEvaluate_EmptyListIsTrue(t *testing.T) {
	e := New(&fakeResolver{}, nil)
	got, err := e.Evaluate(domain.ConditionList{}, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TriTrue, got)
}

func TestEvaluate_SimpleGreaterThan(t *testing.T) {
	r := &fakeResolver{values: map[string][]float64{
		"SPY|sma": {10, 20, 30},
	}}
	e := New(r, nil)

	got, err := e.Evaluate(domain.ConditionList{Terms: []domain.ConditionTerm{{Conditions: []domain.Condition{gtCondition(15)}}}}, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TriTrue, got)

	got, err = e.Evaluate(domain.ConditionList{Terms: []domain.ConditionTerm{{Conditions: []domain.Condition{gtCondition(15)}}}}, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TriFalse, got)
}

func TestEvaluate_NullLeftPropagatesAsTriNull(t *testing.T) {
	r := &fakeResolver{values: map[string][]float64{
		"SPY|sma": {math.NaN(), 20},
	}}
	e := New(r, nil)
	got, err := e.Evaluate(domain.ConditionList{Terms: []domain.ConditionTerm{{Conditions: []domain.Condition{gtCondition(15)}}}}, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TriNull, got)
}

func TestEvaluate_AndGroupIsFalseIfAnyLegIsFalse_EvenWithANullLeg(t *testing.T) {
	// false AND null = false: false is absorbing, matching domain.Tri.And.
	r := &fakeResolver{values: map[string][]float64{
		"SPY|sma": {10},
		"SPY|rsi": {math.NaN()},
	}}
	e := New(r, nil)
	falseLeg := gtCondition(1000) // 10 > 1000 is false
	nullLeg := domain.Condition{
		LeftInput: spyInput(), Metric: "rsi", Window: 14,
		Comparator: domain.CompareGT,
		Right:      domain.RightSide{IsScalar: true, Threshold: 50},
		ForDays:    1,
	}
	got, err := e.Evaluate(domain.ConditionList{Terms: []domain.ConditionTerm{{Conditions: []domain.Condition{falseLeg, nullLeg}}}}, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TriFalse, got)
}

func TestEvaluate_OrOfTermsIsTrueIfAnyTermIsTrue(t *testing.T) {
	r := &fakeResolver{values: map[string][]float64{"SPY|sma": {10}}}
	e := New(r, nil)
	falseTerm := domain.ConditionTerm{Conditions: []domain.Condition{gtCondition(1000)}}
	trueTerm := domain.ConditionTerm{Conditions: []domain.Condition{gtCondition(1)}}
	got, err := e.Evaluate(domain.ConditionList{Terms: []domain.ConditionTerm{falseTerm, trueTerm}}, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TriTrue, got)
}

func TestEvaluate_ForDaysRequiresEveryTrailingDayToHold(t *testing.T) {
	r := &fakeResolver{values: map[string][]float64{"SPY|sma": {30, 30, 10}}}
	e := New(r, nil)
	cond := gtCondition(15)
	cond.ForDays = 3

	got, err := e.Evaluate(domain.ConditionList{Terms: []domain.ConditionTerm{{Conditions: []domain.Condition{cond}}}}, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.TriFalse, got, "index 2's own value (10) fails the threshold")
}

func TestEvaluate_ForDaysNullWhenLookbackRunsOffTheStart(t *testing.T) {
	r := &fakeResolver{values: map[string][]float64{"SPY|sma": {30, 30, 30}}}
	e := New(r, nil)
	cond := gtCondition(15)
	cond.ForDays = 5

	got, err := e.Evaluate(domain.ConditionList{Terms: []domain.ConditionTerm{{Conditions: []domain.Condition{cond}}}}, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.TriNull, got)
}

func TestEvaluate_CrossAbove(t *testing.T) {
	r := &fakeResolver{values: map[string][]float64{"SPY|sma": {10, 20}}}
	e := New(r, nil)
	cond := domain.Condition{
		LeftInput: spyInput(), Metric: "sma", Window: 5,
		Comparator: domain.CompareCrossAbove,
		Right:      domain.RightSide{IsScalar: true, Threshold: 15},
		ForDays:    1,
	}
	got, err := e.Evaluate(domain.ConditionList{Terms: []domain.ConditionTerm{{Conditions: []domain.Condition{cond}}}}, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TriTrue, got, "10 <= 15 yesterday, 20 > 15 today is a cross above")
}

func TestEvaluate_CrossAboveNullAtIndexZero(t *testing.T) {
	r := &fakeResolver{values: map[string][]float64{"SPY|sma": {20}}}
	e := New(r, nil)
	cond := domain.Condition{
		LeftInput: spyInput(), Metric: "sma", Window: 5,
		Comparator: domain.CompareCrossAbove,
		Right:      domain.RightSide{IsScalar: true, Threshold: 15},
		ForDays:    1,
	}
	got, err := e.Evaluate(domain.ConditionList{Terms: []domain.ConditionTerm{{Conditions: []domain.Condition{cond}}}}, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TriNull, got, "there is no prior day to compare against")
}

func TestEvaluate_DateConditionWrapsAcrossYearBoundary(t *testing.T) {
	mkDate := func(y int, m time.Month, d int) int64 {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	}
	dates := []int64{mkDate(2024, time.December, 15), mkDate(2024, time.March, 1)}
	e := New(&fakeResolver{}, dates)

	cond := domain.Condition{IsDateCondition: true, FromMonth: 11, FromDay: 1, ToMonth: 2, ToDay: 1}
	list := domain.ConditionList{Terms: []domain.ConditionTerm{{Conditions: []domain.Condition{cond}}}}

	inWindow, err := e.Evaluate(list, 0) // Dec 15 falls in Nov1-Feb1 wraparound window
	require.NoError(t, err)
	assert.Equal(t, domain.TriTrue, inWindow)

	outOfWindow, err := e.Evaluate(list, 1) // Mar 1 does not
	require.NoError(t, err)
	assert.Equal(t, domain.TriFalse, outOfWindow)
}
