package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func constantSeries(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func increasingSeries(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSMA_ConstantSeriesEqualsTheConstant(t *testing.T) {
	v := constantSeries(20, 50)
	out := SMA(v, 5)
	for i := 4; i < len(out); i++ {
		assert.InDelta(t, 50.0, out[i], 1e-9)
	}
}

func TestSMA_NullsBeforeWindowIsFull(t *testing.T) {
	v := constantSeries(20, 50)
	out := SMA(v, 5)
	for i := 0; i < 4; i++ {
		assert.True(t, isNull(out[i]), "index %d should be null before the window fills", i)
	}
}

func TestSMA_NaNResetsTheWindow(t *testing.T) {
	v := constantSeries(15, 50)
	v[5] = math.NaN()
	out := SMA(v, 5)
	// A NaN at index 5 poisons every window that still contains it; the
	// next window entirely past it, [6..10], is the first valid again.
	for i := 5; i < 10; i++ {
		assert.True(t, isNull(out[i]), "index %d should still be null after the reset", i)
	}
	assert.False(t, isNull(out[10]))
}

func TestRSI_AlwaysRisingSeriesIsFullyOverbought(t *testing.T) {
	v := increasingSeries(30, 100, 1)
	out := RSI(v, 14)
	for i := 15; i < len(out); i++ {
		assert.InDelta(t, 100.0, out[i], 1e-9)
	}
}

func TestRSI_AlwaysFallingSeriesIsFullyOversold(t *testing.T) {
	v := increasingSeries(30, 100, -1)
	out := RSI(v, 14)
	for i := 15; i < len(out); i++ {
		assert.InDelta(t, 0.0, out[i], 1e-9)
	}
}

func TestRequiresHLV_IdentifiesOHLCVMetrics(t *testing.T) {
	assert.True(t, RequiresHLV(MetricATR))
	assert.True(t, RequiresHLV(MetricADX))
	assert.True(t, RequiresHLV(MetricAroonUp))
	assert.False(t, RequiresHLV(MetricSMA))
	assert.False(t, RequiresHLV(MetricRSI))
}

func TestResolve_UnknownMetricNameFails(t *testing.T) {
	_, ok := Resolve("not_a_real_metric")
	assert.False(t, ok)
}

func TestResolve_IsCaseAndSpaceInsensitive(t *testing.T) {
	id, ok := Resolve("  SMA ")
	assert.True(t, ok)
	assert.Equal(t, MetricSMA, id)
}
