package indicators

import "math"

// LaguerreRSI implements John Ehlers' Laguerre RSI (gamma = 0.8 fixed). It
// is not part of TA-Lib's catalog, so unlike the indicators in
// oscillators.go it is hand-rolled here.
//
// cu+cd == 0 for a given index returns null for that index.
func LaguerreRSI(close []float64) []float64 {
	const gamma = 0.8
	n := len(close)
	out := nanSeries(n)

	var l0, l1, l2, l3 float64
	started := false

	for i := 0; i < n; i++ {
		if isNull(close[i]) {
			started = false
			continue
		}
		if !started {
			l0, l1, l2, l3 = close[i], close[i], close[i], close[i]
			started = true
			continue
		}

		l0Prev, l1Prev, l2Prev, l3Prev := l0, l1, l2, l3
		l0 = (1-gamma)*close[i] + gamma*l0Prev
		l1 = -gamma*l0 + l0Prev + gamma*l1Prev
		l2 = -gamma*l1 + l1Prev + gamma*l2Prev
		l3 = -gamma*l2 + l2Prev + gamma*l3Prev

		cu, cd := 0.0, 0.0
		if l0 >= l1 {
			cu += l0 - l1
		} else {
			cd += l1 - l0
		}
		if l1 >= l2 {
			cu += l1 - l2
		} else {
			cd += l2 - l1
		}
		if l2 >= l3 {
			cu += l2 - l3
		} else {
			cd += l3 - l2
		}

		if cu+cd == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = cu / (cu + cd) * 100
	}
	return out
}
