package derive

import "math"

// Deltas returns the day-over-day differences of a cumulative series.
// The first element is always 0.
func Deltas(cumulative []int) []int {
	out := make([]int, len(cumulative))
	for i := 1; i < len(cumulative); i++ {
		out[i] = cumulative[i] - cumulative[i-1]
	}
	return out
}

// RollingSum returns the trailing sum over [i-window+1, i], clipped at the
// start of the series rather than padded.
func RollingSum(values []int, window int) []int {
	out := make([]int, len(values))
	if window <= 0 {
		return out
	}
	sum := 0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum
	}
	return out
}

// Rate divides a window sum by the full window length and rounds to one
// decimal, half to even. The divisor stays fixed near the series start, so
// early rates are understated.
func Rate(sum, window int) float64 {
	if window <= 0 {
		return 0
	}
	return math.RoundToEven(float64(sum)/float64(window)*10) / 10
}
