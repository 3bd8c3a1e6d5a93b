package rotation

import "math"

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// pearson returns the correlation of x and y and whether it is defined.
// It is undefined for mismatched or empty inputs and when either side has
// zero variance.
func pearson(x, y []float64) (float64, bool) {
	n := len(x)
	if n == 0 || len(y) != n {
		return 0, false
	}
	if constant(x) || constant(y) {
		return 0, false
	}
	meanX := mean(x)
	meanY := mean(y)

	var numerator, denomX, denomY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		numerator += dx * dy
		denomX += dx * dx
		denomY += dy * dy
	}

	if denomX == 0 || denomY == 0 {
		return 0, false
	}
	denom := math.Sqrt(denomX * denomY)
	if denom == 0 || math.IsInf(denom, 0) || math.IsNaN(denom) {
		return 0, false
	}

	corr := numerator / denom
	if math.IsNaN(corr) {
		return 0, false
	}
	if corr > 1 {
		return 1, true
	}
	if corr < -1 {
		return -1, true
	}
	return corr, true
}

// constant reports whether every value equals the first. Sums of squared
// deviations from a rounded mean can stay just above zero for such input.
func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
