package geometry

import "math"

// Clamp constrains v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 constrains v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Lerp linearly interpolates between a and b by t.
// t outside [0, 1] extrapolates.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Approx reports whether a and b are equal within eps.
func Approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
