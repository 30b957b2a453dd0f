package geometry

import "math"

// PathLength returns the total length of a polyline.
func PathLength(points []Point2D) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += points[i].Distance(points[i-1])
	}
	return total
}

// PointSegmentDistance returns the shortest distance from p to the
// segment a-b. A degenerate segment (a == b) is treated as a point.
func PointSegmentDistance(p, a, b Point2D) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return p.Distance(a)
	}

	// Project p onto the segment, clamping to the endpoints.
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = Clamp01(t)

	nearest := Point2D{X: a.X + t*dx, Y: a.Y + t*dy}
	return p.Distance(nearest)
}

// DistanceToPath returns the shortest distance from p to any segment of
// the polyline. A single-point path is treated as a point; an empty path
// returns +Inf.
func DistanceToPath(p Point2D, points []Point2D) float64 {
	switch len(points) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Distance(points[0])
	}

	best := math.Inf(1)
	for i := 1; i < len(points); i++ {
		d := PointSegmentDistance(p, points[i-1], points[i])
		if d < best {
			best = d
		}
	}
	return best
}

// Simplify reduces a polyline using the Ramer-Douglas-Peucker algorithm.
// Points farther than epsilon from the simplified shape are kept. The
// first and last points are always preserved. The input is not modified.
func Simplify(points []Point2D, epsilon float64) []Point2D {
	if len(points) <= 2 || epsilon <= 0 {
		out := make([]Point2D, len(points))
		copy(out, points)
		return out
	}

	keep := make([]bool, len(points))
	keep[0] = true
	keep[len(points)-1] = true
	simplifyRange(points, 0, len(points)-1, epsilon, keep)

	out := make([]Point2D, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

// simplifyRange marks the points to keep between indices first and last.
func simplifyRange(points []Point2D, first, last int, epsilon float64, keep []bool) {
	if last <= first+1 {
		return
	}

	// Find the point farthest from the chord first-last.
	var maxDist float64
	maxIdx := first
	for i := first + 1; i < last; i++ {
		d := PointSegmentDistance(points[i], points[first], points[last])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist > epsilon {
		keep[maxIdx] = true
		simplifyRange(points, first, maxIdx, epsilon, keep)
		simplifyRange(points, maxIdx, last, epsilon, keep)
	}
}
