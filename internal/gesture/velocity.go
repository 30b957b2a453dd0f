package gesture

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"pageflow/pkg/geometry"
)

// velocityWindow is how far back samples contribute to the release
// velocity. Older movement says nothing about where the finger was
// headed when it lifted.
const velocityWindow = 100 * time.Millisecond

// maxVelocitySamples bounds the ring so long slow drags stay cheap.
const maxVelocitySamples = 20

type velocitySample struct {
	t   time.Time
	pos geometry.Point2D
}

// velocityTracker estimates release velocity from recent pointer
// positions. Velocities are in px/ms, the unit the momentum simulator
// integrates in.
type velocityTracker struct {
	samples []velocitySample
}

func (v *velocityTracker) reset() {
	v.samples = v.samples[:0]
}

// add records a position sample and drops samples older than the
// window.
func (v *velocityTracker) add(t time.Time, pos geometry.Point2D) {
	v.samples = append(v.samples, velocitySample{t: t, pos: pos})
	cutoff := t.Add(-velocityWindow)
	i := 0
	for i < len(v.samples) && v.samples[i].t.Before(cutoff) {
		i++
	}
	if i > 0 {
		v.samples = append(v.samples[:0], v.samples[i:]...)
	}
	if len(v.samples) > maxVelocitySamples {
		v.samples = append(v.samples[:0], v.samples[len(v.samples)-maxVelocitySamples:]...)
	}
}

// estimate returns the current velocity in px/ms. With three or more
// samples it fits a least-squares line per axis, which rides out the
// jitter of individual move events; with two it falls back to the
// endpoint difference; with fewer it reports zero.
func (v *velocityTracker) estimate() geometry.Point2D {
	n := len(v.samples)
	if n < 2 {
		return geometry.Point2D{}
	}
	first, last := v.samples[0], v.samples[n-1]
	dt := last.t.Sub(first.t)
	if dt <= 0 {
		return geometry.Point2D{}
	}
	if n < 3 {
		ms := float64(dt) / float64(time.Millisecond)
		return geometry.Point2D{
			X: (last.pos.X - first.pos.X) / ms,
			Y: (last.pos.Y - first.pos.Y) / ms,
		}
	}

	ts := make([]float64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, s := range v.samples {
		ts[i] = float64(s.t.Sub(first.t)) / float64(time.Millisecond)
		xs[i] = s.pos.X
		ys[i] = s.pos.Y
	}
	_, vx := stat.LinearRegression(ts, xs, nil, false)
	_, vy := stat.LinearRegression(ts, ys, nil, false)
	return geometry.Point2D{X: vx, Y: vy}
}
