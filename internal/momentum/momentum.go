// Package momentum runs the post-release glide: a frame-paced decay
// loop that keeps translating the view with the release velocity until
// it dies out or runs into a clamped edge.
package momentum

import (
	"math"
	"time"

	"pageflow/internal/viewport"
	"pageflow/pkg/geometry"
)

const (
	// DefaultFriction is the per-frame velocity decay factor.
	DefaultFriction = 0.92
	// DefaultEdgeDamp is the extra damp applied to a velocity component
	// whose axis hit the clamp, a soft bounce-stop.
	DefaultEdgeDamp = 0.3
	// DefaultStopSpeed, in px/ms, is where the glide is considered at
	// rest.
	DefaultStopSpeed = 0.005
	// DefaultMaxDuration hard-caps a glide regardless of velocity.
	DefaultMaxDuration = 1800 * time.Millisecond
)

// Params tunes the glide physics. Zero fields take the defaults.
type Params struct {
	Friction    float64
	EdgeDamp    float64
	StopSpeed   float64
	MaxDuration time.Duration
}

// DefaultParams returns the standard tuning.
func DefaultParams() Params {
	return Params{
		Friction:    DefaultFriction,
		EdgeDamp:    DefaultEdgeDamp,
		StopSpeed:   DefaultStopSpeed,
		MaxDuration: DefaultMaxDuration,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Friction <= 0 || p.Friction >= 1 {
		p.Friction = d.Friction
	}
	if p.EdgeDamp <= 0 || p.EdgeDamp >= 1 {
		p.EdgeDamp = d.EdgeDamp
	}
	if p.StopSpeed <= 0 {
		p.StopSpeed = d.StopSpeed
	}
	if p.MaxDuration <= 0 {
		p.MaxDuration = d.MaxDuration
	}
	return p
}

// Sim integrates one glide at a time against a view transform. Step is
// called once per animation frame by the frame driver; the sim itself
// does no scheduling. Single-goroutine, like the transform it mutates.
type Sim struct {
	params   Params
	view     *viewport.Transform
	vel      geometry.Point2D
	started  time.Time
	lastTick time.Time
	active   bool
}

// NewSim returns an idle simulator bound to view.
func NewSim(view *viewport.Transform, params Params) *Sim {
	return &Sim{params: params.withDefaults(), view: view}
}

// Start begins a glide with the given velocity in px/ms. It reports
// false, leaving the sim idle, when the view is at base scale (nothing
// can pan) or the velocity is already below the stop threshold.
func (s *Sim) Start(vel geometry.Point2D, now time.Time) bool {
	if s.view.Scale() <= 1 {
		return false
	}
	if vel.Norm() < s.params.StopSpeed {
		return false
	}
	s.vel = vel
	s.started = now
	s.lastTick = now
	s.active = true
	return true
}

// Active reports whether a glide is in progress.
func (s *Sim) Active() bool {
	return s.active
}

// Velocity returns the current glide velocity in px/ms.
func (s *Sim) Velocity() geometry.Point2D {
	return s.vel
}

// Stop abandons the glide immediately.
func (s *Sim) Stop() {
	s.active = false
	s.vel = geometry.Point2D{}
}

// Step advances the glide by one frame and reports whether the
// translate moved. Each call integrates position over the wall time
// since the previous call and applies one frame's worth of decay, so
// pacing comes from the caller's frame source.
func (s *Sim) Step(now time.Time) bool {
	if !s.active {
		return false
	}
	if now.Sub(s.started) >= s.params.MaxDuration {
		s.Stop()
		return false
	}
	ms := float64(now.Sub(s.lastTick)) / float64(time.Millisecond)
	s.lastTick = now
	if ms < 0 {
		ms = 0
	}

	prevX, prevY := s.view.Translate()
	wantX := prevX + s.vel.X*ms
	wantY := prevY + s.vel.Y*ms
	s.view.SetTranslate(wantX, wantY)
	gotX, gotY := s.view.Translate()

	// An axis the clamp held back absorbs most of its velocity.
	if math.Abs(wantX-gotX) > 1e-9 {
		s.vel.X *= s.params.EdgeDamp
	}
	if math.Abs(wantY-gotY) > 1e-9 {
		s.vel.Y *= s.params.EdgeDamp
	}

	s.vel.X *= s.params.Friction
	s.vel.Y *= s.params.Friction
	if s.vel.Norm() < s.params.StopSpeed {
		s.Stop()
	}
	return gotX != prevX || gotY != prevY
}
