package gesture

import (
	"time"

	"pageflow/pkg/geometry"
)

// SessionKind names the interaction the router is currently in. At most
// one session is active at a time; starting a new one ends or cancels
// the previous.
type SessionKind int

const (
	SessionIdle SessionKind = iota
	SessionPanning
	SessionPinching
	SessionMomentum
	SessionAnnotating
)

func (k SessionKind) String() string {
	switch k {
	case SessionIdle:
		return "idle"
	case SessionPanning:
		return "panning"
	case SessionPinching:
		return "pinching"
	case SessionMomentum:
		return "momentum"
	case SessionAnnotating:
		return "annotating"
	}
	return "unknown"
}

// pointer is the live state of one tracked pointer.
type pointer struct {
	id       PointerID
	down     geometry.Point2D
	last     geometry.Point2D
	downTime time.Time
}

// session is the router's per-interaction scratch state. A session is
// created on the first press and discarded when the interaction ends.
type session struct {
	kind    SessionKind
	tool    ToolMode
	primary *pointer
	second  *pointer

	// moved latches once the primary pointer leaves the dead zone, so a
	// drag that wanders back near its origin still counts as a pan.
	moved bool

	// pinch bookkeeping: distance and transform anchor at pinch start.
	startDist  float64
	startScale float64

	// platformPinch marks a pinch driven by PinchEvents rather than two
	// pointers; pointer releases must not end it.
	platformPinch bool

	velocity velocityTracker
}

func (s *session) pointerCount() int {
	n := 0
	if s.primary != nil {
		n++
	}
	if s.second != nil {
		n++
	}
	return n
}

// byID returns the tracked pointer with the given id, or nil.
func (s *session) byID(id PointerID) *pointer {
	if s.primary != nil && s.primary.id == id {
		return s.primary
	}
	if s.second != nil && s.second.id == id {
		return s.second
	}
	return nil
}

// drop removes one pointer; if the primary goes away the secondary is
// promoted so a pinch can degrade into a pan without re-pressing.
func (s *session) drop(id PointerID) {
	switch {
	case s.primary != nil && s.primary.id == id:
		s.primary = s.second
		s.second = nil
	case s.second != nil && s.second.id == id:
		s.second = nil
	}
}

// focalPoint is the midpoint of the two pinch pointers.
func (s *session) focalPoint() geometry.Point2D {
	return geometry.Point2D{
		X: (s.primary.last.X + s.second.last.X) / 2,
		Y: (s.primary.last.Y + s.second.last.Y) / 2,
	}
}

// pinchDistance is the current spread between the two pinch pointers.
func (s *session) pinchDistance() float64 {
	return s.primary.last.Sub(s.second.last).Norm()
}
