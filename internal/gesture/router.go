package gesture

import (
	"math"
	"time"

	"pageflow/internal/frame"
	"pageflow/internal/viewport"
	"pageflow/pkg/geometry"
)

const (
	// DefaultDoubleTapWindow is the maximum press-to-press interval for
	// a double tap.
	DefaultDoubleTapWindow = 280 * time.Millisecond
	// DefaultDoubleTapRadius is the maximum press-to-press distance in
	// screen px for a double tap.
	DefaultDoubleTapRadius = 24.0
	// DefaultQuickZoomScale is the zoom level a double tap toggles to.
	DefaultQuickZoomScale = 2.0
	// DefaultWheelSensitivity converts wheel delta to an exponential
	// zoom factor.
	DefaultWheelSensitivity = 0.0025
	// DefaultPanDeadZone is how far a press may wander, in screen px,
	// and still count as a tap.
	DefaultPanDeadZone = 4.0
	// DefaultMomentumMinSpeed is the release speed, in px/ms, below
	// which no glide starts.
	DefaultMomentumMinSpeed = 0.05
)

// Config tunes gesture classification. Zero fields take the defaults.
type Config struct {
	DoubleTapWindow  time.Duration
	DoubleTapRadius  float64
	QuickZoomScale   float64
	WheelSensitivity float64
	PanDeadZone      float64
	MomentumMinSpeed float64
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		DoubleTapWindow:  DefaultDoubleTapWindow,
		DoubleTapRadius:  DefaultDoubleTapRadius,
		QuickZoomScale:   DefaultQuickZoomScale,
		WheelSensitivity: DefaultWheelSensitivity,
		PanDeadZone:      DefaultPanDeadZone,
		MomentumMinSpeed: DefaultMomentumMinSpeed,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DoubleTapWindow <= 0 {
		c.DoubleTapWindow = d.DoubleTapWindow
	}
	if c.DoubleTapRadius <= 0 {
		c.DoubleTapRadius = d.DoubleTapRadius
	}
	if c.QuickZoomScale <= 0 {
		c.QuickZoomScale = d.QuickZoomScale
	}
	if c.WheelSensitivity <= 0 {
		c.WheelSensitivity = d.WheelSensitivity
	}
	if c.PanDeadZone <= 0 {
		c.PanDeadZone = d.PanDeadZone
	}
	if c.MomentumMinSpeed <= 0 {
		c.MomentumMinSpeed = d.MomentumMinSpeed
	}
	return c
}

// Callbacks is how the router reports classified actions. Nil fields
// are skipped. All callbacks run synchronously inside the event
// handler that triggered them.
type Callbacks struct {
	// TransformChanged fires after the router mutated the view
	// transform. The receiver schedules a repaint; it must not mutate
	// the transform re-entrantly.
	TransformChanged func()
	// MomentumStart fires when a pan release hands off to a glide.
	// Velocity is in px/ms.
	MomentumStart func(velocity geometry.Point2D)
	// MomentumStop fires when a running glide is interrupted (a new
	// press, wheel zoom, or cancel). It does not fire when the glide
	// ends on its own via FinishMomentum.
	MomentumStop func()
	// Annotation fires for tool gestures (select, draw, highlight,
	// erase). Pos is in screen space; the receiver maps it.
	Annotation func(tool ToolMode, phase Phase, pos geometry.Point2D)
}

// Router turns raw pointer, wheel, and platform-pinch events into view
// transform mutations and annotation gestures. At most one session owns
// the transform at a time; the router is the single arbiter of that
// exclusivity. Not safe for concurrent use; the host delivers events
// from one goroutine.
type Router struct {
	cfg   Config
	clock frame.Clock
	view  *viewport.Transform
	cb    Callbacks
	tool  ToolMode

	sess *session

	// swallowed marks the pointer whose press was consumed by a double
	// tap, so its trailing move/up events do not start a stray pan.
	swallowed    PointerID
	hasSwallowed bool

	lastTapTime  time.Time
	lastTapPos   geometry.Point2D
	lastTapValid bool
}

// NewRouter wires a router to the transform it mutates. A nil clock
// falls back to the system clock.
func NewRouter(view *viewport.Transform, clock frame.Clock, cfg Config, cb Callbacks) *Router {
	if clock == nil {
		clock = frame.SystemClock()
	}
	return &Router{
		cfg:   cfg.withDefaults(),
		clock: clock,
		view:  view,
		cb:    cb,
		tool:  ToolPan,
	}
}

// State reports the active session kind.
func (r *Router) State() SessionKind {
	if r.sess == nil {
		return SessionIdle
	}
	return r.sess.kind
}

// Tool returns the active interaction mode.
func (r *Router) Tool() ToolMode {
	return r.tool
}

// SetTool switches the interaction mode. Any in-flight gesture is
// cancelled so a half-drawn stroke cannot be committed under a
// different tool.
func (r *Router) SetTool(m ToolMode) {
	if m == r.tool {
		return
	}
	r.CancelAll()
	r.tool = m
	r.lastTapValid = false
}

// HandlePointerDown processes a press on the viewport surface.
func (r *Router) HandlePointerDown(ev PointerEvent) {
	if ev.Button != ButtonPrimary {
		return
	}
	now := r.clock.Now()

	// A press always interrupts a glide, then proceeds as a fresh
	// press so the user can catch and re-fling the view.
	if r.sess != nil && r.sess.kind == SessionMomentum {
		r.stopMomentum()
	}

	if s := r.sess; s != nil {
		switch {
		case s.kind == SessionPinching:
			// Extra touches beyond the active pinch pair are ignored.
			return
		case s.pointerCount() == 1:
			// Second touch: escalate to a pinch. An in-flight stroke is
			// abandoned first so a stray palm cannot commit it.
			if s.kind == SessionAnnotating {
				r.notifyAnnotation(s.tool, PhaseCancel, s.primary.last)
			}
			s.second = &pointer{id: ev.ID, down: ev.Pos, last: ev.Pos, downTime: now}
			s.kind = SessionPinching
			s.platformPinch = false
			s.startDist = s.pinchDistance()
			s.startScale = r.view.Scale()
			s.velocity.reset()
			r.lastTapValid = false
			return
		default:
			return
		}
	}

	// Presses on interactive controls never start viewport gestures.
	if ev.Target == TargetControl {
		r.lastTapValid = false
		return
	}

	if r.isDoubleTap(now, ev.Pos) {
		r.lastTapValid = false
		r.swallowed, r.hasSwallowed = ev.ID, true
		r.toggleQuickZoom(ev.Pos)
		return
	}

	p := &pointer{id: ev.ID, down: ev.Pos, last: ev.Pos, downTime: now}
	s := &session{tool: r.tool, primary: p}
	if r.tool == ToolPan {
		s.kind = SessionPanning
		s.velocity.add(now, ev.Pos)
	} else {
		s.kind = SessionAnnotating
	}
	r.sess = s
	if s.kind == SessionAnnotating {
		r.notifyAnnotation(s.tool, PhaseBegin, ev.Pos)
	}
}

// HandlePointerMove processes pointer movement. Moves from pointers the
// router is not tracking (hover, extra touches) are ignored.
func (r *Router) HandlePointerMove(ev PointerEvent) {
	if r.hasSwallowed && ev.ID == r.swallowed {
		return
	}
	s := r.sess
	if s == nil {
		return
	}
	p := s.byID(ev.ID)
	if p == nil {
		return
	}
	now := r.clock.Now()

	switch s.kind {
	case SessionPanning:
		s.velocity.add(now, ev.Pos)
		if !s.moved {
			if ev.Pos.Sub(p.down).Norm() < r.cfg.PanDeadZone {
				p.last = ev.Pos
				return
			}
			s.moved = true
			// Catch up on the distance covered inside the dead zone so
			// no motion is lost.
			p.last = ev.Pos
			if r.view.PanBy(ev.Pos.X-p.down.X, ev.Pos.Y-p.down.Y) {
				r.notifyTransform()
			}
			return
		}
		dx, dy := ev.Pos.X-p.last.X, ev.Pos.Y-p.last.Y
		p.last = ev.Pos
		if r.view.PanBy(dx, dy) {
			r.notifyTransform()
		}

	case SessionPinching:
		prevMid := s.focalPoint()
		p.last = ev.Pos
		mid := s.focalPoint()
		dist := s.pinchDistance()
		if s.startDist < 1e-9 {
			// The two touches began coincident; re-baseline once they
			// separate.
			s.startDist = dist
			return
		}
		target := s.startScale * dist / s.startDist
		anchor := r.view.ScreenToContent(prevMid)
		r.view.SetScaleAtPoint(target, anchor)
		r.view.PanBy(mid.X-prevMid.X, mid.Y-prevMid.Y)
		r.notifyTransform()

	case SessionAnnotating:
		p.last = ev.Pos
		r.notifyAnnotation(s.tool, PhaseMove, ev.Pos)
	}
}

// HandlePointerUp processes a release.
func (r *Router) HandlePointerUp(ev PointerEvent) {
	if r.hasSwallowed && ev.ID == r.swallowed {
		r.hasSwallowed = false
		return
	}
	s := r.sess
	if s == nil {
		return
	}
	p := s.byID(ev.ID)
	if p == nil {
		return
	}
	now := r.clock.Now()

	switch s.kind {
	case SessionPinching:
		s.drop(ev.ID)
		if s.pointerCount() == 1 {
			// The pinch degrades to a pan with the remaining finger.
			s.kind = SessionPanning
			s.moved = true
			s.primary.down = s.primary.last
			s.velocity.reset()
			s.velocity.add(now, s.primary.last)
		} else {
			r.sess = nil
		}

	case SessionPanning:
		s.velocity.add(now, ev.Pos)
		if !s.moved {
			r.armTap(p)
			r.sess = nil
			return
		}
		v := s.velocity.estimate()
		// Momentum is only meaningful when zoomed in; at base scale
		// the content cannot pan.
		if r.view.Scale() > 1 && v.Norm() >= r.cfg.MomentumMinSpeed {
			s.kind = SessionMomentum
			s.primary, s.second = nil, nil
			if r.cb.MomentumStart != nil {
				r.cb.MomentumStart(v)
			}
		} else {
			r.sess = nil
		}

	case SessionAnnotating:
		r.sess = nil
		if s.tool == ToolSelect {
			// Only a clean tap counts in select mode; a moved release
			// cancels instead of committing.
			if ev.Pos.Sub(p.down).Norm() >= r.cfg.PanDeadZone {
				r.notifyAnnotation(s.tool, PhaseCancel, ev.Pos)
				return
			}
			r.armTap(p)
		}
		r.notifyAnnotation(s.tool, PhaseEnd, ev.Pos)
	}
}

// HandlePointerCancel aborts the session owning the given pointer, as
// when the platform revokes pointer capture. A partial stroke is
// discarded, never committed.
func (r *Router) HandlePointerCancel(id PointerID) {
	if r.hasSwallowed && id == r.swallowed {
		r.hasSwallowed = false
		return
	}
	s := r.sess
	if s == nil || s.kind == SessionMomentum {
		return
	}
	if s.byID(id) == nil {
		return
	}
	r.cancelSession()
}

// CancelAll aborts whatever is in flight. Used on document switch and
// teardown.
func (r *Router) CancelAll() {
	if r.sess == nil {
		return
	}
	if r.sess.kind == SessionMomentum {
		r.stopMomentum()
		return
	}
	r.cancelSession()
}

// HandleWheel processes a wheel or trackpad scroll. It returns true
// when the event was consumed as a zoom, in which case the host must
// not also apply its native scroll or page zoom. Plain scrolls return
// false and stay with the host.
func (r *Router) HandleWheel(ev WheelEvent) bool {
	if !ev.Mod.HasZoomKey() {
		return false
	}
	// Zoom-key wheel events are consumed even when a pointer gesture
	// owns the transform, so the host never page-zooms underneath an
	// active pan.
	if r.sess != nil {
		if r.sess.kind != SessionMomentum {
			return true
		}
		r.stopMomentum()
	}
	factor := math.Exp(-ev.DeltaY * r.cfg.WheelSensitivity)
	anchor := r.view.ScreenToContent(ev.Pos)
	r.view.SetScaleAtPoint(r.view.Scale()*factor, anchor)
	r.notifyTransform()
	return true
}

// HandlePinch processes platform pinch events, the alternate pinch
// source for hosts that do not deliver reliable multi-touch pointers.
// Semantics match a two-finger pinch anchored at the focal point.
func (r *Router) HandlePinch(ev PinchEvent) {
	switch ev.Phase {
	case PinchBegin:
		r.beginPlatformPinch()

	case PinchChange:
		s := r.sess
		if s == nil || !s.platformPinch {
			// Some hosts drop the begin event under load.
			r.beginPlatformPinch()
			s = r.sess
		}
		if ev.Scale <= 0 {
			return
		}
		target := s.startScale * ev.Scale
		anchor := r.view.ScreenToContent(ev.Pos)
		r.view.SetScaleAtPoint(target, anchor)
		r.notifyTransform()

	case PinchEnd:
		if r.sess != nil && r.sess.platformPinch {
			r.sess = nil
		}
	}
}

// FinishMomentum is called by the glide driver when the simulation has
// come to rest, returning the router to idle.
func (r *Router) FinishMomentum() {
	if r.sess != nil && r.sess.kind == SessionMomentum {
		r.sess = nil
	}
}

func (r *Router) beginPlatformPinch() {
	if s := r.sess; s != nil {
		if s.kind == SessionPinching && s.platformPinch {
			return
		}
		if s.kind == SessionMomentum {
			r.stopMomentum()
		} else {
			r.cancelSession()
		}
	}
	r.sess = &session{
		kind:          SessionPinching,
		tool:          r.tool,
		platformPinch: true,
		startScale:    r.view.Scale(),
	}
	r.lastTapValid = false
}

func (r *Router) isDoubleTap(now time.Time, pos geometry.Point2D) bool {
	if r.tool != ToolPan && r.tool != ToolSelect {
		return false
	}
	if !r.lastTapValid {
		return false
	}
	if now.Sub(r.lastTapTime) > r.cfg.DoubleTapWindow {
		return false
	}
	return pos.Sub(r.lastTapPos).Norm() <= r.cfg.DoubleTapRadius
}

// toggleQuickZoom jumps between base scale and the quick-zoom level,
// keeping the tapped point stationary.
func (r *Router) toggleQuickZoom(pos geometry.Point2D) {
	target := r.cfg.QuickZoomScale
	if r.view.Scale() > 1+1e-9 {
		target = 1
	}
	anchor := r.view.ScreenToContent(pos)
	r.view.SetScaleAtPoint(target, anchor)
	r.notifyTransform()
}

// armTap records a completed tap so the next press can be matched
// against it.
func (r *Router) armTap(p *pointer) {
	r.lastTapTime = p.downTime
	r.lastTapPos = p.down
	r.lastTapValid = true
}

func (r *Router) cancelSession() {
	s := r.sess
	r.sess = nil
	r.lastTapValid = false
	if s.kind == SessionAnnotating {
		pos := geometry.Point2D{}
		if s.primary != nil {
			pos = s.primary.last
		}
		r.notifyAnnotation(s.tool, PhaseCancel, pos)
	}
}

func (r *Router) stopMomentum() {
	r.sess = nil
	if r.cb.MomentumStop != nil {
		r.cb.MomentumStop()
	}
}

func (r *Router) notifyTransform() {
	if r.cb.TransformChanged != nil {
		r.cb.TransformChanged()
	}
}

func (r *Router) notifyAnnotation(tool ToolMode, phase Phase, pos geometry.Point2D) {
	if r.cb.Annotation != nil {
		r.cb.Annotation(tool, phase, pos)
	}
}
