// Package viewport owns the zoom/pan transform of the document view and
// the rules that keep it inside legal bounds.
package viewport

import (
	"pageflow/pkg/geometry"
)

const (
	// DefaultMinScale is the lowest zoom level; 1 means the content is
	// laid out at its natural size.
	DefaultMinScale = 1.0
	// DefaultMaxScale is the highest zoom level.
	DefaultMaxScale = 5.0
)

// Limits bounds the zoom scale.
type Limits struct {
	MinScale float64
	MaxScale float64
}

// DefaultLimits returns the standard zoom bounds.
func DefaultLimits() Limits {
	return Limits{MinScale: DefaultMinScale, MaxScale: DefaultMaxScale}
}

// Transform holds the view transform: a uniform scale followed by a
// screen-space translation. Screen and content coordinates are related by
//
//	screen  = content*scale + translate
//	content = (screen - translate) / scale
//
// The translate components always lie inside the range Legalize computes
// for the current scale and geometry. All methods are for a single
// goroutine; the engine serializes access.
type Transform struct {
	scale  float64
	tx, ty float64
	limits Limits
	geom   Geometry
}

// NewTransform returns an identity transform with the given limits.
// Zero-valued limits fall back to the defaults.
func NewTransform(limits Limits) *Transform {
	if limits.MinScale <= 0 {
		limits.MinScale = DefaultMinScale
	}
	if limits.MaxScale < limits.MinScale {
		limits.MaxScale = DefaultMaxScale
	}
	return &Transform{scale: 1, limits: limits}
}

// Scale returns the current zoom scale.
func (t *Transform) Scale() float64 {
	if t.geom.Degenerate() {
		return 1
	}
	return t.scale
}

// Translate returns the current screen-space translation.
func (t *Transform) Translate() (x, y float64) {
	if t.geom.Degenerate() {
		return 0, 0
	}
	return t.tx, t.ty
}

// Limits returns the configured scale bounds.
func (t *Transform) Limits() Limits {
	return t.limits
}

// Geometry returns the viewport/content geometry last set.
func (t *Transform) Geometry() Geometry {
	return t.geom
}

// SetGeometry installs new viewport/content extents and re-legalizes the
// translation. Called on container resize and when the content layout
// changes.
func (t *Transform) SetGeometry(g Geometry) {
	t.geom = g
	if g.Degenerate() {
		return
	}
	t.tx, t.ty = Legalize(t.tx, t.ty, t.scale, t.geom)
}

// Reset restores the identity transform. Called when the displayed
// document changes.
func (t *Transform) Reset() {
	t.scale = 1
	t.tx, t.ty = Legalize(0, 0, 1, t.geom)
}

// ClampScale returns target constrained to the configured limits.
func (t *Transform) ClampScale(target float64) float64 {
	return geometry.Clamp(target, t.limits.MinScale, t.limits.MaxScale)
}

// SetScaleAtPoint rescales the view while keeping anchor, a content-space
// point, visually stationary on screen. The requested scale is clamped to
// the limits first; the translation is then re-legalized, which may move
// the anchor if it would otherwise push the view out of bounds.
func (t *Transform) SetScaleAtPoint(target float64, anchor geometry.Point2D) {
	if t.geom.Degenerate() {
		return
	}

	screenBefore := t.ContentToScreen(anchor)
	t.scale = t.ClampScale(target)

	// Solve screen = content*scale + translate for the translate that
	// puts the anchor back under its previous screen position.
	t.tx = screenBefore.X - anchor.X*t.scale
	t.ty = screenBefore.Y - anchor.Y*t.scale
	t.tx, t.ty = Legalize(t.tx, t.ty, t.scale, t.geom)
}

// PanBy shifts the view by a screen-space delta, clamped to bounds.
// Returns true if the translation actually changed.
func (t *Transform) PanBy(dx, dy float64) bool {
	if t.geom.Degenerate() {
		return false
	}
	return t.SetTranslate(t.tx+dx, t.ty+dy)
}

// SetTranslate sets the translation directly, clamped to bounds.
// Returns true if the stored value changed.
func (t *Transform) SetTranslate(x, y float64) bool {
	if t.geom.Degenerate() {
		return false
	}
	nx, ny := Legalize(x, y, t.scale, t.geom)
	changed := nx != t.tx || ny != t.ty
	t.tx, t.ty = nx, ny
	return changed
}

// ScreenToContent maps a viewport point to content space. With degenerate
// geometry the transform acts as the identity.
func (t *Transform) ScreenToContent(p geometry.Point2D) geometry.Point2D {
	if t.geom.Degenerate() {
		return p
	}
	return geometry.Point2D{
		X: (p.X - t.tx) / t.scale,
		Y: (p.Y - t.ty) / t.scale,
	}
}

// ContentToScreen maps a content point to the viewport. With degenerate
// geometry the transform acts as the identity.
func (t *Transform) ContentToScreen(p geometry.Point2D) geometry.Point2D {
	if t.geom.Degenerate() {
		return p
	}
	return geometry.Point2D{
		X: p.X*t.scale + t.tx,
		Y: p.Y*t.scale + t.ty,
	}
}

// Affine returns the content-to-screen mapping as an affine transform,
// for callers that project rectangles wholesale.
func (t *Transform) Affine() geometry.AffineTransform {
	if t.geom.Degenerate() {
		return geometry.Identity()
	}
	return geometry.Translation(t.tx, t.ty).Compose(geometry.Scale(t.scale, t.scale))
}
