package viewport

import (
	"pageflow/pkg/geometry"
)

// Geometry describes the viewport and the unscaled content extents.
// Content is the natural size of the rendered area before any zoom.
type Geometry struct {
	ViewportWidth  float64
	ViewportHeight float64
	ContentWidth   float64
	ContentHeight  float64
}

// Degenerate returns true when any dimension is not positive, which
// happens before layout settles or before a document is open.
func (g Geometry) Degenerate() bool {
	return g.ViewportWidth <= 0 || g.ViewportHeight <= 0 ||
		g.ContentWidth <= 0 || g.ContentHeight <= 0
}

// ViewportRect returns the viewport as a screen-space rectangle at the origin.
func (g Geometry) ViewportRect() geometry.Rect {
	return geometry.NewRect(0, 0, g.ViewportWidth, g.ViewportHeight)
}

// translateRange returns the legal [min, max] interval for one translate
// axis. extent is the scaled content extent, viewport the visible extent.
// When the content fits, both bounds collapse to the centering offset.
func translateRange(extent, viewport float64) (float64, float64) {
	if extent <= viewport {
		center := (viewport - extent) / 2
		return center, center
	}
	return viewport - extent, 0
}

// Legalize clamps a translate pair to the legal range for the given scale
// and geometry. Each axis is clamped independently. When the scaled
// content fits inside the viewport on an axis, the translate snaps to the
// value that centers the content on that axis. Degenerate geometry
// legalizes everything to zero. Pure function.
func Legalize(tx, ty, scale float64, g Geometry) (float64, float64) {
	if g.Degenerate() || scale <= 0 {
		return 0, 0
	}

	minX, maxX := translateRange(g.ContentWidth*scale, g.ViewportWidth)
	minY, maxY := translateRange(g.ContentHeight*scale, g.ViewportHeight)

	return geometry.Clamp(tx, minX, maxX), geometry.Clamp(ty, minY, maxY)
}
