// Package annotation holds the document's ink strokes, highlights, and
// selection anchors in page-normalized coordinates, and the mapping
// between that space and the screen. Normalized coordinates live in
// [0,1]x[0,1] relative to one page's own box, which makes every
// annotation invariant under zoom, pan, and window resizes.
package annotation

import (
	"pageflow/pkg/geometry"
)

// ToNormalized maps a screen point into a page's unit square, given the
// page's current screen rect. Points marginally outside the rect clamp
// to the nearest edge so sub-pixel rounding at page borders cannot
// produce out-of-range coordinates. A degenerate rect maps everything
// to the origin.
func ToNormalized(p geometry.Point2D, page geometry.Rect) geometry.Point2D {
	if page.Empty() {
		return geometry.Point2D{}
	}
	return geometry.Point2D{
		X: geometry.Clamp01((p.X - page.X) / page.Width),
		Y: geometry.Clamp01((p.Y - page.Y) / page.Height),
	}
}

// FromNormalized maps a unit-square point back onto the page's current
// screen rect. Inverse of ToNormalized for in-range points.
func FromNormalized(n geometry.Point2D, page geometry.Rect) geometry.Point2D {
	if page.Empty() {
		return geometry.Point2D{}
	}
	return geometry.Point2D{
		X: page.X + n.X*page.Width,
		Y: page.Y + n.Y*page.Height,
	}
}

// RectToNormalized maps a screen rect into a page's unit square,
// clamping each corner.
func RectToNormalized(r geometry.Rect, page geometry.Rect) geometry.Rect {
	tl := ToNormalized(r.TopLeft(), page)
	br := ToNormalized(r.BottomRight(), page)
	return geometry.Rect{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}
}

// RectFromNormalized maps a normalized rect back onto the page's screen
// rect.
func RectFromNormalized(n geometry.Rect, page geometry.Rect) geometry.Rect {
	tl := FromNormalized(geometry.Point2D{X: n.X, Y: n.Y}, page)
	return geometry.Rect{
		X:      tl.X,
		Y:      tl.Y,
		Width:  n.Width * page.Width,
		Height: n.Height * page.Height,
	}
}
