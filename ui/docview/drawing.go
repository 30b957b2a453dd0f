package docview

import (
	"image"
	"image/color"
	"math"

	"pageflow/internal/engine"
	"pageflow/pkg/colorutil"
	"pageflow/pkg/geometry"
)

const (
	highlightAlpha  = 96
	anchorPinRadius = 6
)

// drawAnnotations paints the committed annotations for one page:
// highlights under strokes, anchors on top.
func (v *PageView) drawAnnotations(out *image.RGBA, page int, px image.Rectangle) {
	for _, hl := range v.eng.PageHighlights(page) {
		col := colorutil.ParseHexDefault(hl.Color, colorutil.Highlighter)
		blendRect(out, normRectToPixels(hl.Rect, px), colorutil.WithAlpha(col, highlightAlpha))
	}

	for _, st := range v.eng.PageStrokes(page) {
		col := colorutil.ParseHexDefault(st.Color, colorutil.Ink)
		drawPolyline(out, mapPoints(st.Points, px), col, strokeThickness(st.Width, px))
	}

	for _, an := range v.eng.PageAnchors(page) {
		p := normPointToPixels(an.Pos, px)
		drawAnchorPin(out, p.X, p.Y)
	}
}

// drawActiveStroke paints the in-flight ink preview.
func drawActiveStroke(out *image.RGBA, pts []geometry.Point2D, px image.Rectangle) {
	thickness := strokeThickness(engine.DefaultInkWidth, px)
	drawPolyline(out, mapPoints(pts, px), colorutil.Ink, thickness)
}

func mapPoints(pts []geometry.Point2D, px image.Rectangle) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = normPointToPixels(p, px)
	}
	return out
}

// strokeThickness converts a page-width-relative stroke width to pixels.
func strokeThickness(width float64, px image.Rectangle) int {
	t := int(math.Round(width * float64(px.Dx())))
	if t < 1 {
		t = 1
	}
	return t
}

// drawPolyline draws connected line segments. A single point renders
// as a dot.
func drawPolyline(out *image.RGBA, pts []image.Point, col color.RGBA, thickness int) {
	if len(pts) == 0 {
		return
	}
	if len(pts) == 1 {
		drawLine(out, pts[0].X, pts[0].Y, pts[0].X, pts[0].Y, col, thickness)
		return
	}
	for i := 1; i < len(pts); i++ {
		drawLine(out, pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y, col, thickness)
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(out *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	bounds := out.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				px, py := x1+s, y1+t
				if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
					out.SetRGBA(px, py, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// blendRect source-over blends a translucent fill into the rect.
func blendRect(out *image.RGBA, r image.Rectangle, col color.RGBA) {
	r = r.Intersect(out.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			out.SetRGBA(x, y, colorutil.Over(out.RGBAAt(x, y), col))
		}
	}
}

// drawRectOutline draws a rectangle outline of the given thickness,
// inset so it stays within r.
func drawRectOutline(out *image.RGBA, r image.Rectangle, col color.RGBA, thickness int) {
	bounds := out.Bounds()
	x1, y1 := r.Min.X, r.Min.Y
	x2, y2 := r.Max.X-1, r.Max.Y-1

	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			if x >= bounds.Min.X && x < bounds.Max.X {
				if y1+t >= bounds.Min.Y && y1+t < bounds.Max.Y {
					out.SetRGBA(x, y1+t, col)
				}
				if y2-t >= bounds.Min.Y && y2-t < bounds.Max.Y {
					out.SetRGBA(x, y2-t, col)
				}
			}
		}
		for y := y1; y <= y2; y++ {
			if y >= bounds.Min.Y && y < bounds.Max.Y {
				if x1+t >= bounds.Min.X && x1+t < bounds.Max.X {
					out.SetRGBA(x1+t, y, col)
				}
				if x2-t >= bounds.Min.X && x2-t < bounds.Max.X {
					out.SetRGBA(x2-t, y, col)
				}
			}
		}
	}
}

// drawDashedRect draws a dashed rectangle outline (alternate pixels),
// used for the live highlight selection.
func drawDashedRect(out *image.RGBA, r image.Rectangle, col color.RGBA) {
	bounds := out.Bounds()
	x1, y1 := r.Min.X, r.Min.Y
	x2, y2 := r.Max.X-1, r.Max.Y-1

	for x := x1; x <= x2; x++ {
		if x < bounds.Min.X || x >= bounds.Max.X {
			continue
		}
		if (x+y1)%4 < 2 && y1 >= bounds.Min.Y && y1 < bounds.Max.Y {
			out.SetRGBA(x, y1, col)
		}
		if (x+y2)%4 < 2 && y2 >= bounds.Min.Y && y2 < bounds.Max.Y {
			out.SetRGBA(x, y2, col)
		}
	}
	for y := y1; y <= y2; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		if (x1+y)%4 < 2 && x1 >= bounds.Min.X && x1 < bounds.Max.X {
			out.SetRGBA(x1, y, col)
		}
		if (x2+y)%4 < 2 && x2 >= bounds.Min.X && x2 < bounds.Max.X {
			out.SetRGBA(x2, y, col)
		}
	}
}

// drawAnchorPin draws a filled pin dot with a white ring.
func drawAnchorPin(out *image.RGBA, cx, cy int) {
	bounds := out.Bounds()
	outer := anchorPinRadius + 1

	for dy := -outer; dy <= outer; dy++ {
		for dx := -outer; dx <= outer; dx++ {
			d2 := dx*dx + dy*dy
			if d2 > outer*outer {
				continue
			}
			x, y := cx+dx, cy+dy
			if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
				continue
			}
			if d2 > anchorPinRadius*anchorPinRadius {
				out.SetRGBA(x, y, colorutil.Paper)
			} else {
				out.SetRGBA(x, y, colorutil.AnchorPin)
			}
		}
	}
}
