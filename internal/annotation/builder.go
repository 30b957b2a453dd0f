package annotation

import (
	"pageflow/pkg/geometry"
)

// simplifyTolerance is the Douglas-Peucker epsilon applied when a
// stroke is finished, in normalized units. Input devices deliver far
// more points than the rendered curve needs.
const simplifyTolerance = 0.0015

// Builder accumulates one in-progress ink stroke in normalized space.
// A builder is created when the draw gesture begins on a page and
// discarded after Finish or on cancel.
type Builder struct {
	page  int
	width float64
	color string
	pts   []geometry.Point2D
}

// NewBuilder starts a stroke on the given page. Width is a fraction of
// the page width.
func NewBuilder(page int, width float64, color string) *Builder {
	return &Builder{page: page, width: width, color: color}
}

// Page returns the page the stroke is bound to.
func (b *Builder) Page() int { return b.page }

// Add appends a normalized point. Exact duplicates of the previous
// point are dropped.
func (b *Builder) Add(p geometry.Point2D) {
	if n := len(b.pts); n > 0 && b.pts[n-1] == p {
		return
	}
	b.pts = append(b.pts, p)
}

// Len returns the number of points collected so far.
func (b *Builder) Len() int { return len(b.pts) }

// Points exposes the collected points for live preview rendering. The
// slice is owned by the builder.
func (b *Builder) Points() []geometry.Point2D { return b.pts }

// Finish seals the stroke, thinning redundant points. It reports false
// when nothing was collected.
func (b *Builder) Finish() (Stroke, bool) {
	if len(b.pts) == 0 {
		return Stroke{}, false
	}
	return Stroke{
		Page:   b.page,
		Points: geometry.Simplify(b.pts, simplifyTolerance),
		Width:  b.width,
		Color:  b.color,
	}, true
}
