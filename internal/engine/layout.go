// Package engine assembles the viewport pipeline: transform, gesture
// router, momentum, frame scheduling, page tracking, and annotations,
// behind one facade the UI talks to.
package engine

import (
	"pageflow/pkg/geometry"
)

// PageGap is the vertical space between stacked pages, in content
// units.
const PageGap = 12.0

// ViewMode selects how pages are laid out.
type ViewMode int

const (
	// ViewContinuous stacks every page vertically; scrolling moves
	// through the whole document.
	ViewContinuous ViewMode = iota
	// ViewSingle lays out one page at a time; page navigation replaces
	// cross-page scrolling.
	ViewSingle
)

// String returns the mode name used in preferences and status display.
func (m ViewMode) String() string {
	if m == ViewSingle {
		return "single"
	}
	return "continuous"
}

// ViewModeFromString parses a mode name, defaulting to continuous.
func ViewModeFromString(s string) ViewMode {
	if s == "single" {
		return ViewSingle
	}
	return ViewContinuous
}

// PagePlacement is one page's rect in content space.
type PagePlacement struct {
	Number int
	Rect   geometry.Rect
}

// Layout is the arrangement of pages in content space. Pages are
// scaled to a common layout width so that base scale means
// fit-to-width, the way the viewport geometry in use throughout the
// engine assumes.
type Layout struct {
	pages []PagePlacement
	size  geometry.Size
}

// computeLayout arranges pages at the given layout width. Continuous
// mode stacks every page with PageGap between them; single mode places
// only the current page. Pages with unknown (zero) natural size are
// skipped. A non-positive width falls back to the widest natural page
// so a layout exists before the container settles.
func computeLayout(sizes []geometry.Size, mode ViewMode, current int, width float64) Layout {
	if width <= 0 {
		for _, s := range sizes {
			if s.Width > width {
				width = s.Width
			}
		}
	}
	if width <= 0 {
		return Layout{}
	}

	var l Layout
	y := 0.0
	place := func(number int, nat geometry.Size) {
		h := nat.Height * width / nat.Width
		l.pages = append(l.pages, PagePlacement{
			Number: number,
			Rect:   geometry.Rect{X: 0, Y: y, Width: width, Height: h},
		})
		y += h + PageGap
	}

	if mode == ViewSingle {
		if current >= 1 && current <= len(sizes) && !sizes[current-1].Empty() {
			place(current, sizes[current-1])
		}
	} else {
		for i, nat := range sizes {
			if nat.Empty() {
				continue
			}
			place(i+1, nat)
		}
	}

	if len(l.pages) > 0 {
		l.size = geometry.Size{Width: width, Height: y - PageGap}
	}
	return l
}

// Size returns the total content extent.
func (l Layout) Size() geometry.Size { return l.size }

// Pages returns the placements in stacking order. The slice is owned
// by the layout.
func (l Layout) Pages() []PagePlacement { return l.pages }

// PageRect returns the content rect of a page, if it is laid out.
func (l Layout) PageRect(number int) (geometry.Rect, bool) {
	for _, p := range l.pages {
		if p.Number == number {
			return p.Rect, true
		}
	}
	return geometry.Rect{}, false
}

// PageAt returns the page containing a content point. Points in the
// gaps between pages belong to no page.
func (l Layout) PageAt(p geometry.Point2D) (int, bool) {
	for _, pl := range l.pages {
		if pl.Rect.Contains(p) {
			return pl.Number, true
		}
	}
	return 0, false
}
