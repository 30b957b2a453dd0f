package annotation

import (
	"sort"

	"pageflow/pkg/geometry"
)

// Store holds every annotation of the open document, grouped by page.
// It is scoped to one document and cleared wholesale on switch.
// Single-goroutine, like the engine that owns it.
type Store struct {
	strokes    map[int][]Stroke
	highlights map[int][]Highlight
	anchors    map[int][]Anchor
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{}
	s.Clear()
	return s
}

// Clear drops all annotations.
func (st *Store) Clear() {
	st.strokes = make(map[int][]Stroke)
	st.highlights = make(map[int][]Highlight)
	st.anchors = make(map[int][]Anchor)
}

// AddStroke stores a committed stroke under its page.
func (st *Store) AddStroke(s Stroke) {
	st.strokes[s.Page] = append(st.strokes[s.Page], s)
}

// AddHighlight stores a committed highlight under its page.
func (st *Store) AddHighlight(h Highlight) {
	st.highlights[h.Page] = append(st.highlights[h.Page], h)
}

// AddAnchor stores a committed anchor under its page.
func (st *Store) AddAnchor(a Anchor) {
	st.anchors[a.Page] = append(st.anchors[a.Page], a)
}

// Strokes returns the strokes on one page in commit order. The slice is
// owned by the store; callers must not mutate it.
func (st *Store) Strokes(page int) []Stroke {
	return st.strokes[page]
}

// Highlights returns the highlights on one page in commit order.
func (st *Store) Highlights(page int) []Highlight {
	return st.highlights[page]
}

// Anchors returns the anchors on one page in commit order.
func (st *Store) Anchors(page int) []Anchor {
	return st.anchors[page]
}

// Count returns the total number of stored annotations.
func (st *Store) Count() int {
	n := 0
	for _, v := range st.strokes {
		n += len(v)
	}
	for _, v := range st.highlights {
		n += len(v)
	}
	for _, v := range st.anchors {
		n += len(v)
	}
	return n
}

// Pages returns the sorted page numbers that carry at least one
// annotation.
func (st *Store) Pages() []int {
	seen := make(map[int]bool)
	for p := range st.strokes {
		seen[p] = true
	}
	for p := range st.highlights {
		seen[p] = true
	}
	for p := range st.anchors {
		seen[p] = true
	}
	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// AllStrokes returns every stroke ordered by page, then commit order.
func (st *Store) AllStrokes() []Stroke {
	var out []Stroke
	for _, p := range st.Pages() {
		out = append(out, st.strokes[p]...)
	}
	return out
}

// AllHighlights returns every highlight ordered by page, then commit
// order.
func (st *Store) AllHighlights() []Highlight {
	var out []Highlight
	for _, p := range st.Pages() {
		out = append(out, st.highlights[p]...)
	}
	return out
}

// AllAnchors returns every anchor ordered by page, then commit order.
func (st *Store) AllAnchors() []Anchor {
	var out []Anchor
	for _, p := range st.Pages() {
		out = append(out, st.anchors[p]...)
	}
	return out
}

// EraseNear removes annotations on a page within radius of a
// normalized point: strokes whose path passes that close, highlights
// containing or near the point, and anchors within radius. Returns how
// many were removed.
func (st *Store) EraseNear(page int, p geometry.Point2D, radius float64) int {
	removed := 0

	kept := st.strokes[page][:0]
	for _, s := range st.strokes[page] {
		if geometry.DistanceToPath(p, s.Points) <= radius {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	st.strokes[page] = kept

	keptH := st.highlights[page][:0]
	for _, h := range st.highlights[page] {
		if rectNearPoint(h.Rect, p, radius) {
			removed++
			continue
		}
		keptH = append(keptH, h)
	}
	st.highlights[page] = keptH

	keptA := st.anchors[page][:0]
	for _, a := range st.anchors[page] {
		if a.Pos.Distance(p) <= radius {
			removed++
			continue
		}
		keptA = append(keptA, a)
	}
	st.anchors[page] = keptA

	return removed
}

// rectNearPoint reports whether p lies inside r or within radius of
// its boundary.
func rectNearPoint(r geometry.Rect, p geometry.Point2D, radius float64) bool {
	dx := geometry.Clamp(p.X, r.X, r.X+r.Width) - p.X
	dy := geometry.Clamp(p.Y, r.Y, r.Y+r.Height) - p.Y
	return dx*dx+dy*dy <= radius*radius
}
