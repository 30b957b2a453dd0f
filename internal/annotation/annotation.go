package annotation

import (
	"pageflow/pkg/geometry"
)

// Kind discriminates committed annotation payloads.
type Kind int

const (
	KindStroke Kind = iota
	KindHighlight
	KindAnchor
)

func (k Kind) String() string {
	switch k {
	case KindStroke:
		return "stroke"
	case KindHighlight:
		return "highlight"
	case KindAnchor:
		return "anchor"
	}
	return "unknown"
}

// Stroke is one finished ink path. Points are page-normalized; Width is
// a fraction of the page width so the stroke keeps its proportions at
// any zoom. Immutable once committed.
type Stroke struct {
	Page   int                `json:"page"`
	Points []geometry.Point2D `json:"points"`
	Width  float64            `json:"width"`
	Color  string             `json:"color"`
}

// Kind implements Committed.
func (s Stroke) Kind() Kind { return KindStroke }

// PageNumber implements Committed.
func (s Stroke) PageNumber() int { return s.Page }

// Highlight is a normalized rectangle over one page, derived from a
// selection at the moment of commit. Immutable once created.
type Highlight struct {
	Page  int           `json:"page"`
	Rect  geometry.Rect `json:"rect"`
	Color string        `json:"color"`
}

// Kind implements Committed.
func (h Highlight) Kind() Kind { return KindHighlight }

// PageNumber implements Committed.
func (h Highlight) PageNumber() int { return h.Page }

// Anchor marks a single normalized point on a page, with an optional
// note.
type Anchor struct {
	Page int              `json:"page"`
	Pos  geometry.Point2D `json:"pos"`
	Note string           `json:"note,omitempty"`
}

// Kind implements Committed.
func (a Anchor) Kind() Kind { return KindAnchor }

// PageNumber implements Committed.
func (a Anchor) PageNumber() int { return a.Page }

// Committed is the payload delivered to the host exactly once per
// finalized annotation.
type Committed interface {
	Kind() Kind
	PageNumber() int
}
