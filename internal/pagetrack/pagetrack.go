// Package pagetrack decides which page of a continuously scrolled
// document counts as current, from host-reported visibility ratios.
package pagetrack

// Handle is an opaque token the host renderer associates with one
// rendered page. The tracker stores and returns handles but never
// inspects them.
type Handle = any

// Observation reports how much of one page is visible, as a fraction
// of the viewport intersection in [0, 1].
type Observation struct {
	Page  int
	Ratio float64
}

// Callbacks is how the tracker reports outcomes. Nil fields are
// skipped.
type Callbacks struct {
	// CurrentChanged fires when the reported current page changes.
	CurrentChanged func(page int)
	// ScrollTo asks the host to bring a page's top edge into view.
	ScrollTo func(page int, handle Handle)
}

// Tracker keeps one slot per page and a monotonically increasing epoch
// that invalidates observations from before a document switch. Pages
// are numbered from 1. Single-goroutine, driven by the host's event
// loop.
type Tracker struct {
	handles []Handle
	epoch   uint64
	current int
	cb      Callbacks
}

// NewTracker returns an empty tracker; Reset sizes it.
func NewTracker(cb Callbacks) *Tracker {
	return &Tracker{cb: cb}
}

// Reset prepares slots for a document with pageCount pages and bumps
// the epoch so in-flight observations from the previous document are
// dropped. The current page restarts at 1 (0 when the document is
// empty).
func (t *Tracker) Reset(pageCount int) {
	if pageCount < 0 {
		pageCount = 0
	}
	t.epoch++
	t.handles = make([]Handle, pageCount)
	next := 0
	if pageCount > 0 {
		next = 1
	}
	t.setCurrent(next)
}

// Epoch returns the current document epoch. Hosts capture it when they
// register visibility observation and echo it back with each batch.
func (t *Tracker) Epoch() uint64 {
	return t.epoch
}

// PageCount returns the number of page slots.
func (t *Tracker) PageCount() int {
	return len(t.handles)
}

// Current returns the reported current page, 0 when no document is
// loaded.
func (t *Tracker) Current() int {
	return t.current
}

// SetHandle associates a host handle with a page as it renders. A nil
// handle detaches the page from observation.
func (t *Tracker) SetHandle(page int, h Handle) {
	if page < 1 || page > len(t.handles) {
		return
	}
	t.handles[page-1] = h
}

// Handle returns the handle for a page, nil when unset or out of
// range.
func (t *Tracker) Handle(page int) Handle {
	if page < 1 || page > len(t.handles) {
		return nil
	}
	return t.handles[page-1]
}

// Observe ingests one visibility batch. Batches from an older epoch,
// observations for out-of-range pages, and pages whose handle has been
// detached are all skipped rather than failing. The page with the
// strictly greatest ratio becomes current; on a tie the incumbent
// stays, which keeps the report stable at exact 50/50 splits.
func (t *Tracker) Observe(epoch uint64, batch []Observation) {
	if epoch != t.epoch {
		return
	}
	best := 0
	bestRatio := 0.0
	for _, ob := range batch {
		if ob.Page < 1 || ob.Page > len(t.handles) {
			continue
		}
		if t.handles[ob.Page-1] == nil {
			continue
		}
		switch {
		case ob.Ratio > bestRatio:
			best, bestRatio = ob.Page, ob.Ratio
		case ob.Ratio == bestRatio && ob.Page == t.current:
			best = ob.Page
		}
	}
	if best != 0 {
		t.setCurrent(best)
	}
}

// ScrollToPage clamps page into range, asks the host to bring it into
// view, and reports it as current immediately. The optimistic report
// is corrected by the next observation batch if the host lands
// somewhere else. Returns the clamped page, 0 when no document is
// loaded.
func (t *Tracker) ScrollToPage(page int) int {
	if len(t.handles) == 0 {
		return 0
	}
	if page < 1 {
		page = 1
	}
	if page > len(t.handles) {
		page = len(t.handles)
	}
	if h := t.handles[page-1]; h != nil && t.cb.ScrollTo != nil {
		t.cb.ScrollTo(page, h)
	}
	t.setCurrent(page)
	return page
}

func (t *Tracker) setCurrent(page int) {
	if page == t.current {
		return
	}
	t.current = page
	if t.cb.CurrentChanged != nil {
		t.cb.CurrentChanged(page)
	}
}
