package engine

import (
	"math"
	"sync"
	"time"

	"pageflow/internal/annotation"
	"pageflow/internal/frame"
	"pageflow/internal/gesture"
	"pageflow/internal/momentum"
	"pageflow/internal/pagetrack"
	"pageflow/internal/viewport"
	"pageflow/pkg/geometry"
)

const (
	// zoomStep is the factor applied by the zoom in/out controls.
	zoomStep = 1.25
	// fitPageMargin leaves a sliver of breathing room around a fitted
	// page.
	fitPageMargin = 0.95
	// DefaultInkWidth is the stroke width as a fraction of page width.
	DefaultInkWidth = 0.004
	// DefaultEraseRadius is the eraser reach in screen px.
	DefaultEraseRadius = 12.0
)

// Pages whose natural size is not yet known lay out as US letter until
// the renderer reports real dimensions.
var fallbackPageSize = geometry.Size{Width: 612, Height: 792}

// Options tunes the engine. Zero fields take the defaults.
type Options struct {
	Gesture        gesture.Config
	Momentum       momentum.Params
	Limits         viewport.Limits
	Mode           ViewMode
	InkColor       string
	InkWidth       float64
	HighlightColor string
	EraseRadius    float64
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		Gesture:        gesture.DefaultConfig(),
		Momentum:       momentum.DefaultParams(),
		Limits:         viewport.DefaultLimits(),
		Mode:           ViewContinuous,
		InkColor:       "#1971c2",
		InkWidth:       DefaultInkWidth,
		HighlightColor: "#ffd43b",
		EraseRadius:    DefaultEraseRadius,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.InkColor == "" {
		o.InkColor = d.InkColor
	}
	if o.InkWidth <= 0 {
		o.InkWidth = d.InkWidth
	}
	if o.HighlightColor == "" {
		o.HighlightColor = d.HighlightColor
	}
	if o.EraseRadius <= 0 {
		o.EraseRadius = d.EraseRadius
	}
	return o
}

// Status is the externally visible view state, polled or pushed to the
// status bar.
type Status struct {
	Page      int
	PageCount int
	Scale     float64
	Mode      ViewMode
	Tool      gesture.ToolMode
}

// Callbacks is how the engine reports to its host. All callbacks fire
// on the frame cadence, outside the engine's lock, so handlers may call
// back into the engine. Nil fields are skipped.
type Callbacks struct {
	// Paint fires at most once per frame after any batch of visual
	// mutations.
	Paint func()
	// StatusChanged fires when page, scale, mode, or tool changed.
	StatusChanged func(Status)
	// AnnotationCommitted fires exactly once per finalized annotation.
	AnnotationCommitted func(annotation.Committed)
}

// selectionDrag is an in-flight highlight drag in normalized space.
type selectionDrag struct {
	page       int
	start, cur geometry.Point2D
}

// Engine owns the full viewport pipeline for one open document: the
// transform, the gesture router feeding it, momentum, page layout and
// visibility, and the annotation store. All mutating entry points
// serialize on one mutex; host callbacks are deferred to the next
// frame so they run unlocked.
type Engine struct {
	mu    sync.RWMutex
	opts  Options
	cb    Callbacks
	clock frame.Clock
	sched frame.Scheduler

	view   *viewport.Transform
	router *gesture.Router
	sim    *momentum.Sim
	track  *pagetrack.Tracker
	store  *annotation.Store

	mode         ViewMode
	layout       Layout
	sizes        []geometry.Size
	firstSize    geometry.Size
	viewportSize geometry.Size
	currentPage  int

	builder *annotation.Builder
	sel     *selectionDrag

	dirty       bool
	statusDirty bool
	frameQueued bool
	closed      bool

	pendingCommits []annotation.Committed
	lastStatus     Status
}

// New wires up an engine on the given scheduler. A nil clock falls back
// to the system clock; a nil scheduler gets a real ticker driven by
// that clock.
func New(sched frame.Scheduler, clock frame.Clock, opts Options, cb Callbacks) *Engine {
	if clock == nil {
		clock = frame.SystemClock()
	}
	if sched == nil {
		sched = frame.NewTickerScheduler(frame.DefaultInterval, clock)
	}
	e := &Engine{
		opts:  opts.withDefaults(),
		cb:    cb,
		clock: clock,
		sched: sched,
		view:  viewport.NewTransform(opts.Limits),
		store: annotation.NewStore(),
		mode:  opts.Mode,
	}
	e.sim = momentum.NewSim(e.view, e.opts.Momentum)
	e.router = gesture.NewRouter(e.view, clock, e.opts.Gesture, gesture.Callbacks{
		TransformChanged: func() {
			e.dirty = true
			e.statusDirty = true
			e.ensureFrameLocked()
		},
		MomentumStart: func(v geometry.Point2D) {
			if !e.sim.Start(v, e.clock.Now()) {
				e.router.FinishMomentum()
				return
			}
			e.ensureFrameLocked()
		},
		MomentumStop: func() {
			e.sim.Stop()
		},
		Annotation: e.routeAnnotation,
	})
	e.track = pagetrack.NewTracker(pagetrack.Callbacks{
		CurrentChanged: func(page int) {
			e.currentPage = page
			e.statusDirty = true
		},
		ScrollTo: func(page int, _ pagetrack.Handle) {
			e.scrollToPageLocked(page)
		},
	})
	return e
}

// Close cancels any active gesture, pending frame work, and the
// scheduler. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.router.CancelAll()
	e.sim.Stop()
	e.pendingCommits = nil
	e.mu.Unlock()
	e.sched.Stop()
}

// SetViewportSize installs the container size in screen px and reflows
// the layout against it.
func (e *Engine) SetViewportSize(w, h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	size := geometry.Size{Width: w, Height: h}
	if size == e.viewportSize {
		return
	}
	e.viewportSize = size
	e.relayoutLocked()
	e.ensureFrameLocked()
}

// OnPageCountKnown starts a fresh document with n pages: the transform
// resets to identity, annotations clear, any gesture or glide aborts,
// and in-flight visibility observations go stale.
func (e *Engine) OnPageCountKnown(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.CancelAll()
	e.sim.Stop()
	e.builder = nil
	e.sel = nil
	e.store.Clear()
	if n < 0 {
		n = 0
	}
	e.sizes = make([]geometry.Size, n)
	e.firstSize = geometry.Size{}
	e.track.Reset(n)
	e.view.Reset()
	e.relayoutLocked()
	e.statusDirty = true
	e.ensureFrameLocked()
}

// OnFirstPageNaturalSize establishes the document's page aspect ratio;
// pages without an individually reported size lay out with it.
func (e *Engine) OnFirstPageNaturalSize(w, h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	size := geometry.Size{Width: w, Height: h}
	if size.Empty() || size == e.firstSize {
		return
	}
	e.firstSize = size
	e.relayoutLocked()
	e.ensureFrameLocked()
}

// SetPageSize records one page's natural size as the renderer reports
// it.
func (e *Engine) SetPageSize(page int, w, h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if page < 1 || page > len(e.sizes) {
		return
	}
	size := geometry.Size{Width: w, Height: h}
	if size.Empty() || size == e.sizes[page-1] {
		return
	}
	e.sizes[page-1] = size
	e.relayoutLocked()
	e.ensureFrameLocked()
}

// GotoPage brings a page into view, silently clamping out-of-range
// requests. Returns the page actually targeted, 0 with no document.
func (e *Engine) GotoPage(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	actual := e.track.ScrollToPage(n)
	if actual != 0 {
		e.dirty = true
		e.statusDirty = true
		e.ensureFrameLocked()
	}
	return actual
}

// CurrentPage returns the reported current page.
func (e *Engine) CurrentPage() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentPage
}

// Status returns the current view state.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.statusLocked()
}

// SetTool switches the interaction mode consulted on each press.
func (e *Engine) SetTool(m gesture.ToolMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m == e.router.Tool() {
		return
	}
	e.router.SetTool(m)
	e.statusDirty = true
	e.ensureFrameLocked()
}

// Tool returns the active interaction mode.
func (e *Engine) Tool() gesture.ToolMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.router.Tool()
}

// SetViewMode switches between continuous and single-page layout,
// keeping the current page in view.
func (e *Engine) SetViewMode(m ViewMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m == e.mode {
		return
	}
	e.mode = m
	e.relayoutLocked()
	if m == ViewSingle {
		e.view.SetTranslate(0, 0)
	} else {
		e.scrollToPageLocked(e.currentPage)
	}
	e.statusDirty = true
	e.ensureFrameLocked()
}

// Mode returns the active view mode.
func (e *Engine) Mode() ViewMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// Scale returns the current zoom scale.
func (e *Engine) Scale() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.view.Scale()
}

// Translate returns the current screen-space translation.
func (e *Engine) Translate() (x, y float64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.view.Translate()
}

// ZoomIn steps the zoom up, anchored at the viewport center.
func (e *Engine) ZoomIn() { e.SetZoom(e.Scale() * zoomStep) }

// ZoomOut steps the zoom down, anchored at the viewport center.
func (e *Engine) ZoomOut() { e.SetZoom(e.Scale() / zoomStep) }

// SetZoom zooms to an absolute scale, clamped to the limits, anchored
// at the viewport center.
func (e *Engine) SetZoom(target float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.zoomAtCenterLocked(target)
}

// FitWidth fills the viewport width with the page. Base scale is
// defined as fit-to-width by the layout, so this resets the zoom.
func (e *Engine) FitWidth() { e.SetZoom(1) }

// FitPage fits the whole current page into the viewport, with a small
// margin. The result clamps to the scale limits like any other zoom.
func (e *Engine) FitPage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	rect, ok := e.layout.PageRect(e.currentPage)
	if !ok || rect.Height <= 0 || e.viewportSize.Empty() {
		return
	}
	fit := e.viewportSize.Height / rect.Height * fitPageMargin
	if fit > 1 {
		fit = 1
	}
	e.zoomAtCenterLocked(fit)
}

// ActualSize zooms so the current page renders at its natural pixel
// size, clamped to the scale limits.
func (e *Engine) ActualSize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.layout.Size().Width <= 0 {
		return
	}
	nat := e.naturalSizeLocked(e.currentPage)
	e.zoomAtCenterLocked(nat.Width / e.layout.Size().Width)
}

// ScrollBy pans by a screen-space delta, for plain wheel scrolling and
// keyboard navigation.
func (e *Engine) ScrollBy(dx, dy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view.PanBy(dx, dy) {
		e.dirty = true
		e.ensureFrameLocked()
	}
}

// HandlePointerDown forwards a press to the gesture router.
func (e *Engine) HandlePointerDown(ev gesture.PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.HandlePointerDown(ev)
}

// HandlePointerMove forwards pointer movement to the gesture router.
func (e *Engine) HandlePointerMove(ev gesture.PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.HandlePointerMove(ev)
}

// HandlePointerUp forwards a release to the gesture router.
func (e *Engine) HandlePointerUp(ev gesture.PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.HandlePointerUp(ev)
}

// HandlePointerCancel forwards a platform cancel to the gesture router.
func (e *Engine) HandlePointerCancel(id gesture.PointerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.HandlePointerCancel(id)
}

// HandleWheel forwards a wheel event and reports whether it was
// consumed as a zoom. Unconsumed events stay with the caller, which
// typically scrolls.
func (e *Engine) HandleWheel(ev gesture.WheelEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.router.HandleWheel(ev)
}

// HandlePinch forwards a platform pinch event.
func (e *Engine) HandlePinch(ev gesture.PinchEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.HandlePinch(ev)
}

// CancelGestures aborts any in-flight gesture or glide.
func (e *Engine) CancelGestures() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.CancelAll()
}

// CommitHighlight records a host-derived highlight (e.g. from a native
// text selection), clamped into the page's unit square.
func (e *Engine) CommitHighlight(page int, r geometry.Rect, color string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if page < 1 || page > e.track.PageCount() || r.Empty() {
		return
	}
	x := geometry.Clamp01(r.X)
	y := geometry.Clamp01(r.Y)
	if color == "" {
		color = e.opts.HighlightColor
	}
	h := annotation.Highlight{
		Page: page,
		Rect: geometry.Rect{
			X: x, Y: y,
			Width:  geometry.Clamp01(r.X+r.Width) - x,
			Height: geometry.Clamp01(r.Y+r.Height) - y,
		},
		Color: color,
	}
	e.store.AddHighlight(h)
	e.pendingCommits = append(e.pendingCommits, h)
	e.dirty = true
	e.ensureFrameLocked()
}

// CommitAnchor records a host-derived selection anchor.
func (e *Engine) CommitAnchor(page int, pos geometry.Point2D, note string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if page < 1 || page > e.track.PageCount() {
		return
	}
	a := annotation.Anchor{
		Page: page,
		Pos:  geometry.Point2D{X: geometry.Clamp01(pos.X), Y: geometry.Clamp01(pos.Y)},
		Note: note,
	}
	e.store.AddAnchor(a)
	e.pendingCommits = append(e.pendingCommits, a)
	e.dirty = true
	e.ensureFrameLocked()
}

// Layout returns the current page arrangement.
func (e *Engine) Layout() Layout {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.layout
}

// PageRectOnScreen returns a page's rect in screen coordinates under
// the current transform.
func (e *Engine) PageRectOnScreen(page int) (geometry.Rect, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pageScreenRectLocked(page)
}

// LocatePoint maps a screen point to the page under it and the
// page-normalized position. ok is false over gaps and margins.
func (e *Engine) LocatePoint(pos geometry.Point2D) (page int, norm geometry.Point2D, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	page, sr, ok := e.pageUnderLocked(pos)
	if !ok {
		return 0, geometry.Point2D{}, false
	}
	return page, annotation.ToNormalized(pos, sr), true
}

// VisiblePages returns the pages intersecting the viewport, in
// stacking order.
func (e *Engine) VisiblePages() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.viewportSize.Empty() {
		return nil
	}
	vr := geometry.Rect{Width: e.viewportSize.Width, Height: e.viewportSize.Height}
	af := e.view.Affine()
	var out []int
	for _, pl := range e.layout.Pages() {
		if af.ApplyRect(pl.Rect).Intersects(vr) {
			out = append(out, pl.Number)
		}
	}
	return out
}

// PageStrokes returns a copy of the committed strokes on a page.
func (e *Engine) PageStrokes(page int) []annotation.Stroke {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]annotation.Stroke(nil), e.store.Strokes(page)...)
}

// PageHighlights returns a copy of the committed highlights on a page.
func (e *Engine) PageHighlights(page int) []annotation.Highlight {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]annotation.Highlight(nil), e.store.Highlights(page)...)
}

// PageAnchors returns a copy of the committed anchors on a page.
func (e *Engine) PageAnchors(page int) []annotation.Anchor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]annotation.Anchor(nil), e.store.Anchors(page)...)
}

// AnnotationCount returns the total number of committed annotations.
func (e *Engine) AnnotationCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Count()
}

// AllStrokes returns every committed stroke across all pages.
func (e *Engine) AllStrokes() []annotation.Stroke {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.AllStrokes()
}

// AllHighlights returns every committed highlight across all pages.
func (e *Engine) AllHighlights() []annotation.Highlight {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.AllHighlights()
}

// AllAnchors returns every committed anchor across all pages.
func (e *Engine) AllAnchors() []annotation.Anchor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.AllAnchors()
}

// ActiveStroke exposes the in-flight stroke for live preview. Points
// are page-normalized.
func (e *Engine) ActiveStroke() (page int, pts []geometry.Point2D, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.builder == nil {
		return 0, nil, false
	}
	return e.builder.Page(), append([]geometry.Point2D(nil), e.builder.Points()...), true
}

// ActiveSelection exposes the in-flight highlight drag for live
// preview, as a normalized rect.
func (e *Engine) ActiveSelection() (page int, rect geometry.Rect, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.sel == nil {
		return 0, geometry.Rect{}, false
	}
	return e.sel.page, normRect(e.sel.start, e.sel.cur), true
}

// onFrame is the single per-frame entry point: advances the glide,
// flushes at most one paint, feeds visibility, and delivers deferred
// host callbacks outside the lock.
func (e *Engine) onFrame(now time.Time) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.frameQueued = false

	if e.sim.Active() {
		if e.sim.Step(now) {
			e.dirty = true
		}
		if e.sim.Active() {
			e.ensureFrameLocked()
		} else {
			e.router.FinishMomentum()
		}
	}

	paint := false
	if e.dirty {
		e.dirty = false
		paint = true
		e.observeVisibilityLocked()
	}

	var status *Status
	if e.statusDirty {
		e.statusDirty = false
		s := e.statusLocked()
		if s != e.lastStatus {
			e.lastStatus = s
			status = &s
		}
	}

	commits := e.pendingCommits
	e.pendingCommits = nil
	e.mu.Unlock()

	if paint && e.cb.Paint != nil {
		e.cb.Paint()
	}
	if status != nil && e.cb.StatusChanged != nil {
		e.cb.StatusChanged(*status)
	}
	if e.cb.AnnotationCommitted != nil {
		for _, c := range commits {
			e.cb.AnnotationCommitted(c)
		}
	}
}

// ensureFrameLocked schedules one frame callback if none is pending.
func (e *Engine) ensureFrameLocked() {
	if e.frameQueued || e.closed {
		return
	}
	e.frameQueued = true
	e.sched.RequestFrame(e.onFrame)
}

// relayoutLocked rebuilds the page layout for the current sizes, mode,
// and viewport, then rebinds the transform and visibility handles.
func (e *Engine) relayoutLocked() {
	e.layout = computeLayout(e.effectiveSizesLocked(), e.mode, e.currentPage, e.viewportSize.Width)
	ls := e.layout.Size()
	e.view.SetGeometry(viewport.Geometry{
		ViewportWidth:  e.viewportSize.Width,
		ViewportHeight: e.viewportSize.Height,
		ContentWidth:   ls.Width,
		ContentHeight:  ls.Height,
	})
	for n := 1; n <= e.track.PageCount(); n++ {
		if rect, ok := e.layout.PageRect(n); ok {
			e.track.SetHandle(n, rect)
		} else {
			e.track.SetHandle(n, nil)
		}
	}
	e.dirty = true
}

// effectiveSizesLocked substitutes the first page's natural size, or
// the letter fallback, for pages not yet measured.
func (e *Engine) effectiveSizesLocked() []geometry.Size {
	out := make([]geometry.Size, len(e.sizes))
	for i, s := range e.sizes {
		if s.Empty() {
			s = e.firstSize
		}
		if s.Empty() {
			s = fallbackPageSize
		}
		out[i] = s
	}
	return out
}

// naturalSizeLocked returns a page's best known natural size.
func (e *Engine) naturalSizeLocked(page int) geometry.Size {
	if page >= 1 && page <= len(e.sizes) && !e.sizes[page-1].Empty() {
		return e.sizes[page-1]
	}
	if !e.firstSize.Empty() {
		return e.firstSize
	}
	return fallbackPageSize
}

// scrollToPageLocked positions the viewport on a page. In single mode
// the layout itself changes; in continuous mode the page's top aligns
// with the viewport top, preserving horizontal position.
func (e *Engine) scrollToPageLocked(page int) {
	if e.mode == ViewSingle {
		e.currentPage = page
		e.relayoutLocked()
		e.view.SetTranslate(0, 0)
		return
	}
	rect, ok := e.layout.PageRect(page)
	if !ok {
		return
	}
	tx, _ := e.view.Translate()
	e.view.SetTranslate(tx, -rect.Y*e.view.Scale())
	e.dirty = true
}

// zoomAtCenterLocked applies an absolute zoom anchored at the viewport
// center, the anchor used by all button and keyboard zoom paths.
func (e *Engine) zoomAtCenterLocked(target float64) {
	center := geometry.Point2D{X: e.viewportSize.Width / 2, Y: e.viewportSize.Height / 2}
	before := e.view.Scale()
	e.view.SetScaleAtPoint(target, e.view.ScreenToContent(center))
	if e.view.Scale() != before {
		e.dirty = true
		e.statusDirty = true
		e.ensureFrameLocked()
	}
}

func (e *Engine) statusLocked() Status {
	return Status{
		Page:      e.currentPage,
		PageCount: e.track.PageCount(),
		Scale:     e.view.Scale(),
		Mode:      e.mode,
		Tool:      e.router.Tool(),
	}
}

// pageScreenRectLocked maps a page's layout rect through the current
// transform.
func (e *Engine) pageScreenRectLocked(page int) (geometry.Rect, bool) {
	rect, ok := e.layout.PageRect(page)
	if !ok {
		return geometry.Rect{}, false
	}
	return e.view.Affine().ApplyRect(rect), true
}

// pageUnderLocked resolves a screen point to the page beneath it plus
// that page's screen rect. Points over inter-page gaps hit nothing.
func (e *Engine) pageUnderLocked(pos geometry.Point2D) (int, geometry.Rect, bool) {
	page, ok := e.layout.PageAt(e.view.ScreenToContent(pos))
	if !ok {
		return 0, geometry.Rect{}, false
	}
	sr, ok := e.pageScreenRectLocked(page)
	if !ok {
		return 0, geometry.Rect{}, false
	}
	return page, sr, true
}

// observeVisibilityLocked reports each page's visible fraction to the
// tracker, which decides the current page.
func (e *Engine) observeVisibilityLocked() {
	if e.viewportSize.Empty() {
		return
	}
	vr := geometry.Rect{Width: e.viewportSize.Width, Height: e.viewportSize.Height}
	af := e.view.Affine()
	var batch []pagetrack.Observation
	for _, pl := range e.layout.Pages() {
		sr := af.ApplyRect(pl.Rect)
		area := sr.Area()
		if area <= 0 {
			continue
		}
		batch = append(batch, pagetrack.Observation{
			Page:  pl.Number,
			Ratio: sr.Intersect(vr).Area() / area,
		})
	}
	e.track.Observe(e.track.Epoch(), batch)
}

// routeAnnotation consumes annotation pointer phases from the router.
// Called with the engine lock held; commits are deferred to the frame
// callback.
func (e *Engine) routeAnnotation(tool gesture.ToolMode, phase gesture.Phase, pos geometry.Point2D) {
	switch tool {
	case gesture.ToolDraw:
		e.routeDraw(phase, pos)
	case gesture.ToolHighlight:
		e.routeHighlight(phase, pos)
	case gesture.ToolErase:
		e.routeErase(phase, pos)
	case gesture.ToolSelect:
		if phase == gesture.PhaseEnd {
			if page, sr, ok := e.pageUnderLocked(pos); ok {
				a := annotation.Anchor{Page: page, Pos: annotation.ToNormalized(pos, sr)}
				e.store.AddAnchor(a)
				e.pendingCommits = append(e.pendingCommits, a)
				e.dirty = true
			}
		}
	}
	e.ensureFrameLocked()
}

func (e *Engine) routeDraw(phase gesture.Phase, pos geometry.Point2D) {
	switch phase {
	case gesture.PhaseBegin:
		page, sr, ok := e.pageUnderLocked(pos)
		if !ok {
			e.builder = nil
			return
		}
		e.builder = annotation.NewBuilder(page, e.opts.InkWidth, e.opts.InkColor)
		e.builder.Add(annotation.ToNormalized(pos, sr))
		e.dirty = true
	case gesture.PhaseMove:
		if e.builder == nil {
			return
		}
		if sr, ok := e.pageScreenRectLocked(e.builder.Page()); ok {
			e.builder.Add(annotation.ToNormalized(pos, sr))
			e.dirty = true
		}
	case gesture.PhaseEnd:
		if e.builder == nil {
			return
		}
		if sr, ok := e.pageScreenRectLocked(e.builder.Page()); ok {
			e.builder.Add(annotation.ToNormalized(pos, sr))
		}
		if s, done := e.builder.Finish(); done {
			e.store.AddStroke(s)
			e.pendingCommits = append(e.pendingCommits, s)
		}
		e.builder = nil
		e.dirty = true
	case gesture.PhaseCancel:
		e.builder = nil
		e.dirty = true
	}
}

func (e *Engine) routeHighlight(phase gesture.Phase, pos geometry.Point2D) {
	switch phase {
	case gesture.PhaseBegin:
		if page, sr, ok := e.pageUnderLocked(pos); ok {
			n := annotation.ToNormalized(pos, sr)
			e.sel = &selectionDrag{page: page, start: n, cur: n}
			e.dirty = true
		}
	case gesture.PhaseMove:
		if e.sel == nil {
			return
		}
		if sr, ok := e.pageScreenRectLocked(e.sel.page); ok {
			e.sel.cur = annotation.ToNormalized(pos, sr)
			e.dirty = true
		}
	case gesture.PhaseEnd:
		if e.sel == nil {
			return
		}
		r := normRect(e.sel.start, e.sel.cur)
		if r.Width > minSelectionSide && r.Height > minSelectionSide {
			h := annotation.Highlight{Page: e.sel.page, Rect: r, Color: e.opts.HighlightColor}
			e.store.AddHighlight(h)
			e.pendingCommits = append(e.pendingCommits, h)
		}
		e.sel = nil
		e.dirty = true
	case gesture.PhaseCancel:
		e.sel = nil
		e.dirty = true
	}
}

func (e *Engine) routeErase(phase gesture.Phase, pos geometry.Point2D) {
	if phase != gesture.PhaseBegin && phase != gesture.PhaseMove {
		return
	}
	page, sr, ok := e.pageUnderLocked(pos)
	if !ok || sr.Width <= 0 {
		return
	}
	radius := e.opts.EraseRadius / sr.Width
	if e.store.EraseNear(page, annotation.ToNormalized(pos, sr), radius) > 0 {
		e.dirty = true
	}
}

// minSelectionSide discards accidental click-sized highlight drags, in
// normalized page units.
const minSelectionSide = 1e-4

// normRect builds the axis-aligned rect spanned by two corners.
func normRect(a, b geometry.Point2D) geometry.Rect {
	return geometry.Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(a.X - b.X),
		Height: math.Abs(a.Y - b.Y),
	}
}
