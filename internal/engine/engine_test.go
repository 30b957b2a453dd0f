package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pageflow/internal/annotation"
	"pageflow/internal/frame"
	"pageflow/internal/gesture"
	"pageflow/internal/viewport"
	"pageflow/pkg/geometry"
)

const frameDt = 16 * time.Millisecond

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

type engineHarness struct {
	t     *testing.T
	clock *frame.ManualClock
	sched *frame.ManualScheduler
	eng   *Engine

	paints   int
	statuses []Status
	commits  []annotation.Committed
}

func newHarness(t *testing.T, opts Options) *engineHarness {
	t.Helper()
	h := &engineHarness{t: t}
	h.clock = frame.NewManualClock(time.Unix(0, 0))
	h.sched = frame.NewManualScheduler(h.clock)
	h.eng = New(h.sched, h.clock, opts, Callbacks{
		Paint:               func() { h.paints++ },
		StatusChanged:       func(s Status) { h.statuses = append(h.statuses, s) },
		AnnotationCommitted: func(c annotation.Committed) { h.commits = append(h.commits, c) },
	})
	t.Cleanup(h.eng.Close)
	return h
}

// newDocHarness opens a three page document whose pages lay out as
// 800x1035 in an 800x600 viewport, so base scale fills the width and
// the stacked content is 800x3129.
func newDocHarness(t *testing.T) *engineHarness {
	t.Helper()
	h := newHarness(t, DefaultOptions())
	h.eng.SetViewportSize(800, 600)
	h.eng.OnPageCountKnown(3)
	h.eng.OnFirstPageNaturalSize(800, 1035)
	h.settle()
	return h
}

func (h *engineHarness) settle() int { return h.sched.RunUntilIdle(frameDt, 500) }

func (h *engineHarness) lastStatus() Status {
	require.NotEmpty(h.t, h.statuses, "no status delivered yet")
	return h.statuses[len(h.statuses)-1]
}

func (h *engineHarness) tap(x, y float64) {
	h.eng.HandlePointerDown(gesture.PointerEvent{ID: 1, Pos: pt(x, y)})
	h.eng.HandlePointerUp(gesture.PointerEvent{ID: 1, Pos: pt(x, y)})
}

func (h *engineHarness) translate() (x, y float64) { return h.eng.Translate() }

func TestSetupEmitsInitialStatus(t *testing.T) {
	h := newDocHarness(t)

	require.GreaterOrEqual(t, h.paints, 1)
	s := h.lastStatus()
	require.Equal(t, 1, s.Page)
	require.Equal(t, 3, s.PageCount)
	require.Equal(t, 1.0, s.Scale)
	require.Equal(t, ViewContinuous, s.Mode)
	require.Equal(t, gesture.ToolPan, s.Tool)

	require.Equal(t, geometry.Size{Width: 800, Height: 3129}, h.eng.Layout().Size())
}

func TestPaintCoalescesMutationsIntoOneFrame(t *testing.T) {
	h := newDocHarness(t)
	before := h.paints

	h.eng.ScrollBy(0, -100)
	h.eng.ScrollBy(0, -50)
	require.True(t, h.sched.Pending())
	h.sched.Tick(frameDt)

	require.Equal(t, before+1, h.paints)
	require.False(t, h.sched.Pending(), "a settled engine must stop requesting frames")
	_, ty := h.translate()
	require.Equal(t, -150.0, ty)
}

func TestScrollAgainstEdgeSchedulesNothing(t *testing.T) {
	h := newDocHarness(t)

	h.eng.ScrollBy(0, 100)
	require.False(t, h.sched.Pending(), "clamped-out pan should not request a frame")
	_, ty := h.translate()
	require.Equal(t, 0.0, ty)
}

func TestPanDoesNotEmitStatus(t *testing.T) {
	h := newDocHarness(t)
	n := len(h.statuses)

	h.eng.ScrollBy(0, -10)
	h.settle()

	require.Len(t, h.statuses, n, "translation-only changes repaint without a status event")
}

func TestWheelZoomRoutesThroughEngine(t *testing.T) {
	h := newDocHarness(t)

	consumed := h.eng.HandleWheel(gesture.WheelEvent{Pos: pt(400, 300), DeltaY: -100, Mod: gesture.ModCtrl})
	require.True(t, consumed)
	h.settle()
	require.InDelta(t, math.Exp(0.25), h.eng.Scale(), 1e-12)
	require.InDelta(t, math.Exp(0.25), h.lastStatus().Scale, 1e-12)

	plain := h.eng.HandleWheel(gesture.WheelEvent{Pos: pt(400, 300), DeltaY: -100})
	require.False(t, plain, "wheel without the zoom key belongs to scrolling")
	h.settle()
	require.InDelta(t, math.Exp(0.25), h.eng.Scale(), 1e-12)
}

func TestDoubleTapTogglesQuickZoom(t *testing.T) {
	h := newDocHarness(t)

	h.tap(400, 300)
	h.clock.Advance(100 * time.Millisecond)
	h.tap(400, 300)
	h.settle()

	require.Equal(t, 2.0, h.eng.Scale())
	tx, ty := h.translate()
	require.Equal(t, -400.0, tx, "tapped point must stay put")
	require.Equal(t, -300.0, ty)

	h.clock.Advance(100 * time.Millisecond)
	h.tap(400, 300)
	h.clock.Advance(100 * time.Millisecond)
	h.tap(400, 300)
	h.settle()

	require.Equal(t, 1.0, h.eng.Scale())
	tx, ty = h.translate()
	require.Equal(t, 0.0, tx)
	require.Equal(t, 0.0, ty)
}

// dragRight pans with a steady 0.5 px/ms rightward velocity and
// releases, which should hand off to a glide when zoomed in.
func (h *engineHarness) dragRight() {
	h.eng.HandlePointerDown(gesture.PointerEvent{ID: 1, Pos: pt(400, 300)})
	for i := 1; i <= 6; i++ {
		h.clock.Advance(frameDt)
		h.eng.HandlePointerMove(gesture.PointerEvent{ID: 1, Pos: pt(400+8*float64(i), 300)})
	}
	h.eng.HandlePointerUp(gesture.PointerEvent{ID: 1, Pos: pt(448, 300)})
}

func TestFlingGlidesToRestThroughFrames(t *testing.T) {
	h := newDocHarness(t)
	h.eng.SetZoom(2)
	h.settle()
	tx, ty := h.translate()
	require.Equal(t, -400.0, tx)
	require.Equal(t, -300.0, ty)

	h.dragRight()
	tx, _ = h.translate()
	require.Equal(t, -352.0, tx, "drag itself moves the view before any glide")

	ran := h.settle()
	require.GreaterOrEqual(t, ran, 45, "glide should take dozens of frames to decay")
	require.LessOrEqual(t, ran, 70)
	require.False(t, h.sched.Pending(), "glide must come to rest")

	tx, ty = h.translate()
	require.Greater(t, tx, -260.0, "glide keeps carrying the view after release")
	require.Less(t, tx, -245.0)
	require.Equal(t, -300.0, ty, "no vertical velocity, no vertical drift")
	require.Equal(t, 2.0, h.eng.Scale())
}

func TestPressCatchesGlide(t *testing.T) {
	h := newDocHarness(t)
	h.eng.SetZoom(2)
	h.settle()

	h.dragRight()
	for i := 0; i < 5; i++ {
		h.sched.Tick(frameDt)
	}
	h.eng.HandlePointerDown(gesture.PointerEvent{ID: 2, Pos: pt(400, 300)})
	txHeld, tyHeld := h.translate()

	ran := h.settle()
	require.LessOrEqual(t, ran, 1, "a caught glide must not keep animating")
	tx, ty := h.translate()
	require.Equal(t, txHeld, tx)
	require.Equal(t, tyHeld, ty)
}

func TestGotoPageAlignsAndClamps(t *testing.T) {
	h := newDocHarness(t)

	require.Equal(t, 3, h.eng.GotoPage(3))
	require.Equal(t, 3, h.eng.CurrentPage())
	_, ty := h.translate()
	require.Equal(t, -2094.0, ty, "page top aligns with viewport top")
	h.settle()
	require.Equal(t, 3, h.lastStatus().Page)

	require.Equal(t, 3, h.eng.GotoPage(99), "past-the-end requests clamp to the last page")
	require.Equal(t, 1, h.eng.GotoPage(0))
	_, ty = h.translate()
	require.Equal(t, 0.0, ty)
	h.settle()
	require.Equal(t, 1, h.eng.CurrentPage())
}

func TestVisibilityDrivesCurrentPage(t *testing.T) {
	h := newDocHarness(t)

	h.eng.ScrollBy(0, -1100)
	h.settle()
	require.Equal(t, 2, h.eng.CurrentPage(), "page 2 dominates the viewport")
	require.Equal(t, 2, h.lastStatus().Page)

	h.eng.ScrollBy(0, -1000)
	h.settle()
	require.Equal(t, 3, h.eng.CurrentPage())

	require.Equal(t, []int{3}, h.eng.VisiblePages())
}

// drawL inks an L-shaped stroke on page 1 with the draw tool.
func (h *engineHarness) drawL() {
	h.eng.SetTool(gesture.ToolDraw)
	h.eng.HandlePointerDown(gesture.PointerEvent{ID: 1, Pos: pt(100, 100)})
	h.eng.HandlePointerMove(gesture.PointerEvent{ID: 1, Pos: pt(300, 100)})
	h.eng.HandlePointerMove(gesture.PointerEvent{ID: 1, Pos: pt(300, 300)})
	h.eng.HandlePointerUp(gesture.PointerEvent{ID: 1, Pos: pt(300, 300)})
}

func TestDrawCommitsNormalizedStroke(t *testing.T) {
	h := newDocHarness(t)

	h.eng.SetTool(gesture.ToolDraw)
	h.eng.HandlePointerDown(gesture.PointerEvent{ID: 1, Pos: pt(100, 100)})
	h.eng.HandlePointerMove(gesture.PointerEvent{ID: 1, Pos: pt(300, 100)})

	page, pts, ok := h.eng.ActiveStroke()
	require.True(t, ok, "in-flight stroke should be previewable")
	require.Equal(t, 1, page)
	require.Len(t, pts, 2)

	h.eng.HandlePointerMove(gesture.PointerEvent{ID: 1, Pos: pt(300, 300)})
	h.eng.HandlePointerUp(gesture.PointerEvent{ID: 1, Pos: pt(300, 300)})
	require.Empty(t, h.commits, "commits are delivered on the frame, not inline")

	h.settle()
	require.Len(t, h.commits, 1)
	stroke, isStroke := h.commits[0].(annotation.Stroke)
	require.True(t, isStroke)
	require.Equal(t, annotation.KindStroke, stroke.Kind())
	require.Equal(t, 1, stroke.Page)
	require.Equal(t, "#1971c2", stroke.Color)
	require.Equal(t, DefaultInkWidth, stroke.Width)

	require.Len(t, stroke.Points, 3, "the corner must survive simplification")
	require.InDelta(t, 0.125, stroke.Points[0].X, 1e-9)
	require.InDelta(t, 100.0/1035, stroke.Points[0].Y, 1e-9)
	require.InDelta(t, 0.375, stroke.Points[2].X, 1e-9)
	require.InDelta(t, 300.0/1035, stroke.Points[2].Y, 1e-9)

	require.Equal(t, 1, h.eng.AnnotationCount())
	require.Len(t, h.eng.PageStrokes(1), 1)

	_, _, ok = h.eng.ActiveStroke()
	require.False(t, ok)
}

func TestDrawOutsideAnyPageIsIgnored(t *testing.T) {
	h := newDocHarness(t)
	h.eng.SetTool(gesture.ToolDraw)

	// Content y=1041 is the inter-page gap.
	h.eng.HandlePointerDown(gesture.PointerEvent{ID: 1, Pos: pt(400, 1041)})
	h.eng.HandlePointerMove(gesture.PointerEvent{ID: 1, Pos: pt(420, 1041)})
	h.eng.HandlePointerUp(gesture.PointerEvent{ID: 1, Pos: pt(420, 1041)})
	h.settle()

	require.Empty(t, h.commits)
	require.Zero(t, h.eng.AnnotationCount())
}

func TestEraseRemovesCommittedStroke(t *testing.T) {
	h := newDocHarness(t)
	h.drawL()
	h.settle()
	require.Equal(t, 1, h.eng.AnnotationCount())

	h.eng.SetTool(gesture.ToolErase)
	h.eng.HandlePointerDown(gesture.PointerEvent{ID: 1, Pos: pt(200, 100)})
	require.Zero(t, h.eng.AnnotationCount(), "eraser acts on press, not release")
	h.eng.HandlePointerUp(gesture.PointerEvent{ID: 1, Pos: pt(200, 100)})
	h.settle()

	require.Len(t, h.commits, 1, "erasing is not a commit")
}

func TestHighlightDragCommitsRect(t *testing.T) {
	h := newDocHarness(t)
	h.eng.SetTool(gesture.ToolHighlight)

	h.eng.HandlePointerDown(gesture.PointerEvent{ID: 1, Pos: pt(100, 100)})
	h.eng.HandlePointerMove(gesture.PointerEvent{ID: 1, Pos: pt(300, 200)})

	page, rect, ok := h.eng.ActiveSelection()
	require.True(t, ok)
	require.Equal(t, 1, page)
	require.InDelta(t, 0.25, rect.Width, 1e-9)

	h.eng.HandlePointerUp(gesture.PointerEvent{ID: 1, Pos: pt(300, 200)})
	h.settle()

	require.Len(t, h.commits, 1)
	hl, isHL := h.commits[0].(annotation.Highlight)
	require.True(t, isHL)
	require.Equal(t, 1, hl.Page)
	require.Equal(t, "#ffd43b", hl.Color)
	require.InDelta(t, 0.125, hl.Rect.X, 1e-9)
	require.InDelta(t, 100.0/1035, hl.Rect.Y, 1e-9)
	require.InDelta(t, 0.25, hl.Rect.Width, 1e-9)
	require.InDelta(t, 100.0/1035, hl.Rect.Height, 1e-9)

	_, _, ok = h.eng.ActiveSelection()
	require.False(t, ok)
}

func TestClickSizedHighlightIsDiscarded(t *testing.T) {
	h := newDocHarness(t)
	h.eng.SetTool(gesture.ToolHighlight)

	h.eng.HandlePointerDown(gesture.PointerEvent{ID: 1, Pos: pt(100, 100)})
	h.eng.HandlePointerUp(gesture.PointerEvent{ID: 1, Pos: pt(100, 100)})
	h.settle()

	require.Empty(t, h.commits)
	require.Zero(t, h.eng.AnnotationCount())
}

func TestSelectTapDropsAnchor(t *testing.T) {
	h := newDocHarness(t)
	h.eng.SetTool(gesture.ToolSelect)

	h.tap(400, 500)
	h.settle()

	require.Len(t, h.commits, 1)
	a, isAnchor := h.commits[0].(annotation.Anchor)
	require.True(t, isAnchor)
	require.Equal(t, 1, a.Page)
	require.InDelta(t, 0.5, a.Pos.X, 1e-9)
	require.InDelta(t, 500.0/1035, a.Pos.Y, 1e-9)
	require.Len(t, h.eng.PageAnchors(1), 1)
}

func TestHostCommitAPIs(t *testing.T) {
	h := newDocHarness(t)

	h.eng.CommitHighlight(2, geometry.Rect{X: -0.1, Y: 0.5, Width: 0.4, Height: 0.8}, "")
	h.eng.CommitAnchor(3, pt(0.5, 1.2), "margin note")
	h.eng.CommitHighlight(9, geometry.Rect{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2}, "")
	h.settle()

	require.Len(t, h.commits, 2, "out-of-range page commits are rejected")

	hl := h.commits[0].(annotation.Highlight)
	require.Equal(t, 2, hl.Page)
	require.InDelta(t, 0.0, hl.Rect.X, 1e-9, "host rects clamp into the unit square")
	require.InDelta(t, 0.3, hl.Rect.Width, 1e-9)
	require.InDelta(t, 0.5, hl.Rect.Height, 1e-9)

	a := h.commits[1].(annotation.Anchor)
	require.Equal(t, "margin note", a.Note)
	require.Equal(t, 1.0, a.Pos.Y)
}

func TestViewModeSwitchKeepsCurrentPage(t *testing.T) {
	h := newDocHarness(t)
	h.eng.GotoPage(2)
	h.settle()

	h.eng.SetViewMode(ViewSingle)
	h.settle()
	require.Equal(t, ViewSingle, h.eng.Mode())
	require.Equal(t, geometry.Size{Width: 800, Height: 1035}, h.eng.Layout().Size())
	require.Equal(t, []int{2}, h.eng.VisiblePages())
	require.Equal(t, ViewSingle, h.lastStatus().Mode)

	require.Equal(t, 3, h.eng.GotoPage(3), "single mode navigates by relayout")
	h.settle()
	require.Equal(t, []int{3}, h.eng.VisiblePages())
	_, ty := h.translate()
	require.Equal(t, 0.0, ty)

	h.eng.SetViewMode(ViewContinuous)
	h.settle()
	require.Equal(t, 3, h.eng.CurrentPage(), "returning to continuous scrolls to the page")
	_, ty = h.translate()
	require.Equal(t, -2094.0, ty)
}

func TestFitControlsRespectLimits(t *testing.T) {
	opts := DefaultOptions()
	opts.Limits = viewport.Limits{MinScale: 0.25, MaxScale: 5}
	h := newHarness(t, opts)
	h.eng.SetViewportSize(800, 600)
	h.eng.OnPageCountKnown(3)
	h.eng.OnFirstPageNaturalSize(800, 1035)
	h.settle()

	h.eng.FitPage()
	h.settle()
	wantFit := 600.0 / 1035 * 0.95
	require.InDelta(t, wantFit, h.eng.Scale(), 1e-12)
	tx, ty := h.translate()
	require.InDelta(t, (800-800*wantFit)/2, tx, 1e-9, "narrow content centers horizontally")
	require.Equal(t, 0.0, ty)

	h.eng.ActualSize()
	h.settle()
	require.Equal(t, 1.0, h.eng.Scale(), "natural width equals layout width here")

	h.eng.ZoomIn()
	h.settle()
	require.InDelta(t, 1.25, h.eng.Scale(), 1e-12)

	h.eng.FitWidth()
	h.settle()
	require.Equal(t, 1.0, h.eng.Scale())

	h.eng.SetZoom(0.01)
	require.Equal(t, 0.25, h.eng.Scale())
	h.eng.SetZoom(99)
	require.Equal(t, 5.0, h.eng.Scale())
}

func TestFitPageClampsAtDefaultMinScale(t *testing.T) {
	h := newDocHarness(t)

	h.eng.FitPage()
	h.settle()
	require.Equal(t, 1.0, h.eng.Scale(), "default limits do not allow shrinking below base")
}

func TestDocumentResetClearsEverything(t *testing.T) {
	h := newDocHarness(t)
	h.drawL()
	h.eng.SetZoom(2)
	h.eng.GotoPage(3)
	h.settle()
	require.Equal(t, 1, h.eng.AnnotationCount())

	h.eng.OnPageCountKnown(5)
	h.settle()

	require.Equal(t, 1.0, h.eng.Scale())
	require.Equal(t, 1, h.eng.CurrentPage())
	require.Zero(t, h.eng.AnnotationCount())
	tx, ty := h.translate()
	require.Equal(t, 0.0, tx)
	require.Equal(t, 0.0, ty)

	s := h.lastStatus()
	require.Equal(t, 5, s.PageCount)
	require.Equal(t, 1, s.Page)
	require.Equal(t, gesture.ToolDraw, s.Tool, "tool choice survives document changes")
}

func TestDegenerateViewportStaysInert(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	h.eng.OnPageCountKnown(2)
	h.settle()

	require.True(t, h.eng.HandleWheel(gesture.WheelEvent{Pos: pt(10, 10), DeltaY: -100, Mod: gesture.ModCtrl}))
	require.Equal(t, 1.0, h.eng.Scale())

	h.eng.ScrollBy(0, -100)
	tx, ty := h.translate()
	require.Equal(t, 0.0, tx)
	require.Equal(t, 0.0, ty)

	require.Equal(t, 2, h.eng.GotoPage(2))
	require.Equal(t, 2, h.eng.CurrentPage(), "page reporting works before the container sizes")

	h.eng.SetViewportSize(800, 600)
	h.settle()
	require.Equal(t, 1, h.eng.CurrentPage(), "visibility corrects the page once layout is real")
}

func TestCloseStopsScheduling(t *testing.T) {
	h := newDocHarness(t)

	h.eng.Close()
	h.eng.Close()
	h.eng.ScrollBy(0, -100)
	require.False(t, h.sched.Pending())
}

func TestAllAnnotationsAggregateAcrossPages(t *testing.T) {
	h := newDocHarness(t)

	h.drawL()
	h.eng.CommitHighlight(2, geometry.Rect{X: 0.1, Y: 0.1, Width: 0.3, Height: 0.05}, "#ffd43b")
	h.eng.CommitAnchor(3, pt(0.5, 0.5), "check this")
	h.settle()

	require.Equal(t, 3, h.eng.AnnotationCount())
	strokes := h.eng.AllStrokes()
	require.Len(t, strokes, 1)
	require.Equal(t, 1, strokes[0].Page)
	highlights := h.eng.AllHighlights()
	require.Len(t, highlights, 1)
	require.Equal(t, 2, highlights[0].Page)
	anchors := h.eng.AllAnchors()
	require.Len(t, anchors, 1)
	require.Equal(t, "check this", anchors[0].Note)
}

func TestLocatePointMapsToPage(t *testing.T) {
	h := newDocHarness(t)

	page, norm, ok := h.eng.LocatePoint(pt(400, 500))
	require.True(t, ok)
	require.Equal(t, 1, page)
	require.InDelta(t, 0.5, norm.X, 1e-9)
	require.InDelta(t, 500.0/1035.0, norm.Y, 1e-9)

	_, _, ok = h.eng.LocatePoint(pt(400, 1041))
	require.False(t, ok, "the gap between pages belongs to no page")
}
