package gesture

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pageflow/internal/frame"
	"pageflow/internal/viewport"
	"pageflow/pkg/geometry"
)

type annotationCall struct {
	tool  ToolMode
	phase Phase
	pos   geometry.Point2D
}

// recorder captures router callbacks for assertion.
type recorder struct {
	transforms     int
	momentumStarts []geometry.Point2D
	momentumStops  int
	annotations    []annotationCall
}

func (rec *recorder) callbacks() Callbacks {
	return Callbacks{
		TransformChanged: func() { rec.transforms++ },
		MomentumStart:    func(v geometry.Point2D) { rec.momentumStarts = append(rec.momentumStarts, v) },
		MomentumStop:     func() { rec.momentumStops++ },
		Annotation: func(tool ToolMode, phase Phase, pos geometry.Point2D) {
			rec.annotations = append(rec.annotations, annotationCall{tool, phase, pos})
		},
	}
}

// newTestRouter uses an 800x600 viewport over 800x1200 content, so at
// base scale only the Y axis has pan slack.
func newTestRouter(t *testing.T) (*Router, *viewport.Transform, *frame.ManualClock, *recorder) {
	t.Helper()
	tr := viewport.NewTransform(viewport.DefaultLimits())
	tr.SetGeometry(viewport.Geometry{
		ViewportWidth: 800, ViewportHeight: 600,
		ContentWidth: 800, ContentHeight: 1200,
	})
	clk := frame.NewManualClock(time.Unix(0, 0))
	rec := &recorder{}
	r := NewRouter(tr, clk, DefaultConfig(), rec.callbacks())
	return r, tr, clk, rec
}

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

func press(id PointerID, x, y float64) PointerEvent {
	return PointerEvent{ID: id, Pos: pt(x, y)}
}

func TestDoubleTapTogglesQuickZoom(t *testing.T) {
	r, tr, clk, _ := newTestRouter(t)

	r.HandlePointerDown(press(1, 400, 300))
	clk.Advance(50 * time.Millisecond)
	r.HandlePointerUp(press(1, 400, 300))
	clk.Advance(100 * time.Millisecond)
	r.HandlePointerDown(press(1, 400, 300))

	require.InDelta(t, 2.0, tr.Scale(), 1e-9)
	// The point under the tap stays put.
	require.InDelta(t, 400, tr.ContentToScreen(pt(400, 300)).X, 1e-9)
	require.InDelta(t, 300, tr.ContentToScreen(pt(400, 300)).Y, 1e-9)
	require.Equal(t, SessionIdle, r.State())

	// The swallowed pointer must not start a pan on its way out.
	before := tr.Scale()
	tx0, ty0 := tr.Translate()
	r.HandlePointerMove(press(1, 500, 400))
	r.HandlePointerUp(press(1, 500, 400))
	tx1, ty1 := tr.Translate()
	require.Equal(t, before, tr.Scale())
	require.Equal(t, tx0, tx1)
	require.Equal(t, ty0, ty1)

	// A second double tap toggles back to base scale.
	clk.Advance(500 * time.Millisecond)
	r.HandlePointerDown(press(1, 200, 200))
	clk.Advance(40 * time.Millisecond)
	r.HandlePointerUp(press(1, 200, 200))
	clk.Advance(80 * time.Millisecond)
	r.HandlePointerDown(press(1, 200, 200))
	require.InDelta(t, 1.0, tr.Scale(), 1e-9)
}

func TestDoubleTapWindowAndRadius(t *testing.T) {
	tests := []struct {
		name     string
		gap      time.Duration
		second   geometry.Point2D
		wantZoom bool
	}{
		{"inside window and radius", 100 * time.Millisecond, pt(410, 305), true},
		{"too slow", 300 * time.Millisecond, pt(400, 300), false},
		{"too far", 100 * time.Millisecond, pt(430, 300), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, tr, clk, _ := newTestRouter(t)

			r.HandlePointerDown(press(1, 400, 300))
			clk.Advance(30 * time.Millisecond)
			r.HandlePointerUp(press(1, 400, 300))
			clk.Advance(tt.gap)
			r.HandlePointerDown(PointerEvent{ID: 1, Pos: tt.second})

			if tt.wantZoom {
				require.InDelta(t, 2.0, tr.Scale(), 1e-9)
			} else {
				require.InDelta(t, 1.0, tr.Scale(), 1e-9)
				require.Equal(t, SessionPanning, r.State())
			}
		})
	}
}

func TestWheelZoomNeedsZoomKey(t *testing.T) {
	r, tr, _, rec := newTestRouter(t)

	consumed := r.HandleWheel(WheelEvent{Pos: pt(200, 200), DeltaY: -100})
	require.False(t, consumed, "plain scroll stays with the host")
	require.InDelta(t, 1.0, tr.Scale(), 1e-9)
	require.Zero(t, rec.transforms)
}

func TestWheelZoomExponential(t *testing.T) {
	r, tr, _, _ := newTestRouter(t)

	anchorBefore := tr.ScreenToContent(pt(200, 200))
	consumed := r.HandleWheel(WheelEvent{Pos: pt(200, 200), DeltaY: -100, Mod: ModCtrl})

	require.True(t, consumed)
	require.InDelta(t, math.Exp(0.25), tr.Scale(), 1e-9)
	// The content point under the cursor does not move.
	after := tr.ContentToScreen(anchorBefore)
	require.InDelta(t, 200, after.X, 1e-6)
	require.InDelta(t, 200, after.Y, 1e-6)

	// With the meta key instead of ctrl the behavior is identical.
	r2, tr2, _, _ := newTestRouter(t)
	require.True(t, r2.HandleWheel(WheelEvent{Pos: pt(200, 200), DeltaY: -100, Mod: ModMeta}))
	require.InDelta(t, math.Exp(0.25), tr2.Scale(), 1e-9)
}

func TestWheelZoomClampsToLimits(t *testing.T) {
	r, tr, _, _ := newTestRouter(t)

	require.True(t, r.HandleWheel(WheelEvent{Pos: pt(400, 300), DeltaY: -10000, Mod: ModCtrl}))
	require.InDelta(t, viewport.DefaultMaxScale, tr.Scale(), 1e-9)

	require.True(t, r.HandleWheel(WheelEvent{Pos: pt(400, 300), DeltaY: 10000, Mod: ModCtrl}))
	require.InDelta(t, viewport.DefaultMinScale, tr.Scale(), 1e-9)
}

func TestPanDeadZoneThenCatchUp(t *testing.T) {
	r, tr, _, rec := newTestRouter(t)
	tr.SetScaleAtPoint(2, pt(400, 300))
	tx0, ty0 := tr.Translate()

	r.HandlePointerDown(press(1, 400, 300))
	require.Equal(t, SessionPanning, r.State())

	// Inside the dead zone nothing moves.
	r.HandlePointerMove(press(1, 402, 300))
	tx, ty := tr.Translate()
	require.Equal(t, tx0, tx)
	require.Equal(t, ty0, ty)
	require.Zero(t, rec.transforms)

	// Crossing it applies the full distance from the press point.
	r.HandlePointerMove(press(1, 420, 310))
	tx, ty = tr.Translate()
	require.InDelta(t, tx0+20, tx, 1e-9)
	require.InDelta(t, ty0+10, ty, 1e-9)

	// Further movement is incremental.
	r.HandlePointerMove(press(1, 425, 310))
	tx, ty = tr.Translate()
	require.InDelta(t, tx0+25, tx, 1e-9)
}

func TestPanRespectsClampAtBaseScale(t *testing.T) {
	r, tr, _, _ := newTestRouter(t)

	r.HandlePointerDown(press(1, 400, 300))
	r.HandlePointerMove(press(1, 500, 200)) // try to drag right and up
	_, ty := tr.Translate()
	tx, _ := tr.Translate()
	// X has no slack at base scale; Y pans within [-600, 0].
	require.Zero(t, tx)
	require.InDelta(t, -100, ty, 1e-9)

	r.HandlePointerMove(press(1, 500, -800))
	_, ty = tr.Translate()
	require.InDelta(t, -600, ty, 1e-9)
}

func TestControlPressDoesNotStartGesture(t *testing.T) {
	r, tr, _, rec := newTestRouter(t)

	r.HandlePointerDown(PointerEvent{ID: 1, Pos: pt(400, 300), Target: TargetControl})
	require.Equal(t, SessionIdle, r.State())

	r.HandlePointerMove(press(1, 500, 400))
	_, ty := tr.Translate()
	require.Zero(t, ty)
	require.Zero(t, rec.transforms)
}

func TestSecondaryButtonIgnored(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	r.HandlePointerDown(PointerEvent{ID: 1, Pos: pt(400, 300), Button: ButtonSecondary})
	require.Equal(t, SessionIdle, r.State())
}

func TestPinchScalesByDistanceRatio(t *testing.T) {
	r, tr, _, _ := newTestRouter(t)

	r.HandlePointerDown(press(1, 300, 300))
	r.HandlePointerDown(press(2, 500, 300))
	require.Equal(t, SessionPinching, r.State())

	// Doubling the spread doubles the scale; the focal content point
	// follows the midpoint.
	r.HandlePointerMove(press(2, 700, 300))
	require.InDelta(t, 2.0, tr.Scale(), 1e-9)
	tx, ty := tr.Translate()
	require.InDelta(t, -300, tx, 1e-9)
	require.InDelta(t, -300, ty, 1e-9)

	// A third touch is ignored outright.
	r.HandlePointerDown(press(3, 100, 100))
	r.HandlePointerMove(press(3, 150, 150))
	require.Equal(t, SessionPinching, r.State())
	require.InDelta(t, 2.0, tr.Scale(), 1e-9)

	// Lifting one finger degrades the pinch to a pan.
	r.HandlePointerUp(press(1, 300, 300))
	require.Equal(t, SessionPanning, r.State())
	r.HandlePointerMove(press(2, 720, 300))
	tx, _ = tr.Translate()
	require.InDelta(t, -280, tx, 1e-9)

	r.HandlePointerUp(press(2, 720, 300))
	require.Equal(t, SessionIdle, r.State())
}

func TestPinchShrinkClampsAtMinScale(t *testing.T) {
	r, tr, _, _ := newTestRouter(t)

	r.HandlePointerDown(press(1, 300, 300))
	r.HandlePointerDown(press(2, 500, 300))
	r.HandlePointerMove(press(2, 350, 300)) // spread 200 -> 50
	require.InDelta(t, 1.0, tr.Scale(), 1e-9)
}

func TestFlingStartsMomentum(t *testing.T) {
	r, tr, clk, rec := newTestRouter(t)
	tr.SetScaleAtPoint(2, pt(400, 300))

	r.HandlePointerDown(press(1, 400, 300))
	x := 400.0
	for i := 0; i < 6; i++ {
		clk.Advance(16 * time.Millisecond)
		x += 8
		r.HandlePointerMove(press(1, x, 300))
	}
	clk.Advance(16 * time.Millisecond)
	r.HandlePointerUp(press(1, x+8, 300))

	require.Len(t, rec.momentumStarts, 1)
	require.InDelta(t, 0.5, rec.momentumStarts[0].X, 1e-6)
	require.InDelta(t, 0, rec.momentumStarts[0].Y, 1e-6)
	require.Equal(t, SessionMomentum, r.State())

	r.FinishMomentum()
	require.Equal(t, SessionIdle, r.State())
}

func TestSlowReleaseDoesNotStartMomentum(t *testing.T) {
	r, tr, clk, rec := newTestRouter(t)
	tr.SetScaleAtPoint(2, pt(400, 300))

	r.HandlePointerDown(press(1, 400, 300))
	x := 400.0
	for i := 0; i < 10; i++ {
		clk.Advance(16 * time.Millisecond)
		x += 0.5
		r.HandlePointerMove(press(1, x, 300))
	}
	r.HandlePointerUp(press(1, x, 300))

	require.Empty(t, rec.momentumStarts)
	require.Equal(t, SessionIdle, r.State())
}

func TestNoMomentumAtBaseScale(t *testing.T) {
	r, _, clk, rec := newTestRouter(t)

	r.HandlePointerDown(press(1, 400, 500))
	y := 500.0
	for i := 0; i < 6; i++ {
		clk.Advance(16 * time.Millisecond)
		y -= 20
		r.HandlePointerMove(press(1, 400, y))
	}
	r.HandlePointerUp(press(1, 400, y))

	require.Empty(t, rec.momentumStarts)
	require.Equal(t, SessionIdle, r.State())
}

func TestPressCatchesGlide(t *testing.T) {
	r, tr, clk, rec := newTestRouter(t)
	tr.SetScaleAtPoint(2, pt(400, 300))

	r.HandlePointerDown(press(1, 400, 300))
	x := 400.0
	for i := 0; i < 6; i++ {
		clk.Advance(16 * time.Millisecond)
		x += 10
		r.HandlePointerMove(press(1, x, 300))
	}
	r.HandlePointerUp(press(1, x, 300))
	require.Equal(t, SessionMomentum, r.State())

	clk.Advance(50 * time.Millisecond)
	r.HandlePointerDown(press(2, 300, 300))
	require.Equal(t, 1, rec.momentumStops)
	require.Equal(t, SessionPanning, r.State())
}

func TestWheelZoomInterruptsGlide(t *testing.T) {
	r, tr, clk, rec := newTestRouter(t)
	tr.SetScaleAtPoint(2, pt(400, 300))

	r.HandlePointerDown(press(1, 400, 300))
	x := 400.0
	for i := 0; i < 6; i++ {
		clk.Advance(16 * time.Millisecond)
		x += 10
		r.HandlePointerMove(press(1, x, 300))
	}
	r.HandlePointerUp(press(1, x, 300))
	require.Equal(t, SessionMomentum, r.State())

	require.True(t, r.HandleWheel(WheelEvent{Pos: pt(400, 300), DeltaY: -50, Mod: ModCtrl}))
	require.Equal(t, 1, rec.momentumStops)
	require.Equal(t, SessionIdle, r.State())
	require.Greater(t, tr.Scale(), 2.0)
}

func TestWheelDuringPanConsumedButInert(t *testing.T) {
	r, tr, _, _ := newTestRouter(t)
	tr.SetScaleAtPoint(2, pt(400, 300))
	before := tr.Scale()

	r.HandlePointerDown(press(1, 400, 300))
	r.HandlePointerMove(press(1, 420, 300))
	require.True(t, r.HandleWheel(WheelEvent{Pos: pt(400, 300), DeltaY: -100, Mod: ModCtrl}))
	require.Equal(t, before, tr.Scale())
	require.Equal(t, SessionPanning, r.State())
}

func TestDrawGestureLifecycle(t *testing.T) {
	r, tr, _, rec := newTestRouter(t)
	r.SetTool(ToolDraw)

	r.HandlePointerDown(press(1, 100, 100))
	r.HandlePointerMove(press(1, 120, 130))
	r.HandlePointerMove(press(1, 140, 160))
	r.HandlePointerUp(press(1, 150, 170))

	require.Equal(t, []annotationCall{
		{ToolDraw, PhaseBegin, pt(100, 100)},
		{ToolDraw, PhaseMove, pt(120, 130)},
		{ToolDraw, PhaseMove, pt(140, 160)},
		{ToolDraw, PhaseEnd, pt(150, 170)},
	}, rec.annotations)

	// Drawing never pans the view.
	tx, ty := tr.Translate()
	require.Zero(t, tx)
	require.Zero(t, ty)
	require.Zero(t, rec.transforms)
}

func TestPointerCancelAbandonsStroke(t *testing.T) {
	r, _, _, rec := newTestRouter(t)
	r.SetTool(ToolHighlight)

	r.HandlePointerDown(press(1, 100, 100))
	r.HandlePointerMove(press(1, 120, 130))
	r.HandlePointerCancel(1)

	require.Equal(t, SessionIdle, r.State())
	last := rec.annotations[len(rec.annotations)-1]
	require.Equal(t, PhaseCancel, last.phase)
}

func TestSecondTouchAbandonsStrokeAndPinches(t *testing.T) {
	r, _, _, rec := newTestRouter(t)
	r.SetTool(ToolDraw)

	r.HandlePointerDown(press(1, 300, 300))
	r.HandlePointerMove(press(1, 320, 300))
	r.HandlePointerDown(press(2, 500, 300))

	require.Equal(t, SessionPinching, r.State())
	last := rec.annotations[len(rec.annotations)-1]
	require.Equal(t, PhaseCancel, last.phase)
}

func TestSetToolCancelsActiveGesture(t *testing.T) {
	r, _, _, rec := newTestRouter(t)
	r.SetTool(ToolDraw)

	r.HandlePointerDown(press(1, 300, 300))
	r.SetTool(ToolPan)

	require.Equal(t, SessionIdle, r.State())
	require.Equal(t, ToolPan, r.Tool())
	last := rec.annotations[len(rec.annotations)-1]
	require.Equal(t, PhaseCancel, last.phase)
}

func TestSelectTapCanDoubleTapZoom(t *testing.T) {
	r, tr, clk, _ := newTestRouter(t)
	r.SetTool(ToolSelect)

	r.HandlePointerDown(press(1, 400, 300))
	clk.Advance(40 * time.Millisecond)
	r.HandlePointerUp(press(1, 400, 300))
	clk.Advance(100 * time.Millisecond)
	r.HandlePointerDown(press(1, 400, 300))

	require.InDelta(t, 2.0, tr.Scale(), 1e-9)
}

func TestSelectDragCancelsInsteadOfCommitting(t *testing.T) {
	r, _, clk, rec := newTestRouter(t)
	r.SetTool(ToolSelect)

	r.HandlePointerDown(press(1, 400, 300))
	clk.Advance(40 * time.Millisecond)
	r.HandlePointerMove(press(1, 460, 300))
	r.HandlePointerUp(press(1, 460, 300))

	last := rec.annotations[len(rec.annotations)-1]
	require.Equal(t, PhaseCancel, last.phase)

	// A drag is not a tap, so the next press must not quick-zoom.
	clk.Advance(100 * time.Millisecond)
	r.HandlePointerDown(press(1, 460, 300))
	require.Equal(t, SessionAnnotating, r.State())
}

func TestPlatformPinchLifecycle(t *testing.T) {
	r, tr, _, _ := newTestRouter(t)

	r.HandlePinch(PinchEvent{Phase: PinchBegin, Scale: 1, Pos: pt(400, 300)})
	require.Equal(t, SessionPinching, r.State())

	anchor := tr.ScreenToContent(pt(400, 300))
	r.HandlePinch(PinchEvent{Phase: PinchChange, Scale: 1.5, Pos: pt(400, 300)})
	require.InDelta(t, 1.5, tr.Scale(), 1e-9)
	after := tr.ContentToScreen(anchor)
	require.InDelta(t, 400, after.X, 1e-6)
	require.InDelta(t, 300, after.Y, 1e-6)

	// Scale is cumulative since the begin event, not incremental.
	r.HandlePinch(PinchEvent{Phase: PinchChange, Scale: 2, Pos: pt(400, 300)})
	require.InDelta(t, 2.0, tr.Scale(), 1e-9)

	// A stray pointer release does not end a platform pinch.
	r.HandlePointerUp(press(9, 0, 0))
	require.Equal(t, SessionPinching, r.State())

	r.HandlePinch(PinchEvent{Phase: PinchEnd, Scale: 2, Pos: pt(400, 300)})
	require.Equal(t, SessionIdle, r.State())
}

func TestPlatformPinchWithoutBegin(t *testing.T) {
	r, tr, _, _ := newTestRouter(t)

	r.HandlePinch(PinchEvent{Phase: PinchChange, Scale: 1.3, Pos: pt(250, 250)})
	require.InDelta(t, 1.3, tr.Scale(), 1e-9)
	require.Equal(t, SessionPinching, r.State())
}

func TestCancelAllFromAnyState(t *testing.T) {
	r, tr, clk, rec := newTestRouter(t)
	tr.SetScaleAtPoint(2, pt(400, 300))

	// From panning.
	r.HandlePointerDown(press(1, 400, 300))
	r.HandlePointerMove(press(1, 450, 300))
	r.CancelAll()
	require.Equal(t, SessionIdle, r.State())

	// From momentum.
	r.HandlePointerDown(press(1, 400, 300))
	x := 400.0
	for i := 0; i < 6; i++ {
		clk.Advance(16 * time.Millisecond)
		x += 10
		r.HandlePointerMove(press(1, x, 300))
	}
	r.HandlePointerUp(press(1, x, 300))
	require.Equal(t, SessionMomentum, r.State())
	r.CancelAll()
	require.Equal(t, SessionIdle, r.State())
	require.Equal(t, 1, rec.momentumStops)

	// Idempotent when idle.
	r.CancelAll()
	require.Equal(t, SessionIdle, r.State())
}
