package viewport

import (
	"math"
	"math/rand"
	"testing"

	"pageflow/pkg/geometry"
)

// wideGeom leaves pan slack on both axes at every scale >= 1.
func wideGeom() Geometry {
	return Geometry{ViewportWidth: 800, ViewportHeight: 600, ContentWidth: 1600, ContentHeight: 2400}
}

func TestScaleStaysBounded(t *testing.T) {
	tr := NewTransform(Limits{MinScale: 1, MaxScale: 4})
	tr.SetGeometry(wideGeom())

	requests := []float64{0.1, 0.9, 1, 2.5, 4, 7, 100, -3, 3.3}
	for _, req := range requests {
		tr.SetScaleAtPoint(req, geometry.Point2D{X: 100, Y: 100})
		if s := tr.Scale(); s < 1 || s > 4 {
			t.Fatalf("scale %v escaped [1, 4] after request %v", s, req)
		}
	}
}

func TestSetScaleAtPointAnchorStability(t *testing.T) {
	tests := []struct {
		name   string
		target float64
		anchor geometry.Point2D
	}{
		{"zoom to 2x mid content", 2, geometry.Point2D{X: 100, Y: 50}},
		{"zoom to 3x", 3, geometry.Point2D{X: 400, Y: 300}},
		{"zoom within zoom", 1.5, geometry.Point2D{X: 250, Y: 600}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTransform(DefaultLimits())
			tr.SetGeometry(wideGeom())

			before := tr.ContentToScreen(tt.anchor)
			tr.SetScaleAtPoint(tt.target, tt.anchor)
			after := tr.ContentToScreen(tt.anchor)

			// The anchor may only move if clamping forced it; with this
			// geometry and these anchors the translate stays legal.
			if math.Abs(after.X-before.X) > 1e-6 || math.Abs(after.Y-before.Y) > 1e-6 {
				t.Errorf("anchor drifted: before=%+v after=%+v", before, after)
			}
		})
	}
}

func TestSetScaleAtPointSequence(t *testing.T) {
	// Chained zooms each keep their own anchor pinned.
	tr := NewTransform(DefaultLimits())
	tr.SetGeometry(wideGeom())

	anchors := []geometry.Point2D{{X: 120, Y: 90}, {X: 700, Y: 1000}, {X: 300, Y: 400}}
	scales := []float64{1.6, 2.4, 3.7}

	for i, anchor := range anchors {
		before := tr.ContentToScreen(anchor)
		tr.SetScaleAtPoint(scales[i], anchor)
		// Skip anchors that land outside the viewport; clamping may
		// legitimately move those.
		if before.X < 0 || before.X > 800 || before.Y < 0 || before.Y > 600 {
			continue
		}
		after := tr.ContentToScreen(anchor)
		if math.Abs(after.X-before.X) > 1e-6 || math.Abs(after.Y-before.Y) > 1e-6 {
			t.Errorf("step %d: anchor drifted from %+v to %+v", i, before, after)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tr := NewTransform(DefaultLimits())
	tr.SetGeometry(wideGeom())

	for i := 0; i < 1000; i++ {
		// Random but legal transform.
		scale := 1 + rng.Float64()*4
		tr.SetScaleAtPoint(scale, geometry.Point2D{X: rng.Float64() * 1600, Y: rng.Float64() * 2400})
		tr.PanBy((rng.Float64()-0.5)*500, (rng.Float64()-0.5)*500)

		p := geometry.Point2D{X: rng.Float64() * 800, Y: rng.Float64() * 600}
		back := tr.ContentToScreen(tr.ScreenToContent(p))
		if math.Abs(back.X-p.X) > 1e-9 || math.Abs(back.Y-p.Y) > 1e-9 {
			t.Fatalf("iteration %d: round trip %+v -> %+v (scale=%v)", i, p, back, tr.Scale())
		}
	}
}

func TestPanByClampsAtEdges(t *testing.T) {
	tr := NewTransform(DefaultLimits())
	tr.SetGeometry(wideGeom())

	if changed := tr.PanBy(50, 50); changed {
		t.Error("pan up-left from origin should hit the clamp and not move")
	}

	if changed := tr.PanBy(-100, -200); !changed {
		t.Error("pan into legal range should move")
	}
	x, y := tr.Translate()
	if x != -100 || y != -200 {
		t.Errorf("translate = (%v, %v), want (-100, -200)", x, y)
	}

	// Far past the bottom-right limit.
	tr.PanBy(-1e6, -1e6)
	x, y = tr.Translate()
	if x != -800 || y != -1800 {
		t.Errorf("translate = (%v, %v), want (-800, -1800)", x, y)
	}
}

func TestResetRestoresIdentity(t *testing.T) {
	tr := NewTransform(DefaultLimits())
	tr.SetGeometry(wideGeom())

	tr.SetScaleAtPoint(3, geometry.Point2D{X: 200, Y: 200})
	tr.PanBy(-40, -350)
	tr.Reset()

	if tr.Scale() != 1 {
		t.Errorf("scale after Reset = %v, want 1", tr.Scale())
	}
	x, y := tr.Translate()
	if x != 0 || y != 0 {
		t.Errorf("translate after Reset = (%v, %v), want (0, 0)", x, y)
	}
}

func TestDegenerateGeometryIdentity(t *testing.T) {
	tr := NewTransform(DefaultLimits())
	// No geometry set: everything short-circuits to the identity.

	p := geometry.Point2D{X: 123, Y: 456}
	if got := tr.ScreenToContent(p); got != p {
		t.Errorf("ScreenToContent() = %+v, want identity", got)
	}
	if got := tr.ContentToScreen(p); got != p {
		t.Errorf("ContentToScreen() = %+v, want identity", got)
	}

	tr.SetScaleAtPoint(3, p)
	if tr.Scale() != 1 {
		t.Errorf("scale = %v, want 1 while degenerate", tr.Scale())
	}
	if tr.PanBy(10, 10) {
		t.Error("PanBy should be a no-op while degenerate")
	}
}

func TestSetGeometryRelegalizes(t *testing.T) {
	tr := NewTransform(DefaultLimits())
	tr.SetGeometry(wideGeom())
	tr.PanBy(-800, -1800)

	// Shrinking the content pulls the translate back into range.
	tr.SetGeometry(Geometry{ViewportWidth: 800, ViewportHeight: 600, ContentWidth: 800, ContentHeight: 700})
	x, y := tr.Translate()
	if x != 0 {
		t.Errorf("translateX = %v, want 0", x)
	}
	if y < -100 || y > 0 {
		t.Errorf("translateY = %v, want within [-100, 0]", y)
	}
}

func TestAffineMatchesConversions(t *testing.T) {
	tr := NewTransform(DefaultLimits())
	tr.SetGeometry(wideGeom())
	tr.SetScaleAtPoint(2, geometry.Point2D{X: 300, Y: 200})
	tr.PanBy(-37, -91)

	af := tr.Affine()
	points := []geometry.Point2D{{}, {X: 100, Y: 50}, {X: 1600, Y: 2400}}
	for _, p := range points {
		want := tr.ContentToScreen(p)
		got := af.Apply(p)
		if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
			t.Errorf("Affine().Apply(%+v) = %+v, want %+v", p, got, want)
		}
	}

	inv, ok := af.Inverse()
	if !ok {
		t.Fatal("affine should be invertible")
	}
	p := geometry.Point2D{X: 400, Y: 300}
	want := tr.ScreenToContent(p)
	got := inv.Apply(p)
	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
		t.Errorf("inverse affine mismatch: got %+v, want %+v", got, want)
	}
}
