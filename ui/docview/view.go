// Package docview provides the document viewing surface with pan, zoom,
// and annotation painting.
package docview

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"

	"pageflow/internal/document"
	"pageflow/internal/engine"
	"pageflow/internal/gesture"
	"pageflow/pkg/colorutil"
	"pageflow/pkg/geometry"
)

const (
	// Cached page renders are reused until the on-screen size drifts
	// this far from the rendered size.
	renderSlack = 0.25

	// Pages kept in the cache beyond the visible range.
	cacheReach = 1

	arrowStep = 60.0
)

var gutterGray = color.RGBA{R: 0x42, G: 0x46, B: 0x4B, A: 255}

// PageView renders the engine's view of the open document and feeds
// pointer, wheel, and key input back into it. All view state - scale,
// translation, current page, live annotations - lives in the engine;
// the widget is a dumb surface.
type PageView struct {
	widget.BaseWidget

	eng *engine.Engine

	mu    sync.Mutex
	doc   document.Document
	cache map[int]*cachedPage

	raster *fynecanvas.Raster

	// Input plumbing. sawMouse flips once a desktop driver delivers
	// MouseDown; from then on Tapped/DragEnd defer to the mouse path.
	sawMouse    bool
	pointerDown bool
	dragActive  bool
	lastDrag    fyne.Position
	ctrlHeld    bool
	metaHeld    bool
	wheelZooms  bool

	onContext func(ev *fyne.PointEvent)
}

type cachedPage struct {
	img   image.Image
	scale float64
}

// NewPageView creates the viewing surface for the given engine.
func NewPageView(eng *engine.Engine) *PageView {
	v := &PageView{
		eng:   eng,
		cache: make(map[int]*cachedPage),
	}
	v.raster = fynecanvas.NewRaster(v.draw)
	v.raster.ScaleMode = fynecanvas.ImageScalePixels
	v.ExtendBaseWidget(v)
	return v
}

// SetDocument swaps the rendered document, dropping all cached page
// renders. Pass nil to clear the surface.
func (v *PageView) SetDocument(doc document.Document) {
	v.mu.Lock()
	v.doc = doc
	v.cache = make(map[int]*cachedPage)
	v.mu.Unlock()
	v.Refresh()
}

// InvalidatePages drops cached renders so the next paint re-renders
// from the document. Used after a reload from disk.
func (v *PageView) InvalidatePages() {
	v.mu.Lock()
	v.cache = make(map[int]*cachedPage)
	v.mu.Unlock()
	v.Refresh()
}

// OnContextMenu sets the callback for secondary taps on the surface.
func (v *PageView) OnContextMenu(callback func(ev *fyne.PointEvent)) {
	v.onContext = callback
}

// Refresh repaints the surface.
func (v *PageView) Refresh() {
	v.raster.Refresh()
}

// CreateRenderer implements fyne.Widget.
func (v *PageView) CreateRenderer() fyne.WidgetRenderer {
	return &pageViewRenderer{view: v}
}

type pageViewRenderer struct {
	view *PageView
}

func (r *pageViewRenderer) Layout(size fyne.Size) {
	r.view.raster.Resize(size)
	r.view.eng.SetViewportSize(float64(size.Width), float64(size.Height))
}

func (r *pageViewRenderer) MinSize() fyne.Size {
	return fyne.NewSize(160, 120)
}

func (r *pageViewRenderer) Refresh() {
	r.view.raster.Refresh()
}

func (r *pageViewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.view.raster}
}

func (r *pageViewRenderer) Destroy() {}

// --- Input plumbing ---------------------------------------------------

func pointOf(p fyne.Position) geometry.Point2D {
	return geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}
}

func modifierOf(m fyne.KeyModifier) gesture.Modifier {
	var out gesture.Modifier
	if m&fyne.KeyModifierControl != 0 {
		out |= gesture.ModCtrl
	}
	if m&fyne.KeyModifierSuper != 0 {
		out |= gesture.ModMeta
	}
	if m&fyne.KeyModifierShift != 0 {
		out |= gesture.ModShift
	}
	if m&fyne.KeyModifierAlt != 0 {
		out |= gesture.ModAlt
	}
	return out
}

// heldModifiers reports the tracked key state. Scroll events carry no
// modifiers in fyne, so wheel-zoom detection relies on this.
func (v *PageView) heldModifiers() gesture.Modifier {
	var m gesture.Modifier
	if v.ctrlHeld {
		m |= gesture.ModCtrl
	}
	if v.metaHeld {
		m |= gesture.ModMeta
	}
	return m
}

// MouseDown implements desktop.Mouseable. Press timing matters: a
// press must catch a glide immediately, not on release.
func (v *PageView) MouseDown(ev *desktop.MouseEvent) {
	if c := fyne.CurrentApp().Driver().CanvasForObject(v); c != nil {
		c.Focus(v)
	}

	btn := gesture.ButtonPrimary
	if ev.Button == desktop.MouseButtonSecondary {
		btn = gesture.ButtonSecondary
	}

	v.sawMouse = true
	v.pointerDown = true
	v.lastDrag = ev.Position
	v.eng.HandlePointerDown(gesture.PointerEvent{
		ID:     1,
		Pos:    pointOf(ev.Position),
		Button: btn,
		Mod:    modifierOf(ev.Modifier),
	})
}

// MouseUp implements desktop.Mouseable.
func (v *PageView) MouseUp(ev *desktop.MouseEvent) {
	if !v.pointerDown {
		return
	}
	v.pointerDown = false
	v.eng.HandlePointerUp(gesture.PointerEvent{
		ID:  1,
		Pos: pointOf(ev.Position),
		Mod: modifierOf(ev.Modifier),
	})
}

// Dragged implements fyne.Draggable. On desktop the press already came
// through MouseDown; on touch drivers the first drag event stands in
// for it.
func (v *PageView) Dragged(ev *fyne.DragEvent) {
	if !v.pointerDown && !v.dragActive {
		v.dragActive = true
		start := fyne.NewPos(ev.Position.X-ev.Dragged.DX, ev.Position.Y-ev.Dragged.DY)
		v.eng.HandlePointerDown(gesture.PointerEvent{ID: 1, Pos: pointOf(start)})
	}
	v.lastDrag = ev.Position
	v.eng.HandlePointerMove(gesture.PointerEvent{
		ID:  1,
		Pos: pointOf(ev.Position),
		Mod: v.heldModifiers(),
	})
}

// DragEnd implements fyne.Draggable. Desktop releases arrive via
// MouseUp instead.
func (v *PageView) DragEnd() {
	if !v.dragActive {
		return
	}
	v.dragActive = false
	v.eng.HandlePointerUp(gesture.PointerEvent{ID: 1, Pos: pointOf(v.lastDrag)})
}

// Tapped implements fyne.Tappable for drivers without Mouseable. The
// engine does its own tap and double-tap detection from down/up pairs.
func (v *PageView) Tapped(ev *fyne.PointEvent) {
	if v.sawMouse {
		return
	}
	p := pointOf(ev.Position)
	v.eng.HandlePointerDown(gesture.PointerEvent{ID: 1, Pos: p})
	v.eng.HandlePointerUp(gesture.PointerEvent{ID: 1, Pos: p})
}

// TappedSecondary implements fyne.SecondaryTappable.
func (v *PageView) TappedSecondary(ev *fyne.PointEvent) {
	if v.onContext != nil {
		v.onContext(ev)
	}
}

// Scrolled implements fyne.Scrollable. Deltas are converted to the
// web-style convention the engine expects: positive DeltaY scrolls
// down, zooming in arrives as negative DeltaY with ctrl held.
func (v *PageView) Scrolled(ev *fyne.ScrollEvent) {
	mod := v.heldModifiers()
	// Mice without trackpads can opt into zooming on the bare wheel.
	if v.wheelZooms {
		mod |= gesture.ModCtrl
	}
	v.eng.HandleWheel(gesture.WheelEvent{
		Pos:    pointOf(ev.Position),
		DeltaX: float64(-ev.Scrolled.DX),
		DeltaY: float64(-ev.Scrolled.DY),
		Mod:    mod,
	})
}

// SetWheelZooms makes an unmodified wheel zoom instead of scroll.
func (v *PageView) SetWheelZooms(zoom bool) {
	v.wheelZooms = zoom
}

// KeyDown implements desktop.Keyable, tracking the zoom modifier for
// wheel events.
func (v *PageView) KeyDown(ev *fyne.KeyEvent) {
	switch ev.Name {
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		v.ctrlHeld = true
	case desktop.KeySuperLeft, desktop.KeySuperRight:
		v.metaHeld = true
	}
}

// KeyUp implements desktop.Keyable.
func (v *PageView) KeyUp(ev *fyne.KeyEvent) {
	switch ev.Name {
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		v.ctrlHeld = false
	case desktop.KeySuperLeft, desktop.KeySuperRight:
		v.metaHeld = false
	}
}

// FocusGained implements fyne.Focusable.
func (v *PageView) FocusGained() {}

// FocusLost implements fyne.Focusable. Modifier state is unreliable
// once focus moves away.
func (v *PageView) FocusLost() {
	v.ctrlHeld = false
	v.metaHeld = false
}

// TypedRune implements fyne.Focusable.
func (v *PageView) TypedRune(r rune) {}

// TypedKey implements fyne.Focusable, handling reading navigation.
func (v *PageView) TypedKey(ev *fyne.KeyEvent) {
	pageStep := float64(v.Size().Height) * 0.9

	switch ev.Name {
	case fyne.KeyDown:
		v.eng.ScrollBy(0, -arrowStep)
	case fyne.KeyUp:
		v.eng.ScrollBy(0, arrowStep)
	case fyne.KeyLeft:
		v.eng.ScrollBy(arrowStep, 0)
	case fyne.KeyRight:
		v.eng.ScrollBy(-arrowStep, 0)
	case fyne.KeyPageDown, fyne.KeySpace:
		v.eng.ScrollBy(0, -pageStep)
	case fyne.KeyPageUp:
		v.eng.ScrollBy(0, pageStep)
	case fyne.KeyHome:
		v.eng.GotoPage(1)
	case fyne.KeyEnd:
		v.eng.GotoPage(v.eng.Status().PageCount)
	case fyne.KeyEscape:
		v.eng.CancelGestures()
	}
}

// Cursor implements desktop.Cursorable.
func (v *PageView) Cursor() desktop.Cursor {
	switch v.eng.Tool() {
	case gesture.ToolDraw, gesture.ToolHighlight, gesture.ToolErase:
		return desktop.CrosshairCursor
	default:
		return desktop.DefaultCursor
	}
}

// --- Painting ---------------------------------------------------------

// draw is the raster drawing function. w and h are device pixels while
// engine coordinates are in points; ratio bridges the two.
func (v *PageView) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(gutterGray), image.Point{}, draw.Src)

	size := v.Size()
	if w <= 0 || h <= 0 || size.Width <= 0 {
		return out
	}
	ratio := float64(w) / float64(size.Width)

	visible := v.eng.VisiblePages()
	for _, page := range visible {
		sr, ok := v.eng.PageRectOnScreen(page)
		if !ok {
			continue
		}
		px := pixelRect(sr, ratio)
		if px.Empty() {
			continue
		}
		v.drawPage(out, page, px)
		v.drawAnnotations(out, page, px)
	}

	if page, pts, ok := v.eng.ActiveStroke(); ok {
		if sr, ok := v.eng.PageRectOnScreen(page); ok {
			drawActiveStroke(out, pts, pixelRect(sr, ratio))
		}
	}
	if page, rect, ok := v.eng.ActiveSelection(); ok {
		if sr, ok := v.eng.PageRectOnScreen(page); ok {
			drawDashedRect(out, normRectToPixels(rect, pixelRect(sr, ratio)), colorutil.Highlighter)
		}
	}

	v.pruneCache(visible)
	return out
}

// drawPage paints the paper fill, the rendered page, and a hairline
// edge into the page's pixel rect.
func (v *PageView) drawPage(out *image.RGBA, page int, px image.Rectangle) {
	draw.Draw(out, px, image.NewUniform(colorutil.Paper), image.Point{}, draw.Src)

	if img := v.pageImage(page, px.Dx()); img != nil {
		xdraw.ApproxBiLinear.Scale(out, px, img, img.Bounds(), xdraw.Src, nil)
	}

	drawRectOutline(out, px, colorutil.PageShadow, 1)
}

// pageImage returns a render of the page close to wantPx wide, reusing
// the cache while the size is within renderSlack.
func (v *PageView) pageImage(page, wantPx int) image.Image {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.doc == nil || wantPx <= 0 {
		return nil
	}
	nat, err := v.doc.PageSize(page)
	if err != nil || nat.Width <= 0 {
		return nil
	}
	want := float64(wantPx) / nat.Width

	if c, ok := v.cache[page]; ok {
		if math.Abs(c.scale-want) <= c.scale*renderSlack {
			return c.img
		}
	}

	img, err := v.doc.RenderPage(page, want)
	if err != nil {
		return nil
	}
	v.cache[page] = &cachedPage{img: img, scale: want}
	return img
}

// pruneCache drops renders beyond the visible range.
func (v *PageView) pruneCache(visible []int) {
	if len(visible) == 0 {
		return
	}
	lo := visible[0] - cacheReach
	hi := visible[len(visible)-1] + cacheReach

	v.mu.Lock()
	for page := range v.cache {
		if page < lo || page > hi {
			delete(v.cache, page)
		}
	}
	v.mu.Unlock()
}

func pixelRect(r geometry.Rect, ratio float64) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X*ratio)),
		int(math.Round(r.Y*ratio)),
		int(math.Round((r.X+r.Width)*ratio)),
		int(math.Round((r.Y+r.Height)*ratio)),
	)
}

// normRectToPixels maps a page-normalized rect into the page's pixel rect.
func normRectToPixels(r geometry.Rect, px image.Rectangle) image.Rectangle {
	w := float64(px.Dx())
	h := float64(px.Dy())
	return image.Rect(
		px.Min.X+int(math.Round(r.X*w)),
		px.Min.Y+int(math.Round(r.Y*h)),
		px.Min.X+int(math.Round((r.X+r.Width)*w)),
		px.Min.Y+int(math.Round((r.Y+r.Height)*h)),
	)
}

// normPointToPixels maps a page-normalized point into the page's pixel rect.
func normPointToPixels(p geometry.Point2D, px image.Rectangle) image.Point {
	return image.Point{
		X: px.Min.X + int(math.Round(p.X*float64(px.Dx()))),
		Y: px.Min.Y + int(math.Round(p.Y*float64(px.Dy()))),
	}
}
