// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pageflow/internal/annotation"
	"pageflow/internal/app"
	"pageflow/internal/document"
	"pageflow/internal/engine"
	"pageflow/internal/gesture"
	"pageflow/internal/version"
	"pageflow/pkg/geometry"
	"pageflow/ui/docview"
	"pageflow/ui/panels"
	"pageflow/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	prefKeyLastDir      = "last_directory"
	prefKeyLastFile     = "last_file"
	prefKeyRecentFiles  = "recent_files"
	prefKeyWindowWidth  = "window_width"
	prefKeyWindowHeight = "window_height"
	prefKeyLastTool     = "tool"
	prefKeyWheelZoom    = "wheel_zoom"

	maxRecentFiles = 8
	watchInterval  = 2 * time.Second
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	state *app.State
	prefs *prefs.Prefs

	eng   *engine.Engine
	view  *docview.PageView
	notes *panels.NotesPanel

	statusBar *widget.Label
	pageLabel *widget.Label
	zoomLabel *widget.Label

	watcher *app.Watcher

	// Menu items that need state tracking
	toolItems  map[gesture.ToolMode]*fyne.MenuItem
	modeItems  map[engine.ViewMode]*fyne.MenuItem
	notesItem  *fyne.MenuItem
	wheelItem  *fyne.MenuItem
	recentMenu *fyne.Menu
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow("Pageflow")

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.eng = engine.New(nil, nil, engine.DefaultOptions(), engine.Callbacks{
		Paint: func() {
			if mw.view != nil {
				mw.view.Refresh()
			}
		},
		StatusChanged:       mw.onStatus,
		AnnotationCommitted: mw.onAnnotationCommitted,
	})

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.restoreWindowGeometry()

	if tool := p.String(prefKeyLastTool); tool != "" {
		mw.eng.SetTool(gesture.ToolModeFromString(tool))
	}
	mw.view.SetWheelZooms(p.Bool(prefKeyWheelZoom))

	win.SetCloseIntercept(mw.onClose)

	return mw
}

// Engine exposes the transform engine for startup wiring.
func (mw *MainWindow) Engine() *engine.Engine {
	return mw.eng
}

// OpenPath opens the given document, reporting errors in a dialog.
func (mw *MainWindow) OpenPath(path string) {
	if err := mw.state.OpenDocument(path); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

// RestoreLastDocument reopens the document from the previous run, if
// it is still there.
func (mw *MainWindow) RestoreLastDocument() {
	path := mw.prefs.String(prefKeyLastFile)
	if path == "" || !document.IsSupportedFormat(path) {
		return
	}
	if err := mw.state.OpenDocument(path); err != nil {
		mw.updateStatus("Could not reopen " + filepath.Base(path))
	}
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.view = docview.NewPageView(mw.eng)
	mw.view.OnContextMenu(mw.onContextMenu)

	mw.notes = panels.NewNotesPanel(mw.eng)
	mw.notes.Container().Hide()

	mw.statusBar = widget.NewLabel("Ready")
	mw.pageLabel = widget.NewLabel("No document")
	mw.zoomLabel = widget.NewLabel("100%")

	toolbar := mw.createToolbar()

	statusArea := container.NewBorder(
		nil, nil,
		nil,
		container.NewHBox(mw.pageLabel, mw.zoomLabel),
		mw.statusBar,
	)

	content := container.NewBorder(
		toolbar,                         // top
		container.NewPadded(statusArea), // bottom
		nil,                             // left
		mw.notes.Container(),            // right
		mw.view,                         // center
	)

	mw.SetContent(content)
}

// toggleNotesPanel shows or hides the annotations panel.
func (mw *MainWindow) toggleNotesPanel() {
	c := mw.notes.Container()
	if c.Visible() {
		c.Hide()
	} else {
		mw.notes.Reload()
		c.Show()
	}
	if mw.notesItem != nil {
		mw.notesItem.Checked = c.Visible()
	}
}

// createToolbar creates the toolbar with navigation, zoom, and tool
// controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	openBtn := widget.NewButton("Open...", mw.onOpenDocument)

	prevBtn := widget.NewButton("<", func() {
		mw.eng.GotoPage(mw.eng.CurrentPage() - 1)
	})
	nextBtn := widget.NewButton(">", func() {
		mw.eng.GotoPage(mw.eng.CurrentPage() + 1)
	})

	zoomOutBtn := widget.NewButton("-", mw.eng.ZoomOut)
	zoomInBtn := widget.NewButton("+", mw.eng.ZoomIn)
	fitWidthBtn := widget.NewButton("Fit Width", mw.eng.FitWidth)
	fitPageBtn := widget.NewButton("Fit Page", mw.eng.FitPage)
	actualBtn := widget.NewButton("1:1", mw.eng.ActualSize)

	panBtn := widget.NewButton("Pan", func() { mw.setTool(gesture.ToolPan) })
	drawBtn := widget.NewButton("Draw", func() { mw.setTool(gesture.ToolDraw) })
	highlightBtn := widget.NewButton("Highlight", func() { mw.setTool(gesture.ToolHighlight) })
	eraseBtn := widget.NewButton("Erase", func() { mw.setTool(gesture.ToolErase) })

	return container.NewHBox(
		openBtn,
		widget.NewSeparator(),
		prevBtn,
		nextBtn,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
		fitWidthBtn,
		fitPageBtn,
		actualBtn,
		widget.NewSeparator(),
		panBtn,
		drawBtn,
		highlightBtn,
		eraseBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	mw.recentMenu = fyne.NewMenu("")
	mw.rebuildRecentMenu()
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	recentItem.ChildMenu = mw.recentMenu

	// File menu
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Document...", mw.onOpenDocument),
		recentItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Session", mw.onSaveSession),
		fyne.NewMenuItem("Close Document", mw.onCloseDocument),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.onClose() }),
	)

	// View menu
	mw.modeItems = map[engine.ViewMode]*fyne.MenuItem{
		engine.ViewContinuous: fyne.NewMenuItem("Continuous", func() { mw.eng.SetViewMode(engine.ViewContinuous) }),
		engine.ViewSingle:     fyne.NewMenuItem("Single Page", func() { mw.eng.SetViewMode(engine.ViewSingle) }),
	}
	mw.modeItems[engine.ViewContinuous].Checked = true

	mw.notesItem = fyne.NewMenuItem("Annotations Panel", mw.toggleNotesPanel)

	mw.wheelItem = fyne.NewMenuItem("Zoom with Mouse Wheel", mw.toggleWheelZoom)
	mw.wheelItem.Checked = mw.prefs.Bool(prefKeyWheelZoom)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.eng.ZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.eng.ZoomOut),
		fyne.NewMenuItem("Fit Width", mw.eng.FitWidth),
		fyne.NewMenuItem("Fit Page", mw.eng.FitPage),
		fyne.NewMenuItem("Actual Size", mw.eng.ActualSize),
		fyne.NewMenuItemSeparator(),
		mw.modeItems[engine.ViewContinuous],
		mw.modeItems[engine.ViewSingle],
		fyne.NewMenuItemSeparator(),
		mw.notesItem,
		mw.wheelItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Previous Page", func() { mw.eng.GotoPage(mw.eng.CurrentPage() - 1) }),
		fyne.NewMenuItem("Next Page", func() { mw.eng.GotoPage(mw.eng.CurrentPage() + 1) }),
		fyne.NewMenuItem("Go to Page...", mw.onGotoPage),
	)

	// Tools menu
	mw.toolItems = map[gesture.ToolMode]*fyne.MenuItem{
		gesture.ToolPan:       fyne.NewMenuItem("Pan", func() { mw.setTool(gesture.ToolPan) }),
		gesture.ToolSelect:    fyne.NewMenuItem("Select", func() { mw.setTool(gesture.ToolSelect) }),
		gesture.ToolDraw:      fyne.NewMenuItem("Draw", func() { mw.setTool(gesture.ToolDraw) }),
		gesture.ToolHighlight: fyne.NewMenuItem("Highlight", func() { mw.setTool(gesture.ToolHighlight) }),
		gesture.ToolErase:     fyne.NewMenuItem("Erase", func() { mw.setTool(gesture.ToolErase) }),
	}
	mw.toolItems[gesture.ToolPan].Checked = true

	toolsMenu := fyne.NewMenu("Tools",
		mw.toolItems[gesture.ToolPan],
		mw.toolItems[gesture.ToolSelect],
		mw.toolItems[gesture.ToolDraw],
		mw.toolItems[gesture.ToolHighlight],
		mw.toolItems[gesture.ToolErase],
	)

	// Help menu
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mainMenu := fyne.NewMainMenu(fileMenu, viewMenu, toolsMenu, helpMenu)
	mw.SetMainMenu(mainMenu)
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventDocumentLoaded, func(data interface{}) {
		path, ok := data.(string)
		if !ok {
			return
		}
		mw.view.SetDocument(mw.state.Document())
		mw.configureEngine()
		mw.notes.Reload()
		mw.SetTitle("Pageflow - " + filepath.Base(path))
		mw.updateStatus("Opened " + path)
		mw.rememberFile(path)
		mw.startWatcher(path)
	})

	mw.state.On(app.EventDocumentClosed, func(data interface{}) {
		mw.stopWatcher()
		mw.view.SetDocument(nil)
		mw.eng.OnPageCountKnown(0)
		mw.notes.Reload()
		mw.SetTitle("Pageflow")
		mw.pageLabel.SetText("No document")
		mw.updateStatus("Document closed")
	})

	mw.state.On(app.EventDocumentChangedOnDisk, func(data interface{}) {
		mw.offerReload()
	})

	mw.state.On(app.EventModified, func(data interface{}) {
		if modified, ok := data.(bool); ok && modified {
			title := mw.Title()
			if len(title) > 0 && title[len(title)-1] != '*' {
				mw.SetTitle(title + " *")
			}
		}
	})

	mw.state.On(app.EventSessionSaved, func(data interface{}) {
		title := mw.Title()
		mw.SetTitle(strings.TrimSuffix(title, " *"))
		mw.updateStatus("Session saved")
	})

	mw.state.On(app.EventAnnotationAdded, func(data interface{}) {
		mw.notes.Reload()
		mw.updateStatus(describeAnnotation(data))
	})
}

// configureEngine feeds the open document's geometry into the engine
// and restores the saved view.
func (mw *MainWindow) configureEngine() {
	doc := mw.state.Document()
	sess := mw.state.CurrentSession()
	if doc == nil {
		return
	}

	count := doc.PageCount()
	mw.eng.OnPageCountKnown(count)
	if sz, err := doc.PageSize(1); err == nil {
		mw.eng.OnFirstPageNaturalSize(sz.Width, sz.Height)
	}
	for page := 2; page <= count; page++ {
		if sz, err := doc.PageSize(page); err == nil {
			mw.eng.SetPageSize(page, sz.Width, sz.Height)
		}
	}

	if sess == nil {
		return
	}
	mw.eng.SetViewMode(engine.ViewModeFromString(sess.ViewMode))
	mw.eng.SetTool(gesture.ToolModeFromString(sess.Tool))
	// Zoom before goto: the goto translate depends on the scale.
	mw.eng.SetZoom(sess.Scale)
	mw.eng.GotoPage(sess.Page)
}

// onStatus handles engine status reports: labels, menu checkmarks, and
// the session record.
func (mw *MainWindow) onStatus(st engine.Status) {
	if st.PageCount > 0 {
		mw.pageLabel.SetText(fmt.Sprintf("Page %d / %d", st.Page, st.PageCount))
	}
	mw.zoomLabel.SetText(fmt.Sprintf("%.0f%%", st.Scale*100))

	for mode, item := range mw.modeItems {
		item.Checked = mode == st.Mode
	}
	for tool, item := range mw.toolItems {
		item.Checked = tool == st.Tool
	}

	if mw.state.HasDocument() {
		mw.state.RecordView(st)
	}
}

// onAnnotationCommitted fans the commit out to application listeners.
func (mw *MainWindow) onAnnotationCommitted(c annotation.Committed) {
	mw.state.Emit(app.EventAnnotationAdded, c)
}

func describeAnnotation(data interface{}) string {
	switch a := data.(type) {
	case annotation.Stroke:
		return fmt.Sprintf("Ink stroke on page %d", a.Page)
	case annotation.Highlight:
		return fmt.Sprintf("Highlight on page %d", a.Page)
	case annotation.Anchor:
		return fmt.Sprintf("Note anchored on page %d", a.Page)
	case annotation.Committed:
		return fmt.Sprintf("Annotation on page %d", a.PageNumber())
	}
	return "Annotation added"
}

func (mw *MainWindow) setTool(tool gesture.ToolMode) {
	mw.eng.SetTool(tool)
	mw.prefs.SetString(prefKeyLastTool, tool.String())
}

// toggleWheelZoom flips whether a bare wheel zooms or scrolls.
func (mw *MainWindow) toggleWheelZoom() {
	zoom := !mw.prefs.Bool(prefKeyWheelZoom)
	mw.prefs.SetBool(prefKeyWheelZoom, zoom)
	mw.view.SetWheelZooms(zoom)
	mw.wheelItem.Checked = zoom
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// --- Document watching ------------------------------------------------

func (mw *MainWindow) startWatcher(path string) {
	mw.stopWatcher()
	w := app.NewWatcher(path, watchInterval)
	if w == nil {
		return
	}
	w.OnChange(func(p string) {
		mw.state.Emit(app.EventDocumentChangedOnDisk, p)
	})
	w.Start()
	mw.watcher = w
}

func (mw *MainWindow) stopWatcher() {
	if mw.watcher != nil {
		mw.watcher.Stop()
		mw.watcher = nil
	}
}

// offerReload asks whether to reload a document rewritten on disk.
func (mw *MainWindow) offerReload() {
	w := mw.watcher
	if w == nil {
		return
	}
	dialog.ShowConfirm("Document Changed",
		"The document has been modified on disk.\nReload it? Your reading position is kept; annotations are cleared.",
		func(reload bool) {
			if reload {
				mw.view.InvalidatePages()
				if err := mw.state.ReloadDocument(); err != nil {
					dialog.ShowError(err, mw.Window)
				}
				return
			}
			// Declined: accept the on-disk state and keep watching.
			w.ResetBaseline()
			w.Start()
		}, mw.Window)
}

// --- Preferences ------------------------------------------------------

func (mw *MainWindow) restoreWindowGeometry() {
	width := mw.prefs.FloatWithFallback(prefKeyWindowWidth, 1100)
	height := mw.prefs.FloatWithFallback(prefKeyWindowHeight, 800)
	mw.Resize(fyne.NewSize(float32(width), float32(height)))
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// rememberFile records the opened file in preferences and the recent
// files list.
func (mw *MainWindow) rememberFile(path string) {
	mw.prefs.SetString(prefKeyLastFile, path)
	mw.prefs.SetString(prefKeyLastDir, filepath.Dir(path))

	recents := []string{path}
	for _, r := range mw.prefs.Strings(prefKeyRecentFiles) {
		if r != path && len(recents) < maxRecentFiles {
			recents = append(recents, r)
		}
	}
	mw.prefs.SetStrings(prefKeyRecentFiles, recents)
	mw.rebuildRecentMenu()
}

func (mw *MainWindow) rebuildRecentMenu() {
	recents := mw.prefs.Strings(prefKeyRecentFiles)
	items := make([]*fyne.MenuItem, 0, len(recents))
	for _, path := range recents {
		p := path
		items = append(items, fyne.NewMenuItem(filepath.Base(p), func() {
			mw.OpenPath(p)
		}))
	}
	if len(items) == 0 {
		empty := fyne.NewMenuItem("(empty)", nil)
		empty.Disabled = true
		items = append(items, empty)
	}
	mw.recentMenu.Items = items
}

// --- Menu action handlers ---------------------------------------------

func (mw *MainWindow) onOpenDocument() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		mw.OpenPath(reader.URI().Path())
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(document.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveSession() {
	if !mw.state.HasDocument() {
		mw.updateStatus("No document open")
		return
	}
	if err := mw.state.SaveSession(); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onCloseDocument() {
	if err := mw.state.CloseDocument(); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onGotoPage() {
	count := mw.eng.Status().PageCount
	if count == 0 {
		mw.updateStatus("No document open")
		return
	}

	entry := widget.NewEntry()
	entry.SetPlaceHolder(fmt.Sprintf("1-%d", count))
	dialog.ShowForm("Go to Page", "Go", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Page", entry)},
		func(ok bool) {
			if !ok {
				return
			}
			n, err := strconv.Atoi(strings.TrimSpace(entry.Text))
			if err != nil {
				return
			}
			mw.eng.GotoPage(n)
		}, mw.Window)
}

// onContextMenu offers annotation actions at the pointed location.
func (mw *MainWindow) onContextMenu(ev *fyne.PointEvent) {
	pos := geometry.Point2D{X: float64(ev.Position.X), Y: float64(ev.Position.Y)}
	page, norm, ok := mw.eng.LocatePoint(pos)
	if !ok {
		return
	}

	noteItem := fyne.NewMenuItem("Add Note Here...", func() {
		entry := widget.NewEntry()
		dialog.ShowForm("Add Note", "Add", "Cancel",
			[]*widget.FormItem{widget.NewFormItem("Note", entry)},
			func(confirmed bool) {
				if !confirmed {
					return
				}
				mw.eng.CommitAnchor(page, norm, strings.TrimSpace(entry.Text))
			}, mw.Window)
	})

	menu := fyne.NewMenu("", noteItem)
	pop := widget.NewPopUpMenu(menu, mw.Canvas())
	pop.ShowAtPosition(ev.AbsolutePosition)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Pageflow",
		fmt.Sprintf("%s\n\n"+
			"A paginated document reader with smooth zoom,\n"+
			"pan, and inline annotation.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.String(), version.BuildTime, version.GitCommit),
		mw.Window)
}

// onClose saves everything and shuts down.
func (mw *MainWindow) onClose() {
	size := mw.Canvas().Size()
	mw.prefs.SetFloat(prefKeyWindowWidth, float64(size.Width))
	mw.prefs.SetFloat(prefKeyWindowHeight, float64(size.Height))

	mw.stopWatcher()
	if err := mw.state.CloseDocument(); err != nil {
		fyne.LogError("closing document", err)
	}
	mw.eng.Close()
	if err := mw.prefs.Save(); err != nil {
		fyne.LogError("saving preferences", err)
	}

	mw.Window.Close()
}
