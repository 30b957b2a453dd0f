// Package panels provides side panels for the main window.
package panels

import (
	"fmt"
	"sort"
	"sync"

	"pageflow/internal/annotation"
	"pageflow/internal/engine"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const maxNotePreview = 48

// noteRow is one list entry, resolved to a page for jump-to-page.
type noteRow struct {
	kind annotation.Kind
	page int
	text string
}

// NotesPanel lists every annotation in the open document. Selecting a
// row scrolls the view to that annotation's page.
type NotesPanel struct {
	eng       *engine.Engine
	container fyne.CanvasObject

	list       *widget.List
	countLabel *widget.Label

	mu   sync.Mutex
	rows []noteRow
}

// NewNotesPanel creates the annotations panel bound to the engine.
func NewNotesPanel(eng *engine.Engine) *NotesPanel {
	np := &NotesPanel{
		eng:        eng,
		countLabel: widget.NewLabel("No annotations"),
	}

	np.list = widget.NewList(
		func() int {
			np.mu.Lock()
			defer np.mu.Unlock()
			return len(np.rows)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("Page 999: annotation")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			label := obj.(*widget.Label)
			np.mu.Lock()
			defer np.mu.Unlock()
			if int(id) < len(np.rows) {
				row := np.rows[id]
				label.SetText(fmt.Sprintf("Page %d: %s", row.page, row.text))
			}
		},
	)

	np.list.OnSelected = func(id widget.ListItemID) {
		np.mu.Lock()
		var page int
		if int(id) < len(np.rows) {
			page = np.rows[id].page
		}
		np.mu.Unlock()
		if page > 0 {
			np.eng.GotoPage(page)
		}
		// Unselect so tapping the same row jumps again.
		np.list.Unselect(id)
	}

	np.container = container.NewBorder(np.countLabel, nil, nil, nil, np.list)
	return np
}

// Container returns the panel container.
func (np *NotesPanel) Container() fyne.CanvasObject {
	return np.container
}

// Reload rebuilds the list from the engine's annotation store.
func (np *NotesPanel) Reload() {
	anchors := np.eng.AllAnchors()
	highlights := np.eng.AllHighlights()
	strokes := np.eng.AllStrokes()

	rows := make([]noteRow, 0, len(anchors)+len(highlights)+len(strokes))
	for _, a := range anchors {
		rows = append(rows, noteRow{annotation.KindAnchor, a.Page, notePreview(a.Note)})
	}
	for _, h := range highlights {
		rows = append(rows, noteRow{annotation.KindHighlight, h.Page, "highlight"})
	}
	for _, s := range strokes {
		rows = append(rows, noteRow{annotation.KindStroke, s.Page, fmt.Sprintf("ink stroke (%d points)", len(s.Points))})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].page != rows[j].page {
			return rows[i].page < rows[j].page
		}
		return rows[i].kind < rows[j].kind
	})

	np.mu.Lock()
	np.rows = rows
	np.mu.Unlock()

	if len(rows) == 0 {
		np.countLabel.SetText("No annotations")
	} else {
		np.countLabel.SetText(fmt.Sprintf("%d annotations", len(rows)))
	}
	np.list.Refresh()
}

// notePreview shortens a note to one list-friendly line.
func notePreview(note string) string {
	if note == "" {
		return "note"
	}
	runes := []rune(note)
	for i, r := range runes {
		if r == '\n' {
			runes = runes[:i]
			break
		}
	}
	if len(runes) > maxNotePreview {
		runes = append(runes[:maxNotePreview], '.', '.', '.')
	}
	return string(runes)
}
