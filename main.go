// Package main provides the entry point for the Pageflow document viewer.
package main

import (
	"log"
	"os"

	"pageflow/internal/app"
	"pageflow/internal/document"
	"pageflow/internal/version"
	"pageflow/ui/mainwindow"
	"pageflow/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s", version.String())

	fyneApp := fyneapp.NewWithID("io.pageflow.viewer")
	fyneApp.Settings().SetTheme(&app.ReaderTheme{})

	appState := app.NewState()
	appPrefs := prefs.Load()

	win := mainwindow.New(fyneApp, appState, appPrefs)

	// Handle command line arguments
	if len(os.Args) > 1 {
		path := os.Args[1]
		if !document.IsSupportedFormat(path) {
			log.Printf("Unsupported document type: %s", path)
		} else if err := appState.OpenDocument(path); err != nil {
			log.Printf("Failed to open %s: %v", path, err)
		}
	} else {
		win.RestoreLastDocument()
	}

	win.ShowAndRun()
}
