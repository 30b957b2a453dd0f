package app

import (
	"os"
	"path/filepath"
	"time"
)

// Watcher polls a file's modification time and fires a callback once
// when it changes. The main window uses it to offer a reload when the
// open document is rewritten on disk.
type Watcher struct {
	path     string
	baseline time.Time
	interval time.Duration
	stopCh   chan struct{}
	onChange func(path string)
}

// NewWatcher creates a watcher for path with the given poll interval.
// Returns nil if the file cannot be observed.
func NewWatcher(path string, interval time.Duration) *Watcher {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{
		path:     path,
		baseline: info.ModTime(),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// OnChange sets the callback invoked when the file changes. The
// callback runs on a background goroutine - use appropriate
// synchronization if updating UI.
func (w *Watcher) OnChange(callback func(path string)) {
	w.onChange = callback
}

// Start begins watching in a background goroutine. Calling Start again
// after the loop fired rearms the watch.
func (w *Watcher) Start() {
	// Fresh stop channel in case the previous loop already exited.
	w.stopCh = make(chan struct{})
	go w.watchLoop()
}

// Stop stops the watcher goroutine.
func (w *Watcher) Stop() {
	close(w.stopCh)
}

// Path returns the watched file path.
func (w *Watcher) Path() string {
	return w.path
}

func (w *Watcher) watchLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.changed() && w.onChange != nil {
				w.onChange(w.path)
				// Only fire once - the owner calls ResetBaseline
				// and Start to rearm after handling the change.
				return
			}
		}
	}
}

func (w *Watcher) changed() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		// Editors often replace files by rename; the path can be
		// briefly missing mid-save.
		return false
	}
	return info.ModTime().After(w.baseline)
}

// ResetBaseline updates the baseline to the file's current mod time.
// Call this after handling a change, or when the user declines a
// reload, to avoid repeated notifications.
func (w *Watcher) ResetBaseline() {
	if info, err := os.Stat(w.path); err == nil {
		w.baseline = info.ModTime()
	}
}
