// Package app provides application lifecycle management, state, and events.
package app

import (
	"fmt"
	"log"
	"sync"

	"pageflow/internal/document"
	"pageflow/internal/engine"
	"pageflow/internal/session"
)

// State holds the open document, its reading session, and event
// listeners. UI components subscribe via On and react to Emit calls
// rather than polling.
type State struct {
	mu sync.RWMutex

	// Document
	DocPath  string
	Doc      document.Document
	Session  *session.File
	Modified bool

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventDocumentLoaded EventType = iota
	EventDocumentClosed
	EventDocumentChangedOnDisk
	EventStatusChanged
	EventAnnotationAdded
	EventModified
	EventSessionSaved
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates a new application state.
func NewState() *State {
	return &State{
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the session as having unsaved changes. Listeners
// only hear transitions, not repeats.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	if s.Modified == modified {
		s.mu.Unlock()
		return
	}
	s.Modified = modified
	s.mu.Unlock()
	s.Emit(EventModified, modified)
}

// OpenDocument loads a document and its reading session, replacing any
// open one. The previous document is closed without saving; call
// CloseDocument first to keep its session.
func (s *State) OpenDocument(path string) error {
	doc, err := document.Open(path)
	if err != nil {
		return err
	}

	sess, err := session.LoadFor(path)
	if err != nil {
		// A corrupt sidecar must not block opening the document.
		sess = session.New(path)
	}

	s.mu.Lock()
	old := s.Doc
	s.DocPath = path
	s.Doc = doc
	s.Session = sess
	s.Modified = false
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}

	log.Printf("Opened %s (%d pages)", path, doc.PageCount())
	s.Emit(EventDocumentLoaded, path)
	return nil
}

// ReloadDocument re-opens the current document from disk, keeping the
// in-memory session so the reading position survives the reload.
func (s *State) ReloadDocument() error {
	s.mu.RLock()
	path := s.DocPath
	s.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("no document open")
	}

	doc, err := document.Open(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.Doc
	s.Doc = doc
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}

	log.Printf("Reloaded %s from disk", path)
	s.Emit(EventDocumentLoaded, path)
	return nil
}

// CloseDocument saves the session sidecar and closes the document.
func (s *State) CloseDocument() error {
	s.mu.Lock()
	path := s.DocPath
	doc := s.Doc
	sess := s.Session
	s.DocPath = ""
	s.Doc = nil
	s.Session = nil
	s.Modified = false
	s.mu.Unlock()

	if doc == nil {
		return nil
	}

	var err error
	if sess != nil {
		err = sess.SaveFor(path)
	}
	if cerr := doc.Close(); err == nil {
		err = cerr
	}

	log.Printf("Closed %s", path)
	s.Emit(EventDocumentClosed, path)
	return err
}

// HasDocument reports whether a document is open.
func (s *State) HasDocument() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Doc != nil
}

// Document returns the open document, or nil.
func (s *State) Document() document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Doc
}

// DocumentPath returns the open document's path, or "".
func (s *State) DocumentPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DocPath
}

// CurrentSession returns the session for the open document, or nil.
func (s *State) CurrentSession() *session.File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Session
}

// RecordView folds the engine's reported status into the session for
// the next save and marks the session modified.
func (s *State) RecordView(st engine.Status) {
	s.mu.Lock()
	sess := s.Session
	if sess != nil {
		if st.Page > 0 {
			sess.Page = st.Page
		}
		sess.Scale = st.Scale
		sess.ViewMode = st.Mode.String()
		sess.Tool = st.Tool.String()
	}
	s.mu.Unlock()

	if sess != nil {
		s.SetModified(true)
	}
	s.Emit(EventStatusChanged, st)
}

// SaveSession writes the session sidecar without closing the document.
func (s *State) SaveSession() error {
	s.mu.RLock()
	path := s.DocPath
	sess := s.Session
	s.mu.RUnlock()

	if path == "" || sess == nil {
		return fmt.Errorf("no document open")
	}
	if err := sess.SaveFor(path); err != nil {
		return err
	}

	log.Printf("Saved session %s", session.PathFor(path))
	s.SetModified(false)
	s.Emit(EventSessionSaved, session.PathFor(path))
	return nil
}
