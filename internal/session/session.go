// Package session persists per-document reading state in a sidecar
// file next to the document.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Ext is the sidecar extension, appended to the full document name so
// documents differing only by extension keep separate sessions.
const Ext = ".pfsession"

// File is the persisted reading state for one document: where the
// reader was, not what they drew. Annotations live only for the life of
// the open document.
type File struct {
	Version  int       `json:"version"`
	Document string    `json:"document"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	Page     int     `json:"page"`
	Scale    float64 `json:"scale,omitempty"`
	ViewMode string  `json:"view_mode,omitempty"`
	Tool     string  `json:"tool,omitempty"`
}

// New creates a fresh session for the given document path.
func New(docPath string) *File {
	now := time.Now()
	return &File{
		Version:  1,
		Document: filepath.Base(docPath),
		Created:  now,
		Modified: now,
		Page:     1,
		Scale:    1,
		ViewMode: "continuous",
	}
}

// PathFor returns the sidecar path for a document.
func PathFor(docPath string) string {
	return docPath + Ext
}

// Load reads a session file. Out-of-range fields are normalized so a
// hand-edited or stale sidecar cannot wedge the viewer.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Scale <= 0 {
		f.Scale = 1
	}
	return &f, nil
}

// LoadFor reads the session sidecar for a document, if one exists.
// A missing sidecar returns a fresh session and no error.
func LoadFor(docPath string) (*File, error) {
	f, err := Load(PathFor(docPath))
	if os.IsNotExist(err) {
		return New(docPath), nil
	}
	return f, err
}

// Save writes the session to a file.
func (f *File) Save(path string) error {
	f.Modified = time.Now()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SaveFor writes the session next to its document.
func (f *File) SaveFor(docPath string) error {
	return f.Save(PathFor(docPath))
}
