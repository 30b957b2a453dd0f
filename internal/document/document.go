// Package document loads viewable files and rasterizes their pages.
package document

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"pageflow/pkg/geometry"
)

// ErrUnsupported is returned by Open for file types no loader claims.
var ErrUnsupported = errors.New("unsupported document format")

// Document is a paginated, renderable source. Implementations are
// immutable after opening; the viewer queries natural page sizes for
// layout and renders pages at the zoom it needs.
type Document interface {
	// Title is the display name, shown in the window title.
	Title() string
	// PageCount returns the number of pages, at least 1.
	PageCount() int
	// PageSize returns a page's natural size in pixels at scale 1.
	// Pages are numbered from 1.
	PageSize(page int) (geometry.Size, error)
	// RenderPage rasterizes one page at the given scale. Scale 1 means
	// natural size; non-positive scales render at natural size.
	RenderPage(page int, scale float64) (image.Image, error)
	Close() error
}

// Open loads path with the loader matching its extension.
func Open(path string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".tiff", ".tif":
		return OpenImage(path)
	case ".md", ".markdown", ".txt":
		return OpenMarkdown(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// SupportedFormats returns the list of openable file extensions.
func SupportedFormats() []string {
	return []string{".md", ".markdown", ".txt", ".png", ".jpg", ".jpeg", ".tiff", ".tif"}
}

// IsSupportedFormat checks if the given path has a supported extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

func pageRangeError(page, count int) error {
	return fmt.Errorf("page %d out of range [1,%d]", page, count)
}
