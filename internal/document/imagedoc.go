package document

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"pageflow/pkg/geometry"
)

// ImageDocument presents a single raster image as a one-page document.
type ImageDocument struct {
	path string
	img  image.Image
}

// OpenImage loads an image file as a document.
func OpenImage(path string) (*ImageDocument, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &ImageDocument{path: path, img: img}, nil
}

// Title implements Document.
func (d *ImageDocument) Title() string { return filepath.Base(d.path) }

// PageCount implements Document.
func (d *ImageDocument) PageCount() int { return 1 }

// PageSize implements Document.
func (d *ImageDocument) PageSize(page int) (geometry.Size, error) {
	if page != 1 {
		return geometry.Size{}, pageRangeError(page, 1)
	}
	b := d.img.Bounds()
	return geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
}

// RenderPage implements Document. Scales other than 1 resample with
// Catmull-Rom, which keeps text in scanned pages readable.
func (d *ImageDocument) RenderPage(page int, scale float64) (image.Image, error) {
	if page != 1 {
		return nil, pageRangeError(page, 1)
	}
	if scale <= 0 || scale == 1 {
		return d.img, nil
	}

	b := d.img.Bounds()
	w := int(math.Round(float64(b.Dx()) * scale))
	h := int(math.Round(float64(b.Dy()) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), d.img, b, xdraw.Src, nil)
	return dst, nil
}

// Close implements Document.
func (d *ImageDocument) Close() error { return nil }
