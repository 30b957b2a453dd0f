// Command pagesnap rasterizes one page of a document to a PNG file.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"

	"pageflow/internal/document"
	"pageflow/internal/session"
)

func main() {
	docPath := flag.String("doc", "", "Path to a document (markdown, text, or image)")
	page := flag.Int("page", 1, "Page number, starting at 1")
	scale := flag.Float64("scale", 1.0, "Render scale; 1 is natural size")
	out := flag.String("out", "page.png", "Output PNG path")
	flag.Parse()

	if *docPath == "" {
		fmt.Println("Usage: pagesnap -doc <path> [-page 1] [-scale 1.0] [-out page.png]")
		os.Exit(1)
	}

	doc, err := document.Open(*docPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open document: %v\n", err)
		os.Exit(1)
	}
	defer doc.Close()

	fmt.Printf("Loaded %q: %d pages\n", doc.Title(), doc.PageCount())

	if *page < 1 || *page > doc.PageCount() {
		fmt.Fprintf(os.Stderr, "Page %d out of range (document has %d)\n", *page, doc.PageCount())
		os.Exit(1)
	}

	size, err := doc.PageSize(*page)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to measure page: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Page %d: %.0fx%.0f at scale 1, rendering at %.2f\n", *page, size.Width, size.Height, *scale)

	img, err := doc.RenderPage(*page, *scale)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render page: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode PNG: %v\n", err)
		os.Exit(1)
	}

	b := img.Bounds()
	fmt.Printf("Wrote %s (%dx%d px)\n", *out, b.Dx(), b.Dy())

	// A sidecar next to the document records where the reader left off.
	if sess, err := session.Load(session.PathFor(*docPath)); err == nil {
		fmt.Printf("Session: last page %d, scale %.2f, view mode %s\n",
			sess.Page, sess.Scale, sess.ViewMode)
	}
}
