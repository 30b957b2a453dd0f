package document

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"pageflow/pkg/geometry"
)

// Markdown pages use US letter dimensions in pixels at scale 1 and a
// fixed-advance face, so pagination is deterministic.
const (
	mdPageWidth  = 612
	mdPageHeight = 792
	mdMargin     = 54
	mdLineHeight = 18
	mdCharWidth  = 7 // basicfont.Face7x13 advance

	mdLinesPerPage = (mdPageHeight - 2*mdMargin) / mdLineHeight
)

// mdLine is one laid-out row of a page.
type mdLine struct {
	text    string
	indent  float64 // px past the left margin
	heading int     // 0 body, otherwise heading level
	rule    bool    // horizontal rule instead of text
	code    bool    // monospace block styling
}

// MarkdownDocument is a markdown or plain text file paginated into
// letter-sized pages. Plain text routes through the same parser, which
// treats it as a sequence of paragraphs.
type MarkdownDocument struct {
	title string
	pages [][]mdLine
}

// OpenMarkdown loads and paginates a markdown or text file.
func OpenMarkdown(path string) (*MarkdownDocument, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return parseMarkdown(filepath.Base(path), src), nil
}

// parseMarkdown builds a document from source. The fallback title is
// used when the document has no leading level-1 heading.
func parseMarkdown(fallbackTitle string, src []byte) *MarkdownDocument {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	c := &mdCollector{source: src}
	c.blocks(root, 0)
	if c.title == "" {
		c.title = fallbackTitle
	}
	return &MarkdownDocument{title: c.title, pages: paginate(c.lines)}
}

// Title implements Document.
func (d *MarkdownDocument) Title() string { return d.title }

// PageCount implements Document.
func (d *MarkdownDocument) PageCount() int { return len(d.pages) }

// PageSize implements Document.
func (d *MarkdownDocument) PageSize(page int) (geometry.Size, error) {
	if page < 1 || page > len(d.pages) {
		return geometry.Size{}, pageRangeError(page, len(d.pages))
	}
	return geometry.Size{Width: mdPageWidth, Height: mdPageHeight}, nil
}

// RenderPage implements Document. The page is typeset at natural size
// and resampled when another scale is asked for.
func (d *MarkdownDocument) RenderPage(page int, scale float64) (image.Image, error) {
	if page < 1 || page > len(d.pages) {
		return nil, pageRangeError(page, len(d.pages))
	}

	base := image.NewRGBA(image.Rect(0, 0, mdPageWidth, mdPageHeight))
	draw.Draw(base, base.Bounds(), image.White, image.Point{}, draw.Src)

	ink := image.NewUniform(color.RGBA{R: 34, G: 34, B: 34, A: 255})
	codeBG := &image.Uniform{C: color.RGBA{R: 242, G: 242, B: 242, A: 255}}
	ruleCol := &image.Uniform{C: color.RGBA{R: 189, G: 189, B: 189, A: 255}}

	y := mdMargin
	for _, ln := range d.pages[page-1] {
		y += mdLineHeight
		x := mdMargin + int(ln.indent)
		baseline := y - 4

		switch {
		case ln.rule:
			r := image.Rect(x, baseline-4, mdPageWidth-mdMargin, baseline-3)
			draw.Draw(base, r, ruleCol, image.Point{}, draw.Src)
		case ln.text == "":
			// spacer row
		default:
			if ln.code {
				r := image.Rect(x-3, y-mdLineHeight+3, x+len(ln.text)*mdCharWidth+3, y+1)
				draw.Draw(base, r, codeBG, image.Point{}, draw.Src)
			}
			dr := &font.Drawer{Dst: base, Src: ink, Face: basicfont.Face7x13, Dot: fixed.P(x, baseline)}
			dr.DrawString(ln.text)
			if ln.heading > 0 {
				// Single-size face, so headings get a faux-bold second pass.
				dr.Dot = fixed.P(x+1, baseline)
				dr.DrawString(ln.text)
			}
		}
	}

	if scale <= 0 || scale == 1 {
		return base, nil
	}
	w := int(math.Round(mdPageWidth * scale))
	h := int(math.Round(mdPageHeight * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), base, base.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// Close implements Document.
func (d *MarkdownDocument) Close() error { return nil }

// mdCollector flattens the goldmark AST into styled lines.
type mdCollector struct {
	source []byte
	lines  []mdLine
	title  string
}

func (c *mdCollector) blocks(node ast.Node, indent float64) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Heading:
			c.heading(n, indent)
		case *ast.Paragraph:
			c.wrapped(blockText(n, c.source), indent, 0)
			c.blank()
		case *ast.TextBlock:
			c.wrapped(blockText(n, c.source), indent, 0)
		case *ast.List:
			c.list(n, indent)
			c.blank()
		case *ast.FencedCodeBlock:
			c.codeLines(n.Lines(), indent)
			c.blank()
		case *ast.CodeBlock:
			c.codeLines(n.Lines(), indent)
			c.blank()
		case *ast.ThematicBreak:
			c.lines = append(c.lines, mdLine{rule: true, indent: indent})
			c.blank()
		case *ast.Blockquote:
			c.blocks(n, indent+2*mdCharWidth)
		}
	}
}

func (c *mdCollector) heading(n *ast.Heading, indent float64) {
	t := blockText(n, c.source)
	if c.title == "" && n.Level == 1 && t != "" {
		c.title = t
	}
	if len(c.lines) > 0 {
		c.blank()
	}
	c.lines = append(c.lines, mdLine{text: t, indent: indent, heading: n.Level})
	if n.Level <= 2 {
		c.lines = append(c.lines, mdLine{rule: true, indent: indent})
	}
	c.blank()
}

func (c *mdCollector) list(n *ast.List, indent float64) {
	num := n.Start
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "- "
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		hang := float64(len(marker)) * mdCharWidth
		first := true
		for block := item.FirstChild(); block != nil; block = block.NextSibling() {
			if nested, ok := block.(*ast.List); ok {
				c.list(nested, indent+hang)
				continue
			}
			t := blockText(block, c.source)
			if t == "" {
				continue
			}
			if first {
				c.wrapped(marker+t, indent, hang)
				first = false
			} else {
				c.wrapped(t, indent+hang, 0)
			}
		}
	}
}

// wrapped appends text word-wrapped to the page width. The first line
// starts at indent; continuation lines start hang further in.
func (c *mdCollector) wrapped(s string, indent, hang float64) {
	words := strings.Fields(s)
	if len(words) == 0 {
		return
	}
	line := words[0]
	cur := indent
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= lineColumns(cur) {
			line += " " + w
			continue
		}
		c.lines = append(c.lines, mdLine{text: line, indent: cur})
		line = w
		cur = indent + hang
	}
	c.lines = append(c.lines, mdLine{text: line, indent: cur})
}

func (c *mdCollector) codeLines(segs *text.Segments, indent float64) {
	ind := indent + 2*mdCharWidth
	cols := lineColumns(ind)
	for i := 0; i < segs.Len(); i++ {
		raw := string(segs.At(i).Value(c.source))
		raw = strings.ReplaceAll(strings.TrimRight(raw, "\n"), "\t", "    ")
		for len(raw) > cols {
			c.lines = append(c.lines, mdLine{text: raw[:cols], indent: ind, code: true})
			raw = raw[cols:]
		}
		c.lines = append(c.lines, mdLine{text: raw, indent: ind, code: true})
	}
}

func (c *mdCollector) blank() {
	if n := len(c.lines); n > 0 {
		last := c.lines[n-1]
		if last.text == "" && !last.rule {
			return
		}
	}
	c.lines = append(c.lines, mdLine{})
}

// lineColumns is how many fixed-width characters fit on a line that
// starts indent px past the margin.
func lineColumns(indent float64) int {
	n := int((mdPageWidth - 2*mdMargin - indent) / mdCharWidth)
	if n < 8 {
		n = 8
	}
	return n
}

// blockText concatenates the inline text of a block node, joining soft
// line breaks with spaces.
func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.AutoLink:
			sb.Write(t.URL(source))
		default:
			sb.WriteString(blockText(c, source))
		}
	}
	return sb.String()
}

// paginate cuts lines into fixed-height pages, dropping blank rows at
// page tops. Empty documents still get one page.
func paginate(lines []mdLine) [][]mdLine {
	var pages [][]mdLine
	for len(lines) > 0 {
		for len(lines) > 0 && lines[0].text == "" && !lines[0].rule {
			lines = lines[1:]
		}
		if len(lines) == 0 {
			break
		}
		n := mdLinesPerPage
		if n > len(lines) {
			n = len(lines)
		}
		pages = append(pages, lines[:n])
		lines = lines[n:]
	}
	if len(pages) == 0 {
		pages = [][]mdLine{nil}
	}
	return pages
}
