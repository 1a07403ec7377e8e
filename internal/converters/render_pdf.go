package converters

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"golang.org/x/text/encoding/charmap"
)

const (
	pdfMargin     = 20.0 // mm
	pdfListIndent = 7.0  // mm per nesting level
	pdfCellPad    = 1.5  // mm
	ptToMM        = 25.4 / 72
	pdfCreator    = "docconvert"
)

// headingScale multiplies the body font size for heading levels 1 to 6.
var headingScale = [...]float64{2.0, 1.6, 1.35, 1.15, 1.0, 0.9}

// newPDFRenderer lays the Markdown out with the PDF core fonts. Text outside
// Windows-1252 is replaced with '?'.
func newPDFRenderer(settings PDFSettings) renderer {
	return func(ctx context.Context, doc *document, dst io.Writer) error {
		src := []byte(doc.Markdown)
		p := newPDFWriter(settings, src)
		p.pdf.SetTitle(doc.Title, true)
		p.pdf.SetCreator(pdfCreator, true)

		for n := parseMarkdown(src).FirstChild(); n != nil; n = n.NextSibling() {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.block(n)
		}

		if err := p.pdf.Error(); err != nil {
			return fmt.Errorf("layout PDF: %w", err)
		}
		return p.pdf.Output(dst)
	}
}

type pdfWriter struct {
	pdf      *gofpdf.Fpdf
	src      []byte
	family   string
	size     float64 // body font size in points
	left     float64 // current left margin
	quoted   int     // blockquote depth
	listNums []int   // next number of each open ordered list, 0 for bullets
}

func newPDFWriter(settings PDFSettings, src []byte) *pdfWriter {
	pdf := gofpdf.New(settings.Orientation, "mm", settings.PageSize, "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()
	pdf.SetFont(settings.FontFamily, "", settings.FontSize)

	return &pdfWriter{
		pdf:    pdf,
		src:    src,
		family: settings.FontFamily,
		size:   settings.FontSize,
		left:   pdfMargin,
	}
}

// lineHeight returns the line advance for a font size in points.
func lineHeight(size float64) float64 {
	return size * ptToMM * 1.4
}

func (p *pdfWriter) width() float64 {
	w, _ := p.pdf.GetPageSize()
	return w - pdfMargin - p.left
}

func (p *pdfWriter) setLeft(x float64) {
	p.left = x
	p.pdf.SetLeftMargin(x)
	p.pdf.SetX(x)
}

// gap adds vertical space between blocks, skipped at the top of a page.
func (p *pdfWriter) gap(h float64) {
	if p.pdf.GetY() > pdfMargin+0.01 {
		p.pdf.Ln(h)
	}
}

func (p *pdfWriter) block(n ast.Node) {
	h := lineHeight(p.size)
	switch n := n.(type) {
	case *ast.Heading:
		level := min(max(n.Level, 1), 6)
		size := p.size * headingScale[level-1]
		p.gap(h * 0.6)
		p.inline(n, size, "B")
		p.pdf.Ln(lineHeight(size))
		p.pdf.Ln(h * 0.2)
	case *ast.Paragraph:
		p.inline(n, p.size, "")
		p.pdf.Ln(h)
		p.pdf.Ln(h * 0.4)
	case *ast.TextBlock:
		p.inline(n, p.size, "")
		p.pdf.Ln(h)
	case *ast.ThematicBreak:
		p.gap(h * 0.5)
		y := p.pdf.GetY()
		pageW, _ := p.pdf.GetPageSize()
		p.pdf.SetDrawColor(160, 160, 160)
		p.pdf.Line(p.left, y, pageW-pdfMargin, y)
		p.pdf.SetDrawColor(0, 0, 0)
		p.pdf.Ln(h)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		p.code(blockLines(n, p.src))
	case *ast.Blockquote:
		p.quoted++
		p.setLeft(p.left + pdfListIndent)
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			p.block(c)
		}
		p.setLeft(p.left - pdfListIndent)
		p.quoted--
	case *ast.List:
		p.list(n)
	case *extast.Table:
		p.table(n)
	case *ast.HTMLBlock:
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			p.block(c)
		}
	}
}

func (p *pdfWriter) list(n *ast.List) {
	h := lineHeight(p.size)
	num := 0
	if n.IsOrdered() {
		num = n.Start
	}

	outer := p.left
	p.setLeft(outer + pdfListIndent)
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "•"
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d.", num)
			num++
		}
		p.pdf.SetFont(p.family, "", p.size)
		p.pdf.SetXY(outer, p.pdf.GetY())
		p.pdf.CellFormat(pdfListIndent, h, winAnsi(marker), "", 0, "L", false, 0, "")
		p.pdf.SetX(p.left)

		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			p.block(c)
		}
	}
	p.setLeft(outer)
	if n.Parent() == nil || n.Parent().Kind() != ast.KindListItem {
		p.pdf.Ln(h * 0.4)
	}
}

func (p *pdfWriter) code(text string) {
	size := p.size * 0.9
	h := lineHeight(size)
	text = strings.TrimRight(strings.ReplaceAll(text, "\t", "    "), "\n")

	p.pdf.SetFont("Courier", "", size)
	p.pdf.SetFillColor(244, 244, 244)
	p.pdf.SetX(p.left)
	p.pdf.MultiCell(p.width(), h, winAnsi(text), "", "L", true)
	p.pdf.SetFont(p.family, "", p.size)
	p.pdf.Ln(lineHeight(p.size) * 0.4)
}

func (p *pdfWriter) table(t *extast.Table) {
	var rows [][]string
	header := 0
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		var row []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			row = append(row, winAnsi(plainInline(c, p.src, " ", false)))
		}
		if r.Kind() == extast.KindTableHeader {
			header++
		}
		rows = append(rows, row)
	}
	cols := len(t.Alignments)
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return
	}

	size := p.size * 0.9
	h := lineHeight(size)
	colW := p.width() / float64(cols)
	_, pageH := p.pdf.GetPageSize()

	// Rows are placed by hand, so automatic breaks would split cells.
	p.pdf.SetAutoPageBreak(false, pdfMargin)
	defer p.pdf.SetAutoPageBreak(true, pdfMargin)

	for ri, row := range rows {
		style := ""
		if ri < header {
			style = "B"
		}
		p.pdf.SetFont(p.family, style, size)

		lines := make([][][]byte, cols)
		height := 1
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			lines[i] = p.pdf.SplitLines([]byte(cell), colW-2*pdfCellPad)
			height = max(height, len(lines[i]))
		}
		rowH := float64(height)*h + 2*pdfCellPad

		y := p.pdf.GetY()
		if y+rowH > pageH-pdfMargin && y > pdfMargin+0.01 {
			p.pdf.AddPage()
			y = p.pdf.GetY()
		}

		for i := 0; i < cols; i++ {
			x := p.left + float64(i)*colW
			if ri < header {
				p.pdf.SetFillColor(235, 235, 235)
				p.pdf.Rect(x, y, colW, rowH, "DF")
			} else {
				p.pdf.Rect(x, y, colW, rowH, "D")
			}
			align := cellAlign(t, i)
			for li, line := range lines[i] {
				p.pdf.SetXY(x+pdfCellPad, y+pdfCellPad+float64(li)*h)
				p.pdf.CellFormat(colW-2*pdfCellPad, h, string(line), "", 0, align, false, 0, "")
			}
		}
		p.pdf.SetXY(p.left, y+rowH)
	}

	p.pdf.SetFont(p.family, "", p.size)
	p.pdf.Ln(lineHeight(p.size) * 0.6)
}

func cellAlign(t *extast.Table, col int) string {
	if col >= len(t.Alignments) {
		return "L"
	}
	switch t.Alignments[col] {
	case extast.AlignRight:
		return "R"
	case extast.AlignCenter:
		return "C"
	}
	return "L"
}

// pdfRun is a span of inline text sharing one style.
type pdfRun struct {
	text   string
	style  string
	code   bool
	link   string
	hard   bool // line break after the run
	strike bool
}

// inline writes the inline children of n as flowing text.
func (p *pdfWriter) inline(n ast.Node, size float64, base string) {
	h := lineHeight(size)
	if p.quoted > 0 {
		p.pdf.SetTextColor(90, 90, 90)
		defer p.pdf.SetTextColor(0, 0, 0)
	}

	for _, r := range p.runs(n, base) {
		family, style := p.family, r.style
		if r.code {
			family = "Courier"
		}
		if p.quoted > 0 && !strings.Contains(style, "I") {
			style += "I"
		}
		if r.link != "" {
			style += "U"
		}
		if r.strike {
			style += "S"
		}
		p.pdf.SetFont(family, style, size)

		text := winAnsi(r.text)
		switch {
		case text == "":
		case r.link != "":
			p.pdf.SetTextColor(20, 60, 170)
			p.pdf.WriteLinkString(h, text, r.link)
			if p.quoted > 0 {
				p.pdf.SetTextColor(90, 90, 90)
			} else {
				p.pdf.SetTextColor(0, 0, 0)
			}
		default:
			p.pdf.Write(h, text)
		}
		if r.hard {
			p.pdf.Ln(h)
		}
	}
	p.pdf.SetFont(p.family, "", p.size)
}

// runs flattens inline nodes into styled runs. Soft breaks become spaces.
func (p *pdfWriter) runs(n ast.Node, base string) []pdfRun {
	var out []pdfRun
	var walk func(n ast.Node, style, link string, strike bool)
	walk = func(n ast.Node, style, link string, strike bool) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				r := pdfRun{text: textValue(t, p.src), style: style, link: link, strike: strike}
				switch {
				case t.HardLineBreak():
					r.hard = true
				case t.SoftLineBreak():
					r.text += " "
				}
				out = append(out, r)
			case *ast.String:
				out = append(out, pdfRun{text: string(t.Value), style: style, link: link, strike: strike})
			case *ast.CodeSpan:
				out = append(out, pdfRun{text: codeSpanText(t, p.src), style: style, code: true, link: link, strike: strike})
			case *ast.Emphasis:
				s := "I"
				if t.Level >= 2 {
					s = "B"
				}
				walk(t, mergeStyle(style, s), link, strike)
			case *extast.Strikethrough:
				walk(t, style, link, true)
			case *ast.Link:
				walk(t, style, string(t.Destination), strike)
			case *ast.AutoLink:
				url := string(t.URL(p.src))
				out = append(out, pdfRun{text: url, style: style, link: url, strike: strike})
			case *ast.Image:
				walk(t, style, link, strike)
			case *ast.RawHTML:
			default:
				walk(c, style, link, strike)
			}
		}
	}
	walk(n, base, "", false)
	return out
}

// mergeStyle combines bold and italic flags in the order gofpdf expects.
func mergeStyle(a, b string) string {
	s := a + b
	out := ""
	if strings.Contains(s, "B") {
		out += "B"
	}
	if strings.Contains(s, "I") {
		out += "I"
	}
	return out
}

// winAnsi converts UTF-8 to the Windows-1252 bytes the core fonts use.
func winAnsi(s string) string {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x80 {
			b = append(b, byte(r))
			continue
		}
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b = append(b, c)
		} else {
			b = append(b, '?')
		}
	}
	return string(b)
}
