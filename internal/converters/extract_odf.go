package converters

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/docconvert/internal/core"
)

const (
	// maxTableColumns caps repeated cells in a spreadsheet row.
	maxTableColumns = 1024
	// maxRepeatedRows caps how many copies of a repeated row are kept.
	maxRepeatedRows = 100
)

// extractODF reads OpenDocument text, spreadsheet and presentation files.
// All three keep their body in content.xml and their title in meta.xml.
func extractODF(ctx context.Context, src core.Source) (*document, error) {
	data, err := readAll(ctx, src.Body)
	if err != nil {
		return nil, err
	}
	zr, err := openZip(data)
	if err != nil {
		return nil, err
	}
	content, err := readZipFile(zr, "content.xml")
	if err != nil {
		return nil, err
	}

	w := &odfWalker{}
	if err := w.walk(ctx, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("content.xml: %w", err)
	}

	return &document{
		Title:    metadataTitle(zr, "meta.xml"),
		Markdown: w.out.String(),
	}, nil
}

// odfTable collects one table:table element.
type odfTable struct {
	rows       [][]string
	row        []string
	rowRepeat  int
	cell       strings.Builder
	cellRepeat int
	inCell     bool
	// Empty cells are only materialized once a later cell in the row has
	// content, so trailing runs like number-columns-repeated="16000" cost
	// nothing.
	pendingEmpty int
	blankRows    int
}

func (t *odfTable) endCell() {
	text := collapseSpace(t.cell.String())
	t.cell.Reset()
	t.inCell = false

	if text == "" {
		t.pendingEmpty += t.cellRepeat
		return
	}
	for ; t.pendingEmpty > 0 && len(t.row) < maxTableColumns; t.pendingEmpty-- {
		t.row = append(t.row, "")
	}
	t.pendingEmpty = 0
	for i := 0; i < t.cellRepeat && len(t.row) < maxTableColumns; i++ {
		t.row = append(t.row, text)
	}
}

func (t *odfTable) endRow() {
	row := t.row
	t.row = nil
	t.pendingEmpty = 0

	if len(row) == 0 {
		t.blankRows += t.rowRepeat
		return
	}
	for i := 0; i < min(t.blankRows, maxRepeatedRows); i++ {
		t.rows = append(t.rows, nil)
	}
	t.blankRows = 0
	for i := 0; i < min(t.rowRepeat, maxRepeatedRows); i++ {
		t.rows = append(t.rows, row)
	}
}

type odfWalker struct {
	out blockWriter

	text      strings.Builder // escaped inline text of the open paragraph
	inPara    bool
	level     int // heading level of the open paragraph, 0 for body text
	outer     []odfPara
	listDepth int
	newItem   bool // next paragraph opens a list item
	href      string
	inLink    bool

	spreadsheet bool
	pages       int
	table       *odfTable
	nested      int // depth of tables inside a table cell
	skip        int
}

// skipped elements carry no document text.
var odfSkipped = map[string]bool{
	"annotation":      true,
	"note":            true,
	"tracked-changes": true,
	"title":           true,
	"desc":            true,
	"forms":           true,
	"notes":           true,
}

func (w *odfWalker) walk(ctx context.Context, r io.Reader) error {
	dec := xml.NewDecoder(r)
	for n := 0; ; n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			w.start(t)
		case xml.EndElement:
			w.end(t)
		case xml.CharData:
			w.chars(string(t))
		}
	}
	w.out.endList()
	return nil
}

func (w *odfWalker) start(se xml.StartElement) {
	name := se.Name.Local
	if w.skip > 0 || odfSkipped[name] {
		w.skip++
		return
	}

	switch name {
	case "spreadsheet":
		w.spreadsheet = true
	case "page":
		w.pages++
		title := attr(se, "name")
		if title == "" {
			title = fmt.Sprintf("Slide %d", w.pages)
		}
		w.out.heading(2, escapeMarkdown(title))
	case "h":
		w.openPara(outlineLevel(se))
	case "p":
		w.openPara(0)
	case "list":
		w.listDepth++
	case "list-item", "list-header":
		w.newItem = true
	case "s":
		w.write(strings.Repeat(" ", max(1, atoiDefault(attr(se, "c"), 1))))
	case "tab":
		w.write(" ")
	case "line-break":
		w.write(lineBreak)
	case "a":
		w.href = attr(se, "href")
		w.inLink = w.href != "" && w.inPara && !w.inCell()
		if w.inLink {
			w.writeMarkup("[")
		}
	case "table":
		if w.table != nil {
			w.nested++
			return
		}
		w.table = &odfTable{}
		if w.spreadsheet {
			if title := attr(se, "name"); title != "" {
				w.out.heading(2, escapeMarkdown(title))
			}
		}
	case "table-row":
		if w.table != nil && w.nested == 0 {
			w.table.rowRepeat = max(1, atoiDefault(attr(se, "number-rows-repeated"), 1))
		}
	case "table-cell", "covered-table-cell":
		if w.table != nil && w.nested == 0 {
			w.table.inCell = true
			w.table.cellRepeat = max(1, atoiDefault(attr(se, "number-columns-repeated"), 1))
		}
	}
}

func (w *odfWalker) end(ee xml.EndElement) {
	if w.skip > 0 {
		w.skip--
		return
	}

	switch ee.Name.Local {
	case "h", "p":
		w.closePara()
	case "list":
		w.listDepth--
		if w.listDepth == 0 {
			w.out.endList()
		}
	case "a":
		if w.inLink {
			w.writeMarkup("](" + linkTarget.Replace(w.href) + ")")
		}
		w.inLink = false
		w.href = ""
	case "table":
		if w.nested > 0 {
			w.nested--
			return
		}
		if w.table != nil {
			w.out.table(w.table.rows)
			w.table = nil
		}
	case "table-row":
		if w.table != nil && w.nested == 0 {
			w.table.endRow()
		}
	case "table-cell", "covered-table-cell":
		if w.table != nil && w.nested == 0 {
			w.table.endCell()
		}
	}
}

func (w *odfWalker) chars(s string) {
	if w.skip > 0 {
		return
	}
	if w.inCell() {
		w.table.cell.WriteString(s)
		return
	}
	if w.inPara {
		w.text.WriteString(inlineEscaper.Replace(s))
	}
}

func (w *odfWalker) inCell() bool {
	return w.table != nil && w.table.inCell
}

// write appends literal text to the open paragraph or cell.
func (w *odfWalker) write(s string) {
	if w.inCell() {
		if s == lineBreak {
			s = " "
		}
		w.table.cell.WriteString(s)
		return
	}
	if w.inPara {
		w.text.WriteString(s)
	}
}

// writeMarkup appends Markdown syntax to the open paragraph.
func (w *odfWalker) writeMarkup(s string) {
	if w.inPara {
		w.text.WriteString(s)
	}
}

// odfPara is a paragraph suspended by a nested one, e.g. text in a frame.
type odfPara struct {
	text  string
	level int
}

func (w *odfWalker) openPara(level int) {
	if w.inCell() {
		w.table.cell.WriteString(" ")
		return
	}
	if w.inPara {
		w.outer = append(w.outer, odfPara{text: w.text.String(), level: w.level})
	}
	w.inPara = true
	w.level = level
	w.text.Reset()
}

func (w *odfWalker) closePara() {
	if w.inCell() || !w.inPara {
		return
	}
	text := w.text.String()
	w.inPara = false
	w.text.Reset()

	switch {
	case w.level > 0:
		w.out.heading(w.level, text)
	case w.listDepth > 0:
		w.out.listItem(w.listDepth, text, !w.newItem)
		w.newItem = false
	default:
		w.out.paragraph(text)
	}

	if n := len(w.outer); n > 0 {
		p := w.outer[n-1]
		w.outer = w.outer[:n-1]
		w.inPara = true
		w.level = p.level
		w.text.WriteString(p.text)
	}
}

func outlineLevel(se xml.StartElement) int {
	return min(max(atoiDefault(attr(se, "outline-level"), 1), 1), 6)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
