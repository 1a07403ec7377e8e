package converters

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/JonMunkholm/docconvert/internal/core"
)

const docxDocumentPath = "word/document.xml"

var reHeadingStyle = regexp.MustCompile(`(?i)^heading\s*([1-9])$`)

// extractDOCX reads word/document.xml: headings from paragraph styles or
// outline levels, numbered paragraphs as list items, tables, hyperlinks.
func extractDOCX(ctx context.Context, src core.Source) (*document, error) {
	data, err := readAll(ctx, src.Body)
	if err != nil {
		return nil, err
	}
	zr, err := openZip(data)
	if err != nil {
		return nil, err
	}
	body, err := readZipFile(zr, docxDocumentPath)
	if err != nil {
		return nil, err
	}

	w := &docxWalker{rels: readRelationships(zr, relsPathFor(docxDocumentPath))}
	if err := w.walk(ctx, bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("%s: %w", docxDocumentPath, err)
	}

	return &document{
		Title:    metadataTitle(zr, "docProps/core.xml"),
		Markdown: w.out.String(),
	}, nil
}

type docxPara struct {
	text      strings.Builder
	level     int // heading level, 0 for body text
	listLevel int // 1-based list depth, 0 when not numbered
}

type docxWalker struct {
	out  blockWriter
	rels map[string]relationship

	paras []*docxPara // open paragraphs, innermost last
	inPPr bool
	inT   bool
	href  string

	tables [][][]string // rows of each open table, innermost last
	row    []string
	cell   strings.Builder
	inCell bool
	span   int

	skip int
}

// docxSkipped elements hold deleted text, field codes or metadata.
var docxSkipped = map[string]bool{
	"del":         true,
	"instrText":   true,
	"delText":     true,
	"rPr":         true,
	"sectPr":      true,
	"footnoteRef": true,
	"Fallback":    true,
}

func (w *docxWalker) walk(ctx context.Context, r io.Reader) error {
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
			if w.skip == 0 && w.inT {
				w.write(string(t), true)
			}
		}
	}
	w.out.endList()
	return nil
}

func (w *docxWalker) para() *docxPara {
	if len(w.paras) == 0 {
		return nil
	}
	return w.paras[len(w.paras)-1]
}

func (w *docxWalker) start(se xml.StartElement) {
	name := se.Name.Local
	if w.skip > 0 || docxSkipped[name] {
		w.skip++
		return
	}

	p := w.para()
	switch name {
	case "p":
		w.paras = append(w.paras, &docxPara{})
	case "pPr":
		w.inPPr = true
	case "pStyle":
		if p != nil && w.inPPr {
			p.level = styleHeadingLevel(attr(se, "val"))
		}
	case "outlineLvl":
		if p != nil && w.inPPr && p.level == 0 {
			if lvl := atoiDefault(attr(se, "val"), 9); lvl < 6 {
				p.level = lvl + 1
			}
		}
	case "numPr":
		if p != nil && w.inPPr && p.listLevel == 0 {
			p.listLevel = 1
		}
	case "ilvl":
		if p != nil && w.inPPr {
			p.listLevel = atoiDefault(attr(se, "val"), 0) + 1
		}
	case "t":
		w.inT = true
	case "tab":
		if !w.inPPr {
			w.write(" ", false)
		}
	case "br", "cr":
		w.write(lineBreak, false)
	case "hyperlink":
		if rel, ok := w.rels[relID(se)]; ok && p != nil && !w.inCell {
			w.href = rel.Target
			w.write("[", false)
		}
	case "tbl":
		w.tables = append(w.tables, nil)
	case "tr":
		if len(w.tables) == 1 {
			w.row = nil
		}
	case "tc":
		if len(w.tables) == 1 {
			w.inCell = true
			w.span = 1
			w.cell.Reset()
		}
	case "gridSpan":
		if len(w.tables) == 1 && w.inCell {
			w.span = max(1, atoiDefault(attr(se, "val"), 1))
		}
	}
}

func (w *docxWalker) end(ee xml.EndElement) {
	if w.skip > 0 {
		w.skip--
		return
	}

	switch ee.Name.Local {
	case "p":
		w.closePara()
	case "pPr":
		w.inPPr = false
	case "t":
		w.inT = false
	case "hyperlink":
		if w.href != "" {
			w.write("]("+linkTarget.Replace(w.href)+")", false)
			w.href = ""
		}
	case "tc":
		if len(w.tables) == 1 && w.inCell {
			w.row = append(w.row, collapseSpace(w.cell.String()))
			for i := 1; i < w.span; i++ {
				w.row = append(w.row, "")
			}
			w.inCell = false
		}
	case "tr":
		if len(w.tables) == 1 {
			top := len(w.tables) - 1
			w.tables[top] = append(w.tables[top], w.row)
			w.row = nil
		}
	case "tbl":
		if n := len(w.tables); n > 0 {
			rows := w.tables[n-1]
			w.tables = w.tables[:n-1]
			if n == 1 {
				w.out.table(rows)
			}
		}
	}
}

// write appends to the open cell or paragraph. Document text is escaped
// unless it is Markdown syntax produced here.
func (w *docxWalker) write(s string, text bool) {
	if w.inCell {
		if s == lineBreak {
			s = " "
		}
		if text || s == " " {
			w.cell.WriteString(s)
		}
		return
	}
	p := w.para()
	if p == nil {
		return
	}
	if text {
		s = inlineEscaper.Replace(s)
	}
	p.text.WriteString(s)
}

func (w *docxWalker) closePara() {
	n := len(w.paras)
	if n == 0 {
		return
	}
	p := w.paras[n-1]
	w.paras = w.paras[:n-1]

	if w.inCell {
		w.cell.WriteString(" ")
		return
	}

	text := p.text.String()
	switch {
	case p.level > 0:
		w.out.heading(p.level, text)
	case p.listLevel > 0:
		w.out.listItem(p.listLevel, text, false)
	default:
		w.out.paragraph(text)
	}
}

// styleHeadingLevel maps a paragraph style id to a heading level.
func styleHeadingLevel(style string) int {
	switch strings.ToLower(style) {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	if m := reHeadingStyle.FindStringSubmatch(style); m != nil {
		return min(int(m[1][0]-'0'), 6)
	}
	return 0
}

// relID returns the relationship id attribute (r:id) of se.
func relID(se xml.StartElement) string {
	for _, a := range se.Attr {
		if a.Name.Local == "id" && strings.Contains(a.Name.Space, "relationships") {
			return a.Value
		}
	}
	return ""
}
