package converters

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

// renderMarkdown writes the intermediate document unchanged.
func renderMarkdown(_ context.Context, doc *document, dst io.Writer) error {
	if doc.Markdown == "" {
		return nil
	}
	_, err := io.WriteString(dst, doc.Markdown+"\n")
	return err
}

// renderText writes the document as plain text: no markup, list markers
// kept, link targets in parentheses, tables as aligned columns.
func renderText(ctx context.Context, doc *document, dst io.Writer) error {
	src := []byte(doc.Markdown)
	w := &textWriter{src: src}
	w.container(parseMarkdown(src), "", "", false)
	if err := ctx.Err(); err != nil {
		return err
	}

	out := reMultipleNewlines.ReplaceAllString(w.b.String(), "\n\n")
	out = strings.Trim(out, "\n")
	if out == "" {
		return nil
	}
	_, err := io.WriteString(dst, out+"\n")
	return err
}

type textWriter struct {
	b   strings.Builder
	src []byte
}

// container writes the block children of n. first prefixes the first line
// written, rest every line after it.
func (w *textWriter) container(n ast.Node, first, rest string, tight bool) {
	prefix := first
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		w.block(c, prefix, rest, tight)
		prefix = rest
		if !tight && c.NextSibling() != nil {
			w.b.WriteString("\n")
		}
	}
}

func (w *textWriter) block(n ast.Node, first, rest string, tight bool) {
	switch n := n.(type) {
	case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
		w.lines(plainInline(n, w.src, "\n", true), first, rest)
	case *ast.ThematicBreak:
		w.lines("----", first, rest)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		w.lines(strings.TrimRight(blockLines(n, w.src), "\n"), first, rest)
	case *ast.HTMLBlock:
	case *ast.Blockquote:
		w.container(n, first+"    ", rest+"    ", false)
	case *ast.List:
		num := n.Start
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "- "
			if n.IsOrdered() {
				marker = fmt.Sprintf("%d. ", num)
				num++
			}
			indent := strings.Repeat(" ", len(marker))
			w.container(item, first+marker, rest+indent, n.IsTight)
			first = rest
			if !n.IsTight && item.NextSibling() != nil {
				w.b.WriteString("\n")
			}
		}
	case *extast.Table:
		w.table(n, first, rest)
	default:
		if n.HasChildren() {
			w.container(n, first, rest, tight)
		}
	}
}

// lines writes text line by line with the given prefixes.
func (w *textWriter) lines(text, first, rest string) {
	if text == "" {
		return
	}
	prefix := first
	for _, line := range strings.Split(text, "\n") {
		w.b.WriteString(strings.TrimRight(prefix+line, " "))
		w.b.WriteString("\n")
		prefix = rest
	}
}

func (w *textWriter) table(t *extast.Table, first, rest string) {
	var rows [][]string
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		var row []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			row = append(row, plainInline(c, w.src, " ", true))
		}
		rows = append(rows, row)
	}

	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	var b strings.Builder
	for ri, row := range rows {
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)))
			}
		}
		b.WriteString("\n")
		if ri == 0 {
			for i, width := range widths {
				if i > 0 {
					b.WriteString("  ")
				}
				b.WriteString(strings.Repeat("-", max(width, 1)))
			}
			b.WriteString("\n")
		}
	}
	w.lines(strings.TrimRight(b.String(), "\n"), first, rest)
}
