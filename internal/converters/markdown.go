package converters

import (
	"fmt"
	"regexp"
	"strings"
)

var inlineEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
	"~", `\~`,
	"&", `\&`,
)

var (
	reBlockMarker = regexp.MustCompile(`^[#+\-=]`)
	reListMarker  = regexp.MustCompile(`^(\d+)([.)])`)
)

// escapeMarkdown escapes text so it renders literally as one Markdown line.
func escapeMarkdown(s string) string {
	return escapeBlockStart(inlineEscaper.Replace(collapseSpace(s)))
}

// escapeBlockStart escapes a leading character that would otherwise open a
// heading, list or setext underline.
func escapeBlockStart(s string) string {
	s = reBlockMarker.ReplaceAllString(s, `\$0`)
	return reListMarker.ReplaceAllString(s, `$1\$2`)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// escapeLines escapes each line and joins them as soft line breaks.
func escapeLines(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = escapeMarkdown(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// heading returns an ATX heading line for already escaped text.
func heading(level int, text string) string {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return strings.Repeat("#", level) + " " + text
}

// fenced wraps text in a code fence longer than any backtick run inside it.
func fenced(lang, text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", max(3, longest+1))
	return fmt.Sprintf("%s%s\n%s\n%s", fence, lang, strings.TrimRight(text, "\n"), fence)
}

// renderMarkdownTable renders rows as a GFM table. The first row is the
// header; short rows are padded to the widest row.
func renderMarkdownTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	numCols := 0
	for _, row := range rows {
		numCols = max(numCols, len(row))
	}
	if numCols == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = tableCell(row[i])
			}
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|")
	for i := 0; i < numCols; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return b.String()
}

// tableCell escapes a raw cell value for use inside a table row.
func tableCell(s string) string {
	return inlineEscaper.Replace(collapseSpace(s))
}

// trimTable drops trailing empty rows and trailing empty columns.
func trimTable(rows [][]string) [][]string {
	for len(rows) > 0 && isBlankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	width := 0
	for _, row := range rows {
		for i := len(row) - 1; i >= 0; i-- {
			if strings.TrimSpace(row[i]) != "" {
				width = max(width, i+1)
				break
			}
		}
	}
	for i, row := range rows {
		if len(row) > width {
			rows[i] = row[:width]
		}
	}
	return rows
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// lineBreak marks a hard line break inside collected paragraph text.
const lineBreak = "\x00"

// blockWriter assembles Markdown from extracted blocks. Paragraph and
// heading text must already be inline-escaped; table cells are raw.
type blockWriter struct {
	b      strings.Builder
	inList bool
}

func (w *blockWriter) paragraph(text string) {
	w.endList()
	if text = finishInline(text, `\`+"\n"); text == "" {
		return
	}
	w.b.WriteString(text)
	w.b.WriteString("\n\n")
}

func (w *blockWriter) heading(level int, text string) {
	w.endList()
	if text = finishInline(text, " "); text == "" {
		return
	}
	w.b.WriteString(heading(level, text))
	w.b.WriteString("\n\n")
}

// listItem writes one list entry. depth starts at 1; cont marks a further
// paragraph of the same item.
func (w *blockWriter) listItem(depth int, text string, cont bool) {
	if text = finishInline(text, " "); text == "" {
		return
	}
	indent := strings.Repeat("  ", max(depth-1, 0))
	if cont {
		w.b.WriteString(indent + "  " + text + "\n")
	} else {
		w.b.WriteString(indent + "- " + text + "\n")
	}
	w.inList = true
}

func (w *blockWriter) endList() {
	if w.inList {
		w.b.WriteString("\n")
		w.inList = false
	}
}

func (w *blockWriter) table(rows [][]string) {
	w.endList()
	rows = trimTable(rows)
	if len(rows) == 0 {
		return
	}
	w.b.WriteString(renderMarkdownTable(rows))
	w.b.WriteString("\n")
}

// block writes preformatted Markdown such as a fenced block.
func (w *blockWriter) block(md string) {
	w.endList()
	if strings.TrimSpace(md) == "" {
		return
	}
	w.b.WriteString(md)
	w.b.WriteString("\n\n")
}

func (w *blockWriter) String() string {
	return w.b.String()
}

// finishInline collapses whitespace and turns lineBreak markers into sep.
// Every resulting line is guarded against opening a new block.
func finishInline(text, sep string) string {
	parts := strings.Split(text, lineBreak)
	out := parts[:0]
	for _, p := range parts {
		if p = escapeBlockStart(collapseSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// linkTarget makes a URL safe to use as a Markdown link destination.
var linkTarget = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "<", "%3C", ">", "%3E")
