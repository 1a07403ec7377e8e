package converters

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/JonMunkholm/docconvert/internal/core"
)

// extractPDF recovers the text layer of a PDF, one paragraph per page with
// rows kept as soft line breaks. Scanned pages without text yield nothing.
func extractPDF(ctx context.Context, src core.Source) (doc *document, err error) {
	data, err := readAll(ctx, src.Body)
	if err != nil {
		return nil, err
	}

	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var out blockWriter
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		out.block(escapeLines(pageLines(page)))
	}

	return &document{
		Title:    collapseSpace(r.Trailer().Key("Info").Key("Title").Text()),
		Markdown: out.String(),
	}, nil
}

// pageLines joins the text runs of each row. An empty run between two
// non-empty ones marks a word boundary.
func pageLines(page pdf.Page) []string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var line strings.Builder
		gap := false
		for _, word := range row.Content {
			if word.S == "" {
				gap = true
				continue
			}
			if gap && line.Len() > 0 && !strings.HasSuffix(line.String(), " ") {
				line.WriteString(" ")
			}
			line.WriteString(word.S)
			gap = false
		}
		if text := strings.TrimSpace(line.String()); text != "" {
			lines = append(lines, text)
		}
	}
	return lines
}
