package converters

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/docconvert/internal/core"
)

// extractCSV renders the file as one table; the first record is the header.
func extractCSV(ctx context.Context, src core.Source) (*document, error) {
	text, err := readText(ctx, src)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		if len(rows)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse CSV: %w", err)
		}
		rows = append(rows, rec)
	}

	var out blockWriter
	out.table(rows)
	return &document{Markdown: out.String()}, nil
}

// extractText keeps plain text verbatim inside a fenced block.
func extractText(ctx context.Context, src core.Source) (*document, error) {
	text, err := readText(ctx, src)
	if err != nil {
		return nil, err
	}
	var out blockWriter
	if strings.TrimSpace(text) != "" {
		out.block(fenced("", text))
	}
	return &document{Markdown: out.String()}, nil
}

// extractMarkdown passes the document through after decoding.
func extractMarkdown(ctx context.Context, src core.Source) (*document, error) {
	text, err := readText(ctx, src)
	if err != nil {
		return nil, err
	}
	return &document{Markdown: text}, nil
}

func readText(ctx context.Context, src core.Source) (string, error) {
	data, err := readAll(ctx, src.Body)
	if err != nil {
		return "", err
	}
	return decodeText(data, src.Charset)
}
