package converters

import (
	"bytes"
	"context"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/docconvert/internal/core"
)

// extractXLSX renders every worksheet as a heading and a table.
func extractXLSX(ctx context.Context, src core.Source) (*document, error) {
	data, err := readAll(ctx, src.Body)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var out blockWriter
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		writeSheet(&out, sheet, rows)
	}

	doc := &document{Markdown: out.String()}
	if props, err := f.GetDocProps(); err == nil && props != nil {
		doc.Title = collapseSpace(props.Title)
	}
	return doc, nil
}

// extractXLS reads legacy BIFF workbooks. The decoder panics on malformed
// input, which is reported as an ordinary error.
func extractXLS(ctx context.Context, src core.Source) (doc *document, err error) {
	data, err := readAll(ctx, src.Body)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	var out blockWriter
	for i := 0; i < wb.NumSheets(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}

		var rows [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := xlsRow(sheet, r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
		writeSheet(&out, name, rows)
	}

	return &document{Markdown: out.String()}, nil
}

// xlsRow returns row r, or nil when the sheet has no record for it.
func xlsRow(sheet *xls.WorkSheet, r int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(r)
}

// writeSheet emits one worksheet. Leading blank rows are dropped so the
// first populated row becomes the table header.
func writeSheet(out *blockWriter, name string, rows [][]string) {
	for len(rows) > 0 && isBlankRow(rows[0]) {
		rows = rows[1:]
	}
	out.heading(2, escapeMarkdown(name))
	out.table(rows)
}
