package converters

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/JonMunkholm/docconvert/internal/core"
)

const pptxPresentationPath = "ppt/presentation.xml"

// extractPPTX reads slides in presentation order. Each slide becomes a
// section headed by its title placeholder, followed by its text frames and
// tables.
func extractPPTX(ctx context.Context, src core.Source) (*document, error) {
	data, err := readAll(ctx, src.Body)
	if err != nil {
		return nil, err
	}
	zr, err := openZip(data)
	if err != nil {
		return nil, err
	}

	slides, err := slideOrder(zr)
	if err != nil {
		return nil, err
	}

	var out blockWriter
	for i, slidePath := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slideData, err := readZipFile(zr, slidePath)
		if err != nil {
			continue
		}
		s, err := parseSlide(slideData)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", slidePath, err)
		}

		title := s.title
		if title == "" {
			title = fmt.Sprintf("Slide %d", i+1)
		}
		out.heading(2, title)
		for _, b := range s.blocks {
			if b.rows != nil {
				out.table(b.rows)
			} else {
				out.paragraph(b.text)
			}
		}
	}

	return &document{
		Title:    metadataTitle(zr, "docProps/core.xml"),
		Markdown: out.String(),
	}, nil
}

// slideOrder lists slide parts in the order presentation.xml declares them.
// Without a usable presentation part it falls back to slide file order.
func slideOrder(zr *zip.Reader) ([]string, error) {
	presData, err := readZipFile(zr, pptxPresentationPath)
	if err != nil {
		return nil, err
	}
	rels := readRelationships(zr, relsPathFor(pptxPresentationPath))

	var paths []string
	dec := xml.NewDecoder(bytes.NewReader(presData))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "sldId" {
			if rel, ok := rels[relID(se)]; ok {
				paths = append(paths, resolveTarget(pptxPresentationPath, rel.Target))
			}
		}
	}

	if len(paths) == 0 {
		for _, f := range zr.File {
			if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
				paths = append(paths, f.Name)
			}
		}
		sort.Slice(paths, func(i, j int) bool {
			if len(paths[i]) != len(paths[j]) {
				return len(paths[i]) < len(paths[j])
			}
			return paths[i] < paths[j]
		})
	}
	return paths, nil
}

type slideBlock struct {
	text string     // escaped paragraph text
	rows [][]string // set for tables
}

type slide struct {
	title  string
	blocks []slideBlock
}

// parseSlide walks one slide part. Shapes with a title placeholder supply
// the slide title; all other a:p paragraphs and a:tbl tables are content.
func parseSlide(data []byte) (*slide, error) {
	s := &slide{}
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		isTitle bool
		para    strings.Builder
		inPara  bool
		inText  bool
		table   [][]string
		row     []string
		cell    strings.Builder
		inTable bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				isTitle = false
			case "ph":
				if typ := attr(t, "type"); typ == "title" || typ == "ctrTitle" {
					isTitle = true
				}
			case "tbl":
				inTable = true
				table = nil
			case "tr":
				row = nil
			case "tc":
				cell.Reset()
			case "p":
				inPara = true
				para.Reset()
			case "t":
				inText = true
			case "br":
				if inTable {
					cell.WriteString(" ")
				} else if inPara {
					para.WriteString(lineBreak)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				inPara = false
				if inTable {
					cell.WriteString(" ")
					continue
				}
				text := para.String()
				if isTitle {
					if title := finishInline(text, " "); title != "" {
						if s.title == "" {
							s.title = title
						} else {
							s.title += " " + title
						}
					}
					continue
				}
				s.blocks = append(s.blocks, slideBlock{text: text})
			case "tc":
				row = append(row, collapseSpace(cell.String()))
			case "tr":
				table = append(table, row)
			case "tbl":
				inTable = false
				if table == nil {
					table = [][]string{}
				}
				s.blocks = append(s.blocks, slideBlock{rows: table})
			}
		case xml.CharData:
			if !inText {
				continue
			}
			if inTable {
				cell.Write(t)
			} else if inPara {
				para.WriteString(inlineEscaper.Replace(string(t)))
			}
		}
	}
	return s, nil
}
