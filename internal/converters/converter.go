// Package converters implements the document converters served by the
// registry.
//
// Every converter is a two-stage pipeline. An extractor reads one source
// kind and produces an intermediate Markdown document; a renderer turns that
// Markdown into one target format. Register wires every extractor to every
// renderer except identity pairs and pairs disabled by policy.
package converters

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/JonMunkholm/docconvert/internal/core"
)

// document is the intermediate form shared by all pipelines.
type document struct {
	Title    string
	Markdown string
}

// extractor reads a source document into Markdown.
type extractor func(ctx context.Context, src core.Source) (*document, error)

// renderer writes a Markdown document in a target format.
type renderer func(ctx context.Context, doc *document, dst io.Writer) error

// pipeline is a core.Converter built from an extractor and a renderer.
type pipeline struct {
	extract extractor
	render  renderer
}

func (p pipeline) Convert(ctx context.Context, src core.Source, dst io.Writer, opts core.ConversionOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := p.extract(ctx, src)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.From, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc.Markdown = normalizeOutput(doc.Markdown)
	if doc.Title == "" {
		doc.Title = titleFromName(src.Name)
	}

	if err := p.render(ctx, doc, dst); err != nil {
		return fmt.Errorf("write %s: %w", opts.To.Name, err)
	}
	return nil
}

// identity pairs are never registered; converting a document to its own
// format is left to the caller.
var identity = map[core.DocumentKind]string{
	core.KindPDF:      core.FormatPDF.Name,
	core.KindHTML:     core.FormatHTML.Name,
	core.KindMarkdown: core.FormatMarkdown.Name,
	core.KindText:     core.FormatText.Name,
}

func isIdentity(opts core.ConversionOptions) bool {
	name, ok := identity[opts.From]
	return ok && name == opts.To.Name
}

// Register adds a converter for every supported pair to reg.
// A nil policy registers everything with default rendering settings.
func Register(reg *core.Registry, policy *Policy) error {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("converter policy: %w", err)
	}

	extractors := map[core.DocumentKind]extractor{
		core.KindODT:      extractODF,
		core.KindODS:      extractODF,
		core.KindODP:      extractODF,
		core.KindDOCX:     extractDOCX,
		core.KindPPTX:     extractPPTX,
		core.KindXLSX:     extractXLSX,
		core.KindXLS:      extractXLS,
		core.KindPDF:      extractPDF,
		core.KindHTML:     extractHTML,
		core.KindCSV:      extractCSV,
		core.KindText:     extractText,
		core.KindMarkdown: extractMarkdown,
		core.KindRSS:      extractFeed,
	}

	renderers := map[string]renderer{
		core.FormatPDF.Name:      newPDFRenderer(policy.PDF),
		core.FormatHTML.Name:     newHTMLRenderer(policy.HTML, false),
		core.FormatXHTML.Name:    newHTMLRenderer(policy.HTML, true),
		core.FormatMarkdown.Name: renderMarkdown,
		core.FormatText.Name:     renderText,
	}

	for _, kind := range core.Kinds() {
		extract, ok := extractors[kind]
		if !ok {
			continue
		}
		for _, format := range core.Formats() {
			opts := core.OptionsFrom(kind).Into(format)
			if isIdentity(opts) || policy.Disables(opts) {
				continue
			}
			render, ok := renderers[format.Name]
			if !ok {
				continue
			}
			reg.Register(opts, pipeline{extract: extract, render: render})
		}
	}
	return nil
}

// titleFromName derives a display title from a logical filename.
func titleFromName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// readAll reads a source body, honoring ctx between chunks.
func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("no document body")
	}
	data, err := io.ReadAll(contextReader{ctx: ctx, r: r})
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
