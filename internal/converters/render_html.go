package converters

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const (
	htmlPrologue = "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n"

	xhtmlPrologue = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<!DOCTYPE html>\n" +
		"<html xmlns=\"http://www.w3.org/1999/xhtml\">\n<head>\n<meta charset=\"utf-8\" />\n"
)

// newHTMLRenderer returns a renderer producing a complete HTML page, or an
// XHTML page when xhtml is set. Raw HTML in the Markdown is never emitted
// and the converted body is sanitized again before it is written.
func newHTMLRenderer(settings HTMLSettings, xhtml bool) renderer {
	opts := []goldmark.Option{goldmark.WithExtensions(extension.GFM)}
	prologue := htmlPrologue
	if xhtml {
		opts = append(opts, goldmark.WithRendererOptions(gmhtml.WithXHTML()))
		prologue = xhtmlPrologue
	}
	md := goldmark.New(opts...)

	return func(ctx context.Context, doc *document, dst io.Writer) error {
		var body bytes.Buffer
		if err := md.Convert([]byte(doc.Markdown), &body); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		w := bufio.NewWriter(dst)
		w.WriteString(prologue)
		fmt.Fprintf(w, "<title>%s</title>\n", html.EscapeString(doc.Title))
		if settings.Stylesheet != "" {
			fmt.Fprintf(w, "<style>%s</style>\n", settings.Stylesheet)
		}
		w.WriteString("</head>\n<body>\n")
		if err := ugcPolicy().SanitizeReaderToWriter(&body, w); err != nil {
			return fmt.Errorf("sanitize HTML: %w", err)
		}
		w.WriteString("</body>\n</html>\n")
		return w.Flush()
	}
}
