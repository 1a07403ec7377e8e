package converters

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/JonMunkholm/docconvert/internal/core"
)

var (
	htmlToMarkdown = sync.OnceValue(func() *converter.Converter {
		return converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(
					commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
				),
				table.NewTablePlugin(),
			),
		)
	})

	// ugcPolicy strips scripts, event handlers and unsafe URLs while keeping
	// formatting, links, images and tables.
	ugcPolicy = sync.OnceValue(func() *bluemonday.Policy {
		return bluemonday.UGCPolicy()
	})
)

// extractHTML sanitizes the page and converts it to Markdown.
func extractHTML(ctx context.Context, src core.Source) (*document, error) {
	data, err := readAll(ctx, src.Body)
	if err != nil {
		return nil, err
	}
	page, err := decodeHTML(data, src.Charset)
	if err != nil {
		return nil, err
	}

	md, err := htmlFragmentToMarkdown(ctx, page)
	if err != nil {
		return nil, err
	}
	return &document{
		Title:    htmlTitle(page),
		Markdown: md,
	}, nil
}

// htmlFragmentToMarkdown converts untrusted HTML after sanitizing it.
func htmlFragmentToMarkdown(ctx context.Context, fragment string) (string, error) {
	clean := ugcPolicy().Sanitize(fragment)
	md, err := htmlToMarkdown().ConvertString(clean, converter.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("convert HTML: %w", err)
	}
	return md, nil
}

// decodeHTML honours a declared charset, then a BOM or meta tag. Pages with
// neither are read as UTF-8 when valid and as Windows-1252 otherwise.
func decodeHTML(data []byte, declared string) (string, error) {
	if declared != "" {
		return decodeText(data, declared)
	}
	enc, name, _ := charset.DetermineEncoding(data, "text/html")
	if name == "windows-1252" && utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, bomUTF8)), nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode HTML: %w", err)
	}
	return string(bytes.TrimPrefix(out, bomUTF8)), nil
}

// htmlTitle returns the text of the first <title> element.
func htmlTitle(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}

	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			return collapseSpace(b.String())
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title := find(c); title != "" {
				return title
			}
		}
		return ""
	}
	return find(doc)
}
