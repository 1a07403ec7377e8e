package converters

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/JonMunkholm/docconvert/internal/core"
)

// extractFeed reads RSS, Atom or JSON feeds. The feed title is the top
// heading and each item becomes a section.
func extractFeed(ctx context.Context, src core.Source) (*document, error) {
	data, err := readAll(ctx, src.Body)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var out blockWriter
	title := collapseSpace(feed.Title)
	out.heading(1, escapeMarkdown(title))
	if err := writeFeedContent(ctx, &out, feed.Description); err != nil {
		return nil, err
	}

	for _, item := range feed.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		heading := escapeMarkdown(item.Title)
		if heading != "" && item.Link != "" {
			heading = "[" + heading + "](" + linkTarget.Replace(item.Link) + ")"
		}
		out.heading(2, heading)

		switch {
		case item.Published != "":
			out.paragraph("Published: " + inlineEscaper.Replace(item.Published))
		case item.Updated != "":
			out.paragraph("Updated: " + inlineEscaper.Replace(item.Updated))
		}

		content := item.Content
		if strings.TrimSpace(content) == "" {
			content = item.Description
		}
		if err := writeFeedContent(ctx, &out, content); err != nil {
			return nil, err
		}
	}

	return &document{Title: title, Markdown: out.String()}, nil
}

// writeFeedContent converts an HTML or plain-text feed field.
func writeFeedContent(ctx context.Context, out *blockWriter, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if !strings.ContainsAny(content, "<&") {
		out.paragraph(inlineEscaper.Replace(content))
		return nil
	}
	md, err := htmlFragmentToMarkdown(ctx, content)
	if err != nil {
		return err
	}
	out.block(md)
	return nil
}
