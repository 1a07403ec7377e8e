package converters

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// gfm parses the intermediate Markdown for the PDF and text renderers.
var gfm = goldmark.New(goldmark.WithExtensions(extension.GFM))

func parseMarkdown(src []byte) ast.Node {
	return gfm.Parser().Parse(text.NewReader(src))
}

// literal resolves backslash escapes and character references.
func literal(b []byte) string {
	b = util.UnescapePunctuations(b)
	b = util.ResolveNumericReferences(b)
	b = util.ResolveEntityNames(b)
	return string(b)
}

// textValue returns the display text of a text node.
func textValue(n *ast.Text, src []byte) string {
	if n.IsRaw() {
		return string(n.Value(src))
	}
	return literal(n.Value(src))
}

// codeSpanText joins the raw text of a code span.
func codeSpanText(n *ast.CodeSpan, src []byte) string {
	var b []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b = append(b, t.Value(src)...)
		case *ast.String:
			b = append(b, t.Value...)
		}
	}
	return string(b)
}

// blockLines returns the raw lines of a code or HTML block.
func blockLines(n ast.Node, src []byte) string {
	lines := n.Lines()
	var b []byte
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b = append(b, seg.Value(src)...)
	}
	return string(b)
}

// plainInline flattens the inline children of n. Soft line breaks become
// soft; link destinations are appended in parentheses when withURLs is set.
func plainInline(n ast.Node, src []byte, soft string, withURLs bool) string {
	var b []byte
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				b = append(b, textValue(t, src)...)
				switch {
				case t.HardLineBreak():
					b = append(b, '\n')
				case t.SoftLineBreak():
					b = append(b, soft...)
				}
			case *ast.String:
				if t.IsCode() || t.IsRaw() {
					b = append(b, t.Value...)
				} else {
					b = append(b, literal(t.Value)...)
				}
			case *ast.CodeSpan:
				b = append(b, codeSpanText(t, src)...)
			case *ast.AutoLink:
				b = append(b, t.URL(src)...)
			case *ast.RawHTML:
			case *ast.Link:
				start := len(b)
				walk(t)
				label := string(b[start:])
				if dest := string(t.Destination); withURLs && dest != "" && dest != label {
					b = append(b, " ("+dest+")"...)
				}
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return string(b)
}
