package converters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"  spaced \n out  ", "spaced out"},
		{"a*b_c", `a\*b\_c`},
		{"[link](x)", `\[link\](x)`},
		{"# not a heading", `\# not a heading`},
		{"- not a list", `\- not a list`},
		{"1. not ordered", `1\. not ordered`},
		{"a | b", `a \| b`},
		{"<tag>", `\<tag\>`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeMarkdown(tt.in))
		})
	}
}

func TestRenderMarkdownTable(t *testing.T) {
	got := renderMarkdownTable([][]string{
		{"Name", "Qty"},
		{"apple", "3", "extra"},
		{"pear|x"},
	})
	want := "| Name | Qty |  |\n" +
		"| --- | --- | --- |\n" +
		"| apple | 3 | extra |\n" +
		"| pear\\|x |  |  |\n"
	assert.Equal(t, want, got)
	assert.Empty(t, renderMarkdownTable(nil))
}

func TestTrimTable(t *testing.T) {
	rows := trimTable([][]string{
		{"a", "", ""},
		{"b", "c", " "},
		{"", ""},
		nil,
	})
	assert.Equal(t, [][]string{{"a", ""}, {"b", "c"}}, rows)
}

func TestFenced(t *testing.T) {
	assert.Equal(t, "```\nx := 1\n```", fenced("", "x := 1\n"))
	assert.Equal(t, "````go\na ``` b\n````", fenced("go", "a ``` b"))
}

func TestBlockWriter(t *testing.T) {
	var w blockWriter
	w.heading(2, "Title")
	w.paragraph("first" + lineBreak + "second")
	w.listItem(1, "one", false)
	w.listItem(2, "nested", false)
	w.listItem(1, "- dash", false)
	w.paragraph("after")
	w.table([][]string{{"h"}, {"v"}})
	w.block("```\ncode\n```")

	want := "## Title\n\n" +
		"first\\\nsecond\n\n" +
		"- one\n" +
		"  - nested\n" +
		"- \\- dash\n\n" +
		"after\n\n" +
		"| h |\n| --- |\n| v |\n\n" +
		"```\ncode\n```\n\n"
	assert.Equal(t, want, w.String())
}

func TestBlockWriterSkipsEmpty(t *testing.T) {
	var w blockWriter
	w.paragraph("   ")
	w.heading(1, "")
	w.table([][]string{{"", ""}})
	w.block("\n")
	assert.Empty(t, w.String())
}

func TestNormalizeOutput(t *testing.T) {
	in := "\n\nline one  \r\nline\x07 two\r\n\n\n\n\nend\t\n"
	assert.Equal(t, "line one\nline two\n\nend", normalizeOutput(in))
	assert.Equal(t, "ok", normalizeOutput("ok\xff"))
}

func TestDecodeText(t *testing.T) {
	latin1, err := charmap.ISO8859_1.NewEncoder().String("café")
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    []byte
		charset string
		want    string
	}{
		{"utf8", []byte("héllo"), "", "héllo"},
		{"utf8 bom", []byte("\xEF\xBB\xBFhi"), "", "hi"},
		{"utf16le bom", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "", "hi"},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, "", "hi"},
		{"declared latin1", []byte(latin1), "ISO-8859-1", "café"},
		{"declared label", []byte(latin1), "latin1", "café"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeText(tt.data, tt.charset)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeTextUnknownCharset(t *testing.T) {
	_, err := decodeText([]byte("x"), "no-such-charset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported charset")
}

func TestDecodeTextDetectsLegacyEncoding(t *testing.T) {
	// Invalid UTF-8 falls through to detection and still decodes.
	got, err := decodeText([]byte("caf\xe9 au lait"), "")
	require.NoError(t, err)
	assert.Contains(t, got, "au lait")
	assert.NotContains(t, got, "\xe9")
}
