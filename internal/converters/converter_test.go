package converters

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/docconvert/internal/core"
)

func TestRegisterAllPairs(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, Register(reg, nil))

	want := len(core.Kinds())*len(core.Formats()) - len(identity)
	assert.Equal(t, want, reg.Len())

	_, ok := reg.Lookup(core.OptionsFrom(core.KindODT).Into(core.FormatPDF))
	assert.True(t, ok)
	_, ok = reg.Lookup(core.OptionsFrom(core.KindCSV).Into(core.FormatXHTML))
	assert.True(t, ok)

	for kind, name := range identity {
		format, err := core.ResolveTargetFormat(name)
		require.NoError(t, err)
		_, ok := reg.Lookup(core.OptionsFrom(kind).Into(format))
		assert.False(t, ok, "identity pair %s must not be registered", kind)
	}
}

func TestRegisterHonorsPolicy(t *testing.T) {
	policy, err := ParsePolicy([]byte("disabled:\n  - from: XLS\n    to: PDF\n"))
	require.NoError(t, err)

	reg := core.NewRegistry()
	require.NoError(t, Register(reg, policy))

	_, ok := reg.Lookup(core.OptionsFrom(core.KindXLS).Into(core.FormatPDF))
	assert.False(t, ok)
	_, ok = reg.Lookup(core.OptionsFrom(core.KindXLS).Into(core.FormatHTML))
	assert.True(t, ok)
}

func TestRegisterRejectsInvalidPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.PDF.FontSize = 2
	require.Error(t, Register(core.NewRegistry(), policy))
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty keeps defaults", "", ""},
		{"partial pdf", "pdf:\n  orientation: L\n", ""},
		{"unknown kind", "disabled:\n  - from: DOC\n    to: PDF\n", "unknown document kind"},
		{"lowercase format", "disabled:\n  - from: ODT\n    to: pdf\n", "unknown output format"},
		{"bad page size", "pdf:\n  page_size: B5\n", "must be a valid value"},
		{"style breakout", "html:\n  stylesheet: \"</STYLE><script>\"\n", "closing style tag"},
		{"malformed", "disabled: [", "parse policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePolicy([]byte(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "A4", p.PDF.PageSize)
			assert.Equal(t, "Helvetica", p.PDF.FontFamily)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pdf:\n  font_size: 14\n"), 0o600))
	p, err = LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 14.0, p.PDF.FontSize)

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestPipelineConvert(t *testing.T) {
	p := pipeline{extract: extractCSV, render: renderMarkdown}
	src := core.Source{Body: strings.NewReader("a,b\n1,2\n"), Name: "data.csv"}

	var buf bytes.Buffer
	err := p.Convert(context.Background(), src, &buf, core.OptionsFrom(core.KindCSV).Into(core.FormatMarkdown))
	require.NoError(t, err)
	assert.Equal(t, "| a | b |\n| --- | --- |\n| 1 | 2 |\n", buf.String())
}

func TestPipelineTitleFallsBackToName(t *testing.T) {
	var got string
	p := pipeline{
		extract: extractText,
		render: func(_ context.Context, doc *document, _ io.Writer) error {
			got = doc.Title
			return nil
		},
	}
	src := core.Source{Body: strings.NewReader("x"), Name: `C:\docs\notes.txt`}
	require.NoError(t, p.Convert(context.Background(), src, io.Discard, core.OptionsFrom(core.KindText).Into(core.FormatHTML)))
	assert.Equal(t, "notes", got)
}

func TestPipelineWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	p := pipeline{
		extract: func(context.Context, core.Source) (*document, error) { return nil, boom },
		render:  renderMarkdown,
	}
	err := p.Convert(context.Background(), core.Source{Body: strings.NewReader("")}, io.Discard,
		core.OptionsFrom(core.KindDOCX).Into(core.FormatPDF))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "read DOCX")
}

func TestEndToEndThroughDispatcher(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, Register(reg, nil))
	d := core.NewDispatcher(reg)

	data := zipFiles(t, map[string]string{"content.xml": odtContent, "meta.xml": odfMeta})
	out, err := d.DispatchBuffered(context.Background(), core.OptionsFrom(core.KindODT).Into(core.FormatText),
		core.Source{Body: bytes.NewReader(data), Name: "doc.odt"})
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "Intro\n")
	assert.Contains(t, text, "Hello world (https://example.com).")
	assert.Contains(t, text, "- one\n- two\n")
}

func TestTitleFromName(t *testing.T) {
	assert.Equal(t, "report", titleFromName("report.pdf"))
	assert.Equal(t, "archive.tar", titleFromName("dir/archive.tar.gz"))
	assert.Equal(t, "", titleFromName(""))
}
