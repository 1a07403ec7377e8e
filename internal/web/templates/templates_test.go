package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexEscapesValues(t *testing.T) {
	data := IndexData{
		Formats:     []FormatOption{{Name: "PDF", Extension: "pdf"}},
		Pairs:       []PairRow{{Kind: "<ODT>", MIME: "application/x", Targets: []string{"PDF", "TEXT"}}},
		MaxFileSize: 50 << 20,
	}

	var buf bytes.Buffer
	require.NoError(t, Index(data).Render(context.Background(), &buf))

	out := buf.String()
	assert.Contains(t, out, `<option value="PDF">PDF (.pdf)</option>`)
	assert.Contains(t, out, "&lt;ODT&gt;")
	assert.Contains(t, out, "PDF, TEXT")
	assert.Contains(t, out, "50.0 MB")
	assert.Contains(t, out, `<input type="file" name="file" required>`)
	assert.Contains(t, out, `<td><code>application/x</code></td>`)
	assert.True(t, strings.HasPrefix(out, "<!doctype html>"))
	assert.True(t, strings.HasSuffix(out, "</html>"))
}

func TestIndexRendersEveryPair(t *testing.T) {
	data := IndexData{Pairs: []PairRow{
		{Kind: "ODT", MIME: "application/vnd.oasis.opendocument.text", Targets: []string{"PDF"}},
		{Kind: "CSV", MIME: "text/csv", Targets: []string{"HTML", "MARKDOWN"}},
	}}

	var buf bytes.Buffer
	require.NoError(t, Index(data).Render(context.Background(), &buf))

	assert.Equal(t, 2, strings.Count(buf.String(), "<tr><td>"))
	assert.Contains(t, buf.String(), "<td>HTML, MARKDOWN</td>")
}

func TestRenderCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := ErrorAlert("x", "", "").Render(ctx, &buf)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestErrorAlert(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert("bad <input>", "", "REQ001").Render(context.Background(), &buf))

	out := buf.String()
	assert.Contains(t, out, "bad &lt;input&gt;")
	assert.Contains(t, out, "Reference: REQ001")
	assert.NotContains(t, out, "error-action")
	assert.Equal(t, `<div class="error-alert" role="alert"><p class="error-message">bad &lt;input&gt;</p>`+
		`<p class="error-code"><small>Reference: REQ001</small></p></div>`, out)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 KB", humanSize(1536))
	assert.Equal(t, "2.0 GB", humanSize(2<<30))
}
