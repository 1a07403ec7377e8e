package core

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperation(t *testing.T) {
	assert.Equal(t, OperationDownload, ParseOperation("download"))
	for _, s := range []string{"", "inline", "Download", "DOWNLOAD", "save"} {
		assert.Equal(t, OperationInline, ParseOperation(s), s)
	}
}

func TestConversionRequest_Validate(t *testing.T) {
	valid := ConversionRequest{Name: "report.odt", Operation: OperationDownload, Body: strings.NewReader("x")}
	require.NoError(t, valid.Validate())

	noBody := valid
	noBody.Body = nil
	assert.True(t, IsRequestError(noBody.Validate()))

	badName := valid
	badName.Name = "bad\nname"
	assert.True(t, IsRequestError(badName.Validate()))

	longName := valid
	longName.Name = strings.Repeat("a", MaxNameLength+1)
	assert.True(t, IsRequestError(longName.Validate()))

	// Unknown content types are a resolution concern, not a request error.
	unknownType := valid
	unknownType.ContentType = "text/unknown"
	assert.NoError(t, unknownType.Validate())
}

func TestPDFRequest(t *testing.T) {
	req := PDFRequest{Filename: "letter", Content: base64.StdEncoding.EncodeToString([]byte("PK\x03\x04"))}
	require.NoError(t, req.Validate())

	data, err := req.Decode()
	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04"), data)

	assert.True(t, IsRequestError(PDFRequest{Content: req.Content}.Validate()))
	assert.True(t, IsRequestError(PDFRequest{Filename: "x"}.Validate()))
	assert.True(t, IsRequestError(PDFRequest{Filename: "x", Content: "!!not base64"}.Validate()))
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"report.final.odt":      "report.final.odt",
		"  spaced.odt ":         "spaced.odt",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\memo.docx`: "memo.docx",
		"":                      DefaultDocumentName,
		"/":                     DefaultDocumentName,
		"..":                    DefaultDocumentName,
		"tab\there.odt":         "tabhere.odt",
		"dir/":                  "dir",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanName(in), "CleanName(%q)", in)
	}

	long := CleanName(strings.Repeat("é", MaxNameLength+10))
	assert.Equal(t, MaxNameLength, len([]rune(long)))
}
