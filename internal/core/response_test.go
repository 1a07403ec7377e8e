package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	bytes.Buffer
	released   int
	failure    error
	releaseErr error
}

func (s *recordingSink) Release(failure error) error {
	s.released++
	s.failure = failure
	return s.releaseErr
}

func producerOf(data string, err error) Producer {
	return func(ctx context.Context, sink io.Writer) error {
		if data != "" {
			if _, werr := sink.Write([]byte(data)); werr != nil {
				return werr
			}
		}
		return err
	}
}

func TestDeriveFilename(t *testing.T) {
	tests := []struct {
		name   string
		target TargetFormat
		want   string
	}{
		{"report.final.odt", FormatPDF, "report_final_odt.pdf"},
		{"report", FormatHTML, "report.html"},
		{"a.b.c.d", FormatXHTML, "a_b_c_d.xhtml"},
		{".hidden", FormatText, "_hidden.txt"},
		{"notes.md", FormatMarkdown, "notes_md.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveFilename(tt.name, tt.target), tt.name)
	}
}

func TestAttachmentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="report_final_odt.pdf"`, AttachmentDisposition("report_final_odt.pdf"))
	assert.Equal(t, `attachment; filename="a\"b.pdf"`, AttachmentDisposition(`a"b.pdf`))
	assert.Equal(t,
		`attachment; filename="r_sum__odt.pdf"; filename*=UTF-8''r%C3%A9sum%C3%A9_odt.pdf`,
		AttachmentDisposition("résumé_odt.pdf"))
}

func TestBuildResponse_Download(t *testing.T) {
	resp := BuildResponse(FormatPDF, producerOf("x", nil), true, "report.final.odt")

	assert.Equal(t, "application/pdf", resp.ContentType)
	assert.Equal(t, "report_final_odt.pdf", resp.Filename)
	assert.Equal(t, `attachment; filename="report_final_odt.pdf"`, resp.ContentDisposition)
}

func TestBuildResponse_Inline(t *testing.T) {
	resp := BuildResponse(FormatHTML, producerOf("x", nil), false, "report.final.odt")

	assert.Equal(t, "text/html", resp.ContentType)
	assert.Empty(t, resp.Filename)
	assert.Empty(t, resp.ContentDisposition)
}

func TestBuildResponse_IsLazy(t *testing.T) {
	called := false
	resp := BuildResponse(FormatPDF, func(ctx context.Context, sink io.Writer) error {
		called = true
		return nil
	}, false, "x")

	assert.False(t, called)
	require.NoError(t, resp.Stream(context.Background(), &recordingSink{}))
	assert.True(t, called)
}

func TestStream_ReleasesOnSuccess(t *testing.T) {
	sink := &recordingSink{}
	err := BuildResponse(FormatPDF, producerOf("%PDF", nil), false, "x").Stream(context.Background(), sink)

	require.NoError(t, err)
	assert.Equal(t, "%PDF", sink.String())
	assert.Equal(t, 1, sink.released)
	assert.NoError(t, sink.failure)
}

func TestStream_ReleasesOnFailure(t *testing.T) {
	cause := &ConversionFailedError{Options: odtToPDF, Cause: errors.New("boom")}
	sink := &recordingSink{}

	err := BuildResponse(FormatPDF, producerOf("%PDF", cause), false, "x").Stream(context.Background(), sink)

	assert.True(t, IsConversionFailed(err))
	assert.Equal(t, 1, sink.released)
	assert.Equal(t, cause, sink.failure)
}

func TestStream_ReleaseErrorIsTransport(t *testing.T) {
	sink := &recordingSink{releaseErr: errors.New("connection reset")}

	err := BuildResponse(FormatPDF, producerOf("%PDF", nil), false, "x").Stream(context.Background(), sink)

	assert.True(t, IsTransportFailed(err))
	assert.Equal(t, 1, sink.released)
}

func TestStream_ReleaseErrorDoesNotMaskFailure(t *testing.T) {
	sink := &recordingSink{releaseErr: errors.New("connection reset")}
	cause := errors.New("boom")

	err := BuildResponse(FormatPDF, producerOf("", cause), false, "x").Stream(context.Background(), sink)

	assert.Equal(t, cause, err)
}

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestCloserSink(t *testing.T) {
	wc := &closeRecorder{}
	err := BuildResponse(FormatText, producerOf("hi", errors.New("late")), false, "x").Stream(context.Background(), CloserSink(wc))

	assert.Error(t, err)
	assert.True(t, wc.closed)
	assert.Equal(t, "hi", wc.String())
}
