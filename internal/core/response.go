package core

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"
)

// ByteSink is the writable side of a streamed response.
type ByteSink interface {
	io.Writer
	// Release frees the sink. failure is the error that ended production,
	// or nil on success; a sink may discard unsent bytes when it is set.
	Release(failure error) error
}

// Response is a lazily produced conversion response.
type Response struct {
	ContentType string

	// Filename and ContentDisposition are set only for downloads.
	Filename           string
	ContentDisposition string

	produce Producer
}

// BuildResponse prepares a response for target. Nothing is produced until
// Stream is called.
func BuildResponse(target TargetFormat, produce Producer, download bool, sourceFilename string) *Response {
	resp := &Response{
		ContentType: target.MIMEType,
		produce:     produce,
	}
	if download {
		resp.Filename = DeriveFilename(sourceFilename, target)
		resp.ContentDisposition = AttachmentDisposition(resp.Filename)
	}
	return resp
}

// Stream runs the producer into sink. The sink is released exactly once,
// whatever the outcome. A release failure after a successful production is
// reported as TransportFailedError.
func (r *Response) Stream(ctx context.Context, sink ByteSink) (err error) {
	defer func() {
		if rerr := sink.Release(err); err == nil && rerr != nil {
			err = &TransportFailedError{Cause: rerr}
		}
	}()

	if r.produce == nil {
		return fmt.Errorf("response has no producer")
	}
	return r.produce(ctx, sink)
}

// DeriveFilename names a converted document: every '.' in name becomes '_',
// then the target extension is appended.
//
//	DeriveFilename("report.final.odt", FormatPDF) == "report_final_odt.pdf"
func DeriveFilename(name string, target TargetFormat) string {
	return strings.ReplaceAll(name, ".", "_") + "." + target.Extension
}

// AttachmentDisposition formats a Content-Disposition value for filename.
// Non-ASCII names also get an RFC 5987 filename* parameter.
func AttachmentDisposition(filename string) string {
	var b strings.Builder
	b.WriteString(`attachment; filename="`)
	for _, r := range filename {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		case r >= utf8.RuneSelf:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')

	if !isASCII(filename) {
		b.WriteString("; filename*=UTF-8''")
		b.WriteString(url.PathEscape(filename))
	}
	return b.String()
}

// CloserSink adapts an io.WriteCloser to ByteSink. Release always closes.
func CloserSink(wc io.WriteCloser) ByteSink {
	return closerSink{wc}
}

type closerSink struct {
	io.WriteCloser
}

func (s closerSink) Release(error) error {
	return s.Close()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
