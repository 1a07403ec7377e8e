package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/docconvert/internal/core"
	mw "github.com/JonMunkholm/docconvert/internal/web/middleware"
)

// responseSink is the core.ByteSink behind a conversion response.
//
// Output is held until it exceeds limit bytes; only then are the status and
// headers written. A failure before that point leaves the response untouched
// so the handler can still answer with an error status. Outputs that fit the
// buffer are sent with Content-Length.
type responseSink struct {
	w     http.ResponseWriter
	resp  *core.Response
	id    string
	limit int

	buf       []byte
	committed bool
	written   int64
}

var _ core.ByteSink = (*responseSink)(nil)

func newResponseSink(w http.ResponseWriter, resp *core.Response, conversionID string, limit int) *responseSink {
	return &responseSink{w: w, resp: resp, id: conversionID, limit: limit}
}

func (s *responseSink) Write(p []byte) (int, error) {
	if !s.committed {
		if len(s.buf)+len(p) <= s.limit {
			s.buf = append(s.buf, p...)
			return len(p), nil
		}
		if err := s.commit(-1); err != nil {
			return 0, err
		}
	}
	n, err := s.w.Write(p)
	s.written += int64(n)
	return n, err
}

// Release flushes buffered output on success and drops it on failure.
func (s *responseSink) Release(failure error) error {
	if failure != nil {
		s.buf = nil
		return nil
	}
	if !s.committed {
		return s.commit(len(s.buf))
	}
	return nil
}

// Committed reports whether the status line has been sent.
func (s *responseSink) Committed() bool {
	return s.committed
}

// Written returns the body bytes handed to the client connection.
func (s *responseSink) Written() int64 {
	return s.written
}

// commit writes headers and any buffered bytes. A negative length means
// the final size is unknown.
func (s *responseSink) commit(length int) error {
	s.committed = true

	h := s.w.Header()
	h.Set("Content-Type", s.resp.ContentType)
	h.Set(mw.ConversionIDHeader, s.id)
	if s.resp.ContentDisposition != "" {
		h.Set("Content-Disposition", s.resp.ContentDisposition)
	}
	if length >= 0 {
		h.Set("Content-Length", strconv.Itoa(length))
	}
	s.w.WriteHeader(http.StatusOK)

	if len(s.buf) == 0 {
		return nil
	}
	n, err := s.w.Write(s.buf)
	s.written += int64(n)
	s.buf = nil
	return err
}
