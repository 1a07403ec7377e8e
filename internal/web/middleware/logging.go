// Package middleware provides HTTP middleware for the conversion server.
package middleware

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/docconvert/internal/logging"
)

// ConversionIDHeader names the response header carrying the conversion id.
const ConversionIDHeader = "X-Conversion-ID"

// Logger writes one structured access log entry per request.
//
// Fields: method, path, status, bytes, duration_ms, ip, user_agent, and
// conversion_id when the handler set one. The request id is attached by
// logging.FromContext.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.status,
				"bytes", ww.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			}
			if id := ww.Header().Get(ConversionIDHeader); id != "" {
				attrs = append(attrs, "conversion_id", id)
			}

			logger := logging.FromContext(r.Context())
			if rec := recover(); rec != nil {
				// Aborted mid-stream; the client saw a broken response.
				logger.Warn("request aborted", attrs...)
				panic(rec)
			}
			logger.Info("request", attrs...)
		}()

		next.ServeHTTP(ww, r)
	})
}

// responseWriter records status and body size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
