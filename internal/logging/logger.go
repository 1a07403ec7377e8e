// Package logging configures log/slog for the conversion server and CLI.
//
// Server entries carry chi's request_id; entries about a single conversion
// also carry its conversion_id, the same value returned to clients in the
// X-Conversion-ID header and stored in the history table.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/docconvert/internal/core"
)

// Setup installs the server's default logger on stdout from LOG_LEVEL
// ("debug", "info", "warn", "error"; default "info") and LOG_FORMAT
// ("text" or "json"; default "text").
func Setup(level, format string) {
	slog.SetDefault(slog.New(NewHandler(os.Stdout, level, format)))
}

// NewHandler builds the text or JSON handler used by Setup.
// The CLI uses it to log to stderr so stdout stays free for document bytes.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLevel maps LOG_LEVEL to a slog.Level, falling back to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger tagged with the request_id chi's
// RequestID middleware stored in ctx and the conversion_id the convert
// handler attached, when present.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if id := core.ConversionIDFromContext(ctx); id != "" {
		logger = logger.With("conversion_id", id)
	}

	return logger
}

// WithFields is FromContext plus fixed attributes. The convert handler
// builds one per upload:
//
//	logger := logging.WithFields(ctx, "from", opts.From, "to", opts.To.Name)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
