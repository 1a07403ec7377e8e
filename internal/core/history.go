package core

import (
	"context"
	"time"
)

// Conversion outcomes recorded in history.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusAborted   = "aborted"
)

// HistoryEntry describes one finished conversion.
type HistoryEntry struct {
	ID           string       `json:"id"`
	SourceKind   DocumentKind `json:"source_kind"`
	TargetFormat string       `json:"target_format"`
	Filename     string       `json:"filename"`
	Operation    Operation    `json:"operation"`
	BytesIn      int64        `json:"bytes_in"`
	BytesOut     int64        `json:"bytes_out"`
	Status       string       `json:"status"`
	ErrorCode    string       `json:"error_code,omitempty"`
	DurationMS   int64        `json:"duration_ms"`
	IPAddress    string       `json:"ip_address,omitempty"`
	UserAgent    string       `json:"user_agent,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// HistoryStore persists conversion history.
type HistoryStore interface {
	Record(ctx context.Context, entry HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
}

// NopHistory discards entries. Used when no database is configured.
type NopHistory struct{}

func (NopHistory) Record(context.Context, HistoryEntry) error { return nil }

func (NopHistory) Recent(context.Context, int) ([]HistoryEntry, error) { return nil, nil }

// StatusFor classifies a conversion error for history.
func StatusFor(err error) string {
	switch {
	case err == nil:
		return StatusSucceeded
	case IsTransportFailed(err):
		return StatusAborted
	default:
		return StatusFailed
	}
}

// NewHistoryEntry fills the request-scoped fields of an entry from ctx.
func NewHistoryEntry(ctx context.Context, opts ConversionOptions, name string, op Operation) HistoryEntry {
	return HistoryEntry{
		ID:           ConversionIDFromContext(ctx),
		SourceKind:   opts.From,
		TargetFormat: opts.To.Name,
		Filename:     name,
		Operation:    op,
		IPAddress:    IPAddressFromContext(ctx),
		UserAgent:    UserAgentFromContext(ctx),
		CreatedAt:    time.Now().UTC(),
	}
}

// Finish sets the outcome fields of e.
func (e *HistoryEntry) Finish(err error, bytesIn, bytesOut int64, started time.Time) {
	e.Status = StatusFor(err)
	e.BytesIn = bytesIn
	e.BytesOut = bytesOut
	e.DurationMS = time.Since(started).Milliseconds()
	if err != nil {
		e.ErrorCode = MapError(err).Code
	}
}
