package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusSucceeded, StatusFor(nil))
	assert.Equal(t, StatusAborted, StatusFor(&TransportFailedError{Cause: errors.New("reset")}))
	assert.Equal(t, StatusFailed, StatusFor(&ConversionFailedError{Options: odtToPDF, Cause: errors.New("x")}))
	assert.Equal(t, StatusFailed, StatusFor(&UnsupportedConversionError{Options: odtToPDF}))
}

func TestNewHistoryEntry(t *testing.T) {
	ctx := ContextWithConversionID(context.Background(), "c-1")
	ctx = ContextWithIPAddress(ctx, "10.0.0.1")
	ctx = ContextWithUserAgent(ctx, "curl/8")

	e := NewHistoryEntry(ctx, odtToPDF, "memo.odt", OperationDownload)
	assert.Equal(t, "c-1", e.ID)
	assert.Equal(t, KindODT, e.SourceKind)
	assert.Equal(t, "PDF", e.TargetFormat)
	assert.Equal(t, "10.0.0.1", e.IPAddress)
	assert.Equal(t, "curl/8", e.UserAgent)
	assert.False(t, e.CreatedAt.IsZero())

	e.Finish(&ConversionFailedError{Options: odtToPDF, Cause: errors.New("bad")}, 10, 4, time.Now().Add(-time.Second))
	assert.Equal(t, StatusFailed, e.Status)
	assert.Equal(t, "CNV002", e.ErrorCode)
	assert.Equal(t, int64(10), e.BytesIn)
	assert.Equal(t, int64(4), e.BytesOut)
	assert.GreaterOrEqual(t, e.DurationMS, int64(1000))
}

func TestNopHistory(t *testing.T) {
	var h HistoryStore = NopHistory{}
	assert.NoError(t, h.Record(context.Background(), HistoryEntry{}))
	entries, err := h.Recent(context.Background(), 10)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}
