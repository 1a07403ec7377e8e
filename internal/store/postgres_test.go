package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/docconvert/internal/config"
	"github.com/JonMunkholm/docconvert/internal/core"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultRecentLimit, clampLimit(0))
	assert.Equal(t, DefaultRecentLimit, clampLimit(-3))
	assert.Equal(t, 10, clampLimit(10))
	assert.Equal(t, MaxRecentLimit, clampLimit(MaxRecentLimit+1))
}

func TestParseIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"192.0.2.1", "192.0.2.1"},
		{"192.0.2.1:4321", "192.0.2.1"},
		{"[2001:db8::1]:80", "2001:db8::1"},
		{"not-an-ip", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseIP(tt.in)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestUUIDConversion(t *testing.T) {
	id := uuid.NewString()
	assert.Equal(t, id, pgUUIDToString(toPgUUID(id)))
	assert.False(t, toPgUUID("").Valid)
	assert.False(t, toPgUUID("nope").Valid)
	assert.Empty(t, pgUUIDToString(toPgUUID("nope")))
}

func TestToPgText(t *testing.T) {
	assert.False(t, toPgText("").Valid)
	assert.Equal(t, "CNV002", toPgText("CNV002").String)
}

// TestHistoryRoundTrip needs a disposable database in TEST_DATABASE_URL.
func TestHistoryRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := Connect(ctx, config.DatabaseConfig{
		URL:             dsn,
		MaxConns:        2,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
		MaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)
	defer pool.Close()

	h := NewHistory(pool)
	require.NoError(t, h.EnsureSchema(ctx))
	require.NoError(t, h.EnsureSchema(ctx), "schema creation must be repeatable")

	id := uuid.NewString()
	entry := core.HistoryEntry{
		ID:           id,
		SourceKind:   core.KindODT,
		TargetFormat: core.FormatPDF.Name,
		Filename:     "report.odt",
		Operation:    core.OperationDownload,
		BytesIn:      1200,
		BytesOut:     3400,
		Status:       core.StatusFailed,
		ErrorCode:    "CNV002",
		DurationMS:   15,
		IPAddress:    "192.0.2.7:5555",
		UserAgent:    "test",
		CreatedAt:    time.Now().Add(time.Hour).UTC(),
	}
	require.NoError(t, h.Record(ctx, entry))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM conversion_history WHERE id = $1", toPgUUID(id))
	})

	recent, err := h.Recent(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, recent)

	got := recent[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, core.KindODT, got.SourceKind)
	assert.Equal(t, "PDF", got.TargetFormat)
	assert.Equal(t, core.OperationDownload, got.Operation)
	assert.Equal(t, int64(3400), got.BytesOut)
	assert.Equal(t, "CNV002", got.ErrorCode)
	assert.Equal(t, "192.0.2.7", got.IPAddress)
	assert.Equal(t, "test", got.UserAgent)
}

func TestHistoryPrune(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := Connect(ctx, config.DatabaseConfig{URL: dsn, MaxConns: 2, MinConns: 1})
	require.NoError(t, err)
	defer pool.Close()

	h := NewHistory(pool)
	require.NoError(t, h.EnsureSchema(ctx))

	// Far enough in the past that no other test row is older.
	old := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Record(ctx, core.HistoryEntry{
			SourceKind:   core.KindText,
			TargetFormat: "HTML",
			Filename:     "old.txt",
			Operation:    core.OperationInline,
			Status:       core.StatusSucceeded,
			CreatedAt:    old,
		}))
	}

	cutoff := old.Add(time.Hour)
	n, err := h.Prune(ctx, cutoff, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = h.Prune(ctx, cutoff, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
