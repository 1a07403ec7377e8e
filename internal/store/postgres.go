// Package store persists conversion history in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/docconvert/internal/config"
	"github.com/JonMunkholm/docconvert/internal/core"
)

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 50

// MaxRecentLimit caps a single Recent query.
const MaxRecentLimit = 500

const schema = `
CREATE TABLE IF NOT EXISTS conversion_history (
	id            UUID PRIMARY KEY,
	source_kind   TEXT NOT NULL,
	target_format TEXT NOT NULL,
	filename      TEXT NOT NULL,
	operation     TEXT NOT NULL,
	bytes_in      BIGINT NOT NULL DEFAULT 0,
	bytes_out     BIGINT NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	error_code    TEXT,
	duration_ms   BIGINT NOT NULL DEFAULT 0,
	ip_address    INET,
	user_agent    TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS conversion_history_created_at_idx
	ON conversion_history (created_at DESC);
`

// Connect opens and pings a pool configured from cfg.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// History implements core.HistoryStore on a pgx pool.
type History struct {
	pool *pgxpool.Pool
}

var _ core.HistoryStore = (*History)(nil)

// NewHistory creates a history store.
func NewHistory(pool *pgxpool.Pool) *History {
	return &History{pool: pool}
}

// EnsureSchema creates the history table if it does not exist.
func (h *History) EnsureSchema(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// Record inserts one entry. Entries without a valid id get a fresh one.
func (h *History) Record(ctx context.Context, entry core.HistoryEntry) error {
	id := toPgUUID(entry.ID)
	if !id.Valid {
		id = pgtype.UUID{Bytes: uuid.New(), Valid: true}
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO conversion_history (
			id, source_kind, target_format, filename, operation,
			bytes_in, bytes_out, status, error_code, duration_ms,
			ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id,
		string(entry.SourceKind),
		entry.TargetFormat,
		entry.Filename,
		string(entry.Operation),
		entry.BytesIn,
		entry.BytesOut,
		entry.Status,
		toPgText(entry.ErrorCode),
		entry.DurationMS,
		parseIP(entry.IPAddress),
		toPgText(entry.UserAgent),
		pgtype.Timestamptz{Time: createdAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("record conversion %s: %w", entry.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	limit = clampLimit(limit)

	rows, err := h.pool.Query(ctx, `
		SELECT id, source_kind, target_format, filename, operation,
			bytes_in, bytes_out, status, error_code, duration_ms,
			ip_address, user_agent, created_at
		FROM conversion_history
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := make([]core.HistoryEntry, 0, limit)
	for rows.Next() {
		entry, err := scanHistoryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return entries, nil
}

func scanHistoryRow(rows pgx.Rows) (*core.HistoryEntry, error) {
	var (
		id           pgtype.UUID
		sourceKind   string
		targetFormat string
		filename     string
		operation    string
		bytesIn      int64
		bytesOut     int64
		status       string
		errorCode    pgtype.Text
		durationMS   int64
		ipAddress    *netip.Addr
		userAgent    pgtype.Text
		createdAt    pgtype.Timestamptz
	)

	err := rows.Scan(
		&id, &sourceKind, &targetFormat, &filename, &operation,
		&bytesIn, &bytesOut, &status, &errorCode, &durationMS,
		&ipAddress, &userAgent, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan history row: %w", err)
	}

	entry := &core.HistoryEntry{
		ID:           pgUUIDToString(id),
		SourceKind:   core.DocumentKind(sourceKind),
		TargetFormat: targetFormat,
		Filename:     filename,
		Operation:    core.Operation(operation),
		BytesIn:      bytesIn,
		BytesOut:     bytesOut,
		Status:       status,
		DurationMS:   durationMS,
		CreatedAt:    createdAt.Time,
	}
	if errorCode.Valid {
		entry.ErrorCode = errorCode.String
	}
	if ipAddress != nil {
		entry.IPAddress = ipAddress.String()
	}
	if userAgent.Valid {
		entry.UserAgent = userAgent.String
	}
	return entry, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	}
	return limit
}

// parseIP strips a port if present. Unparseable addresses are stored as NULL.
func parseIP(s string) *netip.Addr {
	if s == "" {
		return nil
	}
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	return &addr
}

func toPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func pgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
