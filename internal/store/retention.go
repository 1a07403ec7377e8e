package store

// retention.go deletes expired conversion history in the background.
//
// The job runs once on start and then every PruneInterval. Each pass deletes
// rows older than the retention window in batches so a large backlog never
// holds one long-running statement. Failures are logged and retried on the
// next tick; they never stop the server.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/docconvert/internal/config"
)

// RetentionConfig controls the history pruning job.
type RetentionConfig struct {
	Retention time.Duration // rows older than this are deleted; 0 disables pruning
	Interval  time.Duration // how often to run (default: 24h)
	BatchSize int           // rows per DELETE (default: 5000)
}

// RetentionFrom reads the pruning settings from the database config.
func RetentionFrom(cfg config.DatabaseConfig) RetentionConfig {
	return RetentionConfig{
		Retention: cfg.HistoryRetention,
		Interval:  cfg.PruneInterval,
		BatchSize: cfg.PruneBatchSize,
	}
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5000
	}
	return c
}

// Prune deletes up to batchSize rows created before cutoff and reports how
// many were removed.
func (h *History) Prune(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	tag, err := h.pool.Exec(ctx, `
		DELETE FROM conversion_history
		WHERE id IN (
			SELECT id FROM conversion_history
			WHERE created_at < $1
			ORDER BY created_at
			LIMIT $2
		)`, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// pruner is the part of History the retention job needs.
type pruner interface {
	Prune(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// RunRetention prunes expired history until ctx is cancelled.
// It returns immediately when retention is disabled.
func RunRetention(ctx context.Context, h *History, cfg RetentionConfig) {
	runRetention(ctx, h, cfg, time.Now)
}

func runRetention(ctx context.Context, p pruner, cfg RetentionConfig, now func() time.Time) {
	if cfg.Retention <= 0 {
		slog.Info("history retention disabled")
		return
	}
	cfg = cfg.withDefaults()

	slog.Info("history retention started",
		"retention", cfg.Retention.String(),
		"interval", cfg.Interval.String(),
		"batch_size", cfg.BatchSize,
	)

	pruneExpired(ctx, p, cfg, now())

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history retention stopped")
			return
		case <-ticker.C:
			pruneExpired(ctx, p, cfg, now())
		}
	}
}

// pruneExpired runs batches until one comes back short.
func pruneExpired(ctx context.Context, p pruner, cfg RetentionConfig, now time.Time) int64 {
	start := time.Now()
	cutoff := now.Add(-cfg.Retention)

	var total int64
	for ctx.Err() == nil {
		n, err := p.Prune(ctx, cutoff, cfg.BatchSize)
		if err != nil {
			slog.Error("history prune failed", "error", err, "deleted", total)
			return total
		}
		total += n
		if n < int64(cfg.BatchSize) {
			break
		}
	}

	slog.Info("history pruned",
		"deleted", total,
		"cutoff", cutoff.UTC().Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return total
}
