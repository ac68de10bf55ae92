package core

// scheduler.go runs background maintenance for stores without native expiry.
//
// Session rows in Postgres have no TTL of their own, so a sweeper deletes
// rows not written within the configured TTL. It runs once on start, then
// on every tick, and stops when its context is cancelled. A failed sweep is
// logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// SessionPurger deletes session state last written before cutoff.
type SessionPurger interface {
	PurgeSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SweepConfig holds sweeper settings. Zero values get defaults.
type SweepConfig struct {
	TTL      time.Duration // Session lifetime since last write (default: 24h)
	Interval time.Duration // How often to sweep (default: 1h)
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	return c
}

// StartSessionSweeper blocks, purging expired sessions until ctx is done.
// Run it in its own goroutine.
func StartSessionSweeper(ctx context.Context, purger SessionPurger, cfg SweepConfig) {
	cfg = cfg.withDefaults()
	slog.Info("session sweeper started", "ttl", cfg.TTL.String(), "interval", cfg.Interval.String())

	runSessionSweep(ctx, purger, cfg.TTL, time.Now)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			runSessionSweep(ctx, purger, cfg.TTL, time.Now)
		}
	}
}

// runSessionSweep performs one purge.
func runSessionSweep(ctx context.Context, purger SessionPurger, ttl time.Duration, now func() time.Time) {
	start := time.Now()
	purged, err := purger.PurgeSessionsBefore(ctx, now().Add(-ttl))
	if err != nil {
		slog.Error("session sweep failed", "error", err)
		return
	}
	slog.Info("session sweep completed",
		"sessions_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
