package session

import (
	"context"
	"log/slog"
	"time"
)

const defaultSweepInterval = time.Minute

// StartIdleSweeper runs a background goroutine that periodically drops sessions idle
// for longer than ttl. It stops when ctx is cancelled; the returned channel is closed
// once the goroutine has exited.
func StartIdleSweeper(ctx context.Context, reg *Registry, ttl, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Idle session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case now := <-ticker.C:
				if n := reg.SweepIdle(ttl, now); n > 0 {
					slog.Info("Idle sessions removed", "count", n, "remaining", reg.Len())
				}
			case <-ctx.Done():
				slog.Info("Idle session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}
