package service

import (
	"context"
	"log/slog"
	"time"
)

// janitorStore is the db surface the janitor needs.
type janitorStore interface {
	QueryResetStuckCompetitions(ctx context.Context, cutoff time.Time, message string) (int, error)
}

// Janitor periodically fails analysis runs that have been pending or
// processing for longer than the threshold. It is the safety net behind the
// active per-run timeout: it catches runs orphaned by a crashed process.
type Janitor struct {
	store     janitorStore
	threshold time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewJanitor creates a janitor. threshold is how long a run may sit in a
// non-terminal state before it is declared dead (default 15m); interval is
// the sweep cadence (default 1m).
func NewJanitor(store janitorStore, threshold, interval time.Duration) *Janitor {
	if threshold <= 0 {
		threshold = 15 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		store:     store,
		threshold: threshold,
		interval:  interval,
		now:       time.Now,
	}
}

// SweepOnce fails every run older than the threshold. Returns the number of
// runs reset.
func (j *Janitor) SweepOnce(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.threshold)
	return j.store.QueryResetStuckCompetitions(ctx, cutoff, msgAnalysisTimeout)
}

// Run sweeps on a ticker until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	slog.Info("janitor started", "threshold", j.threshold, "interval", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("janitor stopped")
			return
		case <-ticker.C:
			count, err := j.SweepOnce(ctx)
			if err != nil {
				slog.Error("janitor sweep failed", "error", err)
				continue
			}
			if count > 0 {
				slog.Warn("janitor reset stuck competitions", "count", count)
			}
		}
	}
}
