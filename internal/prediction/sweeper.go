package prediction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shardsim/paper-engine/internal/metrics"
	"github.com/shardsim/paper-engine/internal/store"
)

// Sweeper periodically resolves PENDING predictions older than the maturity
// threshold. It is a background, non-blocking process: each prediction is
// resolved in its own store call, so one failure never blocks the rest, and
// no lock spans more than one record's update.
type Sweeper struct {
	store    store.Store
	manager  *Manager
	oracle   Oracle
	maturity time.Duration
	interval time.Duration
}

// NewSweeper creates a sweeper. Both the maturity threshold and the sweep
// cadence are configuration, not constants.
func NewSweeper(st store.Store, m *Manager, o Oracle, maturity, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    st,
		manager:  m,
		oracle:   o,
		maturity: maturity,
		interval: interval,
	}
}

// Run sweeps on the configured cadence until the context is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep resolves every matured pending prediction once. Exported so tests
// and operational tooling can trigger a pass directly.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()
	cutoff := start.UTC().Add(-s.maturity)

	pending, err := s.store.ListPendingPredictions(ctx, cutoff)
	if err != nil {
		slog.Error("sweep: listing pending predictions failed", "err", err)
		return
	}

	resolved := 0
	for _, p := range pending {
		won, err := s.oracle.Judge(ctx, &p)
		if err != nil {
			slog.Warn("sweep: oracle unavailable for prediction", "id", p.ID, "err", err)
			continue
		}

		if _, err := s.manager.Resolve(ctx, p.ID, won); err != nil {
			if errors.Is(err, ErrAlreadyResolved) {
				continue // raced with a manual resolve, nothing to do
			}
			slog.Warn("sweep: resolve failed", "id", p.ID, "err", err)
			continue
		}
		resolved++
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if len(pending) > 0 {
		slog.Info("sweep complete", "matured", len(pending), "resolved", resolved)
	}
}
