// Package sweeper runs the periodic expiry pass over pending appointments.
// A request whose date has passed without teacher action is rejected so the
// slot history stays honest; running the pass twice is harmless.
package sweeper

import (
	"context"
	"log/slog"
	"time"
)

type expirer interface {
	SweepExpiredPending(ctx context.Context, asOf time.Time) (int, error)
}

type Worker struct {
	svc      expirer
	logger   *slog.Logger
	interval time.Duration
	clock    func() time.Time
}

type Config struct {
	Interval time.Duration
}

func NewWorker(svc expirer, logger *slog.Logger, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Worker{
		svc:      svc,
		logger:   logger,
		interval: cfg.Interval,
		clock:    time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// One pass at startup so a restarted service catches up immediately.
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	today := w.clock().UTC().Truncate(24 * time.Hour)
	n, err := w.svc.SweepExpiredPending(ctx, today)
	if err != nil {
		w.logger.Error("expiry sweep failed", "err", err)
		return
	}
	if n > 0 {
		w.logger.Info("expired stale pending appointments", "count", n)
	}
}
