package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper expires every in-progress session whose deadline has passed and
// reports how many it expired.
type Sweeper interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// ExpiryWorker enforces session deadlines while no client is connected.
type ExpiryWorker struct {
	sweeper  Sweeper
	interval time.Duration
	log      zerolog.Logger
}

func NewExpiryWorker(sweeper Sweeper, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		sweeper:  sweeper,
		interval: interval,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start sweeps once immediately and then every interval until ctx is done.
// A non-positive interval disables the worker.
func (w *ExpiryWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info().Msg("ExpiryWorker disabled")
		return
	}
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.sweep(ctx)

		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	n, err := w.sweeper.ExpireOverdue(ctx)
	if err != nil && ctx.Err() == nil {
		w.log.Error().Err(err).Int("expired", n).Msg("Expiry sweep failed")
		return
	}
	if n > 0 {
		w.log.Info().Int("expired", n).Msg("Expired overdue sessions")
	}
}
