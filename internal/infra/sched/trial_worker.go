package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ecommerce-loyalty-platform/internal/infra/redis"
	"ecommerce-loyalty-platform/internal/usecase"
)

const trialLockKey = "lock:trial_promotion"

// TrialWorker promotes ended trials to active billing every interval.
type TrialWorker struct {
	interval time.Duration
	lockTTL  time.Duration
	subUC    usecase.SubscriptionUseCase
	locker   redis.Locker
	log      *zerolog.Logger
}

func NewTrialWorker(interval, lockTTL time.Duration, subUC usecase.SubscriptionUseCase, locker redis.Locker, logger *zerolog.Logger) *TrialWorker {
	wlog := logger.With().Str("component", "TrialWorker").Logger()
	if interval <= 0 {
		interval = time.Hour
	}
	return &TrialWorker{interval: interval, lockTTL: lockTTL, subUC: subUC, locker: locker, log: &wlog}
}

func (w *TrialWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting trial worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping trial worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *TrialWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, trialLockKey, w.lockTTL)
	if err != nil {
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, trialLockKey, token) }()

	n, err := w.subUC.PromoteTrialEnded(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("trial promotion error")
		return
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("trials promoted")
	}
}
