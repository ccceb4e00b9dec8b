package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ecommerce-loyalty-platform/internal/infra/redis"
	"ecommerce-loyalty-platform/internal/usecase"
)

const billingLockKey = "lock:billing_pass"

// BillingWorker runs the recurring billing pass: it creates and charges
// invoices for subscriptions whose period has ended. A redis lock keeps the
// pass single-flight across replicas.
type BillingWorker struct {
	interval time.Duration
	lockTTL  time.Duration
	subUC    usecase.SubscriptionUseCase
	locker   redis.Locker
	log      *zerolog.Logger
}

func NewBillingWorker(interval, lockTTL time.Duration, subUC usecase.SubscriptionUseCase, locker redis.Locker, logger *zerolog.Logger) *BillingWorker {
	wlog := logger.With().Str("component", "BillingWorker").Logger()
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &BillingWorker{interval: interval, lockTTL: lockTTL, subUC: subUC, locker: locker, log: &wlog}
}

func (w *BillingWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting billing worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping billing worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *BillingWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, billingLockKey, w.lockTTL)
	if err != nil {
		w.log.Debug().Msg("billing pass already running elsewhere")
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, billingLockKey, token) }()

	n, err := w.subUC.ProcessDue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("billing pass error")
		return
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("subscriptions billed")
	}
}
