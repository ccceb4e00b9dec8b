package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ecommerce-loyalty-platform/internal/infra/metrics"
	"ecommerce-loyalty-platform/internal/infra/redis"
	"ecommerce-loyalty-platform/internal/usecase"
)

const abandonedLockKey = "lock:abandoned_orders"

// AbandonedOrderWorker cancels checkouts the customer never paid for. This
// covers cases where the payment page was abandoned or the gateway callback
// never arrived and reconciliation found nothing to settle.
type AbandonedOrderWorker struct {
	interval   time.Duration
	staleAfter time.Duration
	lockTTL    time.Duration
	batchSize  int
	orderUC    usecase.OrderUseCase
	locker     redis.Locker
	log        *zerolog.Logger
}

func NewAbandonedOrderWorker(interval, staleAfter, lockTTL time.Duration, batchSize int, orderUC usecase.OrderUseCase, locker redis.Locker, logger *zerolog.Logger) *AbandonedOrderWorker {
	wlog := logger.With().Str("component", "AbandonedOrderWorker").Logger()
	if interval <= 0 {
		interval = time.Hour
	}
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &AbandonedOrderWorker{interval: interval, staleAfter: staleAfter, lockTTL: lockTTL, batchSize: batchSize, orderUC: orderUC, locker: locker, log: &wlog}
}

func (w *AbandonedOrderWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting abandoned order worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping abandoned order worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *AbandonedOrderWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, abandonedLockKey, w.lockTTL)
	if err != nil {
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, abandonedLockKey, token) }()

	cutoff := time.Now().Add(-w.staleAfter)
	n, err := w.orderUC.CancelAbandoned(ctx, cutoff, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("abandoned order sweep error")
		return
	}
	if n > 0 {
		metrics.AddOrdersAbandoned(n)
	}
}
