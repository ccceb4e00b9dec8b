package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ecommerce-loyalty-platform/internal/infra/redis"
	"ecommerce-loyalty-platform/internal/usecase"
)

const scheduleLockKey = "lock:schedule_reconcile"

// ScheduleReconciler re-drives subscriptions whose remote recurring-charge
// schedule is stuck in the pending state. This covers crashes between the
// gateway accepting a schedule and the id being stored locally.
type ScheduleReconciler struct {
	interval  time.Duration
	lockTTL   time.Duration
	batchSize int
	subUC     usecase.SubscriptionUseCase
	locker    redis.Locker
	log       *zerolog.Logger
}

func NewScheduleReconciler(interval, lockTTL time.Duration, batchSize int, subUC usecase.SubscriptionUseCase, locker redis.Locker, logger *zerolog.Logger) *ScheduleReconciler {
	wlog := logger.With().Str("component", "ScheduleReconciler").Logger()
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ScheduleReconciler{interval: interval, lockTTL: lockTTL, batchSize: batchSize, subUC: subUC, locker: locker, log: &wlog}
}

func (w *ScheduleReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting schedule reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping schedule reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ScheduleReconciler) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, scheduleLockKey, w.lockTTL)
	if err != nil {
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, scheduleLockKey, token) }()

	n, err := w.subUC.ReconcileSchedules(ctx, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("schedule reconcile error")
		return
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("schedules reconciled")
	}
}
