package repository

import (
	"context"
	"time"

	"ecommerce-loyalty-platform/internal/domain/model"
)

type PlanRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	List(ctx context.Context, tx Tx) ([]*model.Plan, error)
}

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByUser(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)
	// ListDue returns ACTIVE/PAST_DUE subscriptions whose current period end
	// is at or before the cutoff.
	ListDue(ctx context.Context, tx Tx, before time.Time, limit int) ([]*model.Subscription, error)
	// ListTrialEnded returns TRIALING subscriptions whose trial end is at or
	// before the cutoff.
	ListTrialEnded(ctx context.Context, tx Tx, before time.Time, limit int) ([]*model.Subscription, error)
	// ListSchedulePending returns subscriptions whose remote schedule marker
	// is still pending, for the reconciliation sweep.
	ListSchedulePending(ctx context.Context, tx Tx, limit int) ([]*model.Subscription, error)
	SetSchedule(ctx context.Context, tx Tx, id string, scheduleID *string, state model.ScheduleState) error
}

type SubscriptionInvoiceRepository interface {
	Save(ctx context.Context, tx Tx, inv *model.SubscriptionInvoice) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionInvoice, error)
	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string) ([]*model.SubscriptionInvoice, error)
	// HasPendingDueBefore reports whether a PENDING invoice already exists
	// for the subscription with a due date before the cutoff.
	HasPendingDueBefore(ctx context.Context, tx Tx, subscriptionID string, before time.Time) (bool, error)
	// MarkPaidIfPending atomically moves PENDING -> PAID (setting the
	// transaction id, paid-at and incrementing attempts) and reports whether
	// the transition happened. Concurrent payment attempts degenerate into a
	// single winner via this guard.
	MarkPaidIfPending(ctx context.Context, tx Tx, id string, transactionID string, paidAt time.Time) (bool, error)
	// MarkFailedIfPending atomically moves PENDING -> FAILED with the error
	// text and an attempt increment.
	MarkFailedIfPending(ctx context.Context, tx Tx, id string, errorMessage string) (bool, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.InvoiceStatus, errorMessage string) error
	// CancelNonTerminal moves all PENDING/FAILED invoices of the
	// subscription to CANCELED.
	CancelNonTerminal(ctx context.Context, tx Tx, subscriptionID string, errorMessage string) error
}

type PaymentMethodRepository interface {
	Save(ctx context.Context, tx Tx, pm *model.PaymentMethod) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentMethod, error)
	FindByUser(ctx context.Context, tx Tx, userID string) ([]*model.PaymentMethod, error)
	// ClearDefault unsets the default flag on all of the user's methods.
	ClearDefault(ctx context.Context, tx Tx, userID string) error
	Delete(ctx context.Context, tx Tx, id string) error
}
