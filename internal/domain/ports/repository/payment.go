package repository

import (
	"context"

	"ecommerce-loyalty-platform/internal/domain/model"
)

type PaymentRepository interface {
	// Save upserts the payment by id.
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// FindByTransactionID looks up by the gateway transaction id.
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.Payment, error)
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.PaymentStatus) error
	// SumPaidByUser returns the total amount of PAID payments across the
	// user's orders (refunded/cancelled payments excluded by status).
	SumPaidByUser(ctx context.Context, tx Tx, userID string) (int64, error)
}

type RefundRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Refund) error
	ListByPayment(ctx context.Context, tx Tx, paymentID string) ([]*model.Refund, error)
	SumCompletedByPayment(ctx context.Context, tx Tx, paymentID string) (int64, error)
	// ListPartial returns refunds whose reconcile note is non-empty, newest
	// first, for the operator reconciliation queue.
	ListPartial(ctx context.Context, tx Tx, limit int) ([]*model.Refund, error)
}
