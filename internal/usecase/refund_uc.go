// File: internal/usecase/refund_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/adapter"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
	"ecommerce-loyalty-platform/internal/infra/logging"
	"ecommerce-loyalty-platform/internal/infra/metrics"
)

// Compile-time check
var _ RefundUseCase = (*refundUC)(nil)

// RefundUseCase reverses settled orders. The gateway cancellation is the
// gate: if it fails nothing else runs. Local reversal steps after it are
// best-effort; failures are collected on the refund row instead of rolling
// back the money movement that already happened.
type RefundUseCase interface {
	// CancelOrder refunds the remaining paid amount and unwinds the order's
	// loyalty side effects. Returns a PartialReconciliationError when one or
	// more reversal steps failed after the gateway accepted the cancel.
	CancelOrder(ctx context.Context, orderID, reason string) (*model.Refund, error)
	// RefundPartial refunds part of the payment without cancelling the order.
	RefundPartial(ctx context.Context, orderID string, amount int64, reason string) (*model.Refund, error)
	// ListAwaitingReconciliation returns refunds with failed reversal steps
	// for the operator queue.
	ListAwaitingReconciliation(ctx context.Context, limit int) ([]*model.Refund, error)
}

type refundUC struct {
	orders     repository.OrderRepository
	payments   repository.PaymentRepository
	refunds    repository.RefundRepository
	gateway    adapter.PaymentGateway
	points     PointUseCase
	membership MembershipUseCase
	log        *zerolog.Logger
}

func NewRefundUseCase(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	refunds repository.RefundRepository,
	gateway adapter.PaymentGateway,
	points PointUseCase,
	membership MembershipUseCase,
	logger *zerolog.Logger,
) *refundUC {
	return &refundUC{
		orders:     orders,
		payments:   payments,
		refunds:    refunds,
		gateway:    gateway,
		points:     points,
		membership: membership,
		log:        logger,
	}
}

func (u *refundUC) CancelOrder(ctx context.Context, orderID, reason string) (*model.Refund, error) {
	defer logging.TraceDuration(u.log, "RefundUC.CancelOrder")()
	log := logging.With(ctx, u.log)

	o, err := u.orders.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if !o.CanTransition(model.OrderStatusCancelled) {
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrInvalidStateTransition, orderID, o.Status)
	}
	p, err := u.payments.FindByOrderID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if !p.Refundable() {
		return nil, fmt.Errorf("%w: payment for order %s is %s", domain.ErrInvalidStateTransition, orderID, p.Status)
	}

	refunded, err := u.refunds.SumCompletedByPayment(ctx, nil, p.ID)
	if err != nil {
		return nil, err
	}
	remaining := p.Amount - refunded

	// Money first. A gateway failure aborts the whole cancellation; local
	// state stays untouched and the caller can retry.
	cancelledAmount := remaining
	if p.TransactionID != nil && remaining > 0 {
		res, err := u.gateway.CancelPayment(ctx, *p.TransactionID, remaining, reason)
		if err != nil {
			metrics.IncRefund("aborted")
			log.Error().Err(err).Str("order_id", orderID).Msg("gateway cancel failed, aborting")
			return nil, err
		}
		cancelledAmount = res.CancelledAmount
	}

	var failed []string
	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			failed = append(failed, name)
			log.Error().Err(err).Str("order_id", orderID).Str("step", name).Msg("reversal step failed")
		}
	}

	step("points_refund", func() error {
		_, err := u.points.RefundSpent(ctx, nil, o.UserID, orderID, o.PointsUsed)
		return err
	})
	step("points_clawback", func() error {
		_, err := u.points.ReverseEarned(ctx, nil, o.UserID, orderID)
		return err
	})
	step("order_cancel", func() error {
		return u.orders.UpdateStatus(ctx, nil, orderID, model.OrderStatusCancelled)
	})
	step("payment_status", func() error {
		status := model.PaymentStatusPartiallyRefunded
		if refunded+cancelledAmount >= p.Amount {
			status = model.PaymentStatusRefunded
		}
		if err := u.payments.UpdateStatus(ctx, nil, p.ID, status); err != nil {
			return err
		}
		metrics.IncPayment(string(status))
		return nil
	})
	step("membership_recompute", func() error {
		_, err := u.membership.Recompute(ctx, nil, o.UserID)
		return err
	})

	r := &model.Refund{
		ID:            uuid.NewString(),
		PaymentID:     p.ID,
		Amount:        cancelledAmount,
		Reason:        reason,
		Status:        model.RefundStatusCompleted,
		ReconcileNote: strings.Join(failed, ","),
		CreatedAt:     time.Now(),
	}
	if err := u.refunds.Save(ctx, nil, r); err != nil {
		failed = append(failed, "refund_record")
		log.Error().Err(err).Str("order_id", orderID).Msg("failed to persist refund record")
	}

	if len(failed) > 0 {
		metrics.IncRefund("partial")
		return r, &domain.PartialReconciliationError{OrderID: orderID, FailedSteps: failed}
	}
	metrics.IncRefund("ok")
	return r, nil
}

func (u *refundUC) RefundPartial(ctx context.Context, orderID string, amount int64, reason string) (*model.Refund, error) {
	defer logging.TraceDuration(u.log, "RefundUC.RefundPartial")()

	if amount <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive", domain.ErrInvalidArgument)
	}
	p, err := u.payments.FindByOrderID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if !p.Refundable() {
		return nil, fmt.Errorf("%w: payment for order %s is %s", domain.ErrInvalidStateTransition, orderID, p.Status)
	}
	if p.TransactionID == nil {
		return nil, fmt.Errorf("%w: order %s was settled with points only", domain.ErrInvalidArgument, orderID)
	}
	refunded, err := u.refunds.SumCompletedByPayment(ctx, nil, p.ID)
	if err != nil {
		return nil, err
	}
	if refunded+amount > p.Amount {
		return nil, fmt.Errorf("%w: refund %d exceeds remaining %d", domain.ErrInvalidArgument, amount, p.Amount-refunded)
	}

	res, err := u.gateway.CancelPayment(ctx, *p.TransactionID, amount, reason)
	if err != nil {
		metrics.IncRefund("aborted")
		return nil, err
	}

	r := &model.Refund{
		ID:        uuid.NewString(),
		PaymentID: p.ID,
		Amount:    res.CancelledAmount,
		Reason:    reason,
		Status:    model.RefundStatusCompleted,
		CreatedAt: time.Now(),
	}
	if err := u.refunds.Save(ctx, nil, r); err != nil {
		return nil, err
	}
	status := model.PaymentStatusPartiallyRefunded
	if refunded+res.CancelledAmount >= p.Amount {
		status = model.PaymentStatusRefunded
	}
	if err := u.payments.UpdateStatus(ctx, nil, p.ID, status); err != nil {
		return nil, err
	}
	metrics.IncPayment(string(status))
	metrics.IncRefund("ok")
	return r, nil
}

func (u *refundUC) ListAwaitingReconciliation(ctx context.Context, limit int) ([]*model.Refund, error) {
	rs, err := u.refunds.ListPartial(ctx, nil, limit)
	if err != nil {
		return nil, err
	}
	metrics.SetRefundsAwaitingReconciliation(len(rs))
	return rs, nil
}
