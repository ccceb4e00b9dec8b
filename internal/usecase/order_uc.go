// File: internal/usecase/order_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/adapter"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
	"ecommerce-loyalty-platform/internal/infra/logging"
	"ecommerce-loyalty-platform/internal/infra/metrics"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

// OrderLine is one requested item at checkout.
type OrderLine struct {
	ProductID string
	Quantity  int
}

// OrderUseCase covers checkout, payment reconciliation against the gateway,
// and the abandoned-checkout sweep.
type OrderUseCase interface {
	// Create validates items against the catalog, spends the requested point
	// discount and stores the order as PENDING_PAYMENT, all in one
	// transaction. A failed spend means no order.
	Create(ctx context.Context, userID string, lines []OrderLine, pointsToUse int) (*model.Order, error)
	Get(ctx context.Context, orderID string) (*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)

	// SettlePointOnly completes an order without a gateway transaction,
	// recording a POINTS payment for the order total and applying the
	// loyalty accrual on it.
	SettlePointOnly(ctx context.Context, orderID string) (*model.Order, error)

	// Reconcile verifies a gateway transaction, correlates it back to an
	// order and completes the order exactly once. Re-invocations with the
	// same transaction id refresh the payment row but never repeat the
	// loyalty side effects.
	Reconcile(ctx context.Context, transactionID string) (*model.Payment, error)

	// CancelAbandoned cancels PENDING_PAYMENT orders older than the cutoff,
	// refunds the points they spent and reports how many were cancelled.
	CancelAbandoned(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

type orderUC struct {
	orders     repository.OrderRepository
	products   repository.ProductRepository
	payments   repository.PaymentRepository
	gateway    adapter.PaymentGateway
	points     PointUseCase
	membership MembershipUseCase
	tm         repository.TransactionManager
	log        *zerolog.Logger
}

func NewOrderUseCase(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	payments repository.PaymentRepository,
	gateway adapter.PaymentGateway,
	points PointUseCase,
	membership MembershipUseCase,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *orderUC {
	return &orderUC{
		orders:     orders,
		products:   products,
		payments:   payments,
		gateway:    gateway,
		points:     points,
		membership: membership,
		tm:         tm,
		log:        logger,
	}
}

func (u *orderUC) Create(ctx context.Context, userID string, lines []OrderLine, pointsToUse int) (*model.Order, error) {
	defer logging.TraceDuration(u.log, "OrderUC.Create")()

	if userID == "" || len(lines) == 0 {
		return nil, fmt.Errorf("%w: user id and at least one item are required", domain.ErrInvalidArgument)
	}
	if pointsToUse < 0 {
		return nil, fmt.Errorf("%w: points to use must not be negative", domain.ErrInvalidArgument)
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for product %s", domain.ErrInvalidArgument, l.ProductID)
		}
		ids = append(ids, l.ProductID)
	}
	found, err := u.products.FindByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	orderID := "order_" + uuid.NewString()
	now := time.Now()
	var total int64
	items := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, l.ProductID)
		}
		total += p.Price * int64(l.Quantity)
		items = append(items, model.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			ProductID: p.ID,
			Quantity:  l.Quantity,
			UnitPrice: p.Price,
		})
	}
	if int64(pointsToUse) > total {
		return nil, fmt.Errorf("%w: point discount %d exceeds order total %d", domain.ErrInvalidArgument, pointsToUse, total)
	}

	o := &model.Order{
		OrderID:              orderID,
		UserID:               userID,
		TotalAmount:          total,
		PointsUsed:           pointsToUse,
		PointsDiscountAmount: int64(pointsToUse),
		Status:               model.OrderStatusPendingPayment,
		CreatedAt:            now,
		Items:                items,
	}
	// The discount is spent at creation, not at settlement. Spend does the
	// balance check and rejects with ErrInsufficientBalance, which rolls the
	// order save back with it.
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		if err := u.points.Spend(ctx, tx, userID, orderID, pointsToUse, "points used for order "+orderID); err != nil {
			return err
		}
		return u.orders.Save(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncOrderCreated()
	return o, nil
}

func (u *orderUC) Get(ctx context.Context, orderID string) (*model.Order, error) {
	return u.orders.FindByID(ctx, nil, orderID)
}

func (u *orderUC) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	return u.orders.FindByUser(ctx, nil, userID)
}

func (u *orderUC) SettlePointOnly(ctx context.Context, orderID string) (*model.Order, error) {
	defer logging.TraceDuration(u.log, "OrderUC.SettlePointOnly")()

	var out *model.Order
	settled := false
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		o, err := u.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		transitioned, err := u.orders.CompleteIfPending(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !transitioned {
			if o.Status == model.OrderStatusCompleted {
				out = o
				return nil
			}
			return fmt.Errorf("%w: order %s is %s", domain.ErrInvalidStateTransition, orderID, o.Status)
		}
		now := time.Now()
		p := &model.Payment{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			Amount:    o.TotalAmount,
			Status:    model.PaymentStatusPaid,
			Method:    "POINTS",
			PaidAt:    &now,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		if err := u.applyCompletionEffects(ctx, tx, o, o.TotalAmount); err != nil {
			return err
		}
		o.Status = model.OrderStatusCompleted
		out = o
		settled = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if settled {
		metrics.IncPayment(string(model.PaymentStatusPaid))
		metrics.AddPaymentRevenue("KRW", out.TotalAmount)
	}
	return out, nil
}

func (u *orderUC) Reconcile(ctx context.Context, transactionID string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "OrderUC.Reconcile")()
	log := logging.With(ctx, u.log)

	details, err := u.gateway.GetPaymentDetails(ctx, transactionID)
	if err != nil {
		metrics.IncReconcile("gateway_error")
		return nil, err
	}
	if !gatewayStatusPaid(details.Status) {
		metrics.IncReconcile("not_paid")
		return nil, fmt.Errorf("%w: transaction %s has gateway status %s", domain.ErrInvalidArgument, transactionID, details.Status)
	}

	orderID, synthesized := resolveOrderID(details)
	if synthesized {
		log.Warn().Err(domain.ErrCorrelationLost).
			Str("transaction_id", details.ID).
			Str("order_id", orderID).
			Msg("no order correlation on gateway payment, synthesizing order")
	}

	var payment *model.Payment
	completed := false
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		o, err := u.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			if !synthesized {
				return err
			}
			o, err = u.synthesizeOrder(ctx, tx, orderID, details)
			if err != nil {
				return err
			}
		}

		cashDue := o.TotalAmount - o.PointsDiscountAmount
		if !o.Synthesized && details.Amount != cashDue {
			log.Warn().Str("order_id", orderID).
				Int64("expected", cashDue).Int64("got", details.Amount).
				Msg("gateway amount mismatch")
			return fmt.Errorf("%w: amount %d does not match order cash due %d", domain.ErrInvalidArgument, details.Amount, cashDue)
		}

		transitioned, err := u.orders.CompleteIfPending(ctx, tx, orderID)
		if err != nil {
			return err
		}

		payment, err = u.upsertPayment(ctx, tx, o, details)
		if err != nil {
			return err
		}

		if !transitioned {
			// Already settled (or synthesized straight to COMPLETED): refresh
			// of the payment row above is the only effect.
			return nil
		}
		completed = true
		return u.applyCompletionEffects(ctx, tx, o, details.Amount)
	})
	if err != nil {
		metrics.IncReconcile("error")
		return nil, err
	}
	if completed {
		metrics.IncPayment(string(model.PaymentStatusPaid))
		metrics.AddPaymentRevenue("KRW", payment.Amount)
	}
	metrics.IncReconcile("ok")
	return payment, nil
}

// applyCompletionEffects runs the loyalty side effects that must fire exactly
// once per order completion: tier recompute and point accrual. The point
// spend is not among them; it happened at order creation.
func (u *orderUC) applyCompletionEffects(ctx context.Context, tx repository.Tx, o *model.Order, paidAmount int64) error {
	if _, err := u.membership.Recompute(ctx, tx, o.UserID); err != nil {
		return err
	}
	rate, err := u.membership.AccrualRate(ctx, tx, o.UserID)
	if err != nil {
		return err
	}
	earned := u.membership.EarnedPointsFor(paidAmount, rate)
	return u.points.Earn(ctx, tx, o.UserID, o.OrderID, earned, "points earned on order "+o.OrderID)
}

// synthesizeOrder records a minimal COMPLETED order for a gateway payment
// whose correlation data was lost, so money movement is never dropped.
func (u *orderUC) synthesizeOrder(ctx context.Context, tx repository.Tx, orderID string, details *adapter.PaymentDetails) (*model.Order, error) {
	userID := details.CustomData["userId"]
	if userID == "" {
		userID = details.CustomerID
	}
	now := time.Now()
	o := &model.Order{
		OrderID:     orderID,
		UserID:      userID,
		TotalAmount: details.Amount,
		Status:      model.OrderStatusCompleted,
		Synthesized: true,
		CreatedAt:   now,
	}
	if err := u.orders.Save(ctx, tx, o); err != nil {
		return nil, err
	}
	metrics.IncOrderSynthesized()
	return o, nil
}

func (u *orderUC) upsertPayment(ctx context.Context, tx repository.Tx, o *model.Order, details *adapter.PaymentDetails) (*model.Payment, error) {
	now := time.Now()
	paidAt := details.PaidAt
	if paidAt == nil {
		paidAt = &now
	}
	p, err := u.payments.FindByOrderID(ctx, tx, o.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		p = &model.Payment{ID: uuid.NewString(), OrderID: o.OrderID, CreatedAt: now}
	} else if err != nil {
		return nil, err
	}
	p.TransactionID = &details.ID
	p.Amount = details.Amount
	p.Status = model.PaymentStatusPaid
	p.Method = details.PayMethod
	p.PaidAt = paidAt
	p.UpdatedAt = now
	if err := u.payments.Save(ctx, tx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *orderUC) CancelAbandoned(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	defer logging.TraceDuration(u.log, "OrderUC.CancelAbandoned")()

	stale, err := u.orders.ListPendingOlderThan(ctx, nil, olderThan, limit)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, o := range stale {
		if err := u.orders.UpdateStatus(ctx, nil, o.OrderID, model.OrderStatusCancelled); err != nil {
			u.log.Error().Err(err).Str("order_id", o.OrderID).Msg("failed to cancel abandoned order")
			continue
		}
		// Give back what the checkout spent.
		if _, err := u.points.RefundSpent(ctx, nil, o.UserID, o.OrderID, o.PointsUsed); err != nil {
			u.log.Error().Err(err).Str("order_id", o.OrderID).Msg("failed to refund points on abandoned order")
		}
		cancelled++
	}
	if cancelled > 0 {
		u.log.Info().Int("count", cancelled).Msg("abandoned orders cancelled")
	}
	return cancelled, nil
}

// resolveOrderID probes correlation fields in precedence order and reports
// whether the fallback (transaction id) was used, which requires synthesis.
func resolveOrderID(d *adapter.PaymentDetails) (string, bool) {
	if v := d.CustomData["orderId"]; v != "" {
		return v, false
	}
	if d.MerchantUID != "" {
		return d.MerchantUID, false
	}
	if d.MerchantPaymentID != "" {
		return d.MerchantPaymentID, false
	}
	if d.OrderID != "" {
		return d.OrderID, false
	}
	return d.ID, true
}

func gatewayStatusPaid(s string) bool {
	switch strings.ToUpper(s) {
	case "PAID", "SUCCEEDED", "DONE":
		return true
	}
	return false
}
