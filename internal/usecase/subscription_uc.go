// File: internal/usecase/subscription_uc.go
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
	"ecommerce-loyalty-platform/internal/infra/worker"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

const (
	billingKeyRetries    = 3
	billingKeyRetryDelay = 2 * time.Second
)

// SubscriptionUseCase runs the recurring billing lifecycle: enrollment,
// trial promotion, invoice payment, remote schedule upkeep and cancellation.
type SubscriptionUseCase interface {
	Create(ctx context.Context, userID, planID string, paymentMethodID *string) (*model.Subscription, error)
	Get(ctx context.Context, subscriptionID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Subscription, error)
	Invoices(ctx context.Context, subscriptionID string) ([]*model.SubscriptionInvoice, error)

	// Cancel terminates the subscription. Idempotent: cancelling an already
	// terminal subscription is a no-op.
	Cancel(ctx context.Context, subscriptionID string) error

	// EnsureSchedule converges the remote recurring-charge schedule with the
	// subscription's desired state. Crash-safe: the durable pending marker
	// lets a sweep re-run this until it lands on present or absent.
	EnsureSchedule(ctx context.Context, subscriptionID string) error

	// PayInvoice charges one PENDING invoice via the stored billing key and
	// reports whether this call settled it. A non-PENDING invoice is a
	// no-op; concurrent attempts on the same invoice collapse into one
	// winner. Success advances the billing period; failure marks the
	// subscription past due.
	PayInvoice(ctx context.Context, invoiceID string) (bool, error)

	// ProcessDue creates invoices for subscriptions whose period has ended
	// and hands each charge to the background pool. Subscriptions that
	// already have a PENDING invoice due within the next day are skipped.
	ProcessDue(ctx context.Context) (int, error)

	// PromoteTrialEnded flips ended trials to ACTIVE. Nothing else: the next
	// due-billing pass issues their first paid invoice.
	PromoteTrialEnded(ctx context.Context) (int, error)

	// ReconcileSchedules re-runs EnsureSchedule for subscriptions stuck in
	// the pending schedule state.
	ReconcileSchedules(ctx context.Context, limit int) (int, error)

	// RefundInvoice reverses a paid invoice at the gateway.
	RefundInvoice(ctx context.Context, invoiceID, reason string) error
}

// Encryptor is the at-rest protection for billing keys.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type subscriptionUC struct {
	subs     repository.SubscriptionRepository
	invoices repository.SubscriptionInvoiceRepository
	plans    repository.PlanRepository
	methods  repository.PaymentMethodRepository
	gateway  adapter.PaymentGateway
	crypto   Encryptor
	tm       repository.TransactionManager
	pool     *worker.Pool
	log      *zerolog.Logger

	// sleep is swapped in tests to skip the billing-key retry delay.
	sleep func(time.Duration)
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	invoices repository.SubscriptionInvoiceRepository,
	plans repository.PlanRepository,
	methods repository.PaymentMethodRepository,
	gateway adapter.PaymentGateway,
	crypto Encryptor,
	tm repository.TransactionManager,
	pool *worker.Pool,
	logger *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{
		subs:     subs,
		invoices: invoices,
		plans:    plans,
		methods:  methods,
		gateway:  gateway,
		crypto:   crypto,
		tm:       tm,
		pool:     pool,
		log:      logger,
		sleep:    time.Sleep,
	}
}

func (u *subscriptionUC) Create(ctx context.Context, userID, planID string, paymentMethodID *string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Create")()

	plan, err := u.plans.FindByID(ctx, nil, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != model.PlanStatusActive {
		return nil, fmt.Errorf("%w: plan %s is inactive", domain.ErrInvalidArgument, planID)
	}

	now := time.Now()
	s := &model.Subscription{
		ID:                 uuid.NewString(),
		UserID:             userID,
		PlanID:             planID,
		PaymentMethodID:    paymentMethodID,
		CurrentPeriodStart: now,
		ScheduleState:      model.ScheduleAbsent,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if plan.TrialPeriodDays > 0 {
		trialEnd := now.AddDate(0, 0, plan.TrialPeriodDays)
		s.Status = model.SubscriptionStatusTrialing
		s.TrialEnd = &trialEnd
		s.CurrentPeriodEnd = trialEnd
		if err := u.subs.Save(ctx, nil, s); err != nil {
			return nil, err
		}
		return s, nil
	}

	// No trial: the first period is charged up front via the billing key.
	if paymentMethodID == nil {
		return nil, fmt.Errorf("%w: plan %s has no trial, a payment method is required", domain.ErrInvalidArgument, planID)
	}
	billingKey, pm, err := u.billingKeyFor(ctx, *paymentMethodID)
	if err != nil {
		return nil, err
	}
	res, err := u.gateway.ExecuteBilling(ctx, billingKey, adapter.BillingRequest{
		CustomerRef: pm.CustomerRef,
		PaymentID:   "initial_payment_" + s.ID,
		OrderName:   plan.Name,
		Amount:      plan.Price,
		Currency:    "KRW",
	})
	if err != nil {
		return nil, err
	}

	s.Status = model.SubscriptionStatusActive
	s.CurrentPeriodEnd = plan.NextPeriodEnd(now)
	s.ScheduleState = model.SchedulePending
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		if err := u.subs.Save(ctx, tx, s); err != nil {
			return err
		}
		inv := &model.SubscriptionInvoice{
			ID:             uuid.NewString(),
			SubscriptionID: s.ID,
			Amount:         plan.Price,
			Status:         model.InvoiceStatusPaid,
			DueDate:        now,
			TransactionID:  &res.TransactionID,
			AttemptCount:   1,
			PaidAt:         &res.PaidAt,
			CreatedAt:      now,
		}
		return u.invoices.Save(ctx, tx, inv)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncInvoiceBilled("paid")
	return s, nil
}

func (u *subscriptionUC) Get(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	return u.subs.FindByID(ctx, nil, subscriptionID)
}

func (u *subscriptionUC) ListByUser(ctx context.Context, userID string) ([]*model.Subscription, error) {
	return u.subs.FindByUser(ctx, nil, userID)
}

func (u *subscriptionUC) Invoices(ctx context.Context, subscriptionID string) ([]*model.SubscriptionInvoice, error) {
	return u.invoices.ListBySubscription(ctx, nil, subscriptionID)
}

func (u *subscriptionUC) Cancel(ctx context.Context, subscriptionID string) error {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Cancel")()

	s, err := u.subs.FindByID(ctx, nil, subscriptionID)
	if err != nil {
		return err
	}
	if s.Terminal() {
		return nil
	}

	if err := u.deleteRemoteSchedule(ctx, s); err != nil {
		return err
	}

	now := time.Now()
	s.Status = model.SubscriptionStatusCanceled
	s.CanceledAt = &now
	s.ScheduleID = nil
	s.ScheduleState = model.ScheduleAbsent
	s.UpdatedAt = now
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	return u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		if err := u.subs.Save(ctx, tx, s); err != nil {
			return err
		}
		return u.invoices.CancelNonTerminal(ctx, tx, s.ID, "subscription cancelled")
	})
}

// deleteRemoteSchedule is idempotent: a missing schedule id or a 404 from
// the gateway both count as success.
func (u *subscriptionUC) deleteRemoteSchedule(ctx context.Context, s *model.Subscription) error {
	if s.ScheduleID == nil || *s.ScheduleID == "" {
		return nil
	}
	err := u.gateway.DeleteSchedule(ctx, *s.ScheduleID)
	if err != nil && !errors.Is(err, domain.ErrScheduleNotFound) && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (u *subscriptionUC) EnsureSchedule(ctx context.Context, subscriptionID string) error {
	defer logging.TraceDuration(u.log, "SubscriptionUC.EnsureSchedule")()
	log := logging.With(ctx, u.log)

	s, err := u.subs.FindByID(ctx, nil, subscriptionID)
	if err != nil {
		return err
	}
	if s.Terminal() || s.PaymentMethodID == nil {
		if err := u.deleteRemoteSchedule(ctx, s); err != nil {
			return err
		}
		return u.subs.SetSchedule(ctx, nil, s.ID, nil, model.ScheduleAbsent)
	}

	pm, err := u.methods.FindByID(ctx, nil, *s.PaymentMethodID)
	if err != nil {
		return err
	}
	billingKey, err := u.crypto.Decrypt(pm.BillingKey)
	if err != nil {
		return err
	}

	// The gateway registers billing keys asynchronously; a fresh key can 404
	// for a short window. Only the not-found case is retried.
	if err := u.waitForBillingKey(ctx, billingKey); err != nil {
		metrics.IncScheduleReconciled("failed")
		return err
	}

	// A previous run may have created the schedule and crashed before the id
	// was stored. Adopt it instead of creating a duplicate charge.
	if existing, err := u.findRemoteSchedule(ctx, s, pm.CustomerRef); err != nil {
		return err
	} else if existing != nil {
		log.Info().Str("subscription_id", s.ID).Str("schedule_id", existing.ID).Msg("recovered remote schedule")
		metrics.IncScheduleReconciled("recovered")
		return u.subs.SetSchedule(ctx, nil, s.ID, &existing.ID, model.SchedulePresent)
	}

	info, err := u.gateway.CreateSchedule(ctx, billingKey, adapter.ScheduleRequest{
		CustomerRef: pm.CustomerRef,
		PaymentID:   fmt.Sprintf("schedule_%s_%d", s.ID, time.Now().Unix()),
		OrderName:   "recurring payment",
		Amount:      u.planPriceOf(ctx, s),
		Currency:    "KRW",
		TimeToPay:   s.CurrentPeriodEnd,
		Metadata:    map[string]string{"subscriptionId": s.ID},
	})
	if err != nil {
		metrics.IncScheduleReconciled("failed")
		return err
	}
	metrics.IncScheduleReconciled("created")
	return u.subs.SetSchedule(ctx, nil, s.ID, &info.ID, model.SchedulePresent)
}

func (u *subscriptionUC) planPriceOf(ctx context.Context, s *model.Subscription) int64 {
	plan, err := u.plans.FindByID(ctx, nil, s.PlanID)
	if err != nil {
		return 0
	}
	return plan.Price
}

func (u *subscriptionUC) waitForBillingKey(ctx context.Context, billingKey string) error {
	var err error
	for attempt := 0; attempt < billingKeyRetries; attempt++ {
		if attempt > 0 {
			u.sleep(billingKeyRetryDelay)
		}
		_, err = u.gateway.GetBillingKey(ctx, billingKey)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return err
}

// findRemoteSchedule matches an unclaimed gateway schedule back to the
// subscription by metadata, falling back to the payment id prefix used by
// CreateSchedule.
func (u *subscriptionUC) findRemoteSchedule(ctx context.Context, s *model.Subscription, customerRef string) (*adapter.ScheduleInfo, error) {
	schedules, err := u.gateway.ListSchedules(ctx, customerRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	for _, sch := range schedules {
		if sch.Metadata["subscriptionId"] == s.ID {
			return sch, nil
		}
		if strings.HasPrefix(sch.PaymentID, "schedule_"+s.ID+"_") {
			return sch, nil
		}
	}
	return nil, nil
}

func (u *subscriptionUC) PayInvoice(ctx context.Context, invoiceID string) (bool, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.PayInvoice")()
	log := logging.With(ctx, u.log)

	inv, err := u.invoices.FindByID(ctx, nil, invoiceID)
	if err != nil {
		return false, err
	}
	if inv.Status != model.InvoiceStatusPending {
		log.Debug().Str("invoice_id", invoiceID).Str("status", string(inv.Status)).Msg("invoice not pending, nothing to pay")
		return false, nil
	}
	s, err := u.subs.FindByID(ctx, nil, inv.SubscriptionID)
	if err != nil {
		return false, err
	}
	if s.PaymentMethodID == nil {
		return false, u.failInvoice(ctx, s, inv, domain.ErrInvalidSubscriptionState)
	}
	billingKey, pm, err := u.billingKeyFor(ctx, *s.PaymentMethodID)
	if err != nil {
		return false, u.failInvoice(ctx, s, inv, err)
	}

	res, err := u.gateway.ExecuteBilling(ctx, billingKey, adapter.BillingRequest{
		CustomerRef: pm.CustomerRef,
		PaymentID:   inv.ID,
		OrderName:   "subscription renewal",
		Amount:      inv.Amount,
		Currency:    "KRW",
	})
	if err != nil {
		metrics.IncInvoiceBilled("failed")
		return false, u.failInvoice(ctx, s, inv, err)
	}

	settled := false
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		paid, err := u.invoices.MarkPaidIfPending(ctx, tx, inv.ID, res.TransactionID, res.PaidAt)
		if err != nil {
			return err
		}
		if !paid {
			// Another biller won the race; the charge is theirs to record.
			log.Warn().Str("invoice_id", inv.ID).Msg("invoice no longer pending after charge")
			return nil
		}
		plan, err := u.plans.FindByID(ctx, tx, s.PlanID)
		if err != nil {
			return err
		}
		s.CurrentPeriodStart = s.CurrentPeriodEnd
		s.CurrentPeriodEnd = plan.NextPeriodEnd(s.CurrentPeriodStart)
		s.Status = model.SubscriptionStatusActive
		s.UpdatedAt = time.Now()
		if err := u.subs.Save(ctx, tx, s); err != nil {
			return err
		}
		settled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if settled {
		metrics.IncInvoiceBilled("paid")
		metrics.AddPaymentRevenue("KRW", inv.Amount)
	}
	return settled, nil
}

func (u *subscriptionUC) failInvoice(ctx context.Context, s *model.Subscription, inv *model.SubscriptionInvoice, cause error) error {
	if _, err := u.invoices.MarkFailedIfPending(ctx, nil, inv.ID, cause.Error()); err != nil {
		u.log.Error().Err(err).Str("invoice_id", inv.ID).Msg("failed to mark invoice failed")
	}
	s.Status = model.SubscriptionStatusPastDue
	s.UpdatedAt = time.Now()
	if err := u.subs.Save(ctx, nil, s); err != nil {
		u.log.Error().Err(err).Str("subscription_id", s.ID).Msg("failed to mark subscription past due")
	}
	return cause
}

func (u *subscriptionUC) billingKeyFor(ctx context.Context, paymentMethodID string) (string, *model.PaymentMethod, error) {
	pm, err := u.methods.FindByID(ctx, nil, paymentMethodID)
	if err != nil {
		return "", nil, err
	}
	key, err := u.crypto.Decrypt(pm.BillingKey)
	if err != nil {
		return "", nil, err
	}
	return key, pm, nil
}

func (u *subscriptionUC) ProcessDue(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ProcessDue")()

	now := time.Now()
	due, err := u.subs.ListDue(ctx, nil, now, 500)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, s := range due {
		// A schedule-driven charge may already be on its way; leave those
		// invoices alone for a day before billing directly.
		pending, err := u.invoices.HasPendingDueBefore(ctx, nil, s.ID, now.AddDate(0, 0, 1))
		if err != nil {
			u.log.Error().Err(err).Str("subscription_id", s.ID).Msg("pending invoice check failed")
			continue
		}
		if pending {
			metrics.IncInvoiceBilled("skipped")
			continue
		}
		inv, err := u.createInvoice(ctx, s)
		if err != nil {
			u.log.Error().Err(err).Str("subscription_id", s.ID).Msg("invoice creation failed")
			continue
		}
		u.dispatchPayment(ctx, inv.ID)
		processed++
	}
	return processed, nil
}

// dispatchPayment hands the charge to the background pool so the batch never
// blocks on the gateway. Without a pool, or when the queue is full, it runs
// inline.
func (u *subscriptionUC) dispatchPayment(ctx context.Context, invoiceID string) {
	pay := func(ctx context.Context) error {
		if _, err := u.PayInvoice(ctx, invoiceID); err != nil {
			u.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("invoice payment failed")
		}
		return nil
	}
	if u.pool == nil {
		_ = pay(ctx)
		return
	}
	if err := u.pool.Submit(pay); err != nil {
		u.log.Warn().Err(err).Str("invoice_id", invoiceID).Msg("worker queue full, paying inline")
		_ = pay(ctx)
	}
}

func (u *subscriptionUC) createInvoice(ctx context.Context, s *model.Subscription) (*model.SubscriptionInvoice, error) {
	if !s.Billable() {
		return nil, fmt.Errorf("%w: subscription %s is %s, not billable", domain.ErrInvalidSubscriptionState, s.ID, s.Status)
	}
	plan, err := u.plans.FindByID(ctx, nil, s.PlanID)
	if err != nil {
		return nil, err
	}
	inv := &model.SubscriptionInvoice{
		ID:             uuid.NewString(),
		SubscriptionID: s.ID,
		Amount:         plan.Price,
		Status:         model.InvoiceStatusPending,
		DueDate:        s.CurrentPeriodEnd,
		CreatedAt:      time.Now(),
	}
	if err := u.invoices.Save(ctx, nil, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (u *subscriptionUC) PromoteTrialEnded(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.PromoteTrialEnded")()

	now := time.Now()
	ended, err := u.subs.ListTrialEnded(ctx, nil, now, 500)
	if err != nil {
		return 0, err
	}
	promoted := 0
	for _, s := range ended {
		// Status flip only. The subscription's period already ends at the
		// trial end, so the due-billing pass picks it up for its first
		// invoice; no charge happens here.
		s.Status = model.SubscriptionStatusActive
		s.UpdatedAt = now
		if err := u.subs.Save(ctx, nil, s); err != nil {
			u.log.Error().Err(err).Str("subscription_id", s.ID).Msg("failed to promote trial")
			continue
		}
		metrics.IncTrialPromoted()
		promoted++
	}
	return promoted, nil
}

func (u *subscriptionUC) ReconcileSchedules(ctx context.Context, limit int) (int, error) {
	pending, err := u.subs.ListSchedulePending(ctx, nil, limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, s := range pending {
		if err := u.EnsureSchedule(ctx, s.ID); err != nil {
			u.log.Error().Err(err).Str("subscription_id", s.ID).Msg("schedule reconciliation failed")
			continue
		}
		done++
	}
	return done, nil
}

func (u *subscriptionUC) RefundInvoice(ctx context.Context, invoiceID, reason string) error {
	defer logging.TraceDuration(u.log, "SubscriptionUC.RefundInvoice")()

	inv, err := u.invoices.FindByID(ctx, nil, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != model.InvoiceStatusPaid || inv.TransactionID == nil {
		return fmt.Errorf("%w: invoice %s is not refundable", domain.ErrInvalidSubscriptionState, invoiceID)
	}
	if _, err := u.gateway.CancelPayment(ctx, *inv.TransactionID, inv.Amount, reason); err != nil {
		return err
	}
	return u.invoices.UpdateStatus(ctx, nil, inv.ID, model.InvoiceStatusRefunded, reason)
}
