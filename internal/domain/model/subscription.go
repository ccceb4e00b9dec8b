package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusTrialing SubscriptionStatus = "TRIALING"
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
	SubscriptionStatusEnded    SubscriptionStatus = "ENDED"
)

// ScheduleState is the durable marker for the remote recurring-charge
// schedule, so a crash mid-creation is recoverable by a reconciliation sweep.
type ScheduleState string

const (
	SchedulePending ScheduleState = "pending" // creation requested, id not yet confirmed
	SchedulePresent ScheduleState = "present" // remote schedule exists, id stored
	ScheduleAbsent  ScheduleState = "absent"  // no remote schedule should exist
)

// Subscription is one user's recurring enrollment in a plan.
type Subscription struct {
	ID              string // UUID
	UserID          string
	PlanID          string
	PaymentMethodID *string
	Status          SubscriptionStatus
	// Current billing period; bounds only ever move forward.
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	TrialEnd           *time.Time
	// Remote recurring-charge schedule.
	ScheduleID    *string
	ScheduleState ScheduleState
	CanceledAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Terminal reports whether the subscription can never bill again.
func (s *Subscription) Terminal() bool {
	return s.Status == SubscriptionStatusCanceled || s.Status == SubscriptionStatusEnded
}

// Billable reports whether invoices may be created for the subscription.
func (s *Subscription) Billable() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusPastDue
}

type InvoiceStatus string

const (
	InvoiceStatusPending  InvoiceStatus = "PENDING"
	InvoiceStatusPaid     InvoiceStatus = "PAID"
	InvoiceStatusFailed   InvoiceStatus = "FAILED"
	InvoiceStatusRefunded InvoiceStatus = "REFUNDED"
	InvoiceStatusCanceled InvoiceStatus = "CANCELED"
)

// SubscriptionInvoice is one billing attempt target for a subscription.
type SubscriptionInvoice struct {
	ID             string // UUID
	SubscriptionID string
	Amount         int64
	Status         InvoiceStatus
	DueDate        time.Time
	TransactionID  *string // gateway transaction id, unique when set
	AttemptCount   int
	ErrorMessage   string
	PaidAt         *time.Time
	CreatedAt      time.Time
}

// TerminalInvoice reports whether the invoice status is final.
func (i *SubscriptionInvoice) TerminalInvoice() bool {
	switch i.Status {
	case InvoiceStatusPaid, InvoiceStatusRefunded, InvoiceStatusCanceled:
		return true
	}
	return false
}
