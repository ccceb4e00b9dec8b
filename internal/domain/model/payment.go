package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPaid              PaymentStatus = "PAID"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// Payment records verified money movement for an order. At most one Payment
// exists per order; TransactionID is the gateway's id and is unique when set
// (nil for point-only settlements).
type Payment struct {
	ID            string // UUID
	OrderID       string
	TransactionID *string // gateway transaction id; nil for point-only payments
	Amount        int64
	Status        PaymentStatus
	Method        string // gateway pay method label, or "POINTS"
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Refundable reports whether the payment may be the target of a refund.
func (p *Payment) Refundable() bool {
	return p.Status == PaymentStatusPaid || p.Status == PaymentStatusPartiallyRefunded
}

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusCompleted RefundStatus = "COMPLETED"
	RefundStatusFailed    RefundStatus = "FAILED"
)

// Refund is one (possibly partial) reversal of a payment. The sum of
// completed refund amounts never exceeds the payment amount.
type Refund struct {
	ID        string // UUID
	PaymentID string
	Amount    int64
	Reason    string
	Status    RefundStatus
	// ReconcileNote records which compensation sub-steps failed, if any,
	// so the refund can be manually reconciled later.
	ReconcileNote string
	CreatedAt     time.Time
}
