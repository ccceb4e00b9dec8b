package adapter

import (
	"context"
	"time"
)

// PaymentDetails is the gateway's view of a single transaction. Correlation
// fields are optional; which ones a given gateway populates varies by
// integration version, so the reconciler probes them in precedence order.
type PaymentDetails struct {
	ID                string
	Status            string
	Amount            int64
	OrderName         string
	PayMethod         string
	PaidAt            *time.Time
	CustomData        map[string]string
	MerchantUID       string
	MerchantPaymentID string
	OrderID           string
	CustomerID        string
}

type CancelResult struct {
	CancelledAmount int64
}

type BillingKeyInfo struct {
	BillingKey  string
	CustomerRef string
	CardName    string
	IssuedAt    time.Time
}

type BillingRequest struct {
	CustomerRef string
	PaymentID   string
	OrderName   string
	Amount      int64
	Currency    string
}

type BillingResult struct {
	TransactionID string
	Amount        int64
	PaidAt        time.Time
}

type ScheduleRequest struct {
	CustomerRef string
	PaymentID   string
	OrderName   string
	Amount      int64
	Currency    string
	TimeToPay   time.Time
	Metadata    map[string]string
}

type ScheduleInfo struct {
	ID        string
	PaymentID string
	TimeToPay time.Time
	Metadata  map[string]string
}

// PaymentGateway abstracts the external payment provider. Implementations
// classify failures into the domain sentinels: transport problems map to
// ErrGatewayUnavailable, provider declines to ErrGatewayRejected, missing
// resources to ErrNotFound (ErrScheduleNotFound for schedules).
type PaymentGateway interface {
	Name() string

	GetPaymentDetails(ctx context.Context, transactionID string) (*PaymentDetails, error)
	CancelPayment(ctx context.Context, transactionID string, amount int64, reason string) (*CancelResult, error)

	IssueBillingKey(ctx context.Context, customerRef, cardToken string) (*BillingKeyInfo, error)
	GetBillingKey(ctx context.Context, billingKey string) (*BillingKeyInfo, error)
	DeleteBillingKey(ctx context.Context, billingKey string) error
	ExecuteBilling(ctx context.Context, billingKey string, req BillingRequest) (*BillingResult, error)

	CreateSchedule(ctx context.Context, billingKey string, req ScheduleRequest) (*ScheduleInfo, error)
	ListSchedules(ctx context.Context, customerRef string) ([]*ScheduleInfo, error)
	DeleteSchedule(ctx context.Context, scheduleID string) error
}
