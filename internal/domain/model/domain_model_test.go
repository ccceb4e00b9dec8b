//go:build !integration

package model

import (
	"testing"
	"time"
)

// --- Order Model Tests ---

func TestOrderCanTransition(t *testing.T) {
	testCases := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending to completed", OrderStatusPendingPayment, OrderStatusCompleted, true},
		{"pending to cancelled", OrderStatusPendingPayment, OrderStatusCancelled, true},
		{"completed to cancelled", OrderStatusCompleted, OrderStatusCancelled, true},
		{"completed back to pending", OrderStatusCompleted, OrderStatusPendingPayment, false},
		{"cancelled to completed", OrderStatusCancelled, OrderStatusCompleted, false},
		{"cancelled to pending", OrderStatusCancelled, OrderStatusPendingPayment, false},
		{"pending to itself", OrderStatusPendingPayment, OrderStatusPendingPayment, false},
		{"completed to itself", OrderStatusCompleted, OrderStatusCompleted, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o := &Order{Status: tc.from}
			if got := o.CanTransition(tc.to); got != tc.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

// --- Plan Model Tests ---

func TestPlanNextPeriodEnd(t *testing.T) {
	t.Run("monthly adds one calendar month", func(t *testing.T) {
		p := &Plan{BillingInterval: BillingMonthly}
		start := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

		got := p.NextPeriodEnd(start)

		want := time.Date(2026, 4, 15, 9, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("monthly end-of-month normalizes forward", func(t *testing.T) {
		p := &Plan{BillingInterval: BillingMonthly}
		start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

		got := p.NextPeriodEnd(start)

		// AddDate normalization: Jan 31 + 1 month is Mar 3 in a non-leap
		// February, Mar 2 in a leap year like 2028.
		want := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("yearly adds one calendar year", func(t *testing.T) {
		p := &Plan{BillingInterval: BillingYearly}
		start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

		got := p.NextPeriodEnd(start)

		want := time.Date(2027, 6, 1, 12, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}

// --- Payment Model Tests ---

func TestPaymentRefundable(t *testing.T) {
	testCases := []struct {
		status PaymentStatus
		want   bool
	}{
		{PaymentStatusPaid, true},
		{PaymentStatusPartiallyRefunded, true},
		{PaymentStatusRefunded, false},
		{PaymentStatusFailed, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			p := &Payment{Status: tc.status}
			if got := p.Refundable(); got != tc.want {
				t.Errorf("Refundable() with status %s = %v, want %v", tc.status, got, tc.want)
			}
		})
	}
}

// --- Subscription Model Tests ---

func TestSubscriptionTerminal(t *testing.T) {
	testCases := []struct {
		status SubscriptionStatus
		want   bool
	}{
		{SubscriptionStatusTrialing, false},
		{SubscriptionStatusActive, false},
		{SubscriptionStatusPastDue, false},
		{SubscriptionStatusCanceled, true},
		{SubscriptionStatusEnded, true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			s := &Subscription{Status: tc.status}
			if got := s.Terminal(); got != tc.want {
				t.Errorf("Terminal() with status %s = %v, want %v", tc.status, got, tc.want)
			}
		})
	}
}

func TestSubscriptionBillable(t *testing.T) {
	testCases := []struct {
		status SubscriptionStatus
		want   bool
	}{
		{SubscriptionStatusActive, true},
		{SubscriptionStatusPastDue, true},
		{SubscriptionStatusTrialing, false},
		{SubscriptionStatusCanceled, false},
		{SubscriptionStatusEnded, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			s := &Subscription{Status: tc.status}
			if got := s.Billable(); got != tc.want {
				t.Errorf("Billable() with status %s = %v, want %v", tc.status, got, tc.want)
			}
		})
	}
}

func TestInvoiceTerminal(t *testing.T) {
	testCases := []struct {
		status InvoiceStatus
		want   bool
	}{
		{InvoiceStatusPaid, true},
		{InvoiceStatusRefunded, true},
		{InvoiceStatusCanceled, true},
		{InvoiceStatusPending, false},
		{InvoiceStatusFailed, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			i := &SubscriptionInvoice{Status: tc.status}
			if got := i.TerminalInvoice(); got != tc.want {
				t.Errorf("TerminalInvoice() with status %s = %v, want %v", tc.status, got, tc.want)
			}
		})
	}
}
