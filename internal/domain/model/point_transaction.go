package model

import "time"

type PointTransactionType string

const (
	PointEarned     PointTransactionType = "EARNED"
	PointSpent      PointTransactionType = "SPENT"
	PointExpired    PointTransactionType = "EXPIRED"
	PointAdjustment PointTransactionType = "ADJUSTMENT"
)

// PointTransaction is one immutable entry of the append-only point ledger.
// Points is signed: positive credits, negative debits. A user's balance is
// always the sum of their entries; it is never stored.
type PointTransaction struct {
	ID          string // ULID, sortable by creation
	UserID      string
	OrderID     *string // nil for order-independent adjustments
	Points      int
	Type        PointTransactionType
	Description string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}
