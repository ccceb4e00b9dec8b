package model

import "time"

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// Order is a single purchase. Its identity is the caller-supplied order id,
// which is also the correlation key sent to the payment gateway at checkout.
type Order struct {
	OrderID              string // caller-supplied, globally unique
	UserID               string // UUID
	TotalAmount          int64  // KRW
	PointsUsed           int
	PointsDiscountAmount int64
	Status               OrderStatus
	Synthesized          bool // true when auto-created from a gateway payment with lost correlation
	CreatedAt            time.Time
	Items                []OrderItem
}

// OrderItem is one purchased line of an order.
type OrderItem struct {
	ID        string // UUID
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice int64
}

// CanTransition reports whether moving to next is a legal order transition.
// Legal moves: PENDING_PAYMENT->COMPLETED, PENDING_PAYMENT->CANCELLED
// (abandoned checkout), COMPLETED->CANCELLED (refund). Never backward.
func (o *Order) CanTransition(next OrderStatus) bool {
	switch o.Status {
	case OrderStatusPendingPayment:
		return next == OrderStatusCompleted || next == OrderStatusCancelled
	case OrderStatusCompleted:
		return next == OrderStatusCancelled
	default:
		return false
	}
}

// Product is the catalog entry order items are validated against.
type Product struct {
	ID        string // UUID
	Name      string
	Price     int64
	Stock     int
	CreatedAt time.Time
}
