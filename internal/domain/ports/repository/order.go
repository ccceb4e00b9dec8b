package repository

import (
	"context"
	"time"

	"ecommerce-loyalty-platform/internal/domain/model"
)

type OrderRepository interface {
	// Save upserts the order (and its items) by order id.
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, orderID string) (*model.Order, error)
	FindByUser(ctx context.Context, tx Tx, userID string) ([]*model.Order, error)
	// CompleteIfPending atomically moves PENDING_PAYMENT -> COMPLETED and
	// reports whether the transition happened. Side effects that must fire
	// exactly once per completion are keyed to the returned bool.
	CompleteIfPending(ctx context.Context, tx Tx, orderID string) (bool, error)
	// UpdateStatus sets the status unconditionally (used for CANCELLED,
	// after the use case has validated the transition).
	UpdateStatus(ctx context.Context, tx Tx, orderID string, status model.OrderStatus) error
	// ListPendingOlderThan returns PENDING_PAYMENT orders created before the
	// cutoff, oldest first, for the abandoned-checkout reaper.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Order, error)
}

type ProductRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Product) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Product, error)
	// FindByIDs returns the products that exist among ids (missing ids are
	// simply absent from the result).
	FindByIDs(ctx context.Context, tx Tx, ids []string) ([]*model.Product, error)
}
