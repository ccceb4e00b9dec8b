package repository

import (
	"context"

	"ecommerce-loyalty-platform/internal/domain/model"
)

type PointTransactionRepository interface {
	// Save appends one immutable ledger entry. Entries are never updated.
	Save(ctx context.Context, tx Tx, t *model.PointTransaction) error
	// SumByUser returns the signed sum of all entry deltas for the user.
	// The balance is always recomputed from the log, never stored.
	SumByUser(ctx context.Context, tx Tx, userID string) (int, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.PointTransaction, error)
	ListByOrder(ctx context.Context, tx Tx, orderID string) ([]*model.PointTransaction, error)
}
