package repository

import (
	"context"

	"ecommerce-loyalty-platform/internal/domain/model"
)

type MembershipRepository interface {
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.Membership, error)
	// Upsert inserts or updates the user's single membership row by user id.
	Upsert(ctx context.Context, tx Tx, m *model.Membership) error
}

type MembershipLevelRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.MembershipLevel, error)
	FindByName(ctx context.Context, tx Tx, name string) (*model.MembershipLevel, error)
	Save(ctx context.Context, tx Tx, l *model.MembershipLevel) error
}
