// File: internal/usecase/point_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
	"ecommerce-loyalty-platform/internal/infra/logging"
	"ecommerce-loyalty-platform/internal/infra/metrics"
)

// Compile-time check
var _ PointUseCase = (*pointUC)(nil)

// PointUseCase manages the append-only point ledger. Mutating operations
// accept a tx so callers can fold them into a larger transaction; pass nil
// to run standalone.
type PointUseCase interface {
	Balance(ctx context.Context, userID string) (int, error)
	History(ctx context.Context, userID string) ([]*model.PointTransaction, error)
	HistoryByOrder(ctx context.Context, orderID string) ([]*model.PointTransaction, error)

	// Spend debits points for an order. points <= 0 is a no-op.
	Spend(ctx context.Context, tx repository.Tx, userID, orderID string, points int, description string) error
	// Earn credits points for an order. points <= 0 is a no-op.
	Earn(ctx context.Context, tx repository.Tx, userID, orderID string, points int, description string) error
	// Charge credits points with no order attached (manual top-up).
	Charge(ctx context.Context, userID string, points int, description string) error

	// RefundSpent returns what was spent on the order back to the user and
	// reports the amount credited. Safe to retry: prior refund adjustments
	// for the same order reduce the credit to zero. Orders with no ledger
	// entries at all fall back to fallbackPoints, the spend recorded on the
	// order row.
	RefundSpent(ctx context.Context, tx repository.Tx, userID, orderID string, fallbackPoints int) (int, error)
	// ReverseEarned claws back what was earned from the order, capped at the
	// user's current balance, and reports the amount debited. Safe to retry.
	ReverseEarned(ctx context.Context, tx repository.Tx, userID, orderID string) (int, error)
}

type pointUC struct {
	points repository.PointTransactionRepository
	log    *zerolog.Logger
}

func NewPointUseCase(points repository.PointTransactionRepository, logger *zerolog.Logger) *pointUC {
	return &pointUC{points: points, log: logger}
}

func (u *pointUC) Balance(ctx context.Context, userID string) (int, error) {
	return u.points.SumByUser(ctx, nil, userID)
}

func (u *pointUC) History(ctx context.Context, userID string) ([]*model.PointTransaction, error) {
	return u.points.ListByUser(ctx, nil, userID)
}

func (u *pointUC) HistoryByOrder(ctx context.Context, orderID string) ([]*model.PointTransaction, error) {
	return u.points.ListByOrder(ctx, nil, orderID)
}

func (u *pointUC) Spend(ctx context.Context, tx repository.Tx, userID, orderID string, points int, description string) error {
	defer logging.TraceDuration(u.log, "PointUC.Spend")()
	if points <= 0 {
		return nil
	}
	balance, err := u.points.SumByUser(ctx, tx, userID)
	if err != nil {
		return err
	}
	if balance < points {
		return domain.InsufficientBalance(balance, points)
	}
	return u.append(ctx, tx, u.newEntry(userID, &orderID, -points, model.PointSpent, description, nil))
}

func (u *pointUC) Earn(ctx context.Context, tx repository.Tx, userID, orderID string, points int, description string) error {
	defer logging.TraceDuration(u.log, "PointUC.Earn")()
	if points <= 0 {
		return nil
	}
	expires := time.Now().AddDate(1, 0, 0)
	return u.append(ctx, tx, u.newEntry(userID, &orderID, points, model.PointEarned, description, &expires))
}

func (u *pointUC) Charge(ctx context.Context, userID string, points int, description string) error {
	if points <= 0 {
		return domain.ErrInvalidArgument
	}
	expires := time.Now().AddDate(1, 0, 0)
	return u.append(ctx, nil, u.newEntry(userID, nil, points, model.PointEarned, description, &expires))
}

func (u *pointUC) RefundSpent(ctx context.Context, tx repository.Tx, userID, orderID string, fallbackPoints int) (int, error) {
	defer logging.TraceDuration(u.log, "PointUC.RefundSpent")()
	entries, err := u.points.ListByOrder(ctx, tx, orderID)
	if err != nil {
		return 0, err
	}
	// Net spend still outstanding: |SPENT| minus prior positive adjustments.
	refund := 0
	tracked := false
	for _, e := range entries {
		if e.UserID != userID {
			continue
		}
		switch {
		case e.Type == model.PointSpent:
			refund += -e.Points
			tracked = true
		case e.Type == model.PointAdjustment:
			tracked = true
			if e.Points > 0 {
				refund -= e.Points
			}
		}
	}
	if !tracked && fallbackPoints > 0 {
		// Spends recorded before ledger tracking only exist on the order row.
		refund = fallbackPoints
	}
	if refund <= 0 {
		return 0, nil
	}
	entry := u.newEntry(userID, &orderID, refund, model.PointAdjustment, "refund of points spent on order "+orderID, nil)
	if err := u.append(ctx, tx, entry); err != nil {
		return 0, err
	}
	return refund, nil
}

func (u *pointUC) ReverseEarned(ctx context.Context, tx repository.Tx, userID, orderID string) (int, error) {
	defer logging.TraceDuration(u.log, "PointUC.ReverseEarned")()
	entries, err := u.points.ListByOrder(ctx, tx, orderID)
	if err != nil {
		return 0, err
	}
	// Net earn still outstanding: EARNED minus prior negative adjustments.
	clawback := 0
	for _, e := range entries {
		if e.UserID != userID {
			continue
		}
		switch {
		case e.Type == model.PointEarned:
			clawback += e.Points
		case e.Type == model.PointAdjustment && e.Points < 0:
			clawback -= -e.Points
		}
	}
	if clawback <= 0 {
		return 0, nil
	}
	// Cap at the current balance so the ledger never goes negative when the
	// user already spent the earned points elsewhere.
	balance, err := u.points.SumByUser(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	if balance < clawback {
		u.log.Warn().Str("user_id", userID).Str("order_id", orderID).
			Int("clawback", clawback).Int("balance", balance).
			Msg("earned-point clawback capped at balance")
		clawback = balance
	}
	if clawback <= 0 {
		return 0, nil
	}
	entry := u.newEntry(userID, &orderID, -clawback, model.PointAdjustment, "reversal of points earned on order "+orderID, nil)
	if err := u.append(ctx, tx, entry); err != nil {
		return 0, err
	}
	return clawback, nil
}

// append persists a ledger entry and feeds the movement counter.
func (u *pointUC) append(ctx context.Context, tx repository.Tx, e *model.PointTransaction) error {
	if err := u.points.Save(ctx, tx, e); err != nil {
		return err
	}
	metrics.AddPointsMoved(string(e.Type), e.Points)
	return nil
}

func (u *pointUC) newEntry(userID string, orderID *string, points int, typ model.PointTransactionType, description string, expiresAt *time.Time) *model.PointTransaction {
	return &model.PointTransaction{
		ID:          ulid.Make().String(),
		UserID:      userID,
		OrderID:     orderID,
		Points:      points,
		Type:        typ,
		Description: description,
		CreatedAt:   time.Now(),
		ExpiresAt:   expiresAt,
	}
}
