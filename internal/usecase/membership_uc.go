// File: internal/usecase/membership_uc.go
package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ecommerce-loyalty-platform/internal/config"
	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
	"ecommerce-loyalty-platform/internal/infra/logging"
	"ecommerce-loyalty-platform/internal/infra/metrics"
)

// Compile-time check
var _ MembershipUseCase = (*membershipUC)(nil)

// MembershipUseCase keeps each user's loyalty tier in sync with their
// cumulative paid amount and exposes the tier's point accrual rate.
type MembershipUseCase interface {
	Get(ctx context.Context, userID string) (*model.Membership, *model.MembershipLevel, error)
	// GetOrCreateDefault returns the user's membership, creating the base-tier
	// row on first touch. Idempotent: an existing row is returned as is.
	GetOrCreateDefault(ctx context.Context, tx repository.Tx, userID string) (*model.Membership, *model.MembershipLevel, error)
	// AccrualRate returns the rate of the user's current tier. Users with no
	// membership row yet get one at the base tier.
	AccrualRate(ctx context.Context, tx repository.Tx, userID string) (float64, error)
	// EarnedPointsFor converts a paid amount to points at the given rate,
	// rounding half up.
	EarnedPointsFor(amount int64, rate float64) int
	// Recompute re-derives the user's tier from their total paid amount and
	// upserts the membership row.
	Recompute(ctx context.Context, tx repository.Tx, userID string) (*model.Membership, error)
}

type membershipUC struct {
	memberships repository.MembershipRepository
	levels      repository.MembershipLevelRepository
	payments    repository.PaymentRepository
	cfg         config.MembershipConfig
	log         *zerolog.Logger
}

func NewMembershipUseCase(
	memberships repository.MembershipRepository,
	levels repository.MembershipLevelRepository,
	payments repository.PaymentRepository,
	cfg config.MembershipConfig,
	logger *zerolog.Logger,
) *membershipUC {
	return &membershipUC{memberships: memberships, levels: levels, payments: payments, cfg: cfg, log: logger}
}

const (
	LevelNormal = "Normal"
	LevelVIP    = "VIP"
	LevelVVIP   = "VVIP"
)

func (u *membershipUC) Get(ctx context.Context, userID string) (*model.Membership, *model.MembershipLevel, error) {
	return u.GetOrCreateDefault(ctx, nil, userID)
}

func (u *membershipUC) GetOrCreateDefault(ctx context.Context, tx repository.Tx, userID string) (*model.Membership, *model.MembershipLevel, error) {
	m, err := u.memberships.FindByUser(ctx, tx, userID)
	if err == nil {
		lvl, err := u.levels.FindByID(ctx, tx, m.LevelID)
		if err != nil {
			return nil, nil, err
		}
		return m, lvl, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	lvl, err := u.levelByName(ctx, tx, LevelNormal)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now()
	m = &model.Membership{
		ID:        uuid.NewString(),
		UserID:    userID,
		LevelID:   lvl.ID,
		JoinedAt:  now,
		UpdatedAt: now,
	}
	if err := u.memberships.Upsert(ctx, tx, m); err != nil {
		return nil, nil, err
	}
	metrics.IncMembershipChange(LevelNormal)
	u.log.Info().Str("user_id", userID).Msg("base membership created")
	return m, lvl, nil
}

func (u *membershipUC) AccrualRate(ctx context.Context, tx repository.Tx, userID string) (float64, error) {
	_, lvl, err := u.GetOrCreateDefault(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	return lvl.AccrualRate, nil
}

func (u *membershipUC) EarnedPointsFor(amount int64, rate float64) int {
	if amount <= 0 || rate <= 0 {
		return 0
	}
	return int(math.Floor(float64(amount)*rate + 0.5))
}

func (u *membershipUC) Recompute(ctx context.Context, tx repository.Tx, userID string) (*model.Membership, error) {
	defer logging.TraceDuration(u.log, "MembershipUC.Recompute")()

	total, err := u.payments.SumPaidByUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	name := u.levelNameFor(total)
	lvl, err := u.levelByName(ctx, tx, name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	m, err := u.memberships.FindByUser(ctx, tx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		m = &model.Membership{
			ID:       uuid.NewString(),
			UserID:   userID,
			LevelID:  lvl.ID,
			JoinedAt: now,
		}
	case err != nil:
		return nil, err
	default:
		if m.LevelID == lvl.ID {
			return m, nil
		}
		m.LevelID = lvl.ID
	}
	m.UpdatedAt = now
	if err := u.memberships.Upsert(ctx, tx, m); err != nil {
		return nil, err
	}
	metrics.IncMembershipChange(name)
	u.log.Info().Str("user_id", userID).Str("level", name).Int64("total_paid", total).Msg("membership level updated")
	return m, nil
}

func (u *membershipUC) levelNameFor(totalPaid int64) string {
	switch {
	case totalPaid <= u.cfg.NormalCeiling:
		return LevelNormal
	case totalPaid <= u.cfg.VIPCeiling:
		return LevelVIP
	default:
		return LevelVVIP
	}
}

// levelByName resolves a tier row, creating it from config rates when the
// seed has not run.
func (u *membershipUC) levelByName(ctx context.Context, tx repository.Tx, name string) (*model.MembershipLevel, error) {
	lvl, err := u.levels.FindByName(ctx, tx, name)
	if err == nil {
		return lvl, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	rate := u.cfg.NormalRate
	switch name {
	case LevelVIP:
		rate = u.cfg.VIPRate
	case LevelVVIP:
		rate = u.cfg.VVIPRate
	}
	lvl = &model.MembershipLevel{
		ID:          uuid.NewString(),
		Name:        name,
		AccrualRate: rate,
	}
	if err := u.levels.Save(ctx, tx, lvl); err != nil {
		return nil, err
	}
	return lvl, nil
}
