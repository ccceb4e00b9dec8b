package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
)

var (
	_ repository.MembershipRepository      = (*membershipRepo)(nil)
	_ repository.MembershipLevelRepository = (*membershipLevelRepo)(nil)
)

type membershipRepo struct{ pool *pgxpool.Pool }

func NewMembershipRepo(pool *pgxpool.Pool) *membershipRepo {
	return &membershipRepo{pool: pool}
}

func (r *membershipRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Membership, error) {
	q := `SELECT id, user_id, level_id, joined_at, expires_at, updated_at FROM memberships WHERE user_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	m := &model.Membership{}
	if err := row.Scan(&m.ID, &m.UserID, &m.LevelID, &m.JoinedAt, &m.ExpiresAt, &m.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return m, nil
}

func (r *membershipRepo) Upsert(ctx context.Context, tx repository.Tx, m *model.Membership) error {
	const q = `
INSERT INTO memberships (id, user_id, level_id, joined_at, expires_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (user_id) DO UPDATE SET level_id=$3, expires_at=$5, updated_at=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, m.ID, m.UserID, m.LevelID, m.JoinedAt, m.ExpiresAt, m.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

type membershipLevelRepo struct{ pool *pgxpool.Pool }

func NewMembershipLevelRepo(pool *pgxpool.Pool) *membershipLevelRepo {
	return &membershipLevelRepo{pool: pool}
}

func (r *membershipLevelRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MembershipLevel, error) {
	const q = `SELECT id, name, accrual_rate, benefits FROM membership_levels WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *membershipLevelRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.MembershipLevel, error) {
	const q = `SELECT id, name, accrual_rate, benefits FROM membership_levels WHERE name=$1;`
	return r.queryOne(ctx, tx, q, name)
}

func (r *membershipLevelRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.MembershipLevel, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	l := &model.MembershipLevel{}
	if err := row.Scan(&l.ID, &l.Name, &l.AccrualRate, &l.Benefits); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return l, nil
}

func (r *membershipLevelRepo) Save(ctx context.Context, tx repository.Tx, l *model.MembershipLevel) error {
	const q = `
INSERT INTO membership_levels (id, name, accrual_rate, benefits)
VALUES ($1,$2,$3,$4)
ON CONFLICT (name) DO UPDATE SET accrual_rate=$3, benefits=$4;`
	_, err := execSQL(ctx, r.pool, tx, q, l.ID, l.Name, l.AccrualRate, l.Benefits)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
