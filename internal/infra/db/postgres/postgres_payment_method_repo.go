package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
)

var _ repository.PaymentMethodRepository = (*paymentMethodRepo)(nil)

type paymentMethodRepo struct{ pool *pgxpool.Pool }

func NewPaymentMethodRepo(pool *pgxpool.Pool) *paymentMethodRepo {
	return &paymentMethodRepo{pool: pool}
}

const paymentMethodColumns = `id, user_id, customer_ref, billing_key, label, is_default, created_at`

func (r *paymentMethodRepo) Save(ctx context.Context, tx repository.Tx, pm *model.PaymentMethod) error {
	const q = `
INSERT INTO payment_methods (id, user_id, customer_ref, billing_key, label, is_default, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET billing_key=$4, label=$5, is_default=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, pm.ID, pm.UserID, pm.CustomerRef, pm.BillingKey, pm.Label, pm.IsDefault, pm.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentMethodRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentMethod, error) {
	const q = `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	pm := &model.PaymentMethod{}
	if err := row.Scan(&pm.ID, &pm.UserID, &pm.CustomerRef, &pm.BillingKey, &pm.Label, &pm.IsDefault, &pm.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return pm, nil
}

func (r *paymentMethodRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PaymentMethod, error) {
	const q = `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE user_id=$1 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.PaymentMethod
	for rows.Next() {
		pm := &model.PaymentMethod{}
		if err := rows.Scan(&pm.ID, &pm.UserID, &pm.CustomerRef, &pm.BillingKey, &pm.Label, &pm.IsDefault, &pm.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, pm)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *paymentMethodRepo) ClearDefault(ctx context.Context, tx repository.Tx, userID string) error {
	const q = `UPDATE payment_methods SET is_default=FALSE WHERE user_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, userID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentMethodRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM payment_methods WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
