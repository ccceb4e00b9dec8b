package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
)

var _ repository.RefundRepository = (*refundRepo)(nil)

type refundRepo struct{ pool *pgxpool.Pool }

func NewRefundRepo(pool *pgxpool.Pool) *refundRepo {
	return &refundRepo{pool: pool}
}

func (r *refundRepo) Save(ctx context.Context, tx repository.Tx, rf *model.Refund) error {
	const q = `
INSERT INTO refunds (id, payment_id, amount, reason, status, reconcile_note, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET status=$5, reconcile_note=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, rf.ID, rf.PaymentID, rf.Amount, rf.Reason, rf.Status, rf.ReconcileNote, rf.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *refundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	const q = `SELECT id, payment_id, amount, reason, status, reconcile_note, created_at FROM refunds WHERE payment_id=$1 ORDER BY created_at ASC;`
	return r.queryMany(ctx, tx, q, paymentID)
}

func (r *refundRepo) SumCompletedByPayment(ctx context.Context, tx repository.Tx, paymentID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM refunds WHERE payment_id=$1 AND status='COMPLETED';`
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *refundRepo) ListPartial(ctx context.Context, tx repository.Tx, limit int) ([]*model.Refund, error) {
	const q = `SELECT id, payment_id, amount, reason, status, reconcile_note, created_at FROM refunds WHERE reconcile_note <> '' ORDER BY created_at DESC LIMIT $1;`
	return r.queryMany(ctx, tx, q, limit)
}

func (r *refundRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Refund, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.Refund
	for rows.Next() {
		rf := &model.Refund{}
		if err := rows.Scan(&rf.ID, &rf.PaymentID, &rf.Amount, &rf.Reason, &rf.Status, &rf.ReconcileNote, &rf.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, rf)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
