package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
)

var _ repository.PointTransactionRepository = (*pointTransactionRepo)(nil)

type pointTransactionRepo struct{ pool *pgxpool.Pool }

func NewPointTransactionRepo(pool *pgxpool.Pool) *pointTransactionRepo {
	return &pointTransactionRepo{pool: pool}
}

// Save is insert-only. Ledger rows are never updated.
func (r *pointTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.PointTransaction) error {
	const q = `
INSERT INTO point_transactions (id, user_id, order_id, points, type, description, created_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.UserID, t.OrderID, t.Points, t.Type, t.Description, t.CreatedAt, t.ExpiresAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *pointTransactionRepo) SumByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	const q = `SELECT COALESCE(SUM(points),0) FROM point_transactions WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return 0, err
	}
	var sum int
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *pointTransactionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PointTransaction, error) {
	const q = `SELECT id, user_id, order_id, points, type, description, created_at, expires_at FROM point_transactions WHERE user_id=$1 ORDER BY id DESC;`
	return r.queryMany(ctx, tx, q, userID)
}

func (r *pointTransactionRepo) ListByOrder(ctx context.Context, tx repository.Tx, orderID string) ([]*model.PointTransaction, error) {
	const q = `SELECT id, user_id, order_id, points, type, description, created_at, expires_at FROM point_transactions WHERE order_id=$1 ORDER BY id ASC;`
	return r.queryMany(ctx, tx, q, orderID)
}

func (r *pointTransactionRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.PointTransaction, error) {
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
	var out []*model.PointTransaction
	for rows.Next() {
		t := &model.PointTransaction{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.OrderID, &t.Points, &t.Type, &t.Description, &t.CreatedAt, &t.ExpiresAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
