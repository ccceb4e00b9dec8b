package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (
  order_id, user_id, total_amount, points_used, points_discount_amount, status, synthesized, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (order_id) DO UPDATE SET
  user_id=$2, total_amount=$3, points_used=$4, points_discount_amount=$5, status=$6, synthesized=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, o.OrderID, o.UserID, o.TotalAmount, o.PointsUsed, o.PointsDiscountAmount, o.Status, o.Synthesized, o.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}

	// Items are immutable once written.
	const qi = `
INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO NOTHING;`
	for _, it := range o.Items {
		if _, err := execSQL(ctx, r.pool, tx, qi, it.ID, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, orderID string) (*model.Order, error) {
	q := `SELECT order_id, user_id, total_amount, points_used, points_discount_amount, status, synthesized, created_at FROM orders WHERE order_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}

	o := &model.Order{}
	if err := row.Scan(&o.OrderID, &o.UserID, &o.TotalAmount, &o.PointsUsed, &o.PointsDiscountAmount, &o.Status, &o.Synthesized, &o.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	items, err := r.loadItems(ctx, tx, o.OrderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *orderRepo) loadItems(ctx context.Context, tx repository.Tx, orderID string) ([]model.OrderItem, error) {
	const q = `SELECT id, order_id, product_id, quantity, unit_price FROM order_items WHERE order_id=$1 ORDER BY id;`
	rows, err := queryRows(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *orderRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Order, error) {
	const q = `SELECT order_id, user_id, total_amount, points_used, points_discount_amount, status, synthesized, created_at FROM orders WHERE user_id=$1 ORDER BY created_at DESC;`
	return r.queryMany(ctx, tx, q, userID)
}

func (r *orderRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, orderID string) (bool, error) {
	const q = `UPDATE orders SET status='COMPLETED' WHERE order_id=$1 AND status='PENDING_PAYMENT';`
	cmd, err := execSQL(ctx, r.pool, tx, q, orderID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tx repository.Tx, orderID string, status model.OrderStatus) error {
	const q = `UPDATE orders SET status=$2 WHERE order_id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, status)
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

func (r *orderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	const q = `SELECT order_id, user_id, total_amount, points_used, points_discount_amount, status, synthesized, created_at FROM orders WHERE status='PENDING_PAYMENT' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	return r.queryMany(ctx, tx, q, olderThan, limit)
}

func (r *orderRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Order, error) {
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
	var out []*model.Order
	for rows.Next() {
		o := &model.Order{}
		if err := rows.Scan(&o.OrderID, &o.UserID, &o.TotalAmount, &o.PointsUsed, &o.PointsDiscountAmount, &o.Status, &o.Synthesized, &o.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
