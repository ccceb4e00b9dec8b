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

var _ repository.SubscriptionInvoiceRepository = (*invoiceRepo)(nil)

type invoiceRepo struct{ pool *pgxpool.Pool }

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

const invoiceColumns = `id, subscription_id, amount, status, due_date, transaction_id, attempt_count, error_message, paid_at, created_at`

func (r *invoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.SubscriptionInvoice) error {
	const q = `
INSERT INTO subscription_invoices (
  id, subscription_id, amount, status, due_date, transaction_id, attempt_count, error_message, paid_at, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  status=$4, due_date=$5, transaction_id=$6, attempt_count=$7, error_message=$8, paid_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q, inv.ID, inv.SubscriptionID, inv.Amount, inv.Status, inv.DueDate, inv.TransactionID, inv.AttemptCount, inv.ErrorMessage, inv.PaidAt, inv.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *invoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionInvoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM subscription_invoices WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanInvoice(row)
}

func (r *invoiceRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.SubscriptionInvoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM subscription_invoices WHERE subscription_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.SubscriptionInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *invoiceRepo) HasPendingDueBefore(ctx context.Context, tx repository.Tx, subscriptionID string, before time.Time) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM subscription_invoices WHERE subscription_id=$1 AND status='PENDING' AND due_date < $2);`
	row, err := pickRow(ctx, r.pool, tx, q, subscriptionID, before)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *invoiceRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string, transactionID string, paidAt time.Time) (bool, error) {
	const q = `
UPDATE subscription_invoices
   SET status='PAID', transaction_id=$2, paid_at=$3, attempt_count=attempt_count+1, error_message=''
 WHERE id=$1 AND status='PENDING';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, transactionID, paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *invoiceRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id string, errorMessage string) (bool, error) {
	const q = `
UPDATE subscription_invoices
   SET status='FAILED', error_message=$2, attempt_count=attempt_count+1
 WHERE id=$1 AND status='PENDING';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, errorMessage)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.InvoiceStatus, errorMessage string) error {
	const q = `UPDATE subscription_invoices SET status=$2, error_message=$3 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, status, errorMessage)
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

func (r *invoiceRepo) CancelNonTerminal(ctx context.Context, tx repository.Tx, subscriptionID string, errorMessage string) error {
	const q = `UPDATE subscription_invoices SET status='CANCELED', error_message=$2 WHERE subscription_id=$1 AND status IN ('PENDING','FAILED');`
	_, err := execSQL(ctx, r.pool, tx, q, subscriptionID, errorMessage)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanInvoice(row pgx.Row) (*model.SubscriptionInvoice, error) {
	inv := &model.SubscriptionInvoice{}
	if err := row.Scan(&inv.ID, &inv.SubscriptionID, &inv.Amount, &inv.Status, &inv.DueDate, &inv.TransactionID, &inv.AttemptCount, &inv.ErrorMessage, &inv.PaidAt, &inv.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return inv, nil
}
