package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/repository"
)

var _ repository.RefundRepository = (*refundRepo)(nil)

const refundColumns = `id, payment_id, amount, reason, status, provider_refund_id, created_by, created_at, updated_at`

type refundRepo struct{ pool *pgxpool.Pool }

func NewRefundRepo(pool *pgxpool.Pool) *refundRepo {
	return &refundRepo{pool: pool}
}

func scanRefund(row pgx.Row) (*model.Refund, error) {
	rf := &model.Refund{}
	err := row.Scan(&rf.ID, &rf.PaymentID, &rf.Amount, &rf.Reason, &rf.Status,
		&rf.ProviderRefundID, &rf.CreatedBy, &rf.CreatedAt, &rf.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return rf, nil
}

func (r *refundRepo) Save(ctx context.Context, tx repository.Tx, rf *model.Refund) error {
	const q = `
INSERT INTO refunds (id, payment_id, amount, reason, status, provider_refund_id, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	_, err := execSQL(ctx, r.pool, tx, q, rf.ID, rf.PaymentID, rf.Amount, rf.Reason, rf.Status,
		rf.ProviderRefundID, rf.CreatedBy, rf.CreatedAt, rf.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *refundRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Refund, error) {
	const q = `SELECT ` + refundColumns + ` FROM refunds WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanRefund(row)
}

func (r *refundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	const q = `SELECT ` + refundColumns + ` FROM refunds WHERE payment_id=$1 ORDER BY created_at ASC;`
	return r.list(ctx, tx, q, paymentID)
}

func (r *refundRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Refund, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + refundColumns + ` FROM refunds ORDER BY created_at DESC LIMIT $1 OFFSET $2;`
	return r.list(ctx, tx, q, limit, offset)
}

func (r *refundRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Refund, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Refund
	for rows.Next() {
		rf, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, nil
}

func (r *refundRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.RefundStatus, providerRefundID *string) error {
	const q = `UPDATE refunds SET status=$2, provider_refund_id=COALESCE($3, provider_refund_id), updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, string(status), providerRefundID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
