package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

const paymentColumns = `id, user_id, amount, currency, status, provider_session_id, provider_intent_id, subscription_id, failure_reason, created_at, updated_at, paid_at`

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.Status,
		&p.ProviderSessionID, &p.ProviderIntentID, &p.SubscriptionID, &p.FailureReason,
		&p.CreatedAt, &p.UpdatedAt, &p.PaidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, amount, currency, status, provider_session_id, provider_intent_id, subscription_id, failure_reason, created_at, updated_at, paid_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  status=$5, provider_session_id=$6, provider_intent_id=$7, failure_reason=$9, updated_at=NOW(), paid_at=$12;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.Amount, p.Currency, p.Status,
		p.ProviderSessionID, p.ProviderIntentID, p.SubscriptionID, p.FailureReason,
		p.CreatedAt, p.UpdatedAt, p.PaidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByProviderSessionID(ctx context.Context, tx repository.Tx, sessionID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_session_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+" LIMIT 1;", sessionID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, f repository.PaymentFilter) ([]*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1`
	args := []interface{}{userID}
	if f.Status != "" {
		q += ` AND status=$2`
		args = append(args, string(f.Status))
	}
	q += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		q += ` LIMIT ` + strconv.Itoa(f.Limit)
	}
	if f.Offset > 0 {
		q += ` OFFSET ` + strconv.Itoa(f.Offset)
	}
	rows, err := queryRows(ctx, r.pool, tx, q+";", args...)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// UpdateStatusIfIn flips the status only while the current status is one of
// `from`. Zero affected rows is the idempotent no-op path.
func (r *paymentRepo) UpdateStatusIfIn(ctx context.Context, tx repository.Tx, id string, to model.PaymentStatus, from ...model.PaymentStatus) (bool, error) {
	const q = `
UPDATE payments
   SET status = $2, updated_at = NOW()
 WHERE id = $1
   AND status = ANY($3);`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(to), statusList(from))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, id string, intentID string, paidAt time.Time) (bool, error) {
	const q = `
UPDATE payments
   SET status = 'succeeded',
       provider_intent_id = COALESCE(NULLIF($2, ''), provider_intent_id),
       paid_at = $3,
       updated_at = NOW()
 WHERE id = $1
   AND status IN ('pending','processing');`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, intentID, paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string, reason string) (bool, error) {
	const q = `
UPDATE payments
   SET status = 'failed', failure_reason = $2, updated_at = NOW()
 WHERE id = $1
   AND status IN ('pending','processing');`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, reason)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) SetProviderSession(ctx context.Context, tx repository.Tx, id string, sessionID string) error {
	const q = `UPDATE payments SET provider_session_id=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, sessionID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) SetProviderIntent(ctx context.Context, tx repository.Tx, id string, intentID string) error {
	const q = `UPDATE payments SET provider_intent_id=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, intentID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) SumRefunded(ctx context.Context, tx repository.Tx, paymentID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM refunds WHERE payment_id=$1 AND status <> 'failed';`
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

func (r *paymentRepo) ListOpenOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 200
	}
	const q = `
SELECT ` + paymentColumns + `
  FROM payments
 WHERE status IN ('pending','processing') AND created_at < $1
 ORDER BY created_at ASC
 LIMIT $2;`

	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepo) DeleteFinishedBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM payments WHERE status IN ('failed','cancelled') AND created_at < $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}

func (r *paymentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[string]int64, error) {
	const q = `SELECT status, COUNT(*) FROM payments GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[status] = n
	}
	return out, nil
}

func (r *paymentRepo) SumSucceededByPeriod(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM payments WHERE status='succeeded' AND ($1::timestamptz IS NULL OR paid_at >= $1);`
	var arg interface{}
	if !since.IsZero() {
		arg = since
	}
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func statusList[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

