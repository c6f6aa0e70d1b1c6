package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

const subscriptionColumns = `id, user_id, plan_id, plan_name, price, duration_days, status, start_at, end_at, auto_renew, created_at, updated_at`

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PlanName, &s.Price, &s.DurationDays,
		&s.Status, &s.StartAt, &s.EndAt, &s.AutoRenew, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

// Save upserts on id. The partial unique index on (user_id) WHERE
// status='active' backstops the one-active-subscription rule; a violation
// surfaces as domain.ErrConflict.
func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, plan_id, plan_name, price, duration_days, status, start_at, end_at, auto_renew, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  status=$7, start_at=$8, end_at=$9, auto_renew=$10, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q, sub.ID, sub.UserID, sub.PlanID, sub.PlanName,
		sub.Price, sub.DurationDays, sub.Status, sub.StartAt, sub.EndAt, sub.AutoRenew,
		sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1 AND status='active'`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+" LIMIT 1;", userID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

// Activate flips pending -> active and stamps the entitlement window.
// Zero affected rows means the subscription already settled elsewhere.
func (r *subscriptionRepo) Activate(ctx context.Context, tx repository.Tx, id string, startAt, endAt time.Time) (bool, error) {
	const q = `
UPDATE subscriptions
   SET status = 'active', start_at = $2, end_at = $3, updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, startAt, endAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return false, err
		default:
			if isUniqueViolation(err) {
				return false, domain.ErrConflict
			}
			return false, domain.ErrOperationFailed
		}
	}
	return cmd.RowsAffected() >= 1, nil
}

// ReopenPending reverts a cancelled subscription to pending so a payment
// retry can activate it. The start_at guard keeps subscriptions that were
// cancelled after activation from coming back.
func (r *subscriptionRepo) ReopenPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE subscriptions
   SET status = 'pending', updated_at = NOW()
 WHERE id = $1
   AND status = 'cancelled'
   AND start_at IS NULL;`

	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *subscriptionRepo) UpdateStatusIfIn(ctx context.Context, tx repository.Tx, id string, to model.SubscriptionStatus, from ...model.SubscriptionStatus) (bool, error) {
	const q = `
UPDATE subscriptions
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

func (r *subscriptionRepo) ListDueForExpiry(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE status='active' AND end_at IS NOT NULL AND end_at < $1
 ORDER BY end_at ASC
 LIMIT $2;`

	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *subscriptionRepo) CountActiveByPlan(ctx context.Context, tx repository.Tx) (map[string]int64, error) {
	const q = `SELECT plan_name, COUNT(*) FROM subscriptions WHERE status='active' GROUP BY plan_name;`
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
		var plan string
		var n int64
		if err := rows.Scan(&plan, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[plan] = n
	}
	return out, nil
}
