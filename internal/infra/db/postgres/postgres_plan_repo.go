package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/repository"
)

var _ repository.PlanRepository = (*planRepo)(nil)

const planColumns = `id, name, price, currency, duration_days, features, is_active, created_at`

type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

func scanPlan(row pgx.Row) (*model.SubscriptionPlan, error) {
	p := &model.SubscriptionPlan{}
	var features []byte
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Currency, &p.DurationDays, &features, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return p, nil
}

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	var features []byte
	if plan.Features != nil {
		b, err := json.Marshal(plan.Features)
		if err != nil {
			return domain.ErrInvalidArgument
		}
		features = b
	}

	const q = `
INSERT INTO subscription_plans (id, name, price, currency, duration_days, features, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name=$2, price=$3, currency=$4, duration_days=$5, features=$6, is_active=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, plan.ID, plan.Name, plan.Price, plan.Currency,
		plan.DurationDays, features, plan.IsActive, plan.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	const q = `SELECT ` + planColumns + ` FROM subscription_plans WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *planRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	const q = `SELECT ` + planColumns + ` FROM subscription_plans WHERE is_active ORDER BY price ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
