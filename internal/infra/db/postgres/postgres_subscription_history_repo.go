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

var _ repository.SubscriptionHistoryRepository = (*subscriptionHistoryRepo)(nil)

type subscriptionHistoryRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionHistoryRepo(pool *pgxpool.Pool) *subscriptionHistoryRepo {
	return &subscriptionHistoryRepo{pool: pool}
}

func (r *subscriptionHistoryRepo) Save(ctx context.Context, tx repository.Tx, h *model.SubscriptionHistory) error {
	var meta []byte
	if h.Metadata != nil {
		b, err := json.Marshal(h.Metadata)
		if err != nil {
			return domain.ErrInvalidArgument
		}
		meta = b
	}

	const q = `
INSERT INTO subscription_history (id, subscription_id, action, description, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`

	_, err := execSQL(ctx, r.pool, tx, q, h.ID, h.SubscriptionID, h.Action, h.Description, meta, h.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionHistoryRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.SubscriptionHistory, error) {
	const q = `
SELECT id, subscription_id, action, description, metadata, created_at
  FROM subscription_history
 WHERE subscription_id=$1
 ORDER BY id ASC;`

	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.SubscriptionHistory
	for rows.Next() {
		h := &model.SubscriptionHistory{}
		var meta []byte
		if err := rows.Scan(&h.ID, &h.SubscriptionID, &h.Action, &h.Description, &meta, &h.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &h.Metadata); err != nil {
				return nil, domain.ErrReadDatabaseRow
			}
		}
		out = append(out, h)
	}
	return out, nil
}
