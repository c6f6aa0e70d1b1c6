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

var _ repository.PinnedPostRepository = (*pinnedPostRepo)(nil)

type pinnedPostRepo struct{ pool *pgxpool.Pool }

func NewPinnedPostRepo(pool *pgxpool.Pool) *pinnedPostRepo {
	return &pinnedPostRepo{pool: pool}
}

func (r *pinnedPostRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.PinnedPost) error {
	const q = `
INSERT INTO pinned_posts (id, user_id, post_id, pinned_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id) DO UPDATE SET
  post_id=$3, pinned_at=$4, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.PostID, p.PinnedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *pinnedPostRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.PinnedPost, error) {
	const q = `SELECT id, user_id, post_id, pinned_at, updated_at FROM pinned_posts WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	p := &model.PinnedPost{}
	if err := row.Scan(&p.ID, &p.UserID, &p.PostID, &p.PinnedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *pinnedPostRepo) DeleteByUser(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	const q = `DELETE FROM pinned_posts WHERE user_id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
