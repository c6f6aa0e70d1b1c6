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

var _ repository.PostRepository = (*postRepo)(nil)

type postRepo struct{ pool *pgxpool.Pool }

func NewPostRepo(pool *pgxpool.Pool) *postRepo {
	return &postRepo{pool: pool}
}

func (r *postRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Post, error) {
	const q = `SELECT id, author_id, title, slug, status, views_count, created_at, updated_at FROM posts WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p := &model.Post{}
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Slug, &p.Status, &p.ViewsCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
