package repository

import (
	"context"

	"blog-subscription-platform/internal/domain/model"
)

type PinnedPostRepository interface {
	// Upsert replaces the user's pinned post. One pin per user, enforced
	// by UNIQUE(user_id).
	Upsert(ctx context.Context, tx Tx, p *model.PinnedPost) error
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.PinnedPost, error)
	DeleteByUser(ctx context.Context, tx Tx, userID string) (bool, error)
}
