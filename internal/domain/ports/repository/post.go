package repository

import (
	"context"

	"blog-subscription-platform/internal/domain/model"
)

type PostRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Post, error)
}
