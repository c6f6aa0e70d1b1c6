package repository

import (
	"context"

	"blog-subscription-platform/internal/domain/model"
)

type RefundRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Refund) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Refund, error)
	ListByPayment(ctx context.Context, tx Tx, paymentID string) ([]*model.Refund, error)
	List(ctx context.Context, tx Tx, limit, offset int) ([]*model.Refund, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.RefundStatus, providerRefundID *string) error
}
