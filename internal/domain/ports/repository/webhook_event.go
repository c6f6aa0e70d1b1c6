package repository

import (
	"context"
	"time"

	"blog-subscription-platform/internal/domain/model"
)

type WebhookEventRepository interface {
	// Save inserts a new event row. A duplicate external event id must
	// surface as domain.ErrConflict so callers can treat replays as no-ops.
	Save(ctx context.Context, tx Tx, e *model.WebhookEvent) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.WebhookEvent, error)
	FindByExternalID(ctx context.Context, tx Tx, externalID string) (*model.WebhookEvent, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.WebhookEventStatus, lastError string) error

	// ListFailedSince returns failed events newer than `since`, oldest
	// first, capped at `limit`. Used by the retry worker.
	ListFailedSince(ctx context.Context, tx Tx, since time.Time, limit int) ([]*model.WebhookEvent, error)

	// DeleteSettledBefore removes processed and ignored events older than
	// the cutoff.
	DeleteSettledBefore(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)
}
