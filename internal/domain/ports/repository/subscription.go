package repository

import (
	"context"
	"time"

	"blog-subscription-platform/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)

	// Activate flips pending -> active and stamps the entitlement window,
	// guarded on the current status. Zero rows means already settled.
	Activate(ctx context.Context, tx Tx, id string, startAt, endAt time.Time) (bool, error)

	// ReopenPending flips a cancelled subscription that never reached its
	// entitlement window back to pending, so a payment retry can settle it.
	// Subscriptions cancelled after activation have start_at set and are
	// left alone.
	ReopenPending(ctx context.Context, tx Tx, id string) (bool, error)

	// UpdateStatusIfIn mirrors the payment repo guard for cancel and expire.
	UpdateStatusIfIn(ctx context.Context, tx Tx, id string, to model.SubscriptionStatus, from ...model.SubscriptionStatus) (bool, error)

	// ListDueForExpiry returns active subscriptions whose end date passed.
	ListDueForExpiry(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Subscription, error)

	// --- Statistics read-only methods ---
	CountActiveByPlan(ctx context.Context, tx Tx) (map[string]int64, error)
}

// SubscriptionHistoryRepository is append-only audit storage.
type SubscriptionHistoryRepository interface {
	Save(ctx context.Context, tx Tx, h *model.SubscriptionHistory) error
	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string) ([]*model.SubscriptionHistory, error)
}
