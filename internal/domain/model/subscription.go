package model

import (
	"time"

	"blog-subscription-platform/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"   // opened with a checkout, awaiting payment
	SubscriptionStatusActive    SubscriptionStatus = "active"    // payment succeeded
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled" // explicit cancel, failed payment, or full refund
	SubscriptionStatusExpired   SubscriptionStatus = "expired"   // end date passed
)

// Subscription is a user's individual subscription instance. Plan terms
// (name, price, duration) are captured at creation time. At most one
// active subscription per user, enforced by a partial unique index.
type Subscription struct {
	ID           string
	UserID       string
	PlanID       string
	PlanName     string
	Price        int64
	DurationDays int
	Status       SubscriptionStatus
	StartAt      *time.Time // nil until the originating payment succeeds
	EndAt        *time.Time
	AutoRenew    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSubscription opens a pending subscription for a checkout. Start and
// end dates stay nil placeholders until activation sets the real window.
func NewSubscription(id, userID string, plan *SubscriptionPlan) (*Subscription, error) {
	if id == "" || userID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:           id,
		UserID:       userID,
		PlanID:       plan.ID,
		PlanName:     plan.Name,
		Price:        plan.Price,
		DurationDays: plan.DurationDays,
		Status:       SubscriptionStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsActive reports whether the subscription currently grants entitlements.
func (s *Subscription) IsActive() bool {
	if s == nil || s.Status != SubscriptionStatusActive {
		return false
	}
	return s.EndAt == nil || time.Now().Before(*s.EndAt)
}

// Activate sets the real entitlement window. Called only from the payment
// success transition, inside its transaction.
func (s *Subscription) Activate(now time.Time) {
	start := now
	end := now.Add(time.Duration(s.DurationDays) * 24 * time.Hour)
	s.Status = SubscriptionStatusActive
	s.StartAt = &start
	s.EndAt = &end
	s.UpdatedAt = now
}

func (s *Subscription) DaysRemaining() int {
	if !s.IsActive() || s.EndAt == nil {
		return 0
	}
	d := int(time.Until(*s.EndAt).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// History actions written by the transition operations.
const (
	HistoryActionCreated      = "created"
	HistoryActionActivated    = "activated"
	HistoryActionReopened     = "reopened"
	HistoryActionCancelled    = "cancelled"
	HistoryActionExpired      = "expired"
	HistoryActionPostPinned   = "post_pinned"
	HistoryActionPostUnpinned = "post_unpinned"
)

// SubscriptionHistory is an append-only audit log: one row per meaningful
// subscription transition.
type SubscriptionHistory struct {
	ID             string // ULID
	SubscriptionID string
	Action         string
	Description    string
	Metadata       map[string]any
	CreatedAt      time.Time
}
