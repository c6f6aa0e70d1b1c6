package model

import (
	"time"

	"blog-subscription-platform/internal/domain"
)

// SubscriptionPlan is purchasable reference data: a fixed duration and a
// price in minor units. Subscriptions capture a plan's terms at creation,
// so editing a plan never changes a running subscription.
type SubscriptionPlan struct {
	ID           string
	Name         string
	Price        int64
	Currency     string
	DurationDays int
	Features     map[string]any
	IsActive     bool
	CreatedAt    time.Time
}

func (p *SubscriptionPlan) IsZero() bool { return p == nil || p.ID == "" }

// NewSubscriptionPlan validates and constructs a plan.
func NewSubscriptionPlan(id, name string, price int64, currency string, durationDays int) (*SubscriptionPlan, error) {
	if id == "" || name == "" || price <= 0 || currency == "" || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &SubscriptionPlan{
		ID:           id,
		Name:         name,
		Price:        price,
		Currency:     currency,
		DurationDays: durationDays,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}, nil
}
