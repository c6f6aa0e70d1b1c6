package model

import "time"

// PinnedPost is the single pinned post per user. Pinning is a subscriber
// entitlement: it requires an active subscription, and the row is removed
// when that subscription ends. UNIQUE(user_id) makes pin an upsert.
type PinnedPost struct {
	ID        string
	UserID    string
	PostID    string
	PinnedAt  time.Time
	UpdatedAt time.Time
}
