package model

import "time"

type WebhookEventStatus string

const (
	WebhookEventStatusPending   WebhookEventStatus = "pending"
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	WebhookEventStatusFailed    WebhookEventStatus = "failed"
	WebhookEventStatusIgnored   WebhookEventStatus = "ignored"
)

// WebhookEvent is the durable record of one provider notification.
// ExternalEventID is the provider-assigned event id and the dedup key:
// it carries a unique constraint, and re-processing an event that is
// already processed must be a no-op.
type WebhookEvent struct {
	ID              string // ULID
	ExternalEventID string
	EventType       string
	Payload         []byte // raw provider payload, kept for retries
	Status          WebhookEventStatus
	LastError       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
