package model

import "time"

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
)

// Refund is a full or partial reversal of a succeeded payment, created by
// an admin. The sum of succeeded refund amounts for one payment never
// exceeds the payment amount; the repository enforces this inside the
// refund transaction.
type Refund struct {
	ID               string
	PaymentID        string
	Amount           int64
	Reason           string
	Status           RefundStatus
	ProviderRefundID *string
	CreatedBy        string // admin user id
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
