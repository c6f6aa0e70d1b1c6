package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"    // payment opened, checkout not finished
	PaymentStatusProcessing PaymentStatus = "processing" // retry issued a fresh checkout session
	PaymentStatusSucceeded  PaymentStatus = "succeeded"  // provider confirmed payment
	PaymentStatusFailed     PaymentStatus = "failed"     // provider reported failure
	PaymentStatusCancelled  PaymentStatus = "cancelled"  // user cancelled before completion
)

// Payment records one attempt to purchase a subscription plan.
// Amount is stored in minor units (integer) to avoid float errors.
type Payment struct {
	ID                string
	UserID            string
	Amount            int64
	Currency          string
	Status            PaymentStatus
	ProviderSessionID *string // checkout session id at the provider
	ProviderIntentID  *string // provider payment intent, needed for refunds
	SubscriptionID    *string // set when the payment opened a subscription
	FailureReason     *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	PaidAt            *time.Time
}

func (p *Payment) IsPending() bool { return p.Status == PaymentStatusPending }

func (p *Payment) IsSuccessful() bool { return p.Status == PaymentStatusSucceeded }

// Open means the provider may still report an outcome for this payment.
func (p *Payment) Open() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusProcessing
}

// CanBeRefunded reports whether a refund may be created against this payment.
// The remaining-amount check is a separate, transactional concern.
func (p *Payment) CanBeRefunded() bool { return p.Status == PaymentStatusSucceeded }

// paymentEdges is the complete set of allowed status transitions.
// succeeded and cancelled are terminal; failed may go back to processing
// when a retry opens a new checkout session on the same payment row.
var paymentEdges = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusProcessing: {PaymentStatusSucceeded, PaymentStatusFailed},
	PaymentStatusFailed:     {PaymentStatusProcessing},
}

// CanTransitionPayment reports whether from -> to is an allowed edge.
// Anything else must be treated as a no-op by callers, not an error;
// webhook idempotency depends on that.
func CanTransitionPayment(from, to PaymentStatus) bool {
	for _, next := range paymentEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

type AttemptOutcome string

const (
	AttemptOutcomeCreated AttemptOutcome = "created" // provider session created
	AttemptOutcomeFailed  AttemptOutcome = "failed"  // provider call failed
)

// PaymentAttempt is an append-only audit record of each try to reach the
// provider for a payment. Rows are inserted, never mutated.
type PaymentAttempt struct {
	ID        string // ULID, sortable by creation time
	PaymentID string
	SessionID string
	Outcome   AttemptOutcome
	Detail    string
	CreatedAt time.Time
}
