package adapter

import (
	"context"
	"time"
)

// --- Checkout types ---

// CheckoutRequest carries everything the provider needs to open a hosted
// checkout session. Amount is in minor units.
type CheckoutRequest struct {
	PaymentID   string
	UserID      string
	Amount      int64
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the provider-agnostic result of opening a session.
type CheckoutSession struct {
	SessionID string
	PayURL    string // hosted page the client is redirected to
	ExpiresAt time.Time
}

// SessionInfo is the provider-side view of a session, used by status
// polling and reconciliation.
type SessionInfo struct {
	SessionID       string
	PaymentStatus   string // provider payment status, e.g. paid / unpaid
	PaymentIntentID string
	AmountTotal     int64
}

// --- Webhook types ---

// Event types the platform reacts to. Anything else is recorded and ignored.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventCheckoutAsyncFailed = "checkout.session.async_payment_failed"
	EventPaymentIntentFailed = "payment_intent.payment_failed"
	EventCheckoutExpired     = "checkout.session.expired"
)

// Event is a verified, provider-agnostic webhook notification.
type Event struct {
	ID              string // provider event id, the dedup key
	Type            string
	SessionID       string // checkout session the event refers to, if any
	PaymentID       string // platform payment id carried in provider metadata
	PaymentIntentID string
	Reason          string // failure detail, if any
	Raw             []byte // original payload, stored for audit and replay
}

// --- Refund types ---

type RefundResult struct {
	ID     string // provider refund id
	Status string // provider status, e.g. pending / succeeded
}

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string

	// CreateCheckoutSession opens a hosted checkout session for a payment.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)

	// RetrieveSession fetches the provider's current view of a session.
	// A session unknown to the provider returns domain.ErrNotFound.
	RetrieveSession(ctx context.Context, sessionID string) (SessionInfo, error)

	// RefundPayment issues a refund against a payment intent. A zero amount
	// refunds the full remaining balance.
	RefundPayment(ctx context.Context, intentID string, amount int64, reason string) (RefundResult, error)

	// VerifyEvent checks the webhook signature and decodes the payload.
	// A bad signature returns domain.ErrInvalidSignature.
	VerifyEvent(payload []byte, signature string) (Event, error)

	// ParseEvent decodes a stored payload without a signature check.
	// Used when re-dispatching events that were already verified once.
	ParseEvent(payload []byte) (Event, error)
}
