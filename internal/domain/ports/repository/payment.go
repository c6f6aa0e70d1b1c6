package repository

import (
	"context"
	"time"

	"blog-subscription-platform/internal/domain/model"
)

// PaymentFilter narrows list queries. Zero value means no filtering.
type PaymentFilter struct {
	Status model.PaymentStatus
	Limit  int
	Offset int
}

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByProviderSessionID(ctx context.Context, tx Tx, sessionID string) (*model.Payment, error)
	ListByUser(ctx context.Context, tx Tx, userID string, f PaymentFilter) ([]*model.Payment, error)

	// UpdateStatusIfIn flips the payment to `to` only while its current
	// status is one of `from`, returning whether a row changed. Zero rows
	// is the idempotent no-op path, not an error.
	UpdateStatusIfIn(ctx context.Context, tx Tx, id string, to model.PaymentStatus, from ...model.PaymentStatus) (bool, error)

	// MarkSucceeded stamps intent id and paid time together with the
	// status flip, guarded the same way as UpdateStatusIfIn.
	MarkSucceeded(ctx context.Context, tx Tx, id string, intentID string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, tx Tx, id string, reason string) (bool, error)

	// SetProviderSession records the checkout session issued for this
	// payment. Retries overwrite the previous session id.
	SetProviderSession(ctx context.Context, tx Tx, id string, sessionID string) error

	// SetProviderIntent stamps the provider payment intent without touching
	// status, failure reason or paid time. Callers holding a stale read use
	// this instead of Save so a concurrent status flip is never rewound.
	SetProviderIntent(ctx context.Context, tx Tx, id string, intentID string) error

	// SumRefunded returns the total of non-failed refunds against a payment.
	SumRefunded(ctx context.Context, tx Tx, paymentID string) (int64, error)

	// ListOpenOlderThan returns pending and processing payments created
	// before the cutoff. Used by the reconciler to poll the provider for
	// outcomes the webhook never delivered.
	ListOpenOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Payment, error)

	// DeleteFinishedBefore removes failed and cancelled payments older than
	// the cutoff, returning how many rows went away.
	DeleteFinishedBefore(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)

	// --- Statistics read-only methods ---
	CountByStatus(ctx context.Context, tx Tx) (map[string]int64, error)
	SumSucceededByPeriod(ctx context.Context, tx Tx, since time.Time) (int64, error)
}

// PaymentAttemptRepository is append-only. Attempts are never updated.
type PaymentAttemptRepository interface {
	Save(ctx context.Context, tx Tx, a *model.PaymentAttempt) error
	ListByPayment(ctx context.Context, tx Tx, paymentID string) ([]*model.PaymentAttempt, error)
}
