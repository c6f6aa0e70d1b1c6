package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/adapter"
	"blog-subscription-platform/internal/domain/ports/repository"
	"blog-subscription-platform/internal/infra/logging"
	"blog-subscription-platform/internal/infra/metrics"
)

// gatewayTimeout bounds every provider round trip made by this use case.
const gatewayTimeout = 15 * time.Second

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// CheckoutResult is returned by CreateCheckout and Retry.
type CheckoutResult struct {
	Payment      *model.Payment
	Subscription *model.Subscription
	CheckoutURL  string
}

// StatusResult is the reconciling view returned by CheckStatus.
type StatusResult struct {
	Payment               *model.Payment
	SubscriptionActivated bool
	Message               string
}

type PaymentUseCase interface {
	// CreateCheckout opens a pending payment plus a pending subscription and
	// requests a hosted checkout session from the provider.
	CreateCheckout(ctx context.Context, userID, planID, successURL, cancelURL string) (*CheckoutResult, error)
	// ProcessSuccessful settles a payment after provider confirmation and
	// activates the linked subscription. Idempotent: a payment that already
	// left the open states is a no-op.
	ProcessSuccessful(ctx context.Context, paymentID string) error
	// ProcessFailed marks an open payment failed and cancels its pending
	// subscription. Idempotent the same way.
	ProcessFailed(ctx context.Context, paymentID, reason string) error
	// Cancel lets the owner abandon a pending payment.
	Cancel(ctx context.Context, userID, paymentID string) error
	// Retry opens a fresh checkout session for a failed payment, reusing
	// the same payment row.
	Retry(ctx context.Context, userID, paymentID string) (*CheckoutResult, error)
	// CheckStatus polls the provider for an open payment and settles it
	// when the provider already knows the outcome.
	CheckStatus(ctx context.Context, userID, paymentID string) (*StatusResult, error)
	ListByUser(ctx context.Context, userID string, f repository.PaymentFilter) ([]*model.Payment, error)
	Get(ctx context.Context, userID, paymentID string) (*model.Payment, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	attempts repository.PaymentAttemptRepository
	plans    repository.PlanRepository
	users    repository.UserRepository
	subs     SubscriptionUseCase
	gateway  adapter.PaymentGateway
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	attempts repository.PaymentAttemptRepository,
	plans repository.PlanRepository,
	users repository.UserRepository,
	subs SubscriptionUseCase,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		payments: payments,
		attempts: attempts,
		plans:    plans,
		users:    users,
		subs:     subs,
		gateway:  gateway,
		tm:       tm,
		log:      logger,
	}
}

func (u *paymentUC) CreateCheckout(ctx context.Context, userID, planID, successURL, cancelURL string) (*CheckoutResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateCheckout")()

	if _, err := u.users.FindByID(ctx, repository.NoTX, userID); err != nil {
		return nil, err
	}
	if existing, err := u.subs.ActiveForUser(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	} else if existing != nil && existing.IsActive() {
		return nil, fmt.Errorf("user already holds an active subscription: %w", domain.ErrConflict)
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("plan %s is not purchasable: %w", planID, domain.ErrInvalidArgument)
	}

	now := time.Now()
	sub, err := model.NewSubscription(uuid.NewString(), userID, plan)
	if err != nil {
		return nil, err
	}
	p := &model.Payment{
		ID:             uuid.NewString(),
		UserID:         userID,
		Amount:         plan.Price,
		Currency:       plan.Currency,
		Status:         model.PaymentStatusPending,
		SubscriptionID: &sub.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.subs.Open(ctx, tx, sub); err != nil {
			return err
		}
		return u.payments.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPayment("created")

	url, err := u.openSession(ctx, p, fmt.Sprintf("%s subscription", plan.Name), successURL, cancelURL)
	if err != nil {
		// The payment stays pending; the owner can retry the status check
		// or a reconciler will pick it up.
		return nil, err
	}
	return &CheckoutResult{Payment: p, Subscription: sub, CheckoutURL: url}, nil
}

// openSession performs the provider round trip and records the attempt.
// Attempt rows are written outside any caller transaction so a failed
// provider call still leaves its trace.
func (u *paymentUC) openSession(ctx context.Context, p *model.Payment, description, successURL, cancelURL string) (string, error) {
	gwCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()

	sess, gwErr := u.gateway.CreateCheckoutSession(gwCtx, adapter.CheckoutRequest{
		PaymentID:   p.ID,
		UserID:      p.UserID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Description: description,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
	})

	attempt := &model.PaymentAttempt{
		ID:        ulid.Make().String(),
		PaymentID: p.ID,
		SessionID: sess.SessionID,
		Outcome:   model.AttemptOutcomeCreated,
		CreatedAt: time.Now(),
	}
	if gwErr != nil {
		attempt.Outcome = model.AttemptOutcomeFailed
		attempt.Detail = gwErr.Error()
	}
	if err := u.attempts.Save(ctx, repository.NoTX, attempt); err != nil {
		u.log.Error().Err(err).Str("payment_id", p.ID).Msg("failed to record payment attempt")
	}

	if gwErr != nil {
		u.log.Error().Err(gwErr).Str("payment_id", p.ID).Msg("checkout session creation failed")
		return "", fmt.Errorf("create checkout session: %w", errors.Join(domain.ErrProvider, gwErr))
	}

	if err := u.payments.SetProviderSession(ctx, repository.NoTX, p.ID, sess.SessionID); err != nil {
		return "", err
	}
	p.ProviderSessionID = &sess.SessionID
	return sess.PayURL, nil
}

func (u *paymentUC) ProcessSuccessful(ctx context.Context, paymentID string) error {
	defer logging.TraceDuration(u.log, "PaymentUC.ProcessSuccessful")()

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		intentID := ""
		if p.ProviderIntentID != nil {
			intentID = *p.ProviderIntentID
		}
		now := time.Now()
		changed, err := u.payments.MarkSucceeded(ctx, tx, p.ID, intentID, now)
		if err != nil {
			return err
		}
		if !changed {
			// Already settled by a concurrent delivery.
			return nil
		}
		if p.SubscriptionID != nil {
			if err := u.subs.Activate(ctx, tx, *p.SubscriptionID, now); err != nil {
				return err
			}
		}
		metrics.IncPayment("succeeded")
		metrics.AddPaymentRevenue(p.Currency, p.Amount)
		u.log.Info().Str("payment_id", p.ID).Int64("amount", p.Amount).Msg("payment succeeded")
		return nil
	})
}

func (u *paymentUC) ProcessFailed(ctx context.Context, paymentID, reason string) error {
	defer logging.TraceDuration(u.log, "PaymentUC.ProcessFailed")()

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		changed, err := u.payments.MarkFailed(ctx, tx, p.ID, reason)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if p.SubscriptionID != nil {
			if err := u.subs.CancelPending(ctx, tx, *p.SubscriptionID, reason); err != nil {
				return err
			}
		}
		metrics.IncPayment("failed")
		u.log.Warn().Str("payment_id", p.ID).Str("reason", reason).Msg("payment failed")
		return nil
	})
}

func (u *paymentUC) Cancel(ctx context.Context, userID, paymentID string) error {
	defer logging.TraceDuration(u.log, "PaymentUC.Cancel")()

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.owned(ctx, tx, userID, paymentID)
		if err != nil {
			return err
		}
		if !model.CanTransitionPayment(p.Status, model.PaymentStatusCancelled) {
			return fmt.Errorf("only pending payments can be cancelled: %w", domain.ErrInvalidArgument)
		}
		changed, err := u.payments.UpdateStatusIfIn(ctx, tx, p.ID, model.PaymentStatusCancelled, model.PaymentStatusPending)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("only pending payments can be cancelled: %w", domain.ErrInvalidArgument)
		}
		if p.SubscriptionID != nil {
			if err := u.subs.CancelPending(ctx, tx, *p.SubscriptionID, "payment cancelled by user"); err != nil {
				return err
			}
		}
		metrics.IncPayment("cancelled")
		return nil
	})
}

func (u *paymentUC) Retry(ctx context.Context, userID, paymentID string) (*CheckoutResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Retry")()

	p, err := u.owned(ctx, repository.NoTX, userID, paymentID)
	if err != nil {
		return nil, err
	}
	// Only failed payments are retryable; everything else reads as absent,
	// matching the list the owner sees on the retry screen.
	if p.Status != model.PaymentStatusFailed {
		return nil, domain.ErrNotFound
	}
	changed, err := u.payments.UpdateStatusIfIn(ctx, repository.NoTX, p.ID, model.PaymentStatusProcessing, model.PaymentStatusFailed)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, domain.ErrNotFound
	}
	p.Status = model.PaymentStatusProcessing

	// The failed-payment path cancelled the linked subscription before it
	// ever activated. Put it back to pending so a successful retry grants
	// the entitlement instead of leaving a succeeded payment orphaned.
	if p.SubscriptionID != nil {
		if err := u.subs.Reopen(ctx, repository.NoTX, *p.SubscriptionID); err != nil {
			return nil, err
		}
	}

	url, err := u.openSession(ctx, p, "subscription payment retry", "", "")
	if err != nil {
		return nil, err
	}
	metrics.IncPayment("retried")
	return &CheckoutResult{Payment: p, CheckoutURL: url}, nil
}

func (u *paymentUC) CheckStatus(ctx context.Context, userID, paymentID string) (*StatusResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CheckStatus")()

	p, err := u.owned(ctx, repository.NoTX, userID, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.Open() || p.ProviderSessionID == nil {
		return &StatusResult{Payment: p, Message: "payment already settled"}, nil
	}

	gwCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	info, err := u.gateway.RetrieveSession(gwCtx, *p.ProviderSessionID)
	if err != nil {
		return nil, err
	}

	switch info.PaymentStatus {
	case "paid":
		if info.PaymentIntentID != "" {
			if err := u.payments.SetProviderIntent(ctx, repository.NoTX, p.ID, info.PaymentIntentID); err != nil {
				return nil, err
			}
		}
		if err := u.ProcessSuccessful(ctx, p.ID); err != nil {
			return nil, err
		}
		p, err = u.payments.FindByID(ctx, repository.NoTX, p.ID)
		if err != nil {
			return nil, err
		}
		return &StatusResult{Payment: p, SubscriptionActivated: true, Message: "payment confirmed"}, nil
	case "expired", "failed":
		if err := u.ProcessFailed(ctx, p.ID, "checkout session "+info.PaymentStatus); err != nil {
			return nil, err
		}
		p, err = u.payments.FindByID(ctx, repository.NoTX, p.ID)
		if err != nil {
			return nil, err
		}
		return &StatusResult{Payment: p, Message: "payment did not complete"}, nil
	default:
		return &StatusResult{Payment: p, Message: "awaiting provider confirmation"}, nil
	}
}

func (u *paymentUC) ListByUser(ctx context.Context, userID string, f repository.PaymentFilter) ([]*model.Payment, error) {
	return u.payments.ListByUser(ctx, repository.NoTX, userID, f)
}

func (u *paymentUC) Get(ctx context.Context, userID, paymentID string) (*model.Payment, error) {
	return u.owned(ctx, repository.NoTX, userID, paymentID)
}

// owned fetches a payment and hides other users' rows behind ErrNotFound.
func (u *paymentUC) owned(ctx context.Context, tx repository.Tx, userID, paymentID string) (*model.Payment, error) {
	p, err := u.payments.FindByID(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}
