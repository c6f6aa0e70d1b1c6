package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/repository"
	"blog-subscription-platform/internal/infra/logging"
	"blog-subscription-platform/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionStatusView is the per-user status DTO served by the API.
type SubscriptionStatusView struct {
	HasSubscription bool
	IsActive        bool
	Subscription    *model.Subscription
	PinnedPost      *model.PinnedPost
	CanPin          bool
}

type SubscriptionUseCase interface {
	// Open persists a fresh pending subscription inside the caller's
	// transaction and writes the "created" history row.
	Open(ctx context.Context, tx repository.Tx, sub *model.Subscription) error
	// Activate flips a pending subscription to active with its entitlement
	// window. Called from the payment success transition, inside its tx.
	Activate(ctx context.Context, tx repository.Tx, subID string, now time.Time) error
	// CancelPending cancels a subscription that never activated, used when
	// its payment fails or is abandoned.
	CancelPending(ctx context.Context, tx repository.Tx, subID, reason string) error
	// Reopen puts a never-activated cancelled subscription back to pending
	// when its payment is retried, so a later success can activate it.
	Reopen(ctx context.Context, tx repository.Tx, subID string) error
	// Cancel is the single funnel for explicit cancellation and the
	// full-refund cascade: ends the subscription and removes the owner's
	// pinned post in one transaction.
	Cancel(ctx context.Context, subID, reason string) error
	// ExpireDue transitions active subscriptions whose window has closed,
	// removing orphaned pins. Returns how many were expired.
	ExpireDue(ctx context.Context) (int, error)
	StatusForUser(ctx context.Context, userID string) (*SubscriptionStatusView, error)
	ActiveForUser(ctx context.Context, userID string) (*model.Subscription, error)
}

type subscriptionUC struct {
	subs    repository.SubscriptionRepository
	history repository.SubscriptionHistoryRepository
	pins    repository.PinnedPostRepository
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	history repository.SubscriptionHistoryRepository,
	pins repository.PinnedPostRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{
		subs:    subs,
		history: history,
		pins:    pins,
		tm:      tm,
		log:     logger,
	}
}

func (u *subscriptionUC) Open(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if err := u.subs.Save(ctx, tx, sub); err != nil {
		return err
	}
	return u.writeHistory(ctx, tx, sub.ID, model.HistoryActionCreated,
		fmt.Sprintf("subscription opened for plan %s", sub.PlanName), map[string]any{"plan_id": sub.PlanID})
}

func (u *subscriptionUC) Activate(ctx context.Context, tx repository.Tx, subID string, now time.Time) error {
	sub, err := u.subs.FindByID(ctx, tx, subID)
	if err != nil {
		return err
	}
	end := now.Add(time.Duration(sub.DurationDays) * 24 * time.Hour)
	changed, err := u.subs.Activate(ctx, tx, subID, now, end)
	if err != nil {
		return err
	}
	if !changed {
		// Already settled, the webhook was a duplicate.
		return nil
	}
	metrics.IncSubscriptionsActivated()
	return u.writeHistory(ctx, tx, subID, model.HistoryActionActivated,
		"payment confirmed, entitlements granted",
		map[string]any{"start_at": now.Format(time.RFC3339), "end_at": end.Format(time.RFC3339)})
}

func (u *subscriptionUC) CancelPending(ctx context.Context, tx repository.Tx, subID, reason string) error {
	changed, err := u.subs.UpdateStatusIfIn(ctx, tx, subID, model.SubscriptionStatusCancelled, model.SubscriptionStatusPending)
	if err != nil || !changed {
		return err
	}
	return u.writeHistory(ctx, tx, subID, model.HistoryActionCancelled, reason, nil)
}

func (u *subscriptionUC) Reopen(ctx context.Context, tx repository.Tx, subID string) error {
	changed, err := u.subs.ReopenPending(ctx, tx, subID)
	if err != nil || !changed {
		return err
	}
	return u.writeHistory(ctx, tx, subID, model.HistoryActionReopened, "payment retried, awaiting confirmation", nil)
}

func (u *subscriptionUC) Cancel(ctx context.Context, subID, reason string) error {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Cancel")()

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindByID(ctx, tx, subID)
		if err != nil {
			return err
		}
		wasActive := sub.Status == model.SubscriptionStatusActive
		changed, err := u.subs.UpdateStatusIfIn(ctx, tx, subID, model.SubscriptionStatusCancelled,
			model.SubscriptionStatusPending, model.SubscriptionStatusActive)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if wasActive {
			if err := u.removePin(ctx, tx, sub.UserID, subID); err != nil {
				return err
			}
		}
		u.log.Info().Str("subscription_id", subID).Str("reason", reason).Msg("subscription cancelled")
		return u.writeHistory(ctx, tx, subID, model.HistoryActionCancelled, reason, nil)
	})
}

func (u *subscriptionUC) ExpireDue(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ExpireDue")()

	due, err := u.subs.ListDueForExpiry(ctx, repository.NoTX, time.Now(), 100)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, sub := range due {
		err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			changed, err := u.subs.UpdateStatusIfIn(ctx, tx, sub.ID, model.SubscriptionStatusExpired, model.SubscriptionStatusActive)
			if err != nil || !changed {
				return err
			}
			if err := u.removePin(ctx, tx, sub.UserID, sub.ID); err != nil {
				return err
			}
			if err := u.writeHistory(ctx, tx, sub.ID, model.HistoryActionExpired, "entitlement window closed", nil); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			u.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("failed to expire subscription")
		}
	}
	if expired > 0 {
		metrics.IncSubscriptionsExpired(expired)
	}
	return expired, nil
}

func (u *subscriptionUC) StatusForUser(ctx context.Context, userID string) (*SubscriptionStatusView, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.StatusForUser")()

	view := &SubscriptionStatusView{}
	sub, err := u.subs.FindActiveByUser(ctx, repository.NoTX, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if sub != nil {
		view.HasSubscription = true
		view.IsActive = sub.IsActive()
		view.Subscription = sub
		view.CanPin = view.IsActive
	}
	pin, err := u.pins.FindByUser(ctx, repository.NoTX, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	view.PinnedPost = pin
	return view, nil
}

func (u *subscriptionUC) ActiveForUser(ctx context.Context, userID string) (*model.Subscription, error) {
	return u.subs.FindActiveByUser(ctx, repository.NoTX, userID)
}

// removePin deletes the user's pinned post when a subscription ends.
func (u *subscriptionUC) removePin(ctx context.Context, tx repository.Tx, userID, subID string) error {
	deleted, err := u.pins.DeleteByUser(ctx, tx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}
	return u.writeHistory(ctx, tx, subID, model.HistoryActionPostUnpinned, "pin removed with subscription", nil)
}

func (u *subscriptionUC) writeHistory(ctx context.Context, tx repository.Tx, subID, action, description string, meta map[string]any) error {
	return u.history.Save(ctx, tx, &model.SubscriptionHistory{
		ID:             ulid.Make().String(),
		SubscriptionID: subID,
		Action:         action,
		Description:    description,
		Metadata:       meta,
		CreatedAt:      time.Now(),
	})
}
