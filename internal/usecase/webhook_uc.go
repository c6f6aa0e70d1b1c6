package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/adapter"
	"blog-subscription-platform/internal/domain/ports/repository"
	"blog-subscription-platform/internal/infra/logging"
	"blog-subscription-platform/internal/infra/metrics"
)

const (
	webhookLockTTL = 30 * time.Second

	// Failed events older than this are left for the cleanup worker.
	retryWindow   = 24 * time.Hour
	retryBatchCap = 50
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// Process handles one provider delivery. The bool maps to the transport
	// answer: true means acknowledge (200), false means ask the provider to
	// retry (500), unless err is ErrInvalidSignature (400).
	// Re-delivery of an already processed event is acknowledged with zero
	// state changes.
	Process(ctx context.Context, payload []byte, signature string) (bool, error)
	// RetryFailed re-dispatches recent failed events from their stored
	// payloads. Worker entry point. Returns how many succeeded.
	RetryFailed(ctx context.Context) (int, error)
}

type webhookUC struct {
	events   repository.WebhookEventRepository
	payments repository.PaymentRepository
	payUC    PaymentUseCase
	gateway  adapter.PaymentGateway
	locker   Locker
	log      *zerolog.Logger
}

func NewWebhookUseCase(
	events repository.WebhookEventRepository,
	payments repository.PaymentRepository,
	payUC PaymentUseCase,
	gateway adapter.PaymentGateway,
	locker Locker,
	logger *zerolog.Logger,
) *webhookUC {
	return &webhookUC{
		events:   events,
		payments: payments,
		payUC:    payUC,
		gateway:  gateway,
		locker:   locker,
		log:      logger,
	}
}

func (u *webhookUC) Process(ctx context.Context, payload []byte, signature string) (bool, error) {
	defer logging.TraceDuration(u.log, "WebhookUC.Process")()

	evt, err := u.gateway.VerifyEvent(payload, signature)
	if err != nil {
		metrics.IncWebhookEvent("invalid_signature")
		u.log.Warn().Err(err).Msg("webhook signature verification failed")
		return false, fmt.Errorf("verify webhook: %w", domain.ErrInvalidSignature)
	}

	ctx = logging.WithEventID(ctx, evt.ID)
	log := logging.With(ctx, u.log)

	// Serialize concurrent deliveries of the same event. Losing the lock
	// means another instance is handling it; let the provider retry.
	token, err := u.locker.TryLock(ctx, "webhook:evt:"+evt.ID, webhookLockTTL)
	if err != nil {
		log.Debug().Msg("webhook event locked by another worker")
		return false, nil
	}
	defer func() {
		if err := u.locker.Unlock(context.WithoutCancel(ctx), "webhook:evt:"+evt.ID, token); err != nil {
			log.Warn().Err(err).Msg("failed to release webhook lock")
		}
	}()

	rec, done, err := u.recordEvent(ctx, evt, payload)
	if err != nil {
		return false, err
	}
	if done {
		metrics.IncWebhookEvent("duplicate")
		return true, nil
	}

	return u.settle(ctx, rec, evt)
}

// recordEvent loads or inserts the durable event row. done=true means the
// event is already settled and nothing more must run.
func (u *webhookUC) recordEvent(ctx context.Context, evt adapter.Event, payload []byte) (*model.WebhookEvent, bool, error) {
	existing, err := u.events.FindByExternalID(ctx, repository.NoTX, evt.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	if existing != nil {
		if existing.Status == model.WebhookEventStatusProcessed || existing.Status == model.WebhookEventStatusIgnored {
			return nil, true, nil
		}
		return existing, false, nil
	}

	now := time.Now()
	rec := &model.WebhookEvent{
		ID:              ulid.Make().String(),
		ExternalEventID: evt.ID,
		EventType:       evt.Type,
		Payload:         payload,
		Status:          model.WebhookEventStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := u.events.Save(ctx, repository.NoTX, rec); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return nil, false, err
		}
		// Raced with another delivery past the lock TTL. Re-read the row
		// and fall through only if it is still unsettled.
		existing, err = u.events.FindByExternalID(ctx, repository.NoTX, evt.ID)
		if err != nil {
			return nil, false, err
		}
		if existing.Status == model.WebhookEventStatusProcessed || existing.Status == model.WebhookEventStatusIgnored {
			return nil, true, nil
		}
		return existing, false, nil
	}
	return rec, false, nil
}

// settle dispatches the event and records the outcome on its row.
// Handler errors never propagate: the event is marked failed and the
// provider is asked to retry.
func (u *webhookUC) settle(ctx context.Context, rec *model.WebhookEvent, evt adapter.Event) (bool, error) {
	handled, err := u.dispatch(ctx, evt)
	if err != nil {
		metrics.IncWebhookEvent("failed")
		u.log.Error().Err(err).Str("event_id", evt.ID).Str("event_type", evt.Type).Msg("webhook dispatch failed")
		if uerr := u.events.UpdateStatus(ctx, repository.NoTX, rec.ID, model.WebhookEventStatusFailed, err.Error()); uerr != nil {
			u.log.Error().Err(uerr).Str("event_id", evt.ID).Msg("failed to mark webhook event failed")
		}
		return false, nil
	}
	status := model.WebhookEventStatusProcessed
	outcome := "processed"
	if !handled {
		status = model.WebhookEventStatusIgnored
		outcome = "ignored"
	}
	if err := u.events.UpdateStatus(ctx, repository.NoTX, rec.ID, status, ""); err != nil {
		return false, err
	}
	metrics.IncWebhookEvent(outcome)
	return true, nil
}

// dispatch routes a verified event to the payment transition it encodes.
// handled=false means the type is not one the platform reacts to.
func (u *webhookUC) dispatch(ctx context.Context, evt adapter.Event) (bool, error) {
	switch evt.Type {
	case adapter.EventCheckoutCompleted:
		p, err := u.resolvePayment(ctx, evt)
		if err != nil {
			return true, err
		}
		if evt.PaymentIntentID != "" {
			if err := u.payments.SetProviderIntent(ctx, repository.NoTX, p.ID, evt.PaymentIntentID); err != nil {
				return true, err
			}
		}
		return true, u.payUC.ProcessSuccessful(ctx, p.ID)

	case adapter.EventCheckoutAsyncFailed, adapter.EventPaymentIntentFailed, adapter.EventCheckoutExpired:
		p, err := u.resolvePayment(ctx, evt)
		if err != nil {
			return true, err
		}
		reason := evt.Reason
		if reason == "" {
			reason = evt.Type
		}
		return true, u.payUC.ProcessFailed(ctx, p.ID, reason)

	default:
		return false, nil
	}
}

// resolvePayment maps the event to a platform payment, preferring the
// payment id carried in provider metadata over the session id.
func (u *webhookUC) resolvePayment(ctx context.Context, evt adapter.Event) (*model.Payment, error) {
	if evt.PaymentID != "" {
		p, err := u.payments.FindByID(ctx, repository.NoTX, evt.PaymentID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if evt.SessionID == "" {
		return nil, fmt.Errorf("event %s carries no payment reference: %w", evt.ID, domain.ErrNotFound)
	}
	return u.payments.FindByProviderSessionID(ctx, repository.NoTX, evt.SessionID)
}

func (u *webhookUC) RetryFailed(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "WebhookUC.RetryFailed")()

	failed, err := u.events.ListFailedSince(ctx, repository.NoTX, time.Now().Add(-retryWindow), retryBatchCap)
	if err != nil {
		return 0, err
	}
	retried := 0
	for _, rec := range failed {
		evt, err := u.gateway.ParseEvent(rec.Payload)
		if err != nil {
			u.log.Error().Err(err).Str("event_id", rec.ExternalEventID).Msg("stored webhook payload no longer parses")
			if uerr := u.events.UpdateStatus(ctx, repository.NoTX, rec.ID, model.WebhookEventStatusFailed, err.Error()); uerr != nil {
				u.log.Error().Err(uerr).Str("event_id", rec.ExternalEventID).Msg("failed to update webhook event")
			}
			continue
		}
		if _, err := u.dispatch(ctx, evt); err != nil {
			if uerr := u.events.UpdateStatus(ctx, repository.NoTX, rec.ID, model.WebhookEventStatusFailed, err.Error()); uerr != nil {
				u.log.Error().Err(uerr).Str("event_id", rec.ExternalEventID).Msg("failed to update webhook event")
			}
			continue
		}
		if err := u.events.UpdateStatus(ctx, repository.NoTX, rec.ID, model.WebhookEventStatusProcessed, ""); err != nil {
			return retried, err
		}
		retried++
	}
	if retried > 0 {
		metrics.AddWebhookRetries(retried)
	}
	return retried, nil
}
