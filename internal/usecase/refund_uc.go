package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/adapter"
	"blog-subscription-platform/internal/domain/ports/repository"
	"blog-subscription-platform/internal/infra/logging"
	"blog-subscription-platform/internal/infra/metrics"
)

// Compile-time check
var _ RefundUseCase = (*refundUC)(nil)

type RefundUseCase interface {
	// Create refunds part or all of a succeeded payment. A zero amount
	// refunds the full remaining balance. When the cumulative refunded
	// amount reaches the payment amount, the linked subscription is
	// cancelled through the same funnel as an explicit cancel.
	Create(ctx context.Context, adminID, paymentID string, amount int64, reason string) (*model.Refund, error)
	List(ctx context.Context, limit, offset int) ([]*model.Refund, error)
	Get(ctx context.Context, refundID string) (*model.Refund, error)
}

type refundUC struct {
	refunds  repository.RefundRepository
	payments repository.PaymentRepository
	subs     SubscriptionUseCase
	gateway  adapter.PaymentGateway
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewRefundUseCase(
	refunds repository.RefundRepository,
	payments repository.PaymentRepository,
	subs SubscriptionUseCase,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *refundUC {
	return &refundUC{
		refunds:  refunds,
		payments: payments,
		subs:     subs,
		gateway:  gateway,
		tm:       tm,
		log:      logger,
	}
}

func (u *refundUC) Create(ctx context.Context, adminID, paymentID string, amount int64, reason string) (*model.Refund, error) {
	defer logging.TraceDuration(u.log, "RefundUC.Create")()

	if amount < 0 {
		return nil, fmt.Errorf("refund amount must not be negative: %w", domain.ErrInvalidArgument)
	}

	var (
		payment   *model.Payment
		refund    *model.Refund
		remaining int64
	)
	// Serializable keeps the sum check and the insert atomic against a
	// concurrent refund of the same payment.
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if !p.CanBeRefunded() {
			return fmt.Errorf("payment %s is %s: %w", p.ID, p.Status, domain.ErrNotRefundable)
		}
		if p.ProviderIntentID == nil {
			return fmt.Errorf("payment %s has no provider intent: %w", p.ID, domain.ErrNotRefundable)
		}
		refunded, err := u.payments.SumRefunded(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		remaining = p.Amount - refunded
		if remaining <= 0 {
			return fmt.Errorf("payment %s is fully refunded: %w", p.ID, domain.ErrNotRefundable)
		}
		if amount == 0 {
			amount = remaining
		}
		if amount > remaining {
			return fmt.Errorf("refund %d exceeds remaining %d: %w", amount, remaining, domain.ErrRefundExceedsAmount)
		}

		now := time.Now()
		refund = &model.Refund{
			ID:        uuid.NewString(),
			PaymentID: p.ID,
			Amount:    amount,
			Reason:    reason,
			Status:    model.RefundStatusPending,
			CreatedBy: adminID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		payment = p
		return u.refunds.Save(ctx, tx, refund)
	})
	if err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	res, gwErr := u.gateway.RefundPayment(gwCtx, *payment.ProviderIntentID, amount, reason)
	if gwErr != nil {
		if uerr := u.refunds.UpdateStatus(ctx, repository.NoTX, refund.ID, model.RefundStatusFailed, nil); uerr != nil {
			u.log.Error().Err(uerr).Str("refund_id", refund.ID).Msg("failed to mark refund failed")
		}
		refund.Status = model.RefundStatusFailed
		metrics.IncRefund("failed")
		return refund, fmt.Errorf("provider refund: %w", errors.Join(domain.ErrProvider, gwErr))
	}

	if err := u.refunds.UpdateStatus(ctx, repository.NoTX, refund.ID, model.RefundStatusSucceeded, &res.ID); err != nil {
		return nil, err
	}
	refund.Status = model.RefundStatusSucceeded
	refund.ProviderRefundID = &res.ID
	metrics.IncRefund("succeeded")
	metrics.AddRefundAmount(payment.Currency, amount)
	u.log.Info().
		Str("refund_id", refund.ID).
		Str("payment_id", payment.ID).
		Int64("amount", amount).
		Msg("refund succeeded")

	// Full cumulative refund ends the subscription.
	if amount == remaining && payment.SubscriptionID != nil {
		if err := u.subs.Cancel(ctx, *payment.SubscriptionID, "payment fully refunded"); err != nil {
			u.log.Error().Err(err).Str("subscription_id", *payment.SubscriptionID).Msg("failed to cancel refunded subscription")
		}
	}
	return refund, nil
}

func (u *refundUC) List(ctx context.Context, limit, offset int) ([]*model.Refund, error) {
	return u.refunds.List(ctx, repository.NoTX, limit, offset)
}

func (u *refundUC) Get(ctx context.Context, refundID string) (*model.Refund, error) {
	return u.refunds.FindByID(ctx, repository.NoTX, refundID)
}
