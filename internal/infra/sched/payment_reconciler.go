package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/domain/ports/repository"
	"blog-subscription-platform/internal/infra/logging"
	"blog-subscription-platform/internal/infra/metrics"
	"blog-subscription-platform/internal/usecase"
)

// PaymentReconciler periodically scans for stale open payments and polls the
// provider for their outcome via PaymentUseCase.CheckStatus. This covers
// webhook deliveries that never arrived or crashed mid-processing.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	payments   repository.PaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old an open payment must be to poll
	log        *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.PaymentUseCase, payments repository.PaymentRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	rcLog := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{uc: uc, payments: payments, interval: interval, staleAfter: staleAfter, log: &rcLog}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting payment reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-t.C:
			start := time.Now()
			err := w.tick(ctx)
			metrics.ObserveJobRun("payment_reconcile", time.Since(start), err)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) error {
	cutoff := time.Now().Add(-w.staleAfter)
	open, err := w.payments.ListOpenOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list open payments failed")
		return err
	}
	for _, p := range open {
		if p.ProviderSessionID == nil {
			continue
		}
		pctx := logging.WithPaymentID(ctx, p.ID)
		log := logging.With(pctx, w.log)
		res, err := w.uc.CheckStatus(pctx, p.UserID, p.ID)
		if err != nil {
			log.Warn().Err(err).Msg("reconcile poll failed")
			continue
		}
		if res.Payment.Status != p.Status {
			log.Info().Str("status", string(res.Payment.Status)).Msg("payment reconciled")
		}
	}
	return nil
}
