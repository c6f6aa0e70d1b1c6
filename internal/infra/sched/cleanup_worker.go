package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/domain/ports/repository"
	"blog-subscription-platform/internal/infra/metrics"
)

// CleanupWorker prunes settled rows past their retention windows: failed
// and cancelled payments, and processed or ignored webhook events.
type CleanupWorker struct {
	interval         time.Duration
	paymentRetention time.Duration
	webhookRetention time.Duration
	payments         repository.PaymentRepository
	events           repository.WebhookEventRepository
	log              *zerolog.Logger
}

func NewCleanupWorker(
	interval, paymentRetention, webhookRetention time.Duration,
	payments repository.PaymentRepository,
	events repository.WebhookEventRepository,
	logger *zerolog.Logger,
) *CleanupWorker {
	clLog := logger.With().Str("component", "CleanupWorker").Logger()
	return &CleanupWorker{
		interval:         interval,
		paymentRetention: paymentRetention,
		webhookRetention: webhookRetention,
		payments:         payments,
		events:           events,
		log:              &clLog,
	}
}

func (w *CleanupWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting cleanup worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping cleanup worker")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			err := w.tick(ctx)
			metrics.ObserveJobRun("cleanup", time.Since(start), err)
		}
	}
}

func (w *CleanupWorker) tick(ctx context.Context) error {
	now := time.Now()

	np, err := w.payments.DeleteFinishedBefore(ctx, repository.NoTX, now.Add(-w.paymentRetention))
	if err != nil {
		w.log.Error().Err(err).Msg("payment cleanup failed")
		return err
	}
	ne, err := w.events.DeleteSettledBefore(ctx, repository.NoTX, now.Add(-w.webhookRetention))
	if err != nil {
		w.log.Error().Err(err).Msg("webhook event cleanup failed")
		return err
	}
	if np > 0 || ne > 0 {
		w.log.Info().Int64("payments", np).Int64("webhook_events", ne).Msg("cleanup pass finished")
	}
	return nil
}
