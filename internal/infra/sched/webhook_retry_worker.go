package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/infra/metrics"
	"blog-subscription-platform/internal/usecase"
)

// WebhookRetryWorker re-dispatches recorded webhook events that failed
// processing, using their stored payloads.
type WebhookRetryWorker struct {
	interval time.Duration
	webhooks usecase.WebhookUseCase
	log      *zerolog.Logger
}

func NewWebhookRetryWorker(interval time.Duration, webhooks usecase.WebhookUseCase, logger *zerolog.Logger) *WebhookRetryWorker {
	wrLog := logger.With().Str("component", "WebhookRetryWorker").Logger()
	return &WebhookRetryWorker{
		interval: interval,
		webhooks: webhooks,
		log:      &wrLog,
	}
}

func (w *WebhookRetryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting webhook retry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping webhook retry worker")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			n, err := w.webhooks.RetryFailed(ctx)
			metrics.ObserveJobRun("webhook_retry", time.Since(start), err)
			if err != nil {
				w.log.Error().Err(err).Msg("webhook retry error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("failed webhook events recovered")
			}
		}
	}
}
