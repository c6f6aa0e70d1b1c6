// File: cmd/app/main.go
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"blog-subscription-platform/internal/config"
	"blog-subscription-platform/internal/domain/ports/adapter"
	payAdapters "blog-subscription-platform/internal/infra/adapters/payment"
	pg "blog-subscription-platform/internal/infra/db/postgres"
	"blog-subscription-platform/internal/infra/logging"
	"blog-subscription-platform/internal/infra/metrics"
	red "blog-subscription-platform/internal/infra/redis"
	"blog-subscription-platform/internal/infra/sched"
	"blog-subscription-platform/internal/infra/web"
	"blog-subscription-platform/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 30*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	attemptRepo := pg.NewPaymentAttemptRepo(pool)
	refundRepo := pg.NewRefundRepo(pool)
	eventRepo := pg.NewWebhookEventRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	historyRepo := pg.NewSubscriptionHistoryRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	pinRepo := pg.NewPinnedPostRepo(pool)
	postRepo := pg.NewPostRepo(pool)
	userRepo := pg.NewUserRepo(pool)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev && cfg.Stripe.SecretKey == "" {
		gateway = payAdapters.NewNoopPaymentGateway()
	} else {
		gateway, err = payAdapters.NewStripeGateway(
			cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret,
			cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("stripe gateway init failed")
		}
	}
	logger.Info().Str("gateway", gateway.Name()).Msg("payment gateway ready")

	// ---- Use cases ----
	subUC := usecase.NewSubscriptionUseCase(subRepo, historyRepo, pinRepo, tm, logger)
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, attemptRepo, planRepo, userRepo, subUC, gateway, tm, logger)
	webhookUC := usecase.NewWebhookUseCase(eventRepo, paymentRepo, paymentUC, gateway, locker, logger)
	refundUC := usecase.NewRefundUseCase(refundRepo, paymentRepo, subUC, gateway, tm, logger)
	entUC := usecase.NewEntitlementUseCase(pinRepo, postRepo, subRepo, historyRepo, tm, logger)
	planUC := usecase.NewPlanUseCase(planRepo, logger)
	statsUC := usecase.NewStatsUseCase(paymentRepo, subRepo, logger)

	// ---- Workers ----
	w := cfg.Workers
	go sched.NewExpiryWorker(w.ExpiryInterval, subUC, logger).Run(ctx)
	go sched.NewWebhookRetryWorker(w.WebhookRetryInterval, webhookUC, logger).Run(ctx)
	go sched.NewPaymentReconciler(paymentUC, paymentRepo, w.ReconcileInterval, w.ReconcileAfter, logger).Run(ctx)
	go sched.NewCleanupWorker(w.CleanupInterval, w.PaymentRetention, w.WebhookRetention, paymentRepo, eventRepo, logger).Run(ctx)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Auth.Secret)
	server := web.NewServer(paymentUC, subUC, entUC, planUC, refundUC, webhookUC, statsUC, auth, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.Server.Port) }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	logger.Info().Msg("bye")
}
