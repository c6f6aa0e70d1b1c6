package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/infra/logging"
	"blog-subscription-platform/internal/usecase"
)

type Server struct {
	paymentUC usecase.PaymentUseCase
	subUC     usecase.SubscriptionUseCase
	entUC     usecase.EntitlementUseCase
	planUC    usecase.PlanUseCase
	refundUC  usecase.RefundUseCase
	webhookUC usecase.WebhookUseCase
	statsUC   usecase.StatsUseCase
	auth      *AuthManager
	log       *zerolog.Logger

	httpServer *http.Server
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	subUC usecase.SubscriptionUseCase,
	entUC usecase.EntitlementUseCase,
	planUC usecase.PlanUseCase,
	refundUC usecase.RefundUseCase,
	webhookUC usecase.WebhookUseCase,
	statsUC usecase.StatsUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	webLog := logger.With().Str("component", "web").Logger()
	return &Server{
		paymentUC: paymentUC,
		subUC:     subUC,
		entUC:     entUC,
		planUC:    planUC,
		refundUC:  refundUC,
		webhookUC: webhookUC,
		statsUC:   statsUC,
		auth:      auth,
		log:       &webLog,
	}
}

// Router builds the chi route tree. The webhook route stays outside the
// auth middleware: Stripe authenticates with its signature header.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.tagRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/webhook/stripe", s.handleStripeWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.RequireAuth)

		r.Get("/plans", s.handleListPlans)

		r.Route("/payments", func(r chi.Router) {
			r.Post("/checkout", s.handleCreateCheckout)
			r.Get("/", s.handleListPayments)
			r.Get("/{id}", s.handleGetPayment)
			r.Get("/{id}/status", s.handleCheckStatus)
			r.Post("/{id}/cancel", s.handleCancelPayment)
			r.Post("/{id}/retry", s.handleRetryPayment)
		})

		r.Get("/subscription/status", s.handleSubscriptionStatus)
		r.Post("/posts/pin", s.handlePin)
		r.Post("/posts/unpin", s.handleUnpin)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/refunds/{paymentID}", s.handleCreateRefund)
			r.Get("/refunds", s.handleListRefunds)
			r.Get("/refunds/{id}", s.handleGetRefund)
			r.Get("/analytics/payments", s.handlePaymentAnalytics)
		})
	})

	return r
}

// tagRequests carries the chi request id as trace_id and logs each
// request once served.
func (s *Server) tagRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

func (s *Server) Start(port int) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
