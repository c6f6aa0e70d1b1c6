package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/repository"
)

const maxWebhookBody = 1 << 20 // Stripe payloads are small; cap reads

// ===== Response shaping =====

type paymentView struct {
	ID             string     `json:"id"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	SubscriptionID *string    `json:"subscription_id,omitempty"`
	FailureReason  *string    `json:"failure_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
}

func toPaymentView(p *model.Payment) paymentView {
	return paymentView{
		ID:             p.ID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Status:         string(p.Status),
		SubscriptionID: p.SubscriptionID,
		FailureReason:  p.FailureReason,
		CreatedAt:      p.CreatedAt,
		PaidAt:         p.PaidAt,
	}
}

type subscriptionView struct {
	ID            string     `json:"id"`
	PlanID        string     `json:"plan_id"`
	PlanName      string     `json:"plan_name"`
	Price         int64      `json:"price"`
	Status        string     `json:"status"`
	StartAt       *time.Time `json:"start_at,omitempty"`
	EndAt         *time.Time `json:"end_at,omitempty"`
	DaysRemaining int        `json:"days_remaining"`
}

func toSubscriptionView(s *model.Subscription) *subscriptionView {
	if s == nil {
		return nil
	}
	return &subscriptionView{
		ID:            s.ID,
		PlanID:        s.PlanID,
		PlanName:      s.PlanName,
		Price:         s.Price,
		Status:        string(s.Status),
		StartAt:       s.StartAt,
		EndAt:         s.EndAt,
		DaysRemaining: s.DaysRemaining(),
	}
}

type refundView struct {
	ID               string    `json:"id"`
	PaymentID        string    `json:"payment_id"`
	Amount           int64     `json:"amount"`
	Reason           string    `json:"reason"`
	Status           string    `json:"status"`
	ProviderRefundID *string   `json:"provider_refund_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func toRefundView(r *model.Refund) refundView {
	return refundView{
		ID:               r.ID,
		PaymentID:        r.PaymentID,
		Amount:           r.Amount,
		Reason:           r.Reason,
		Status:           string(r.Status),
		ProviderRefundID: r.ProviderRefundID,
		CreatedAt:        r.CreatedAt,
	}
}

type planView struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Price        int64          `json:"price"`
	Currency     string         `json:"currency"`
	DurationDays int            `json:"duration_days"`
	Features     map[string]any `json:"features,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrPostNotPublished):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoPinnedPost):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrNotRefundable), errors.Is(err, domain.ErrRefundExceedsAmount):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNoActiveSubscription), errors.Is(err, domain.ErrNotPostAuthor):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrProvider):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func userID(r *http.Request) string {
	if c := claimsFrom(r.Context()); c != nil {
		return c.Subject
	}
	return ""
}

// ===== Payments =====

type checkoutRequest struct {
	PlanID     string `json:"plan_id"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.paymentUC.CreateCheckout(r.Context(), userID(r), req.PlanID, req.SuccessURL, req.CancelURL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Payment      paymentView       `json:"payment"`
		Subscription *subscriptionView `json:"subscription"`
		CheckoutURL  string            `json:"checkout_url"`
	}{
		Payment:      toPaymentView(res.Payment),
		Subscription: toSubscriptionView(res.Subscription),
		CheckoutURL:  res.CheckoutURL,
	})
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50 // Default page size
	}
	if offset < 0 {
		offset = 0
	}
	f := repository.PaymentFilter{
		Status: model.PaymentStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	payments, err := s.paymentUC.ListByUser(r.Context(), userID(r), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, toPaymentView(p))
	}
	writeJSON(w, http.StatusOK, struct {
		Data   []paymentView `json:"data"`
		Count  int           `json:"count"`
		Limit  int           `json:"limit"`
		Offset int           `json:"offset"`
	}{Data: views, Count: len(views), Limit: limit, Offset: offset})
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.paymentUC.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	res, err := s.paymentUC.CheckStatus(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Payment               paymentView `json:"payment"`
		SubscriptionActivated bool        `json:"subscription_activated"`
		Message               string      `json:"message"`
	}{toPaymentView(res.Payment), res.SubscriptionActivated, res.Message})
}

func (s *Server) handleCancelPayment(w http.ResponseWriter, r *http.Request) {
	if err := s.paymentUC.Cancel(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleRetryPayment(w http.ResponseWriter, r *http.Request) {
	res, err := s.paymentUC.Retry(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Payment     paymentView `json:"payment"`
		CheckoutURL string      `json:"checkout_url"`
	}{toPaymentView(res.Payment), res.CheckoutURL})
}

// ===== Subscription and entitlements =====

func (s *Server) handleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	// Drop a leftover pin before reporting, in case the subscription
	// lapsed between expiry sweeps.
	if _, err := s.entUC.Enforce(r.Context(), uid); err != nil {
		s.log.Warn().Err(err).Str("user_id", uid).Msg("pin enforcement failed")
	}
	view, err := s.subUC.StatusForUser(r.Context(), uid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := struct {
		HasSubscription bool              `json:"has_subscription"`
		IsActive        bool              `json:"is_active"`
		Subscription    *subscriptionView `json:"subscription,omitempty"`
		PinnedPostID    *string           `json:"pinned_post_id,omitempty"`
		CanPin          bool              `json:"can_pin"`
	}{
		HasSubscription: view.HasSubscription,
		IsActive:        view.IsActive,
		Subscription:    toSubscriptionView(view.Subscription),
		CanPin:          view.CanPin,
	}
	if view.PinnedPost != nil {
		resp.PinnedPostID = &view.PinnedPost.PostID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PostID string `json:"post_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	pin, err := s.entUC.Pin(r.Context(), userID(r), req.PostID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		PostID   string    `json:"post_id"`
		PinnedAt time.Time `json:"pinned_at"`
	}{pin.PostID, pin.PinnedAt})
}

func (s *Server) handleUnpin(w http.ResponseWriter, r *http.Request) {
	if err := s.entUC.Unpin(r.Context(), userID(r)); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unpinned"})
}

// ===== Plans =====

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.planUC.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, planView{
			ID:           p.ID,
			Name:         p.Name,
			Price:        p.Price,
			Currency:     p.Currency,
			DurationDays: p.DurationDays,
			Features:     p.Features,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Data []planView `json:"data"`
	}{Data: views})
}

// ===== Refunds (admin) =====

type refundRequest struct {
	Amount int64  `json:"amount"` // 0 refunds the full remaining balance
	Reason string `json:"reason"`
}

func (s *Server) handleCreateRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	refund, err := s.refundUC.Create(r.Context(), userID(r), chi.URLParam(r, "paymentID"), req.Amount, req.Reason)
	if err != nil {
		// A declined refund still produced a record worth returning.
		if refund != nil && errors.Is(err, domain.ErrProvider) {
			writeJSON(w, http.StatusBadGateway, toRefundView(refund))
			return
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRefundView(refund))
}

func (s *Server) handleListRefunds(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	refunds, err := s.refundUC.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]refundView, 0, len(refunds))
	for _, rf := range refunds {
		views = append(views, toRefundView(rf))
	}
	writeJSON(w, http.StatusOK, struct {
		Data []refundView `json:"data"`
	}{Data: views})
}

func (s *Server) handleGetRefund(w http.ResponseWriter, r *http.Request) {
	refund, err := s.refundUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundView(refund))
}

// ===== Analytics (admin) =====

func (s *Server) handlePaymentAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.statsUC.PaymentAnalytics(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		TotalPayments       int64            `json:"total_payments"`
		SucceededPayments   int64            `json:"succeeded_payments"`
		FailedPayments      int64            `json:"failed_payments"`
		SuccessRate         float64          `json:"success_rate"`
		TotalRevenue        int64            `json:"total_revenue"`
		RevenueLast30Days   int64            `json:"revenue_last_30_days"`
		AverageAmount       int64            `json:"average_amount"`
		ActiveSubscriptions int64            `json:"active_subscriptions"`
		ByStatus            map[string]int64 `json:"by_status"`
	}{
		TotalPayments:       a.TotalPayments,
		SucceededPayments:   a.SucceededPayments,
		FailedPayments:      a.FailedPayments,
		SuccessRate:         a.SuccessRate,
		TotalRevenue:        a.TotalRevenue,
		RevenueLast30Days:   a.RevenueLast30Days,
		AverageAmount:       a.AverageAmount,
		ActiveSubscriptions: a.ActiveSubscriptions,
		ByStatus:            a.ByStatus,
	})
}

// ===== Webhook =====

// handleStripeWebhook answers the provider: 200 acknowledges, 400 rejects a
// bad signature, 500 asks for redelivery.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "could not read body", http.StatusBadRequest)
		return
	}
	ack, err := s.webhookUC.Process(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}
		http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		return
	}
	if !ack {
		http.Error(w, "retry later", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"received":true}`))
}
