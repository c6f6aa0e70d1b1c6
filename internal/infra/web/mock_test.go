//go:build !integration

package web

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/repository"
	"blog-subscription-platform/internal/usecase"
)

// --- Mock Use Cases (Ports) ---
// Each mock embeds its interface so only the methods a test exercises need
// an override; calling anything else panics loudly.

type mockPaymentUC struct {
	usecase.PaymentUseCase
	CreateCheckoutFunc func(ctx context.Context, userID, planID, successURL, cancelURL string) (*usecase.CheckoutResult, error)
	ListByUserFunc     func(ctx context.Context, userID string, f repository.PaymentFilter) ([]*model.Payment, error)
	GetFunc            func(ctx context.Context, userID, paymentID string) (*model.Payment, error)
	CancelFunc         func(ctx context.Context, userID, paymentID string) error
	CheckStatusFunc    func(ctx context.Context, userID, paymentID string) (*usecase.StatusResult, error)
}

func (m *mockPaymentUC) CreateCheckout(ctx context.Context, userID, planID, successURL, cancelURL string) (*usecase.CheckoutResult, error) {
	return m.CreateCheckoutFunc(ctx, userID, planID, successURL, cancelURL)
}

func (m *mockPaymentUC) ListByUser(ctx context.Context, userID string, f repository.PaymentFilter) ([]*model.Payment, error) {
	return m.ListByUserFunc(ctx, userID, f)
}

func (m *mockPaymentUC) Get(ctx context.Context, userID, paymentID string) (*model.Payment, error) {
	return m.GetFunc(ctx, userID, paymentID)
}

func (m *mockPaymentUC) Cancel(ctx context.Context, userID, paymentID string) error {
	return m.CancelFunc(ctx, userID, paymentID)
}

func (m *mockPaymentUC) CheckStatus(ctx context.Context, userID, paymentID string) (*usecase.StatusResult, error) {
	return m.CheckStatusFunc(ctx, userID, paymentID)
}

type mockSubscriptionUC struct {
	usecase.SubscriptionUseCase
	StatusForUserFunc func(ctx context.Context, userID string) (*usecase.SubscriptionStatusView, error)
}

func (m *mockSubscriptionUC) StatusForUser(ctx context.Context, userID string) (*usecase.SubscriptionStatusView, error) {
	return m.StatusForUserFunc(ctx, userID)
}

type mockEntitlementUC struct {
	usecase.EntitlementUseCase
	PinFunc     func(ctx context.Context, userID, postID string) (*model.PinnedPost, error)
	UnpinFunc   func(ctx context.Context, userID string) error
	EnforceFunc func(ctx context.Context, userID string) (bool, error)
}

func (m *mockEntitlementUC) Enforce(ctx context.Context, userID string) (bool, error) {
	if m.EnforceFunc != nil {
		return m.EnforceFunc(ctx, userID)
	}
	return false, nil
}

func (m *mockEntitlementUC) Pin(ctx context.Context, userID, postID string) (*model.PinnedPost, error) {
	return m.PinFunc(ctx, userID, postID)
}

func (m *mockEntitlementUC) Unpin(ctx context.Context, userID string) error {
	return m.UnpinFunc(ctx, userID)
}

type mockPlanUC struct {
	usecase.PlanUseCase
	ListFunc func(ctx context.Context) ([]*model.SubscriptionPlan, error)
}

func (m *mockPlanUC) List(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	return m.ListFunc(ctx)
}

type mockRefundUC struct {
	usecase.RefundUseCase
	CreateFunc func(ctx context.Context, adminID, paymentID string, amount int64, reason string) (*model.Refund, error)
	ListFunc   func(ctx context.Context, limit, offset int) ([]*model.Refund, error)
}

func (m *mockRefundUC) Create(ctx context.Context, adminID, paymentID string, amount int64, reason string) (*model.Refund, error) {
	return m.CreateFunc(ctx, adminID, paymentID, amount, reason)
}

func (m *mockRefundUC) List(ctx context.Context, limit, offset int) ([]*model.Refund, error) {
	return m.ListFunc(ctx, limit, offset)
}

type mockWebhookUC struct {
	usecase.WebhookUseCase
	ProcessFunc func(ctx context.Context, payload []byte, signature string) (bool, error)
}

func (m *mockWebhookUC) Process(ctx context.Context, payload []byte, signature string) (bool, error) {
	return m.ProcessFunc(ctx, payload, signature)
}

type mockStatsUC struct {
	usecase.StatsUseCase
	PaymentAnalyticsFunc func(ctx context.Context) (*usecase.PaymentAnalytics, error)
}

func (m *mockStatsUC) PaymentAnalytics(ctx context.Context) (*usecase.PaymentAnalytics, error) {
	return m.PaymentAnalyticsFunc(ctx)
}

// --- Test harness ---

const testAuthSecret = "test-secret"

type serverMocks struct {
	payments *mockPaymentUC
	subs     *mockSubscriptionUC
	ents     *mockEntitlementUC
	plans    *mockPlanUC
	refunds  *mockRefundUC
	webhooks *mockWebhookUC
	stats    *mockStatsUC
}

func newTestServer() (*Server, *serverMocks) {
	m := &serverMocks{
		payments: &mockPaymentUC{},
		subs:     &mockSubscriptionUC{},
		ents:     &mockEntitlementUC{},
		plans:    &mockPlanUC{},
		refunds:  &mockRefundUC{},
		webhooks: &mockWebhookUC{},
		stats:    &mockStatsUC{},
	}
	logger := zerolog.New(io.Discard)
	srv := NewServer(m.payments, m.subs, m.ents, m.plans, m.refunds, m.webhooks, m.stats,
		NewAuthManager(testAuthSecret), &logger)
	return srv, m
}

func mintToken(t *testing.T, subject, role string) string {
	t.Helper()
	claims := UserClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAuthSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func authorize(t *testing.T, req *http.Request, subject, role string) {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+mintToken(t, subject, role))
}
