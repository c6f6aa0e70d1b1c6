package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is a simple in-memory gateway for local development.
// Every session it opens reports paid on retrieval.
type NoopPaymentGateway struct {
	mu       sync.Mutex
	seq      int64
	sessions map[string]adapter.CheckoutRequest
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{
		sessions: make(map[string]adapter.CheckoutRequest),
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop-%d", g.seq)
}

func (g *NoopPaymentGateway) CreateCheckoutSession(ctx context.Context, req adapter.CheckoutRequest) (adapter.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next()
	g.sessions[id] = req
	return adapter.CheckoutSession{
		SessionID: id,
		PayURL:    "https://example.test/pay/" + id,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

func (g *NoopPaymentGateway) RetrieveSession(ctx context.Context, sessionID string) (adapter.SessionInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	req, ok := g.sessions[sessionID]
	if !ok {
		return adapter.SessionInfo{}, domain.ErrNotFound
	}
	return adapter.SessionInfo{
		SessionID:       sessionID,
		PaymentStatus:   "paid",
		PaymentIntentID: "intent-" + sessionID,
		AmountTotal:     req.Amount,
	}, nil
}

func (g *NoopPaymentGateway) RefundPayment(ctx context.Context, intentID string, amount int64, reason string) (adapter.RefundResult, error) {
	return adapter.RefundResult{
		ID:     "refund-" + intentID,
		Status: "succeeded",
	}, nil
}

func (g *NoopPaymentGateway) VerifyEvent(payload []byte, signature string) (adapter.Event, error) {
	if signature == "" {
		return adapter.Event{}, domain.ErrInvalidSignature
	}
	return g.ParseEvent(payload)
}

func (g *NoopPaymentGateway) ParseEvent(payload []byte) (adapter.Event, error) {
	var ev adapter.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return adapter.Event{}, domain.ErrInvalidArgument
	}
	ev.Raw = payload
	return ev, nil
}
