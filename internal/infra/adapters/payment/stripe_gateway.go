// File: internal/infra/adapters/payment/stripe_gateway.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/refund"
	"github.com/stripe/stripe-go/v83/webhook"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*StripeGateway)(nil)

// StripeGateway implements adapter.PaymentGateway on Stripe hosted checkout.
// The platform payment id travels in session and intent metadata, so webhook
// events can always be routed back to the originating payment row.
type StripeGateway struct {
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewStripeGateway(secretKey, webhookSecret, successURL, cancelURL string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key empty")
	}
	if webhookSecret == "" {
		return nil, errors.New("stripe webhook secret empty")
	}
	stripe.Key = secretKey
	return &StripeGateway{
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}, nil
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req adapter.CheckoutRequest) (adapter.CheckoutSession, error) {
	successURL := req.SuccessURL
	if successURL == "" {
		successURL = g.successURL
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = g.cancelURL
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(req.PaymentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
			},
		},
		// Intent metadata makes payment_intent.* events routable too.
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"payment_id": req.PaymentID,
				"user_id":    req.UserID,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("payment_id", req.PaymentID)
	params.AddMetadata("user_id", req.UserID)

	s, err := session.New(params)
	if err != nil {
		return adapter.CheckoutSession{}, mapStripeError(err)
	}
	return adapter.CheckoutSession{
		SessionID: s.ID,
		PayURL:    s.URL,
		ExpiresAt: time.Unix(s.ExpiresAt, 0),
	}, nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (adapter.SessionInfo, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	s, err := session.Get(sessionID, params)
	if err != nil {
		return adapter.SessionInfo{}, mapStripeError(err)
	}
	info := adapter.SessionInfo{
		SessionID:     s.ID,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
	}
	if s.PaymentIntent != nil {
		info.PaymentIntentID = s.PaymentIntent.ID
	}
	// Expired sessions never settle; report them as failed to the caller.
	if s.Status == stripe.CheckoutSessionStatusExpired {
		info.PaymentStatus = "expired"
	}
	return info, nil
}

func (g *StripeGateway) RefundPayment(ctx context.Context, intentID string, amount int64, reason string) (adapter.RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx
	if amount > 0 {
		params.Amount = stripe.Int64(amount)
	}
	// Stripe only accepts its own reason enum; anything else rides in metadata.
	switch reason {
	case "duplicate", "fraudulent", "requested_by_customer":
		params.Reason = stripe.String(reason)
	default:
		if reason != "" {
			params.AddMetadata("reason", reason)
		}
	}

	r, err := refund.New(params)
	if err != nil {
		return adapter.RefundResult{}, mapStripeError(err)
	}
	return adapter.RefundResult{
		ID:     r.ID,
		Status: string(r.Status),
	}, nil
}

func (g *StripeGateway) VerifyEvent(payload []byte, signature string) (adapter.Event, error) {
	// IgnoreAPIVersionMismatch: the CLI and older endpoints may pin an API
	// version other than the SDK's; the signature check is unaffected.
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return adapter.Event{}, domain.ErrInvalidSignature
	}
	return mapStripeEvent(ev, payload)
}

func (g *StripeGateway) ParseEvent(payload []byte) (adapter.Event, error) {
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return adapter.Event{}, domain.ErrInvalidArgument
	}
	return mapStripeEvent(ev, payload)
}

func mapStripeEvent(ev stripe.Event, payload []byte) (adapter.Event, error) {
	out := adapter.Event{
		ID:   ev.ID,
		Type: string(ev.Type),
		Raw:  payload,
	}

	switch string(ev.Type) {
	case adapter.EventCheckoutCompleted, adapter.EventCheckoutAsyncFailed, adapter.EventCheckoutExpired:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return adapter.Event{}, domain.ErrInvalidArgument
		}
		out.SessionID = s.ID
		out.PaymentID = s.Metadata["payment_id"]
		if s.PaymentIntent != nil {
			out.PaymentIntentID = s.PaymentIntent.ID
		}
		if string(ev.Type) != adapter.EventCheckoutCompleted {
			out.Reason = string(ev.Type)
		}
	case adapter.EventPaymentIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return adapter.Event{}, domain.ErrInvalidArgument
		}
		out.PaymentIntentID = pi.ID
		out.PaymentID = pi.Metadata["payment_id"]
		if pi.LastPaymentError != nil {
			out.Reason = pi.LastPaymentError.Msg
		}
	}
	return out, nil
}

func mapStripeError(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) && sErr.Code == stripe.ErrorCodeResourceMissing {
		return domain.ErrNotFound
	}
	return err
}
