package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

// StripeProvider implements CheckoutProvider and WebhookVerifier with Stripe.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider creates a new Stripe provider.
func NewStripeProvider(config *StripeConfig) *StripeProvider {
	stripe.Key = config.APIKey
	return &StripeProvider{webhookSecret: config.WebhookSecret}
}

// Name returns the provider name.
func (p *StripeProvider) Name() string {
	return "stripe"
}

// --- Checkout ---

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceRef),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.ClientReference),
	}
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", mapStripeError(err))
	}
	return mapStripeSession(s), nil
}

func (p *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", mapStripeError(err))
	}
	return mapStripeSession(s), nil
}

// --- Subscriptions ---

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", mapStripeError(err))
	}
	return mapStripeSubscription(sub), nil
}

// --- Webhooks ---

func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var raw []byte
	if event.Data != nil {
		raw = event.Data.Raw
	}
	return &WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Raw:  raw,
	}, nil
}

// DecodeCheckoutSession decodes the object of a checkout.session.* event.
func DecodeCheckoutSession(raw []byte) (*CheckoutSession, error) {
	var s stripe.CheckoutSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return mapStripeSession(&s), nil
}

// DecodeSubscription decodes the object of a customer.subscription.* event.
func DecodeSubscription(raw []byte) (*Subscription, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return mapStripeSubscription(&sub), nil
}

// --- Helpers ---

func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrResourceMissing, stripeErr.Msg)
		}
	}
	return err
}

func mapStripeSession(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:              s.ID,
		URL:             s.URL,
		PaymentStatus:   string(s.PaymentStatus),
		ClientReference: s.ClientReferenceID,
	}
	if s.Subscription != nil {
		out.SubscriptionRef = s.Subscription.ID
	}
	return out
}

func mapStripeSubscription(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:          sub.ID,
		Status:      string(sub.Status),
		PeriodStart: sub.CurrentPeriodStart,
		PeriodEnd:   sub.CurrentPeriodEnd,
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return out
	}

	item := sub.Items.Data[0]
	if item.Price != nil {
		out.PriceID = item.Price.ID
		out.AmountMinor = item.Price.UnitAmount
	}
	if item.Plan != nil {
		out.PlanID = item.Plan.ID
		if item.Plan.Amount > 0 {
			out.AmountMinor = item.Plan.Amount
		}
	}
	return out
}

var (
	_ CheckoutProvider = (*StripeProvider)(nil)
	_ WebhookVerifier  = (*StripeProvider)(nil)
)
