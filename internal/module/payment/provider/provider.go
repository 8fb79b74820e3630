package provider

import (
	"context"
	"errors"
)

var (
	// ErrResourceMissing is returned when the provider has no object with the given id.
	ErrResourceMissing = errors.New("payment provider resource not found")
	// ErrUnavailable is returned while the provider is considered unhealthy.
	ErrUnavailable = errors.New("payment provider unavailable")
	// ErrInvalidSignature is returned for webhook payloads that fail verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// PaymentStatusPaid is the checkout payment status that grants access.
const PaymentStatusPaid = "paid"

// CheckoutRequest describes a hosted subscription checkout.
type CheckoutRequest struct {
	PriceRef        string
	ClientReference string
	SuccessURL      string
	CancelURL       string
}

// CheckoutSession is the provider's view of a checkout session.
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentStatus   string
	ClientReference string
	SubscriptionRef string
}

// IsPaid reports whether the session's payment completed.
func (s *CheckoutSession) IsPaid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// Subscription is the provider's view of a recurring subscription.
type Subscription struct {
	ID          string
	Status      string
	PlanID      string
	PriceID     string
	AmountMinor int64
	PeriodStart int64
	PeriodEnd   int64
}

// CheckoutProvider is the payment provider port used by the subscription lifecycle.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
}

// WebhookEvent is a verified provider notification.
type WebhookEvent struct {
	ID   string
	Type string
	Raw  []byte
}

// WebhookVerifier authenticates provider notifications.
type WebhookVerifier interface {
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
