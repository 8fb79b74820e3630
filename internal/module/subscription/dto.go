package subscription

import (
	"encoding/json"
	"time"
)

// CheckoutRequest is the body of POST /checkout-session.
type CheckoutRequest struct {
	Plan       json.Number `json:"plan" swaggertype:"number"`
	PlanID     string      `json:"planId"`
	CustomerID string      `json:"customerId"`
}

// SessionResponse is the checkout session returned to the client.
type SessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutResponse wraps the created session.
type CheckoutResponse struct {
	Session SessionResponse `json:"session"`
}

// PaymentSuccessRequest is the body of POST /payment-success.
type PaymentSuccessRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"firebaseId"`
}

// MessageResponse carries a confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// AdminUpdateRequest is the body of PUT /admin/subscriptions/:userId.
type AdminUpdateRequest struct {
	PlanID        string    `json:"planId" binding:"required"`
	DurationType  string    `json:"durationType"`
	CustomDays    int       `json:"customDays"`
	PlanStartDate time.Time `json:"planStartDate" binding:"required"`
	Status        string    `json:"status"`
}

// SubscriptionsResponse wraps the admin listing.
type SubscriptionsResponse struct {
	Subscriptions []*AdminView `json:"subscriptions"`
}
