package subscription

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sflix/server/internal/module/payment/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) VerifyAndActivate(ctx context.Context, sessionID, userID string) (*Subscription, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Subscription), args.Error(1)
}

func (m *MockProcessor) DeactivateBySubscriptionRef(ctx context.Context, ref string) error {
	return m.Called(ctx, ref).Error(0)
}

type stubVerifier struct {
	event *provider.WebhookEvent
	err   error
}

func (v *stubVerifier) ParseWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.event, nil
}

type memoryGuard struct {
	seen      map[string]bool
	forgotten []string
}

func (g *memoryGuard) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	if g.seen[eventID] {
		return false, nil
	}
	g.seen[eventID] = true
	return true, nil
}

func (g *memoryGuard) Forget(ctx context.Context, eventID string) error {
	delete(g.seen, eventID)
	g.forgotten = append(g.forgotten, eventID)
	return nil
}

func sendWebhook(h *WebhookHandler) *httptest.ResponseRecorder {
	r := gin.New()
	h.RegisterRoutes(r.Group("/webhooks"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=sig")
	r.ServeHTTP(w, req)
	return w
}

func checkoutCompletedEvent() *provider.WebhookEvent {
	return &provider.WebhookEvent{
		ID:   "evt_1",
		Type: "checkout.session.completed",
		Raw:  []byte(`{"id":"cs_1","payment_status":"paid","client_reference_id":"u1","subscription":"sub_1"}`),
	}
}

func TestWebhook_CheckoutCompletedActivates(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("VerifyAndActivate", mock.Anything, "cs_1", "u1").Return(&Subscription{Status: StatusActive}, nil)
	guard := &memoryGuard{seen: map[string]bool{}}
	h := NewWebhookHandler(proc, &stubVerifier{event: checkoutCompletedEvent()}, guard, zap.NewNop())

	w := sendWebhook(h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "processed")

	// Redelivery is acknowledged without reprocessing.
	w = sendWebhook(h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already_processed")
	proc.AssertNumberOfCalls(t, "VerifyAndActivate", 1)
}

func TestWebhook_FailedProcessingIsRetryable(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("VerifyAndActivate", mock.Anything, "cs_1", "u1").Return(nil, ErrPaymentProvider).Once()
	proc.On("VerifyAndActivate", mock.Anything, "cs_1", "u1").Return(&Subscription{}, nil).Once()
	guard := &memoryGuard{seen: map[string]bool{}}
	h := NewWebhookHandler(proc, &stubVerifier{event: checkoutCompletedEvent()}, guard, zap.NewNop())

	w := sendWebhook(h)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, []string{"evt_1"}, guard.forgotten)

	w = sendWebhook(h)
	assert.Equal(t, http.StatusOK, w.Code)
	proc.AssertNumberOfCalls(t, "VerifyAndActivate", 2)
}

func TestWebhook_NotPaidIsAcknowledged(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("VerifyAndActivate", mock.Anything, "cs_1", "u1").Return(nil, ErrPaymentNotCompleted)
	h := NewWebhookHandler(proc, &stubVerifier{event: checkoutCompletedEvent()}, nil, zap.NewNop())

	w := sendWebhook(h)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhook_SubscriptionDeleted(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("DeactivateBySubscriptionRef", mock.Anything, "sub_1").Return(nil).Once()
	proc.On("DeactivateBySubscriptionRef", mock.Anything, "sub_2").Return(ErrNotFound).Once()

	for _, id := range []string{"sub_1", "sub_2"} {
		event := &provider.WebhookEvent{
			ID:   "evt_" + id,
			Type: "customer.subscription.deleted",
			Raw:  []byte(`{"id":"` + id + `","status":"canceled"}`),
		}
		h := NewWebhookHandler(proc, &stubVerifier{event: event}, nil, zap.NewNop())

		w := sendWebhook(h)
		assert.Equal(t, http.StatusOK, w.Code, id)
	}
	proc.AssertExpectations(t)
}

func TestWebhook_InvalidSignature(t *testing.T) {
	proc := new(MockProcessor)
	h := NewWebhookHandler(proc, &stubVerifier{err: provider.ErrInvalidSignature}, nil, zap.NewNop())

	w := sendWebhook(h)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	proc.AssertNotCalled(t, "VerifyAndActivate", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_IgnoresOtherEvents(t *testing.T) {
	proc := new(MockProcessor)
	event := &provider.WebhookEvent{ID: "evt_x", Type: "invoice.paid", Raw: []byte(`{}`)}
	h := NewWebhookHandler(proc, &stubVerifier{event: event}, nil, zap.NewNop())

	w := sendWebhook(h)

	assert.Equal(t, http.StatusOK, w.Code)
	proc.AssertExpectations(t)
}
