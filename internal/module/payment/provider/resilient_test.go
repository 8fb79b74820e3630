package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	createCalls  int
	sessionCalls int
	subCalls     int

	createErr  error
	sessionErr []error
	subErr     error

	sawDeadline bool
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	f.createCalls++
	_, f.sawDeadline = ctx.Deadline()
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}, nil
}

func (f *fakeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	f.sessionCalls++
	if len(f.sessionErr) >= f.sessionCalls {
		if err := f.sessionErr[f.sessionCalls-1]; err != nil {
			return nil, err
		}
	}
	return &CheckoutSession{ID: sessionID, PaymentStatus: PaymentStatusPaid}, nil
}

func (f *fakeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	f.subCalls++
	if f.subErr != nil {
		return nil, f.subErr
	}
	return &Subscription{ID: subscriptionID}, nil
}

func testConfig() *ResilienceConfig {
	return &ResilienceConfig{
		CallTimeout:      time.Second,
		ReadRetries:      2,
		RetryBackoff:     time.Millisecond,
		FailureThreshold: 3,
		BreakerTimeout:   time.Minute,
	}
}

func TestResilient_CreateIsNotRetried(t *testing.T) {
	fake := &fakeProvider{createErr: errors.New("connection reset")}
	r := NewResilient(fake, testConfig(), nil, zap.NewNop())

	_, err := r.CreateCheckoutSession(context.Background(), &CheckoutRequest{PriceRef: "price_1"})

	require.Error(t, err)
	assert.Equal(t, 1, fake.createCalls)
}

func TestResilient_CreateAppliesCallTimeout(t *testing.T) {
	fake := &fakeProvider{}
	r := NewResilient(fake, testConfig(), nil, zap.NewNop())

	s, err := r.CreateCheckoutSession(context.Background(), &CheckoutRequest{PriceRef: "price_1"})

	require.NoError(t, err)
	assert.Equal(t, "cs_1", s.ID)
	assert.True(t, fake.sawDeadline)
}

func TestResilient_ReadRetriesTransientFailure(t *testing.T) {
	fake := &fakeProvider{sessionErr: []error{errors.New("timeout"), nil}}
	r := NewResilient(fake, testConfig(), nil, zap.NewNop())

	s, err := r.GetCheckoutSession(context.Background(), "cs_1")

	require.NoError(t, err)
	assert.True(t, s.IsPaid())
	assert.Equal(t, 2, fake.sessionCalls)
}

func TestResilient_ReadGivesUpAfterBudget(t *testing.T) {
	fake := &fakeProvider{subErr: errors.New("timeout")}
	r := NewResilient(fake, testConfig(), nil, zap.NewNop())

	_, err := r.GetSubscription(context.Background(), "sub_1")

	require.Error(t, err)
	assert.Equal(t, 3, fake.subCalls)
}

func TestResilient_MissingResourceIsNotRetried(t *testing.T) {
	missing := fmt.Errorf("get checkout session: %w", ErrResourceMissing)
	fake := &fakeProvider{sessionErr: []error{missing, missing, missing}}
	r := NewResilient(fake, testConfig(), nil, zap.NewNop())

	_, err := r.GetCheckoutSession(context.Background(), "cs_missing")

	assert.ErrorIs(t, err, ErrResourceMissing)
	assert.Equal(t, 1, fake.sessionCalls)
	assert.Equal(t, gobreaker.StateClosed, r.State())
}

func TestResilient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	fake := &fakeProvider{createErr: errors.New("503")}
	r := NewResilient(fake, testConfig(), nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := r.CreateCheckoutSession(context.Background(), &CheckoutRequest{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, r.State())

	_, err := r.CreateCheckoutSession(context.Background(), &CheckoutRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, fake.createCalls)

	// Reads fail fast while open.
	_, err = r.GetSubscription(context.Background(), "sub_1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, fake.subCalls)
}

func TestDecodeCheckoutSession(t *testing.T) {
	raw := []byte(`{"id":"cs_123","object":"checkout.session","payment_status":"paid","client_reference_id":"user-1","subscription":"sub_9","url":null}`)

	s, err := DecodeCheckoutSession(raw)

	require.NoError(t, err)
	assert.Equal(t, "cs_123", s.ID)
	assert.True(t, s.IsPaid())
	assert.Equal(t, "user-1", s.ClientReference)
	assert.Equal(t, "sub_9", s.SubscriptionRef)
}

func TestDecodeSubscription_PrefersPlanAmount(t *testing.T) {
	raw := []byte(`{
		"id": "sub_9",
		"status": "active",
		"current_period_start": 1704067200,
		"current_period_end": 1706659200,
		"items": {"object": "list", "data": [{
			"id": "si_1",
			"plan": {"id": "plan_1", "amount": 49900},
			"price": {"id": "price_1", "unit_amount": 49900}
		}]}
	}`)

	sub, err := DecodeSubscription(raw)

	require.NoError(t, err)
	assert.Equal(t, "sub_9", sub.ID)
	assert.Equal(t, "plan_1", sub.PlanID)
	assert.Equal(t, "price_1", sub.PriceID)
	assert.Equal(t, int64(49900), sub.AmountMinor)
	assert.Equal(t, int64(1704067200), sub.PeriodStart)
	assert.Equal(t, int64(1706659200), sub.PeriodEnd)
}

func TestParseWebhook_RejectsBadSignature(t *testing.T) {
	p := &StripeProvider{webhookSecret: "whsec_test"}

	_, err := p.ParseWebhook([]byte(`{"id":"evt_1"}`), "t=1,v1=deadbeef")

	assert.ErrorIs(t, err, ErrInvalidSignature)
}
