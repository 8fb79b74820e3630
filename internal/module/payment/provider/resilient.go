package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sflix/server/internal/utils/metrics"
	"github.com/sflix/server/internal/utils/retry"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ResilienceConfig bounds calls to the payment provider.
type ResilienceConfig struct {
	CallTimeout      time.Duration
	ReadRetries      int
	RetryBackoff     time.Duration
	FailureThreshold uint32
	BreakerTimeout   time.Duration
}

// DefaultResilienceConfig returns the default provider call bounds.
func DefaultResilienceConfig() *ResilienceConfig {
	return &ResilienceConfig{
		CallTimeout:      10 * time.Second,
		ReadRetries:      2,
		RetryBackoff:     200 * time.Millisecond,
		FailureThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}

// Resilient wraps a CheckoutProvider with a circuit breaker and a per-call
// timeout. Reads are retried; session creation is attempted once.
type Resilient struct {
	next    CheckoutProvider
	breaker *gobreaker.CircuitBreaker[any]
	config  *ResilienceConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewResilient creates a resilient provider around next.
func NewResilient(next CheckoutProvider, config *ResilienceConfig, m *metrics.Metrics, logger *zap.Logger) *Resilient {
	if config == nil {
		config = DefaultResilienceConfig()
	}
	threshold := config.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        "payment-provider",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A missing object is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrResourceMissing)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Resilient{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		config:  config,
		metrics: m,
		logger:  logger,
	}
}

// State returns the breaker state.
func (r *Resilient) State() gobreaker.State {
	return r.breaker.State()
}

func (r *Resilient) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	v, err := r.call(ctx, "create_checkout_session", func(ctx context.Context) (any, error) {
		return r.next.CreateCheckoutSession(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CheckoutSession), nil
}

func (r *Resilient) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var out *CheckoutSession
	err := retry.Do(ctx, r.readPolicy(), func(ctx context.Context) error {
		v, err := r.call(ctx, "get_checkout_session", func(ctx context.Context) (any, error) {
			return r.next.GetCheckoutSession(ctx, sessionID)
		})
		if err != nil {
			return readError(err)
		}
		out = v.(*CheckoutSession)
		return nil
	})
	return out, err
}

func (r *Resilient) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var out *Subscription
	err := retry.Do(ctx, r.readPolicy(), func(ctx context.Context) error {
		v, err := r.call(ctx, "get_subscription", func(ctx context.Context) (any, error) {
			return r.next.GetSubscription(ctx, subscriptionID)
		})
		if err != nil {
			return readError(err)
		}
		out = v.(*Subscription)
		return nil
	})
	return out, err
}

func (r *Resilient) call(ctx context.Context, op string, fn func(ctx context.Context) (any, error)) (any, error) {
	if r.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	v, err := r.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.metrics.RecordProviderCall(op, err, time.Since(start))

	if err != nil {
		r.logger.Warn("payment provider call failed", zap.String("operation", op), zap.Error(err))
		return nil, err
	}
	return v, nil
}

func (r *Resilient) readPolicy() retry.Policy {
	return retry.Policy{
		Attempts:   r.config.ReadRetries + 1,
		Backoff:    r.config.RetryBackoff,
		MaxBackoff: 2 * time.Second,
	}
}

// readError stops retries for answers another attempt cannot change.
func readError(err error) error {
	if errors.Is(err, ErrResourceMissing) || errors.Is(err, ErrUnavailable) {
		return backoff.Permanent(err)
	}
	return err
}

var _ CheckoutProvider = (*Resilient)(nil)
