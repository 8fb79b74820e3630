package subscription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sflix/server/internal/module/payment/provider"
	"github.com/sflix/server/internal/shared/cache"
	"go.uber.org/zap"
)

const (
	eventCheckoutCompleted   = "checkout.session.completed"
	eventSubscriptionDeleted = "customer.subscription.deleted"

	webhookEventTTL = 24 * time.Hour
)

// EventGuard reports whether a provider event is delivered for the first time.
// Forget releases an event so a redelivery is processed again.
type EventGuard interface {
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// RedisEventGuard remembers delivered event ids in Redis.
type RedisEventGuard struct {
	client redis.UniversalClient
}

// NewRedisEventGuard creates an event guard backed by Redis.
func NewRedisEventGuard(client redis.UniversalClient) *RedisEventGuard {
	return &RedisEventGuard{client: client}
}

func (g *RedisEventGuard) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	return cache.Once(ctx, g.client, webhookEventKey(eventID), webhookEventTTL)
}

func (g *RedisEventGuard) Forget(ctx context.Context, eventID string) error {
	return g.client.Del(ctx, webhookEventKey(eventID)).Err()
}

func webhookEventKey(eventID string) string {
	return cache.Key("webhook", "stripe", eventID)
}

// EventProcessor applies provider events to subscriptions.
type EventProcessor interface {
	VerifyAndActivate(ctx context.Context, sessionID, userID string) (*Subscription, error)
	DeactivateBySubscriptionRef(ctx context.Context, ref string) error
}

// WebhookHandler handles payment provider webhook events.
type WebhookHandler struct {
	processor EventProcessor
	verifier  provider.WebhookVerifier
	guard     EventGuard
	logger    *zap.Logger
}

// NewWebhookHandler creates a new webhook handler. guard may be nil.
func NewWebhookHandler(
	processor EventProcessor,
	verifier provider.WebhookVerifier,
	guard EventGuard,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		verifier:  verifier,
		guard:     guard,
		logger:    logger,
	}
}

// RegisterRoutes registers the webhook routes.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook handles incoming Stripe webhook events.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	event, err := h.verifier.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("invalid webhook signature", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	ctx := c.Request.Context()

	if h.guard != nil {
		first, err := h.guard.FirstDelivery(ctx, event.ID)
		if err != nil {
			// Processing twice is safe; missing an event is not.
			h.logger.Error("failed to check event delivery", zap.String("event_id", event.ID), zap.Error(err))
		} else if !first {
			h.logger.Info("webhook event already processed", zap.String("event_id", event.ID))
			c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
			return
		}
	}

	var processErr error
	switch event.Type {
	case eventCheckoutCompleted:
		processErr = h.handleCheckoutCompleted(ctx, event)
	case eventSubscriptionDeleted:
		processErr = h.handleSubscriptionDeleted(ctx, event)
	default:
		h.logger.Debug("unhandled webhook event type", zap.String("type", event.Type))
	}

	if processErr != nil {
		h.logger.Error("failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
			zap.Error(processErr),
		)
		if h.guard != nil {
			if err := h.guard.Forget(context.WithoutCancel(ctx), event.ID); err != nil {
				h.logger.Error("failed to release webhook event", zap.String("event_id", event.ID), zap.Error(err))
			}
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, event *provider.WebhookEvent) error {
	session, err := provider.DecodeCheckoutSession(event.Raw)
	if err != nil {
		return err
	}
	if session.ClientReference == "" {
		h.logger.Warn("checkout session without client reference", zap.String("session_id", session.ID))
		return nil
	}

	_, err = h.processor.VerifyAndActivate(ctx, session.ID, session.ClientReference)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPaymentNotCompleted):
		// Asynchronous payment methods complete later.
		h.logger.Info("checkout completed before payment", zap.String("session_id", session.ID))
		return nil
	case errors.Is(err, ErrInvalidStatusTransition):
		h.logger.Warn("checkout completion ignored",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return nil
	default:
		return fmt.Errorf("activate from webhook: %w", err)
	}
}

func (h *WebhookHandler) handleSubscriptionDeleted(ctx context.Context, event *provider.WebhookEvent) error {
	sub, err := provider.DecodeSubscription(event.Raw)
	if err != nil {
		return err
	}

	err = h.processor.DeactivateBySubscriptionRef(ctx, sub.ID)
	if errors.Is(err, ErrNotFound) {
		h.logger.Info("deleted subscription has no holder", zap.String("subscription_ref", sub.ID))
		return nil
	}
	return err
}
