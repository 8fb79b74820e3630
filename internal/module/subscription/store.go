package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sflix/server/internal/module/plan"
)

// Store persists subscriptions embedded in user documents.
type Store interface {
	// GetSubscription returns the user's subscription, or ErrNotFound when
	// the user document does not exist.
	GetSubscription(ctx context.Context, userID string) (*Subscription, error)
	// MergeSubscription merges patch into the user's subscription, creating
	// the user document if absent. Unrelated user fields are preserved.
	MergeSubscription(ctx context.Context, userID string, patch *Patch) error
	// DemoteExpired marks the subscription inactive only if it is still
	// active with an end date before now. It reports whether a row changed.
	DemoteExpired(ctx context.Context, userID string, now time.Time) (bool, error)
	// ListActive returns every record whose stored status is active.
	ListActive(ctx context.Context) ([]Record, error)
	// ListSubscriptions returns every user holding a subscription.
	ListSubscriptions(ctx context.Context) ([]Record, error)
	// FindBySubscriptionRef returns the record holding a provider subscription.
	FindBySubscriptionRef(ctx context.Context, ref string) (*Record, error)
}

// PlanCatalog is the subset of the plan catalog the lifecycle reads.
type PlanCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
	FindByPrice(ctx context.Context, price float64) (*plan.Plan, error)
	FindByExternalRef(ctx context.Context, ref string) (*plan.Plan, error)
}
