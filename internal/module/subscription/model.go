package subscription

import (
	"time"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a subscription may move from one status to
// another. A new checkout may always restart the cycle at pending; an
// inactive subscription is never promoted without one.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusPending:
		return true
	case StatusActive:
		return from == "" || from == StatusPending || from == StatusActive
	case StatusInactive:
		return true
	default:
		return false
	}
}

// UnknownPlanType is recorded when a billed amount matches no catalog plan.
const UnknownPlanType = "unknown"

// Subscription is the billing state embedded in a user document.
type Subscription struct {
	SessionID       string     `json:"sessionId,omitempty"`
	PlanID          string     `json:"planId,omitempty"`
	PriceRef        string     `json:"priceRef,omitempty"`
	PlanType        string     `json:"planType,omitempty"`
	SubscriptionRef string     `json:"subscriptionRef,omitempty" gorm:"index"`
	Status          Status     `json:"status,omitempty" gorm:"index"`
	PlanStartDate   *time.Time `json:"planStartDate,omitempty"`
	PlanEndDate     *time.Time `json:"planEndDate,omitempty" gorm:"index"`
	DurationType    string     `json:"durationType,omitempty"`
	Duration        int        `json:"planDuration,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty" gorm:"autoCreateTime:false"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty" gorm:"autoUpdateTime:false"`
	Version         int64      `json:"version" gorm:"not null;default:0"`
}

// IsZero reports whether no subscription was ever recorded.
func (s *Subscription) IsZero() bool {
	return s.Status == "" && s.SessionID == ""
}

// Record pairs a subscription with the user that owns it.
type Record struct {
	UserID       string
	Email        string
	Username     string
	Subscription Subscription
}

// Patch is a partial subscription update. Nil fields are left untouched.
type Patch struct {
	SessionID       *string
	PlanID          *string
	PriceRef        *string
	PlanType        *string
	SubscriptionRef *string
	Status          *Status
	PlanStartDate   *time.Time
	PlanEndDate     *time.Time
	DurationType    *string
	Duration        *int
	CreatedAt       *time.Time
	UpdatedAt       *time.Time

	// IfVersion makes the write conditional on the stored version.
	IfVersion *int64
}

// Apply merges the patch into sub and bumps its version.
func (p *Patch) Apply(sub *Subscription) {
	if p.SessionID != nil {
		sub.SessionID = *p.SessionID
	}
	if p.PlanID != nil {
		sub.PlanID = *p.PlanID
	}
	if p.PriceRef != nil {
		sub.PriceRef = *p.PriceRef
	}
	if p.PlanType != nil {
		sub.PlanType = *p.PlanType
	}
	if p.SubscriptionRef != nil {
		sub.SubscriptionRef = *p.SubscriptionRef
	}
	if p.Status != nil {
		sub.Status = *p.Status
	}
	if p.PlanStartDate != nil {
		t := *p.PlanStartDate
		sub.PlanStartDate = &t
	}
	if p.PlanEndDate != nil {
		t := *p.PlanEndDate
		sub.PlanEndDate = &t
	}
	if p.DurationType != nil {
		sub.DurationType = *p.DurationType
	}
	if p.Duration != nil {
		sub.Duration = *p.Duration
	}
	if p.CreatedAt != nil {
		t := *p.CreatedAt
		sub.CreatedAt = &t
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		sub.UpdatedAt = &t
	}
	sub.Version++
}

// Columns returns the patch as column/value pairs of the embedded
// subscription, without the embedding prefix.
func (p *Patch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.SessionID != nil {
		cols["session_id"] = *p.SessionID
	}
	if p.PlanID != nil {
		cols["plan_id"] = *p.PlanID
	}
	if p.PriceRef != nil {
		cols["price_ref"] = *p.PriceRef
	}
	if p.PlanType != nil {
		cols["plan_type"] = *p.PlanType
	}
	if p.SubscriptionRef != nil {
		cols["subscription_ref"] = *p.SubscriptionRef
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.PlanStartDate != nil {
		cols["plan_start_date"] = *p.PlanStartDate
	}
	if p.PlanEndDate != nil {
		cols["plan_end_date"] = *p.PlanEndDate
	}
	if p.DurationType != nil {
		cols["duration_type"] = *p.DurationType
	}
	if p.Duration != nil {
		cols["duration"] = *p.Duration
	}
	if p.CreatedAt != nil {
		cols["created_at"] = *p.CreatedAt
	}
	if p.UpdatedAt != nil {
		cols["updated_at"] = *p.UpdatedAt
	}
	return cols
}

func ptr[T any](v T) *T {
	return &v
}
