package plan

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DurationType names how long one billing grant of a plan lasts.
type DurationType string

const (
	DurationWeekly  DurationType = "WEEKLY"
	DurationMonthly DurationType = "MONTHLY"
	DurationYearly  DurationType = "YEARLY"
	DurationCustom  DurationType = "CUSTOM"
)

// IsValid checks if the duration type is known.
func (d DurationType) IsValid() bool {
	switch d {
	case DurationWeekly, DurationMonthly, DurationYearly, DurationCustom:
		return true
	default:
		return false
	}
}

// DurationPolicy is a duration type plus the day count used by CUSTOM.
type DurationPolicy struct {
	Type       DurationType
	CustomDays int
}

// Days returns the number of days one grant covers, or 0 for an invalid policy.
func (p DurationPolicy) Days() int {
	switch p.Type {
	case DurationWeekly:
		return 7
	case DurationMonthly:
		return 30
	case DurationYearly:
		return 365
	case DurationCustom:
		if p.CustomDays > 0 {
			return p.CustomDays
		}
	}
	return 0
}

// Validate reports whether the policy resolves to a positive number of days.
func (p DurationPolicy) Validate() error {
	if !p.Type.IsValid() {
		return ErrInvalidDuration
	}
	if p.Days() <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// ComputeEndDate returns start plus the policy's day count in whole 24h days.
func ComputeEndDate(start time.Time, policy DurationPolicy) (time.Time, error) {
	if err := policy.Validate(); err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(policy.Days()) * 24 * time.Hour), nil
}

// Status is the catalog visibility of a plan.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Plan is a subscription tier definition.
type Plan struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Title            string         `json:"title" gorm:"not null"`
	Description      string         `json:"description"`
	Price            float64        `json:"price" gorm:"not null;index"` // major currency units
	ExternalPriceRef string         `json:"externalPriceRef" gorm:"column:external_price_ref;not null;index"`
	DurationType     DurationType   `json:"durationType" gorm:"column:duration_type;not null"`
	CustomDays       int            `json:"customDays,omitempty" gorm:"column:custom_days;default:0"`
	Features         pq.StringArray `json:"features" gorm:"type:text[]"`
	Status           Status         `json:"status" gorm:"not null;default:active;index"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// TableName returns the database table name.
func (Plan) TableName() string {
	return "subscription_plans"
}

// Policy returns the plan's duration policy.
func (p *Plan) Policy() DurationPolicy {
	return DurationPolicy{Type: p.DurationType, CustomDays: p.CustomDays}
}

// IsActive reports whether the plan can be checked out.
func (p *Plan) IsActive() bool {
	return p.Status == StatusActive
}

// PriceKey renders the price the way it is recorded as a subscription's planType.
func (p *Plan) PriceKey() string {
	return FormatPrice(p.Price)
}

// FormatPrice renders a price without trailing zeros ("499", "9.99").
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
