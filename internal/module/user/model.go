package user

import (
	"time"

	"github.com/sflix/server/internal/module/subscription"
)

// User represents a registered viewer or administrator.
type User struct {
	ID           string `json:"id" gorm:"type:varchar(64);primaryKey"`
	Email        string `json:"email" gorm:"not null;default:'';uniqueIndex:idx_users_email,where:email <> ''"`
	Username     string `json:"username" gorm:"not null;default:''"`
	PasswordHash string `json:"-" gorm:"column:password_hash;not null;default:''"`
	IsAdmin      bool   `json:"isAdmin" gorm:"column:is_admin;default:false"`
	Disabled     bool   `json:"disabled" gorm:"default:false;index"`

	Subscription subscription.Subscription `json:"subscription" gorm:"embedded;embeddedPrefix:subscription_"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name.
func (User) TableName() string {
	return "users"
}

// CanLogin checks if the user is allowed to sign in.
func (u *User) CanLogin() bool {
	return !u.Disabled && u.PasswordHash != ""
}

// Record returns the user's subscription paired with its owner.
func (u *User) Record() subscription.Record {
	return subscription.Record{
		UserID:       u.ID,
		Email:        u.Email,
		Username:     u.Username,
		Subscription: u.Subscription,
	}
}
