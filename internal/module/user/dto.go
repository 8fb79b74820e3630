package user

import (
	"time"

	"github.com/sflix/server/internal/module/subscription"
	"github.com/sflix/server/internal/utils/pagination"
)

// UpdateProfileRequest represents a profile update request.
type UpdateProfileRequest struct {
	Username string `json:"username" binding:"required"`
}

// UserFilter represents filters for listing users.
type UserFilter struct {
	Email    *string `form:"email"`
	Disabled *bool   `form:"disabled"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID           string                    `json:"id"`
	Email        string                    `json:"email"`
	Username     string                    `json:"username"`
	IsAdmin      bool                      `json:"isAdmin"`
	Disabled     bool                      `json:"disabled"`
	Subscription subscription.Subscription `json:"subscription"`
	CreatedAt    time.Time                 `json:"createdAt"`
}

// ToResponse converts a User to UserResponse.
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		IsAdmin:      u.IsAdmin,
		Disabled:     u.Disabled,
		Subscription: u.Subscription,
		CreatedAt:    u.CreatedAt,
	}
}

// UserListResponse represents a paginated list of users.
type UserListResponse struct {
	Users []*UserResponse `json:"users"`
	pagination.PageInfo
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}
