package auth

import (
	"time"

	"github.com/sflix/server/internal/module/user"
)

// RegisterRequest represents a sign-up request.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
}

// LoginRequest represents a sign-in request.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries an identity token and the signed-in user.
type AuthResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	User      *user.UserResponse `json:"user"`
}
