package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/sflix/server/internal/utils/errors"
)

const (
	// AuthorizationHeader is the header key for authorization.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens.
	BearerPrefix = "Bearer "
	// UserIDKey is the context key for user ID.
	UserIDKey = "user_id"
	// EmailKey is the context key for email.
	EmailKey = "email"
	// AdminKey is the context key for the administrator flag.
	AdminKey = "is_admin"
)

// Principal is the identity carried by a validated token.
type Principal struct {
	UserID  string
	Email   string
	IsAdmin bool
}

// TokenValidator validates identity tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Principal, error)
}

// Auth returns a middleware that validates bearer tokens.
// If the token is valid, it sets user_id, email and is_admin in the context.
// If optional is true, the middleware will not abort on missing/invalid tokens.
func Auth(validator TokenValidator, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			if !optional {
				abortWithAppError(c, apperrors.Unauthorized("Authorization header required"))
				return
			}
			c.Next()
			return
		}

		principal, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			if optional {
				c.Next()
				return
			}
			if errors.Is(err, apperrors.ErrAccountDisabled) {
				abortWithAppError(c, apperrors.AccountDisabled())
				return
			}
			abortWithAppError(c, apperrors.NewAppError("INVALID_TOKEN", "Invalid or expired token", http.StatusUnauthorized, err))
			return
		}

		c.Set(UserIDKey, principal.UserID)
		c.Set(EmailKey, principal.Email)
		c.Set(AdminKey, principal.IsAdmin)

		c.Next()
	}
}

// RequireAuth returns a middleware that requires a valid token.
func RequireAuth(validator TokenValidator) gin.HandlerFunc {
	return Auth(validator, false)
}

// OptionalAuth returns a middleware that optionally validates tokens.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return Auth(validator, true)
}

// RequireAdmin aborts unless the authenticated caller is an administrator.
// It must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == "" {
			abortWithAppError(c, apperrors.Unauthorized("User not authenticated"))
			return
		}
		if !IsAdmin(c) {
			abortWithAppError(c, apperrors.Forbidden("Insufficient permissions"))
			return
		}
		c.Next()
	}
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if strings.HasPrefix(authHeader, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
	}
	return ""
}

// GetUserID returns the user ID from context, or "" when unauthenticated.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetEmail returns the email from context.
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

// IsAdmin reports whether the authenticated caller is an administrator.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(AdminKey)
}

// IsAuthenticated returns true if the user is authenticated.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != ""
}

func abortWithAppError(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.StatusCode, err.ToResponse())
}
