package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	apperrors "github.com/sflix/server/internal/utils/errors"
	"go.uber.org/zap"
)

// EntitlementChecker reports whether a user currently holds an entitlement.
type EntitlementChecker interface {
	IsEntitled(ctx context.Context, userID string) (bool, error)
}

// RequireEntitlement aborts with 402 unless the caller is currently entitled.
// Administrators bypass the check. It must run after RequireAuth.
func RequireEntitlement(checker EntitlementChecker, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			abortWithAppError(c, apperrors.Unauthorized(""))
			return
		}
		if IsAdmin(c) {
			c.Next()
			return
		}

		entitled, err := checker.IsEntitled(c.Request.Context(), userID)
		if err != nil {
			log.Error("entitlement check failed",
				zap.String("user_id", userID),
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			abortWithAppError(c, apperrors.Internal("entitlement check failed", err))
			return
		}
		if !entitled {
			abortWithAppError(c, apperrors.SubscriptionRequired(""))
			return
		}

		c.Next()
	}
}
