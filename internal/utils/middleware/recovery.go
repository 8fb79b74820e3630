package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	apperrors "github.com/sflix/server/internal/utils/errors"
	"github.com/sflix/server/internal/utils/requestctx"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 response and an error log line.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				requestctx.Logger(c.Request.Context(), log).Error("panic recovered",
					zap.String("panic", fmt.Sprint(rec)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				abortWithAppError(c, apperrors.Internal("", nil))
			}
		}()
		c.Next()
	}
}
