// Package response writes the {"error", "code"} bodies module handlers answer
// failures with.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every module-level error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ErrorWithCode writes an error body with the given status and code.
func ErrorWithCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// BadRequest writes a 400 INVALID_INPUT body, typically for binding failures.
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusBadRequest, "INVALID_INPUT", message)
}

// ErrorMapping maps a sentinel error to a status and code.
// An empty Message surfaces the error text itself, wrapped context included.
type ErrorMapping struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// HandleError writes the first mapping err matches and reports whether one did.
func HandleError(c *gin.Context, err error, mappings []ErrorMapping) bool {
	for _, m := range mappings {
		if !errors.Is(err, m.Err) {
			continue
		}
		msg := m.Message
		if msg == "" {
			msg = err.Error()
		}
		ErrorWithCode(c, m.Status, m.Code, msg)
		return true
	}
	return false
}

// HandleErrorWithDefault is HandleError with a 500 fallback. The unmapped
// error is attached to the context so the access log records it, while the
// client only sees a generic message.
func HandleErrorWithDefault(c *gin.Context, err error, mappings []ErrorMapping) {
	if HandleError(c, err, mappings) {
		return
	}
	_ = c.Error(err)
	ErrorWithCode(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
}
