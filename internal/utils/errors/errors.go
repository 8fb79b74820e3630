// Package errors holds the error values the HTTP middleware chain answers
// with before a request reaches a module handler.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrAccountDisabled      = errors.New("account disabled")
	ErrSubscriptionRequired = errors.New("subscription required")
	ErrRateLimited          = errors.New("rate limited")
	ErrInternal             = errors.New("internal error")
)

// AppError is an error with an HTTP status and a stable code.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body written for an AppError.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToResponse converts e into its response body.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: e.Code, Message: e.Message}}
}

// NewAppError creates a new application error.
func NewAppError(code, message string, statusCode int, err error) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode, Err: err}
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

// Unauthorized is returned when a request carries no usable identity.
func Unauthorized(message string) *AppError {
	return NewAppError("UNAUTHORIZED", orDefault(message, "authentication required"), http.StatusUnauthorized, ErrUnauthorized)
}

// Forbidden is returned when the identity lacks a required role.
func Forbidden(message string) *AppError {
	return NewAppError("FORBIDDEN", orDefault(message, "access denied"), http.StatusForbidden, ErrForbidden)
}

// AccountDisabled is returned for accounts an administrator has disabled.
func AccountDisabled() *AppError {
	return NewAppError("ACCOUNT_DISABLED", "account has been disabled", http.StatusForbidden, ErrAccountDisabled)
}

// SubscriptionRequired is returned to viewers without a current subscription.
func SubscriptionRequired(message string) *AppError {
	return NewAppError("SUBSCRIPTION_REQUIRED", orDefault(message, "an active subscription is required"),
		http.StatusPaymentRequired, ErrSubscriptionRequired)
}

// RateLimited is returned once a caller exhausts its request window.
func RateLimited(message string) *AppError {
	return NewAppError("RATE_LIMITED", orDefault(message, "too many requests"), http.StatusTooManyRequests, ErrRateLimited)
}

// Internal wraps an unexpected failure. A nil err wraps ErrInternal.
func Internal(message string, err error) *AppError {
	if err == nil {
		err = ErrInternal
	}
	return NewAppError("INTERNAL_ERROR", orDefault(message, "internal server error"), http.StatusInternalServerError, err)
}
