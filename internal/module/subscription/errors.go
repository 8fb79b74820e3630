package subscription

import "errors"

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrSessionNotFound         = errors.New("checkout session not found")
	ErrNotFound                = errors.New("subscription not found")
	ErrPaymentNotCompleted     = errors.New("payment not completed")
	ErrSessionUserMismatch     = errors.New("checkout session belongs to another user")
	ErrPaymentProvider         = errors.New("payment provider error")
	ErrStore                   = errors.New("store error")
	ErrInvalidStatusTransition = errors.New("invalid subscription status transition")
	ErrConcurrentUpdate        = errors.New("subscription changed concurrently")
)
