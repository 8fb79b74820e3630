package user

import "errors"

// Module errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidUsername    = errors.New("username must be 1 to 50 characters")
	ErrCannotDisableSelf  = errors.New("cannot disable your own account")
)
