package logic

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrAliasTaken = errors.New("alias is already taken")
	ErrForbidden  = errors.New("forbidden")
	// ErrValidation wraps every rejected input; the wrapped message is safe to show.
	ErrValidation = errors.New("validation error")
	// ErrCapacityExhausted means every generated code collided.
	ErrCapacityExhausted = errors.New("could not allocate a free short code")

	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("email is not verified")
	ErrAlreadyVerified    = errors.New("email is already verified")
)
