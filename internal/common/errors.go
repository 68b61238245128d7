// Package common defines shared constants and sentinel errors used across
// the sampleapp server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrorForbidden     = errors.New("forbidden")
	ErrTooManyRequests = errors.New("too many requests")

	// Validation errors. models.ValidationErrors matches this value.
	ErrorValidation = errors.New("validation error")

	// Account lifecycle errors.
	ErrAccountNotActivated = errors.New("account not activated")

	// Token errors (activation, reset, session).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
