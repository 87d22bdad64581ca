// Package common defines shared constants and sentinel errors used across
// ContactHub components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Credential errors. Deliberately ambiguous between "unknown email" and
	// "wrong password" so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountUnverified  = errors.New("email not confirmed")
	ErrTooManyAttempts    = errors.New("too many login attempts")

	// Token lifecycle errors.
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenKind = errors.New("wrong token kind")
	ErrBadSignature   = errors.New("bad token signature")
	ErrTokenConsumed  = errors.New("token already used")

	// Startup configuration errors, fatal before serving.
	ErrConfig = errors.New("invalid configuration")
)
