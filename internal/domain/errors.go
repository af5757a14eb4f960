package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Verification-flow sentinels. The HTTP layer maps each onto a machine-readable
// error tag; users get the same unhelpful copy either way, but logs and metrics
// must tell tampering, normal expiry, and plain wrong codes apart.
var (
	ErrTokenExpired   = errors.New("verification token expired")
	ErrTokenInvalid   = errors.New("verification token invalid")
	ErrSessionInvalid = errors.New("verification context missing")
	ErrUserNotFound   = errors.New("user not found")
	ErrOTPNotFound    = errors.New("code not found")
	ErrOTPExpired     = errors.New("code expired")
	ErrNoChannel      = errors.New("no verification channel available")
)
