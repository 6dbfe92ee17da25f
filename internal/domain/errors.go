package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking
// which internal check failed. ErrInvalidCode deliberately covers both a
// mismatched and an expired code; the distinction is logged, never returned.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrValueConflict     = errors.New("pending value already taken")
	ErrDeliveryFailed    = errors.New("delivery failed")
	ErrNoActiveChallenge = errors.New("no active challenge")
	ErrInvalidCode       = errors.New("invalid code")
	ErrForbidden         = errors.New("forbidden")
	ErrMalformedInput    = errors.New("malformed input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
	ErrStorage           = errors.New("storage error")
)
