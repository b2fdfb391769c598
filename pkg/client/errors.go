package client

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is(). They mirror the error codes the
// server returns in its JSON error body.
var (
	// ErrSessionNotFound is returned when the session doesn't exist or has expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidArgument is returned when the server rejects the request payload.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidTransition is returned when forward navigation is attempted
	// before the current step is complete.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrTypeMismatch is returned when a step update targets an entity of a
	// different kind or a stale entity ID.
	ErrTypeMismatch = errors.New("type mismatch")
)

// APIError is returned for any non-2xx server response. Its Code field holds
// the machine-readable error code from the response body.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Code is the machine-readable error code ("not_found", "type_mismatch", ...).
	Code string
	// Message is the human-readable error description.
	Message string
}

// Error returns the error message.
func (e *APIError) Error() string {
	return fmt.Sprintf("fulfil [%s]: %s (HTTP %d)", e.Code, e.Message, e.StatusCode)
}

// Is reports whether this error matches a sentinel error.
// It supports errors.Is(err, ErrSessionNotFound) and friends.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrSessionNotFound:
		return e.Code == "not_found"
	case ErrInvalidArgument:
		return e.Code == "invalid_argument"
	case ErrInvalidTransition:
		return e.Code == "invalid_transition"
	case ErrTypeMismatch:
		return e.Code == "type_mismatch"
	}
	return false
}
