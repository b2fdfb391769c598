package fulfilment

import "errors"

// Sentinel errors for the engine's failure taxonomy.
// Callers match them with errors.Is.
var (
	// ErrSessionNotFound is returned when a session doesn't exist or has
	// expired. The caller must restart the flow with Init; there is no
	// recovery for an expired session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidArgument is returned for malformed creation requests:
	// empty resource, non-positive quantity, or an unknown entity kind.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidTransition is returned when forward navigation is
	// attempted past an incomplete step.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrTypeMismatch is returned when a step handler is invoked against
	// a current entity of a different kind or identity. Usually stale
	// client state after concurrent navigation.
	ErrTypeMismatch = errors.New("entity type mismatch")
)
