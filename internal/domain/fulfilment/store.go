package fulfilment

import "context"

// SessionStore provides session persistence.
// This interface is defined in the domain to avoid circular imports.
// Implementations: in-memory, SQLite, Redis.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by ID.
	// Returns ErrSessionNotFound if the session doesn't exist. Stores may
	// also report expired sessions as absent; the service re-checks
	// expiry on every access regardless.
	Get(ctx context.Context, id string) (*Session, error)

	// Update saves changes to an existing session.
	Update(ctx context.Context, session *Session) error

	// Delete removes a session. Deleting a nonexistent session is not an
	// error.
	Delete(ctx context.Context, id string) error
}
