// Package fulfilment implements the server-authoritative fulfilment session
// engine: session lifecycle, step sequencing, and per-step data capture.
package fulfilment

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gatherline/fulfil/internal/domain/entity"
)

// DefaultTTL is the default session time-to-live.
const DefaultTTL = 20 * time.Minute

// Session tracks one transaction's progress through its ordered steps.
//
// The entity kind sequence is fixed at creation; only payloads and completion
// flags mutate afterwards. The last entity is always the terminal marker.
type Session struct {
	// ID is a cryptographically random identifier, 32 bytes hex-encoded.
	ID string `json:"id"`
	// ResourceID identifies the transaction's subject, e.g. the event
	// being registered for.
	ResourceID string `json:"resource_id"`
	// Quantity is the unit count the transaction covers, e.g. tickets.
	Quantity int `json:"quantity"`
	// Entities is the ordered step sequence. Fixed length and fixed kind
	// order once created.
	Entities []entity.Record `json:"entities"`
	// CurrentIndex points at the single editable step.
	CurrentIndex int `json:"current_index"`
	// CreatedAt is when the session was created (UTC).
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt is when the session becomes unusable (UTC).
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the session has exceeded its TTL.
func (s *Session) IsExpired() bool {
	return !time.Now().UTC().Before(s.ExpiresAt)
}

// Current returns the entity at the current index.
func (s *Session) Current() *entity.Record {
	return &s.Entities[s.CurrentIndex]
}

// AtTerminal reports whether the pointer sits on the last entity.
func (s *Session) AtTerminal() bool {
	return s.CurrentIndex == len(s.Entities)-1
}

// Kinds returns the ordered kind sequence of the session's entities.
func (s *Session) Kinds() []entity.Kind {
	kinds := make([]entity.Kind, len(s.Entities))
	for i, rec := range s.Entities {
		kinds[i] = rec.Kind
	}
	return kinds
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	out := *s
	out.Entities = make([]entity.Record, len(s.Entities))
	for i, rec := range s.Entities {
		out.Entities[i] = rec.Clone()
	}
	return &out
}

// GenerateSessionID creates a cryptographically random session ID.
// Returns 64 hex characters (32 bytes).
func GenerateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}
