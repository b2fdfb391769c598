// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gatherline/fulfil/internal/domain/fulfilment"
)

// Default cleanup interval for session expiration.
const DefaultCleanupInterval = 1 * time.Minute

// SessionStore implements fulfilment.SessionStore with an in-memory map.
// Thread-safe for concurrent access. The engine's correctness only needs
// lazy expiry on access; the optional background cleanup goroutine exists
// for storage hygiene so abandoned sessions don't accumulate.
type SessionStore struct {
	sessions        map[string]*fulfilment.Session
	mu              sync.RWMutex
	stopChan        chan struct{}
	wg              sync.WaitGroup
	cleanupInterval time.Duration
	once            sync.Once // Prevent double-close panic on Stop()
	logger          *slog.Logger
}

// NewSessionStore creates an in-memory session store with the default
// cleanup interval.
func NewSessionStore(logger *slog.Logger) *SessionStore {
	return NewSessionStoreWithConfig(DefaultCleanupInterval, logger)
}

// NewSessionStoreWithConfig creates an in-memory session store with a custom
// cleanup interval.
func NewSessionStoreWithConfig(cleanupInterval time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		sessions:        make(map[string]*fulfilment.Session),
		stopChan:        make(chan struct{}),
		cleanupInterval: cleanupInterval,
		logger:          logger,
	}
}

// StartCleanup starts the background cleanup goroutine, which periodically
// removes expired sessions. Call Stop() to stop it gracefully.
func (s *SessionStore) StartCleanup(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.cleanup()
			}
		}
	}()
}

// cleanup removes all expired sessions from the store.
func (s *SessionStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleaned := 0
	for id, sess := range s.sessions {
		if sess.IsExpired() {
			delete(s.sessions, id)
			cleaned++
		}
	}

	if cleaned > 0 {
		s.logger.Debug("cleaned expired sessions", "count", cleaned)
	}
}

// Stop stops the background cleanup goroutine and waits for it to exit.
// Safe to call multiple times.
func (s *SessionStore) Stop() {
	s.once.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, sess *fulfilment.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation.
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Get retrieves a session by ID.
// Returns fulfilment.ErrSessionNotFound if the session doesn't exist or is
// expired. Expired sessions are not deleted here; the domain service and
// the background cleanup handle deletion.
func (s *SessionStore) Get(ctx context.Context, id string) (*fulfilment.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fulfilment.ErrSessionNotFound
	}
	if sess.IsExpired() {
		return nil, fulfilment.ErrSessionNotFound
	}

	// Return a copy to prevent mutation.
	return sess.Clone(), nil
}

// Update saves changes to an existing session.
func (s *SessionStore) Update(ctx context.Context, sess *fulfilment.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; !ok {
		return fulfilment.ErrSessionNotFound
	}

	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Size returns the number of sessions currently stored.
// Useful for testing cleanup behavior.
func (s *SessionStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Compile-time interface verification.
var _ fulfilment.SessionStore = (*SessionStore)(nil)
