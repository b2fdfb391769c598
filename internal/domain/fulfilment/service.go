package fulfilment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatherline/fulfil/internal/domain/entity"
)

// Config holds engine configuration.
type Config struct {
	// TTL is the session expiration duration. Default: 20 minutes.
	TTL time.Duration
	// Stats receives runtime counters. Optional.
	Stats StatsRecorder
}

// StatsRecorder receives engine lifecycle counters.
// Implemented by service.StatsService; a no-op is used when absent.
type StatsRecorder interface {
	RecordSessionCreated()
	RecordSessionDeleted()
	RecordSessionExpired()
	RecordTransitionDenied()
	RecordTypeMismatch()
	RecordStepCompleted(kind string)
}

type noopStats struct{}

func (noopStats) RecordSessionCreated()      {}
func (noopStats) RecordSessionDeleted()      {}
func (noopStats) RecordSessionExpired()      {}
func (noopStats) RecordTransitionDenied()    {}
func (noopStats) RecordTypeMismatch()        {}
func (noopStats) RecordStepCompleted(string) {}

// Service manages fulfilment session lifecycle, sequencing, and step updates.
type Service struct {
	store  SessionStore
	ttl    time.Duration
	logger *slog.Logger
	stats  StatsRecorder
}

// NewService creates a Service with the given store and config.
func NewService(store SessionStore, cfg Config, logger *slog.Logger) *Service {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	stats := cfg.Stats
	if stats == nil {
		stats = noopStats{}
	}
	return &Service{
		store:  store,
		ttl:    ttl,
		logger: logger,
		stats:  stats,
	}
}

// Init creates a new session for the given resource and quantity.
//
// The kind sequence is taken as given: the engine does not decide which
// steps apply to a transaction, the caller does. A terminal marker is
// appended when the sequence doesn't already end with one. A terminal kind
// anywhere but the last position is rejected.
func (s *Service) Init(ctx context.Context, resourceID string, quantity int, kinds []entity.Kind) (*Session, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("%w: resource id is required", ErrInvalidArgument)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidArgument)
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("%w: entity kinds must not be empty", ErrInvalidArgument)
	}
	for i, kind := range kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: unknown entity kind %q", ErrInvalidArgument, kind)
		}
		if kind == entity.KindTerminal && i != len(kinds)-1 {
			return nil, fmt.Errorf("%w: terminal must be the last entity", ErrInvalidArgument)
		}
	}
	if kinds[len(kinds)-1] != entity.KindTerminal {
		kinds = append(kinds[:len(kinds):len(kinds)], entity.KindTerminal)
	}

	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}

	entities := make([]entity.Record, 0, len(kinds))
	for _, kind := range kinds {
		rec, err := entity.NewRecord(kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		entities = append(entities, rec)
	}

	now := time.Now().UTC()
	session := &Session{
		ID:           id,
		ResourceID:   resourceID,
		Quantity:     quantity,
		Entities:     entities,
		CurrentIndex: 0,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.stats.RecordSessionCreated()
	s.logger.Debug("session created",
		"session_id", session.ID,
		"resource_id", resourceID,
		"quantity", quantity,
		"steps", len(entities))

	return session, nil
}

// GetInfo retrieves a session by ID.
// Returns ErrSessionNotFound if the session doesn't exist or has expired.
func (s *Service) GetInfo(ctx context.Context, id string) (*Session, error) {
	return s.load(ctx, id)
}

// Delete terminates a session. Idempotent: deleting a session that no
// longer exists is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.stats.RecordSessionDeleted()
	return nil
}

// load fetches a session and enforces lazy expiry: an expired session is
// deleted and reported as not found. Expiry is only ever checked here, at
// access time; there is no background sweep requirement for correctness.
func (s *Service) load(ctx context.Context, id string) (*Session, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Double-check expiration (store might not enforce it).
	if session.IsExpired() {
		_ = s.store.Delete(ctx, id)
		s.stats.RecordSessionExpired()
		return nil, ErrSessionNotFound
	}

	return session, nil
}
