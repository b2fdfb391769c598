// Package service contains application services.
package service

import (
	"sync"
	"sync/atomic"
)

// StatsService tracks engine runtime statistics using lock-free atomic
// counters. All counter operations are safe for concurrent access from
// multiple goroutines.
type StatsService struct {
	sessionsCreated   atomic.Int64
	sessionsDeleted   atomic.Int64
	sessionsExpired   atomic.Int64
	transitionsDenied atomic.Int64
	typeMismatches    atomic.Int64

	// Per-kind step completion counters (mutex-protected map).
	mu         sync.Mutex
	stepCounts map[string]int64
}

// NewStatsService creates a StatsService with all counters at zero.
func NewStatsService() *StatsService {
	return &StatsService{
		stepCounts: make(map[string]int64),
	}
}

// RecordSessionCreated increments the created-sessions counter.
func (s *StatsService) RecordSessionCreated() {
	s.sessionsCreated.Add(1)
}

// RecordSessionDeleted increments the deleted-sessions counter.
func (s *StatsService) RecordSessionDeleted() {
	s.sessionsDeleted.Add(1)
}

// RecordSessionExpired increments the expired-sessions counter.
// Counted when an access finds a session past its TTL.
func (s *StatsService) RecordSessionExpired() {
	s.sessionsExpired.Add(1)
}

// RecordTransitionDenied increments the rejected-forward-navigation counter.
func (s *StatsService) RecordTransitionDenied() {
	s.transitionsDenied.Add(1)
}

// RecordTypeMismatch increments the mismatched-handler counter.
func (s *StatsService) RecordTypeMismatch() {
	s.typeMismatches.Add(1)
}

// RecordStepCompleted increments the completion counter for the given kind.
// Empty strings are skipped.
func (s *StatsService) RecordStepCompleted(kind string) {
	if kind == "" {
		return
	}
	s.mu.Lock()
	s.stepCounts[kind]++
	s.mu.Unlock()
}

// Stats holds a snapshot of all counters at a point in time.
type Stats struct {
	SessionsCreated   int64            `json:"sessions_created"`
	SessionsDeleted   int64            `json:"sessions_deleted"`
	SessionsExpired   int64            `json:"sessions_expired"`
	TransitionsDenied int64            `json:"transitions_denied"`
	TypeMismatches    int64            `json:"type_mismatches"`
	StepCounts        map[string]int64 `json:"step_counts"`
}

// GetStats returns a snapshot of all counters.
// The snapshot is consistent per-counter but not atomically across all counters.
func (s *StatsService) GetStats() Stats {
	s.mu.Lock()
	sc := make(map[string]int64, len(s.stepCounts))
	for k, v := range s.stepCounts {
		sc[k] = v
	}
	s.mu.Unlock()

	return Stats{
		SessionsCreated:   s.sessionsCreated.Load(),
		SessionsDeleted:   s.sessionsDeleted.Load(),
		SessionsExpired:   s.sessionsExpired.Load(),
		TransitionsDenied: s.transitionsDenied.Load(),
		TypeMismatches:    s.typeMismatches.Load(),
		StepCounts:        sc,
	}
}

// Reset sets all counters to zero.
func (s *StatsService) Reset() {
	s.sessionsCreated.Store(0)
	s.sessionsDeleted.Store(0)
	s.sessionsExpired.Store(0)
	s.transitionsDenied.Store(0)
	s.typeMismatches.Store(0)

	s.mu.Lock()
	s.stepCounts = make(map[string]int64)
	s.mu.Unlock()
}
