package fulfilment

import (
	"context"
	"fmt"
)

// Next advances the current-position pointer and returns the new index.
//
// Forward motion is gated: a transaction cannot skip an unfinished step, so
// Next fails with ErrInvalidTransition while the current entity is
// incomplete. Once the pointer sits on the terminal entity, Next is a no-op.
// That makes a stale second call from a racing tab observe the settled index
// instead of corrupting state.
func (s *Service) Next(ctx context.Context, id string) (int, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}

	if session.AtTerminal() {
		return session.CurrentIndex, nil
	}

	if !session.Current().Completed {
		s.stats.RecordTransitionDenied()
		return 0, fmt.Errorf("%w: step %d (%s) is not complete",
			ErrInvalidTransition, session.CurrentIndex, session.Current().Kind)
	}

	session.CurrentIndex++
	if err := s.store.Update(ctx, session); err != nil {
		return 0, fmt.Errorf("failed to advance session: %w", err)
	}

	s.logger.Debug("session advanced",
		"session_id", session.ID,
		"index", session.CurrentIndex,
		"kind", session.Current().Kind)

	return session.CurrentIndex, nil
}

// Prev moves the pointer back one step and returns the new index.
//
// Backward motion is ungated: users must be able to revisit and fix an
// earlier step without being blocked by the current step's incomplete state.
// At index 0, Prev is a no-op.
func (s *Service) Prev(ctx context.Context, id string) (int, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}

	if session.CurrentIndex == 0 {
		return 0, nil
	}

	session.CurrentIndex--
	if err := s.store.Update(ctx, session); err != nil {
		return 0, fmt.Errorf("failed to rewind session: %w", err)
	}

	return session.CurrentIndex, nil
}
