package fulfilment

import (
	"context"
	"fmt"

	"github.com/gatherline/fulfil/internal/domain/entity"
)

// Step handlers: one update method per entity variant.
//
// Each handler validates that the entity at the current index matches both
// the handler's variant and the caller's expected entity ID, then writes the
// payload and marks the step complete. Handlers never advance the pointer;
// the caller must follow up with Next. The separation lets a client retry a
// failed submission without re-navigating, and lets the UI show a
// "submitted, confirm to continue" state.

// UpdatePaymentData records the external checkout reference for the current
// payment step and marks it complete.
func (s *Service) UpdatePaymentData(ctx context.Context, sessionID, entityID string, data entity.PaymentData) error {
	return s.updateStep(ctx, sessionID, entityID, entity.KindPayment, func(rec *entity.Record) {
		d := data
		rec.Payment = &d
	})
}

// UpdateDelayedPaymentData records the external checkout reference for the
// current delayed payment step and marks it complete.
func (s *Service) UpdateDelayedPaymentData(ctx context.Context, sessionID, entityID string, data entity.PaymentData) error {
	return s.updateStep(ctx, sessionID, entityID, entity.KindDelayedPayment, func(rec *entity.Record) {
		d := data
		rec.Payment = &d
	})
}

// UpdateFormSubmissionData records the form response reference for the
// current form submission step and marks it complete.
func (s *Service) UpdateFormSubmissionData(ctx context.Context, sessionID, entityID string, data entity.FormSubmissionData) error {
	return s.updateStep(ctx, sessionID, entityID, entity.KindFormSubmission, func(rec *entity.Record) {
		d := data
		rec.FormSubmission = &d
	})
}

// UpdateWaitlistData records the waitlist contact details for the current
// waitlist step and marks it complete.
func (s *Service) UpdateWaitlistData(ctx context.Context, sessionID, entityID string, data entity.WaitlistData) error {
	return s.updateStep(ctx, sessionID, entityID, entity.KindWaitlist, func(rec *entity.Record) {
		d := data
		rec.Waitlist = &d
	})
}

// updateStep loads the session, checks that the current entity matches the
// expected kind and identity, applies the payload write, and persists.
// Last writer wins on payload fields; a step's payload is only meaningfully
// written once by the active UI surface for that step.
func (s *Service) updateStep(ctx context.Context, sessionID, entityID string, want entity.Kind, apply func(*entity.Record)) error {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}

	current := session.Current()
	if current.Kind != want {
		s.stats.RecordTypeMismatch()
		s.logger.Warn("step handler kind mismatch",
			"session_id", sessionID,
			"want", want,
			"got", current.Kind,
			"index", session.CurrentIndex)
		return fmt.Errorf("%w: current entity is %s, handler expects %s",
			ErrTypeMismatch, current.Kind, want)
	}
	if current.ID != entityID {
		s.stats.RecordTypeMismatch()
		s.logger.Warn("step handler entity ID mismatch",
			"session_id", sessionID,
			"want", entityID,
			"got", current.ID)
		return fmt.Errorf("%w: entity id does not match the current step", ErrTypeMismatch)
	}

	apply(current)
	current.Completed = true

	if err := s.store.Update(ctx, session); err != nil {
		return fmt.Errorf("failed to update step: %w", err)
	}

	s.stats.RecordStepCompleted(string(want))
	s.logger.Debug("step completed",
		"session_id", sessionID,
		"kind", want,
		"index", session.CurrentIndex)

	return nil
}
