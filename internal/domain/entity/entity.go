// Package entity defines the closed set of fulfilment step variants.
//
// Every fulfilment session is an ordered sequence of entities. The variant
// set is fixed: payment, delayed payment, form submission, waitlist, and the
// terminal marker. New variants require changes to the sequencer and step
// handler dispatch, so the set is modelled as a tagged variant rather than an
// open interface.
package entity

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies one step variant.
type Kind string

// The closed variant set.
const (
	KindPayment        Kind = "payment"
	KindDelayedPayment Kind = "delayed_payment"
	KindFormSubmission Kind = "form_submission"
	KindWaitlist       Kind = "waitlist"
	KindTerminal       Kind = "terminal"
)

// Kinds lists every valid kind, in no particular order.
var Kinds = []Kind{
	KindPayment,
	KindDelayedPayment,
	KindFormSubmission,
	KindWaitlist,
	KindTerminal,
}

// ParseKind converts a string tag to a Kind.
// Returns an error for unknown tags.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPayment, KindDelayedPayment, KindFormSubmission, KindWaitlist, KindTerminal:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Valid reports whether k is a member of the closed variant set.
func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

// PaymentData is the payload for payment and delayed payment steps.
// The engine never captures payments itself; it only stores the reference
// handed back by the external checkout flow.
type PaymentData struct {
	// CheckoutRef is the opaque reference token from the external
	// payment capture flow.
	CheckoutRef string `json:"checkout_ref"`
}

// FormSubmissionData is the payload for form submission steps.
type FormSubmissionData struct {
	// FormID identifies the form the user was asked to fill.
	FormID string `json:"form_id"`
	// ResponseID references the submitted response.
	ResponseID string `json:"response_id"`
}

// WaitlistData is the payload for waitlist steps.
type WaitlistData struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Record is one step in a fulfilment session.
//
// Exactly one payload pointer is non-nil, and it matches Kind. Terminal
// records carry no payload and are created already completed. The kind of a
// record never changes after session creation; only the payload and the
// Completed flag mutate.
type Record struct {
	// ID is a unique identifier for this step within its session.
	// Step handlers require callers to echo it back, which guards
	// against stale client state addressing the wrong step.
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	Completed bool   `json:"completed"`

	Payment        *PaymentData        `json:"payment,omitempty"`
	FormSubmission *FormSubmissionData `json:"form_submission,omitempty"`
	Waitlist       *WaitlistData       `json:"waitlist,omitempty"`
}

// NewRecord creates an empty record of the given kind.
// Terminal records are pre-completed; all others start incomplete.
func NewRecord(kind Kind) (Record, error) {
	if !kind.Valid() {
		return Record{}, fmt.Errorf("unknown entity kind %q", kind)
	}
	return Record{
		ID:        uuid.New().String(),
		Kind:      kind,
		Completed: kind == KindTerminal,
	}, nil
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	if r.Payment != nil {
		p := *r.Payment
		out.Payment = &p
	}
	if r.FormSubmission != nil {
		f := *r.FormSubmission
		out.FormSubmission = &f
	}
	if r.Waitlist != nil {
		w := *r.Waitlist
		out.Waitlist = &w
	}
	return out
}
