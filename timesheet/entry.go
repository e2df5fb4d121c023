/*
Package timesheet implements the timesheet lifecycle engine.

PURPOSE:
  An Entry records what one worker did on one site on one day. This
  package owns its state machine, the weekly read-model, the payroll
  lockdown rule, bulk validation and the Service that ties them to a
  persistence Gateway and the access policy.

ENTRY LIFECYCLE:
  1. Created in draft, optionally pre-filled from a planned Assignment
  2. Worker edits durations/note, signs, submits
  3. Supervisor validates or rejects with a reason
  4. A rejected entry is corrected back to draft (signature cleared) and
     goes round again

FAIL-FAST:
  Every mutating method checks all its preconditions before touching a
  field. A method that returns an error leaves the entry exactly as it was.

TIMESTAMPS:
  Methods take the instant to stamp as a parameter. The Service supplies
  it from its Clock so tests are deterministic.

SEE ALSO:
  - status.go: transition table
  - week.go: weekly aggregate
  - lock.go: payroll lockdown rule
  - service.go: orchestration with gateway, permissions and lock
*/
package timesheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one worker/site/day timesheet record.
// (WorkerID, SiteID, Date) is unique; ID is assigned by the Gateway.
type Entry struct {
	ID       int64
	WorkerID int64
	SiteID   int64
	Date     worktime.Date

	Normal   worktime.Duration
	Overtime worktime.Duration

	Status Status
	Note   string

	// Electronic signature by the worker, set once while draft
	Signature *string
	SignedAt  *time.Time

	// Reviewer stamp, set by validation and by rejection
	ValidatorID     *int64
	ValidatedAt     *time.Time
	RejectionReason *string

	// Planned assignment the entry was pre-filled from
	AssignmentID *int64

	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assignment is a planned day of work from the scheduling module.
type Assignment struct {
	ID       int64
	WorkerID int64
	SiteID   int64
	Date     worktime.Date
	Planned  worktime.Duration
}

// NewEntry creates a draft entry.
func NewEntry(workerID, siteID int64, date worktime.Date, createdBy int64, at time.Time) (*Entry, error) {
	if workerID <= 0 {
		return nil, fmt.Errorf("%w: worker id must be positive, got %d", ErrInvalidEntry, workerID)
	}
	if siteID <= 0 {
		return nil, fmt.Errorf("%w: site id must be positive, got %d", ErrInvalidEntry, siteID)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidEntry)
	}
	return &Entry{
		WorkerID:  workerID,
		SiteID:    siteID,
		Date:      date,
		Status:    StatusDraft,
		CreatedBy: createdBy,
		CreatedAt: at,
		UpdatedAt: at,
	}, nil
}

// NewEntryFromAssignment creates a draft entry whose normal hours are the
// planned hours of the assignment.
func NewEntryFromAssignment(a Assignment, createdBy int64, at time.Time) (*Entry, error) {
	e, err := NewEntry(a.WorkerID, a.SiteID, a.Date, createdBy, at)
	if err != nil {
		return nil, err
	}
	if !a.Planned.WithinDay() {
		return nil, fmt.Errorf("%w: planned %s exceeds one day", worktime.ErrDurationOutOfRange, a.Planned)
	}
	e.Normal = a.Planned
	id := a.ID
	e.AssignmentID = &id
	return e, nil
}

// Total is normal + overtime.
func (e *Entry) Total() worktime.Duration { return e.Normal.Add(e.Overtime) }

func (e *Entry) IsEditable() bool { return IsEditable(e.Status) }
func (e *Entry) IsSigned() bool { return e.Signature != nil }

// CanDelete is true while the entry is draft or rejected.
func (e *Entry) CanDelete() bool { return IsEditable(e.Status) }

// =============================================================================
// FIELD EDITS
// =============================================================================

// SetDurations replaces the durations that are non-nil.
func (e *Entry) SetDurations(normal, overtime *worktime.Duration, at time.Time) error {
	if !e.IsEditable() {
		return &NotEditableError{EntryID: e.ID, Op: "edit", Status: e.Status}
	}
	n, o := e.Normal, e.Overtime
	if normal != nil {
		n = *normal
	}
	if overtime != nil {
		o = *overtime
	}
	if !n.WithinDay() || !o.WithinDay() || !n.Add(o).WithinDay() {
		return fmt.Errorf("%w: entry %d total %s exceeds one day", worktime.ErrDurationOutOfRange, e.ID, n.Add(o))
	}
	e.Normal, e.Overtime = n, o
	e.UpdatedAt = at
	return nil
}

func (e *Entry) SetNote(note string, at time.Time) error {
	if !e.IsEditable() {
		return &NotEditableError{EntryID: e.ID, Op: "edit", Status: e.Status}
	}
	e.Note = note
	e.UpdatedAt = at
	return nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Sign records the worker's electronic signature. Only a draft entry that
// has not been signed yet can be signed.
func (e *Entry) Sign(signature string, at time.Time) error {
	if e.IsSigned() {
		return fmt.Errorf("entry %d: %w", e.ID, ErrAlreadySigned)
	}
	if e.Status != StatusDraft {
		return &NotEditableError{EntryID: e.ID, Op: "sign", Status: e.Status}
	}
	if strings.TrimSpace(signature) == "" {
		return ErrEmptySignature
	}
	signedAt := at
	e.Signature = &signature
	e.SignedAt = &signedAt
	e.UpdatedAt = at
	return nil
}

func (e *Entry) Submit(at time.Time) error {
	if err := e.checkTransition(StatusSubmitted); err != nil {
		return err
	}
	e.Status = StatusSubmitted
	e.UpdatedAt = at
	return nil
}

// Validate approves a submitted entry and clears any earlier rejection reason.
func (e *Entry) Validate(validatorID int64, at time.Time) error {
	if err := e.checkTransition(StatusValidated); err != nil {
		return err
	}
	e.stampReviewer(validatorID, at)
	e.Status = StatusValidated
	e.RejectionReason = nil
	return nil
}

func (e *Entry) Reject(validatorID int64, reason string, at time.Time) error {
	if err := e.checkTransition(StatusRejected); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("entry %d: %w", e.ID, ErrEmptyRejectionReason)
	}
	e.stampReviewer(validatorID, at)
	e.Status = StatusRejected
	e.RejectionReason = &reason
	return nil
}

// Correct reopens a rejected entry as draft. The signature is cleared so the
// worker signs the corrected version; the rejection reason stays visible
// until the next validation.
func (e *Entry) Correct(at time.Time) error {
	if err := e.checkTransition(StatusDraft); err != nil {
		return err
	}
	e.Status = StatusDraft
	e.Signature = nil
	e.SignedAt = nil
	e.UpdatedAt = at
	return nil
}

func (e *Entry) checkTransition(to Status) error {
	if !CanTransition(e.Status, to) {
		return &IllegalTransitionError{EntryID: e.ID, From: e.Status, To: to}
	}
	return nil
}

func (e *Entry) stampReviewer(validatorID int64, at time.Time) {
	id, ts := validatorID, at
	e.ValidatorID = &id
	e.ValidatedAt = &ts
	e.UpdatedAt = at
}

// Clone returns a copy that shares no pointers with e.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Signature = clonePtr(e.Signature)
	c.SignedAt = clonePtr(e.SignedAt)
	c.ValidatorID = clonePtr(e.ValidatorID)
	c.ValidatedAt = clonePtr(e.ValidatedAt)
	c.RejectionReason = clonePtr(e.RejectionReason)
	c.AssignmentID = clonePtr(e.AssignmentID)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
