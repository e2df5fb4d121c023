/*
errors.go - Error types for the timesheet engine

PURPOSE:
  All timesheet error types in one place. Every structured error unwraps
  to a sentinel so callers can branch with errors.Is and still render the
  context (entry id, expected vs actual status, lockdown date) with
  errors.As.

ERROR CATEGORIES:
  1. Lifecycle errors - NotEditable, IllegalTransition, AlreadySigned,
     EmptyRejectionReason
  2. Calendar errors  - PeriodLocked
  3. Store errors     - EntryNotFound, DuplicateEntry

  Duration errors live in worktime, permission errors in access and
  formula errors in payroll/expr.

SEE ALSO:
  - entry.go: raises the lifecycle errors
  - lock.go: raises PeriodLockedError
  - api/handlers.go: maps categories to HTTP status codes
*/
package timesheet

import (
	"errors"
	"fmt"

	"github.com/warp/site-timesheets/access"
	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotEditable is returned when a field edit targets a submitted or
	// validated entry.
	ErrNotEditable = errors.New("entry is not editable")

	// ErrIllegalTransition is returned when a status change is not in the
	// transition table.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrAlreadySigned is returned when signing an entry twice.
	ErrAlreadySigned = errors.New("entry already signed")

	// ErrEmptySignature is returned when signing with a blank signature.
	ErrEmptySignature = errors.New("signature is empty")

	// ErrEmptyRejectionReason is returned when rejecting without a reason.
	ErrEmptyRejectionReason = errors.New("rejection reason is required")

	// ErrPeriodLocked is returned when editing or validating an entry whose
	// payroll month is locked.
	ErrPeriodLocked = errors.New("payroll period is locked")

	// ErrEntryNotFound is returned by gateways for unknown ids.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrDuplicateEntry is returned when (worker, site, date) already exists.
	ErrDuplicateEntry = errors.New("entry already exists for worker, site and date")

	// ErrInvalidEntry is returned when identity fields are missing or invalid.
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrAssignmentNotFound is returned by assignment sources for unknown ids.
	ErrAssignmentNotFound = errors.New("assignment not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotEditableError names the entry and the status that blocked the edit.
type NotEditableError struct {
	EntryID int64
	Op      string
	Status  Status
}

func (e *NotEditableError) Error() string {
	return fmt.Sprintf("cannot %s entry %d: status is %s", e.Op, e.EntryID, e.Status)
}

func (e *NotEditableError) Unwrap() error { return ErrNotEditable }

// IllegalTransitionError reports the requested and current status.
type IllegalTransitionError struct {
	EntryID int64
	From    Status
	To      Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("entry %d: cannot move from %s to %s", e.EntryID, e.From, e.To)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// PeriodLockedError carries the date that was touched and the lockdown date
// of its month.
type PeriodLockedError struct {
	EntryID      int64
	Date         worktime.Date
	LockdownDate worktime.Date
}

func (e *PeriodLockedError) Error() string {
	if e.EntryID != 0 {
		return fmt.Sprintf("entry %d on %s is locked: payroll closed on %s", e.EntryID, e.Date, e.LockdownDate)
	}
	return fmt.Sprintf("%s is locked: payroll closed on %s", e.Date, e.LockdownDate)
}

func (e *PeriodLockedError) Unwrap() error { return ErrPeriodLocked }

// NotFoundError names the missing entry.
type NotFoundError struct {
	EntryID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entry %d not found", e.EntryID)
}

func (e *NotFoundError) Unwrap() error { return ErrEntryNotFound }

// DuplicateEntryError names the colliding identity triple.
type DuplicateEntryError struct {
	WorkerID int64
	SiteID   int64
	Date     worktime.Date
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("entry already exists for worker %d on site %d at %s", e.WorkerID, e.SiteID, e.Date)
}

func (e *DuplicateEntryError) Unwrap() error { return ErrDuplicateEntry }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConflict returns true if the error is a state conflict with the stored
// entry (the request was well-formed but the entry's state forbids it).
func IsConflict(err error) bool {
	return errors.Is(err, ErrNotEditable) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrAlreadySigned) ||
		errors.Is(err, ErrPeriodLocked) ||
		errors.Is(err, ErrDuplicateEntry)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyRejectionReason) ||
		errors.Is(err, ErrEmptySignature) ||
		errors.Is(err, ErrInvalidEntry) ||
		errors.Is(err, worktime.ErrDurationOutOfRange) ||
		errors.Is(err, worktime.ErrNegativeDuration) ||
		errors.Is(err, worktime.ErrInvalidDurationFormat)
}

// IsNotFound returns true if the error indicates a missing entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound) || errors.Is(err, ErrAssignmentNotFound)
}

// IsForbidden returns true for permission failures.
func IsForbidden(err error) bool {
	return errors.Is(err, access.ErrPermissionDenied)
}
