/*
service.go - Timesheet use cases

PURPOSE:
  Service is the single entry point the API talks to. Every call resolves
  the acting user, checks the permission matrix, checks the payroll lock
  on the entry's date, applies the lifecycle operation and persists.

CALL FLOW:
  actor ──▶ load entry ──▶ authorize ──▶ period lock ──▶ mutate clone ──▶ save

  The stored entry is only replaced when every step succeeded, so a
  failing call never leaves a half-applied change.

LOCK GATING:
  Create, edits, Sign, Submit, Validate, Reject, Delete and BulkValidate are
  gated by the payroll lock. Correct is not: it only reopens a rejected
  entry and the edit that follows is gated.

EXAMPLE:
  svc := timesheet.NewService(gateway, directory, access.Policy{RestrictSupervisorsToSites: true})
  e, err := svc.Create(ctx, actorID, timesheet.CreateInput{WorkerID: 7, SiteID: 3, Date: day})
  e, err = svc.Submit(ctx, actorID, e.ID)

SEE ALSO:
  - entry.go: the lifecycle rules
  - bulk.go: batch validation with per-item failures
  - lock.go: lockdown calendar
*/
package timesheet

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/site-timesheets/access"
	"github.com/warp/site-timesheets/worktime"
)

type Service struct {
	Gateway     Gateway
	Directory   access.Directory
	Policy      access.Policy
	Assignments AssignmentSource
	Notifier    Notifier
	Clock       Clock
	Log         *logrus.Entry
}

// NewService wires the mandatory collaborators. Assignments, Notifier,
// Clock and Log may be replaced afterwards.
func NewService(gateway Gateway, directory access.Directory, policy access.Policy) *Service {
	log := logrus.WithField("component", "timesheet")
	return &Service{
		Gateway:   gateway,
		Directory: directory,
		Policy:    policy,
		Notifier:  LogNotifier{Log: log},
		Clock:     SystemClock,
		Log:       log,
	}
}

// CreateInput carries the fields of a new entry. Nil durations stay zero.
type CreateInput struct {
	WorkerID int64
	SiteID   int64
	Date     worktime.Date
	Normal   *worktime.Duration
	Overtime *worktime.Duration
	Note     string
}

// =============================================================================
// CREATION
// =============================================================================

func (s *Service) Create(ctx context.Context, actorID int64, in CreateInput) (*Entry, error) {
	actor, err := s.Directory.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Authorize(actor, access.CapModify, in.WorkerID, in.SiteID); err != nil {
		return nil, err
	}
	now := s.now()
	if err := CheckUnlocked(in.Date, worktime.DateOf(now)); err != nil {
		return nil, err
	}

	e, err := NewEntry(in.WorkerID, in.SiteID, in.Date, actor.ID, now)
	if err != nil {
		return nil, err
	}
	if err := e.SetDurations(in.Normal, in.Overtime, now); err != nil {
		return nil, err
	}
	if err := e.SetNote(in.Note, now); err != nil {
		return nil, err
	}
	return s.insert(ctx, e)
}

// CreateFromAssignment pre-fills an entry from planned work.
func (s *Service) CreateFromAssignment(ctx context.Context, actorID, assignmentID int64) (*Entry, error) {
	if s.Assignments == nil {
		return nil, fmt.Errorf("%w: no assignment source configured", ErrAssignmentNotFound)
	}
	actor, err := s.Directory.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	a, err := s.Assignments.Assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Authorize(actor, access.CapModify, a.WorkerID, a.SiteID); err != nil {
		return nil, err
	}
	now := s.now()
	if err := CheckUnlocked(a.Date, worktime.DateOf(now)); err != nil {
		return nil, err
	}
	e, err := NewEntryFromAssignment(a, actor.ID, now)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, e)
}

func (s *Service) insert(ctx context.Context, e *Entry) (*Entry, error) {
	if existing, err := s.Gateway.FindByKey(ctx, e.WorkerID, e.SiteID, e.Date); err == nil && existing != nil {
		return nil, &DuplicateEntryError{WorkerID: e.WorkerID, SiteID: e.SiteID, Date: e.Date}
	} else if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if err := s.Gateway.Save(ctx, e); err != nil {
		return nil, err
	}
	s.logger().WithFields(logrus.Fields{
		"entry_id":  e.ID,
		"worker_id": e.WorkerID,
		"site_id":   e.SiteID,
		"date":      e.Date.String(),
	}).Info("entry created")
	return e, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns one entry if the actor may see it. Visibility follows the
// modify capability: workers see their own entries only.
func (s *Service) Get(ctx context.Context, actorID, id int64) (*Entry, error) {
	actor, err := s.Directory.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	e, err := s.Gateway.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Authorize(actor, access.CapModify, e.WorkerID, e.SiteID); err != nil {
		return nil, err
	}
	return e, nil
}

// Search lists entries. Workers are always narrowed to themselves, and
// entries the actor may not see (a restricted supervisor's other sites)
// are dropped, the same rule Get applies.
func (s *Service) Search(ctx context.Context, actorID int64, filter Filter) ([]*Entry, error) {
	actor, err := s.Directory.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role == access.RoleWorker {
		if filter.WorkerID != 0 && filter.WorkerID != actor.ID {
			return nil, s.Policy.Authorize(actor, access.CapModify, filter.WorkerID, filter.SiteID)
		}
		filter.WorkerID = actor.ID
	} else if !actor.Role.Valid() {
		return nil, s.Policy.Authorize(actor, access.CapModify, filter.WorkerID, filter.SiteID)
	}
	if filter.SiteID != 0 {
		if err := s.Policy.Authorize(actor, access.CapModify, filter.WorkerID, filter.SiteID); err != nil {
			return nil, err
		}
	}

	found, err := s.Gateway.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	visible := found[:0]
	for _, e := range found {
		if s.Policy.Allowed(actor, access.CapModify, e.WorkerID, e.SiteID) {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// Week builds the Monday-to-Sunday view of a worker around anyDate.
func (s *Service) Week(ctx context.Context, actorID, workerID int64, anyDate worktime.Date) (*Week, error) {
	r := worktime.WeekOf(anyDate)
	entries, err := s.Search(ctx, actorID, Filter{WorkerID: workerID, From: r.From, To: r.To})
	if err != nil {
		return nil, err
	}
	return NewWeek(workerID, anyDate, entries), nil
}

// Month returns every entry of a worker dated in the calendar month.
func (s *Service) Month(ctx context.Context, actorID, workerID int64, year int, month time.Month) ([]*Entry, error) {
	r := worktime.MonthOf(year, month)
	return s.Search(ctx, actorID, Filter{WorkerID: workerID, From: r.From, To: r.To})
}

// =============================================================================
// EDITS
// =============================================================================

func (s *Service) UpdateDurations(ctx context.Context, actorID, id int64, normal, overtime *worktime.Duration) (*Entry, error) {
	return s.mutate(ctx, actorID, id, access.CapModify, true, "durations updated", func(e *Entry, now time.Time) error {
		return e.SetDurations(normal, overtime, now)
	})
}

func (s *Service) UpdateNote(ctx context.Context, actorID, id int64, note string) (*Entry, error) {
	return s.mutate(ctx, actorID, id, access.CapModify, true, "note updated", func(e *Entry, now time.Time) error {
		return e.SetNote(note, now)
	})
}

func (s *Service) Sign(ctx context.Context, actorID, id int64, signature string) (*Entry, error) {
	return s.mutate(ctx, actorID, id, access.CapModify, true, "entry signed", func(e *Entry, now time.Time) error {
		return e.Sign(signature, now)
	})
}

func (s *Service) Submit(ctx context.Context, actorID, id int64) (*Entry, error) {
	return s.mutate(ctx, actorID, id, access.CapModify, true, "entry submitted", func(e *Entry, now time.Time) error {
		return e.Submit(now)
	})
}

// Correct reopens a rejected entry. It is not lock-gated.
func (s *Service) Correct(ctx context.Context, actorID, id int64) (*Entry, error) {
	return s.mutate(ctx, actorID, id, access.CapModify, false, "entry reopened", func(e *Entry, now time.Time) error {
		return e.Correct(now)
	})
}

// =============================================================================
// REVIEW
// =============================================================================

func (s *Service) Validate(ctx context.Context, actorID, id int64) (*Entry, error) {
	return s.mutate(ctx, actorID, id, access.CapValidate, true, "entry validated", func(e *Entry, now time.Time) error {
		return e.Validate(actorID, now)
	})
}

func (s *Service) Reject(ctx context.Context, actorID, id int64, reason string) (*Entry, error) {
	return s.mutate(ctx, actorID, id, access.CapReject, true, "entry rejected", func(e *Entry, now time.Time) error {
		return e.Reject(actorID, reason, now)
	})
}

// BulkValidate validates ids one by one on behalf of the actor. The actor
// must hold the validate capability; the site check is applied per item.
func (s *Service) BulkValidate(ctx context.Context, actorID int64, ids []int64) (BulkResult, error) {
	actor, err := s.Directory.Actor(ctx, actorID)
	if err != nil {
		return BulkResult{}, err
	}
	if err := s.Policy.AuthorizeValidate(actor, 0); err != nil {
		return BulkResult{}, err
	}
	b := &BulkValidator{Gateway: s.Gateway, Notifier: s.Notifier, Clock: s.Clock, Log: s.logger()}
	return b.Run(ctx, ids, actor.ID, func(e *Entry) error {
		return s.Policy.AuthorizeValidate(actor, e.SiteID)
	}), nil
}

// =============================================================================
// DELETE
// =============================================================================

func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	actor, err := s.Directory.Actor(ctx, actorID)
	if err != nil {
		return err
	}
	e, err := s.Gateway.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Policy.Authorize(actor, access.CapDelete, e.WorkerID, e.SiteID); err != nil {
		return err
	}
	if !e.CanDelete() {
		return &NotEditableError{EntryID: e.ID, Op: "delete", Status: e.Status}
	}
	if err := CheckUnlocked(e.Date, worktime.DateOf(s.now())); err != nil {
		return withEntryID(err, e.ID)
	}
	if err := s.Gateway.Delete(ctx, id); err != nil {
		return err
	}
	s.logger().WithField("entry_id", id).Info("entry deleted")
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) mutate(
	ctx context.Context,
	actorID, id int64,
	capability access.Capability,
	lockGated bool,
	msg string,
	apply func(e *Entry, now time.Time) error,
) (*Entry, error) {
	actor, err := s.Directory.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	stored, err := s.Gateway.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Authorize(actor, capability, stored.WorkerID, stored.SiteID); err != nil {
		return nil, err
	}
	now := s.now()
	if lockGated {
		if err := CheckUnlocked(stored.Date, worktime.DateOf(now)); err != nil {
			return nil, withEntryID(err, stored.ID)
		}
	}

	e := stored.Clone()
	if err := apply(e, now); err != nil {
		return nil, err
	}
	if err := s.Gateway.Save(ctx, e); err != nil {
		return nil, err
	}
	s.logger().WithFields(logrus.Fields{
		"entry_id": e.ID,
		"actor_id": actor.ID,
		"status":   e.Status,
	}).Info(msg)
	return e, nil
}

func withEntryID(err error, id int64) error {
	if locked, ok := err.(*PeriodLockedError); ok {
		locked.EntryID = id
	}
	return err
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return SystemClock()
	}
	return s.Clock()
}

func (s *Service) logger() *logrus.Entry {
	if s.Log == nil {
		return logrus.WithField("component", "timesheet")
	}
	return s.Log
}
