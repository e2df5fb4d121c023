/*
store.go - Collaborator interfaces of the timesheet engine

PURPOSE:
  The engine never talks to a database, a scheduler or a message bus
  directly. It consumes these interfaces and the host injects them.

KEY INTERFACES:
  Gateway:          Entry persistence (find, save, bulk-save, delete, search)
  AssignmentSource: Planned work from the scheduling module
  Notifier:         Outbound notifications (bulk validation, lockdown)
  Clock:            Current instant, replaceable in tests

IMPLEMENTATIONS:
  - timesheet/store/memory.go: In-memory Gateway for tests and dev
  - store/sqlite/sqlite.go:    SQLite Gateway + AssignmentSource
  - notify.go:                 LogNotifier (logrus)

CONCURRENCY:
  The engine assumes at most one concurrent mutator per entry. Gateways
  are expected to be safe for concurrent use; Save does not perform
  optimistic locking.
*/
package timesheet

import (
	"context"
	"time"

	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// GATEWAY - Entry persistence
// =============================================================================

type Gateway interface {
	// FindByID returns ErrEntryNotFound (wrapped) for unknown ids.
	FindByID(ctx context.Context, id int64) (*Entry, error)

	// FindByKey looks up the unique (worker, site, date) triple.
	FindByKey(ctx context.Context, workerID, siteID int64, date worktime.Date) (*Entry, error)

	// Save inserts when e.ID == 0 (assigning the id) and updates otherwise.
	// Returns ErrDuplicateEntry when the identity triple is taken.
	Save(ctx context.Context, e *Entry) error

	// SaveBatch saves all entries atomically. Either all succeed or none do.
	SaveBatch(ctx context.Context, entries []*Entry) error

	Delete(ctx context.Context, id int64) error

	// Search returns entries in [From, To] matching the filter, ordered by
	// date, worker and site.
	Search(ctx context.Context, filter Filter) ([]*Entry, error)
}

// Filter narrows a Search. Zero-valued fields match everything.
type Filter struct {
	WorkerID int64
	SiteID   int64
	From     worktime.Date
	To       worktime.Date
	Statuses []Status
}

// Matches applies the filter to one entry. Gateways without a query
// language use it directly.
func (f Filter) Matches(e *Entry) bool {
	if f.WorkerID != 0 && e.WorkerID != f.WorkerID {
		return false
	}
	if f.SiteID != 0 && e.SiteID != f.SiteID {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if e.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

// =============================================================================
// ASSIGNMENT SOURCE - Planned work
// =============================================================================

type AssignmentSource interface {
	// Assignment returns ErrAssignmentNotFound (wrapped) for unknown ids.
	Assignment(ctx context.Context, id int64) (Assignment, error)
}

// =============================================================================
// NOTIFIER
// =============================================================================

type NotificationKind string

const (
	NotifyBulkValidated NotificationKind = "bulk_validated"
	NotifyPeriodLocked  NotificationKind = "period_locked"
)

type Notification struct {
	Kind    NotificationKind
	ActorID int64
	Message string
	Count   int
	Payload map[string]any
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// =============================================================================
// CLOCK
// =============================================================================

type Clock func() time.Time

// SystemClock returns the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }
