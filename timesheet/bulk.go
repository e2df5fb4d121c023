package timesheet

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/warp/site-timesheets/access"
	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// BULK VALIDATION - Many entries, isolated failures
// =============================================================================
//
// Each id goes through the same pipeline on its own:
//
//   find ──▶ guard ──▶ period lock ──▶ Validate ──▶ save ──▶ succeeded
//     │        │            │              │          │
//     ▼        ▼            ▼              ▼          ▼
//   not_found  permission_  period_       illegal_    persistence_
//              denied       locked        transition  error
//
// A failing item never stops the others. Results keep the input order.

type FailureReason string

const (
	ReasonNotFound          FailureReason = "not_found"
	ReasonPermissionDenied  FailureReason = "permission_denied"
	ReasonPeriodLocked      FailureReason = "period_locked"
	ReasonIllegalTransition FailureReason = "illegal_transition"
	ReasonPersistence       FailureReason = "persistence_error"
)

// BulkFailure is one rejected id with a machine-readable reason and the
// message of the underlying error.
type BulkFailure struct {
	EntryID int64
	Reason  FailureReason
	Message string
}

type BulkResult struct {
	Succeeded []int64
	Failed    []BulkFailure
}

func (r BulkResult) SuccessCount() int { return len(r.Succeeded) }
func (r BulkResult) FailureCount() int { return len(r.Failed) }

// Guard may veto an item before it is validated (typically a site check).
type Guard func(e *Entry) error

type BulkValidator struct {
	Gateway  Gateway
	Notifier Notifier
	Clock    Clock
	Log      *logrus.Entry
}

// Run validates every id on behalf of validatorID. guard may be nil.
// A single aggregate notification is emitted when at least one item succeeded.
func (b *BulkValidator) Run(ctx context.Context, ids []int64, validatorID int64, guard Guard) BulkResult {
	clock := b.Clock
	if clock == nil {
		clock = SystemClock
	}
	now := clock()
	today := worktime.DateOf(now)

	result := BulkResult{Succeeded: []int64{}, Failed: []BulkFailure{}}
	fail := func(id int64, reason FailureReason, err error) {
		result.Failed = append(result.Failed, BulkFailure{EntryID: id, Reason: reason, Message: err.Error()})
	}

	for _, id := range ids {
		stored, err := b.Gateway.FindByID(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				fail(id, ReasonNotFound, &NotFoundError{EntryID: id})
			} else {
				fail(id, ReasonPersistence, err)
			}
			continue
		}
		if guard != nil {
			if err := guard(stored); err != nil {
				fail(id, reasonFor(err), err)
				continue
			}
		}
		if IsLocked(stored.Date, today) {
			fail(id, ReasonPeriodLocked, &PeriodLockedError{
				EntryID:      id,
				Date:         stored.Date,
				LockdownDate: LockdownDate(stored.Date.Year(), stored.Date.Month()),
			})
			continue
		}
		e := stored.Clone()
		if err := e.Validate(validatorID, now); err != nil {
			fail(id, reasonFor(err), err)
			continue
		}
		if err := b.Gateway.Save(ctx, e); err != nil {
			fail(id, ReasonPersistence, fmt.Errorf("save entry %d: %w", id, err))
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	b.logger().WithFields(logrus.Fields{
		"validator_id": validatorID,
		"requested":    len(ids),
		"succeeded":    result.SuccessCount(),
		"failed":       result.FailureCount(),
	}).Info("bulk validation finished")

	if result.SuccessCount() > 0 && b.Notifier != nil {
		b.Notifier.Notify(ctx, Notification{
			Kind:    NotifyBulkValidated,
			ActorID: validatorID,
			Count:   result.SuccessCount(),
			Message: fmt.Sprintf("%d validated", result.SuccessCount()),
			Payload: map[string]any{"entry_ids": result.Succeeded},
		})
	}
	return result
}

func (b *BulkValidator) logger() *logrus.Entry {
	if b.Log != nil {
		return b.Log
	}
	return logrus.WithField("component", "bulk_validator")
}

func reasonFor(err error) FailureReason {
	switch {
	case errors.Is(err, access.ErrPermissionDenied):
		return ReasonPermissionDenied
	case errors.Is(err, ErrPeriodLocked):
		return ReasonPeriodLocked
	case errors.Is(err, ErrEntryNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrNotEditable):
		return ReasonIllegalTransition
	default:
		return ReasonPersistence
	}
}
