package timesheet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/site-timesheets/access"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/timesheet/store"
	"github.com/warp/site-timesheets/worktime"
)

// today for the bulk and service tests: January is locked, February is open.
var now = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

// seed stores an entry for worker on date and moves it to status.
func seed(t *testing.T, m *store.Memory, worker, site int64, date string, status timesheet.Status) *timesheet.Entry {
	t.Helper()
	ctx := context.Background()
	e, err := timesheet.NewEntry(worker, site, worktime.MustParseDate(date), worker, t0)
	require.NoError(t, err)
	require.NoError(t, e.SetDurations(hm(8, 0), nil, t0))
	switch status {
	case timesheet.StatusSubmitted:
		require.NoError(t, e.Submit(t0))
	case timesheet.StatusValidated:
		require.NoError(t, e.Submit(t0))
		require.NoError(t, e.Validate(20, t0))
	case timesheet.StatusRejected:
		require.NoError(t, e.Submit(t0))
		require.NoError(t, e.Reject(20, "check hours", t0))
	}
	require.NoError(t, m.Save(ctx, e))
	return e
}

func TestBulkValidator_PartialFailure(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	notes := &timesheet.RecordingNotifier{}

	// GIVEN: three submitted February entries, one submitted January entry
	// (locked on 2026-02-10) and an unknown id
	a := seed(t, m, 7, 1, "2026-02-02", timesheet.StatusSubmitted)
	b := seed(t, m, 7, 1, "2026-02-03", timesheet.StatusSubmitted)
	jan := seed(t, m, 7, 1, "2026-01-15", timesheet.StatusSubmitted)
	c := seed(t, m, 8, 2, "2026-02-03", timesheet.StatusSubmitted)
	ids := []int64{a.ID, 999, b.ID, jan.ID, c.ID}

	bv := &timesheet.BulkValidator{Gateway: m, Notifier: notes, Clock: fixedClock}

	// WHEN
	res := bv.Run(ctx, ids, 20, nil)

	// THEN: 3 succeed, 2 fail with distinct reasons, order kept
	assert.Equal(t, 3, res.SuccessCount())
	assert.Equal(t, 2, res.FailureCount())
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, res.Succeeded)

	require.Len(t, res.Failed, 2)
	assert.Equal(t, int64(999), res.Failed[0].EntryID)
	assert.Equal(t, timesheet.ReasonNotFound, res.Failed[0].Reason)
	assert.Equal(t, jan.ID, res.Failed[1].EntryID)
	assert.Equal(t, timesheet.ReasonPeriodLocked, res.Failed[1].Reason)
	assert.Contains(t, res.Failed[1].Message, "2026-01-23")

	// Persisted state
	got, err := m.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusValidated, got.Status)
	got, err = m.FindByID(ctx, jan.ID)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusSubmitted, got.Status)

	// One aggregate notification
	sent := notes.Notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, timesheet.NotifyBulkValidated, sent[0].Kind)
	assert.Equal(t, 3, sent[0].Count)
	assert.Equal(t, "3 validated", sent[0].Message)
}

func TestBulkValidator_ReasonsFromGuardTransitionAndSave(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	notes := &timesheet.RecordingNotifier{}

	draft := seed(t, m, 7, 1, "2026-02-02", timesheet.StatusDraft)
	foreign := seed(t, m, 7, 9, "2026-02-03", timesheet.StatusSubmitted)
	broken := seed(t, m, 7, 1, "2026-02-04", timesheet.StatusSubmitted)

	m.SaveHook = func(e *timesheet.Entry) error {
		if e.ID == broken.ID {
			return errors.New("disk full")
		}
		return nil
	}
	policy := access.Policy{RestrictSupervisorsToSites: true}
	supervisor := access.Actor{ID: 20, Role: access.RoleSupervisor, Sites: []int64{1}}

	bv := &timesheet.BulkValidator{Gateway: m, Notifier: notes, Clock: fixedClock}
	res := bv.Run(ctx, []int64{draft.ID, foreign.ID, broken.ID}, supervisor.ID, func(e *timesheet.Entry) error {
		return policy.AuthorizeValidate(supervisor, e.SiteID)
	})

	assert.Equal(t, 0, res.SuccessCount())
	require.Len(t, res.Failed, 3)
	assert.Equal(t, timesheet.ReasonIllegalTransition, res.Failed[0].Reason)
	assert.Equal(t, timesheet.ReasonPermissionDenied, res.Failed[1].Reason)
	assert.Equal(t, timesheet.ReasonPersistence, res.Failed[2].Reason)
	assert.Contains(t, res.Failed[2].Message, "disk full")

	assert.Empty(t, notes.Notifications(), "no notification without a success")

	got, err := m.FindByID(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusSubmitted, got.Status)
}
