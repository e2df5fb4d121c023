package timesheet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var t0 = time.Date(2026, 2, 2, 7, 30, 0, 0, time.UTC)

func hm(h, m int) *worktime.Duration {
	d := worktime.MustNew(h, m)
	return &d
}

func newDraft(t *testing.T) *timesheet.Entry {
	t.Helper()
	e, err := timesheet.NewEntry(7, 3, worktime.NewDate(2026, 2, 2), 7, t0)
	require.NoError(t, err)
	e.ID = 1
	return e
}

func inStatus(t *testing.T, s timesheet.Status) *timesheet.Entry {
	t.Helper()
	e := newDraft(t)
	switch s {
	case timesheet.StatusSubmitted:
		require.NoError(t, e.Submit(t0))
	case timesheet.StatusValidated:
		require.NoError(t, e.Submit(t0))
		require.NoError(t, e.Validate(20, t0))
	case timesheet.StatusRejected:
		require.NoError(t, e.Submit(t0))
		require.NoError(t, e.Reject(20, "missing overtime", t0))
	}
	return e
}

// =============================================================================
// STATUS TABLE
// =============================================================================

func TestCanTransition_ExactlyFourLegalPairs(t *testing.T) {
	legal := map[[2]timesheet.Status]bool{
		{timesheet.StatusDraft, timesheet.StatusSubmitted}:     true,
		{timesheet.StatusSubmitted, timesheet.StatusValidated}: true,
		{timesheet.StatusSubmitted, timesheet.StatusRejected}:  true,
		{timesheet.StatusRejected, timesheet.StatusDraft}:      true,
	}

	illegal := 0
	for _, from := range timesheet.AllStatuses {
		for _, to := range timesheet.AllStatuses {
			want := legal[[2]timesheet.Status{from, to}]
			assert.Equal(t, want, timesheet.CanTransition(from, to), "%s -> %s", from, to)
			if !want {
				illegal++
			}
		}
	}
	assert.Equal(t, 12, illegal)
	assert.False(t, timesheet.CanTransition(timesheet.StatusDraft, timesheet.StatusValidated), "no skip-ahead")
	assert.False(t, timesheet.CanTransition("archived", timesheet.StatusDraft))
}

func TestIsEditable(t *testing.T) {
	for _, s := range timesheet.AllStatuses {
		want := s == timesheet.StatusDraft || s == timesheet.StatusRejected
		assert.Equal(t, want, timesheet.IsEditable(s), s)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := timesheet.ParseStatus("validated")
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusValidated, s)

	_, err = timesheet.ParseStatus("Validated")
	assert.Error(t, err)
}

// =============================================================================
// ENTRY
// =============================================================================

func TestNewEntry_RejectsInvalidIdentity(t *testing.T) {
	day := worktime.NewDate(2026, 2, 2)

	_, err := timesheet.NewEntry(0, 3, day, 1, t0)
	assert.ErrorIs(t, err, timesheet.ErrInvalidEntry)
	_, err = timesheet.NewEntry(7, -1, day, 1, t0)
	assert.ErrorIs(t, err, timesheet.ErrInvalidEntry)
	_, err = timesheet.NewEntry(7, 3, worktime.Date{}, 1, t0)
	assert.ErrorIs(t, err, timesheet.ErrInvalidEntry)

	e, err := timesheet.NewEntry(7, 3, day, 1, t0)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusDraft, e.Status)
	assert.True(t, e.Total().IsZero())
}

func TestNewEntryFromAssignment(t *testing.T) {
	a := timesheet.Assignment{ID: 55, WorkerID: 7, SiteID: 3, Date: worktime.NewDate(2026, 2, 3), Planned: worktime.MustNew(7, 30)}

	e, err := timesheet.NewEntryFromAssignment(a, 20, t0)
	require.NoError(t, err)
	assert.Equal(t, "07:30", e.Normal.String())
	require.NotNil(t, e.AssignmentID)
	assert.Equal(t, int64(55), *e.AssignmentID)

	a.Planned = worktime.FromMinutes(25 * 60)
	_, err = timesheet.NewEntryFromAssignment(a, 20, t0)
	assert.ErrorIs(t, err, worktime.ErrDurationOutOfRange)
}

func TestSetDurations(t *testing.T) {
	e := newDraft(t)

	// GIVEN: a draft entry
	// WHEN: only overtime is given
	require.NoError(t, e.SetDurations(hm(8, 0), nil, t0))
	require.NoError(t, e.SetDurations(nil, hm(1, 30), t0))

	// THEN: normal is kept and total is their sum
	assert.Equal(t, "08:00", e.Normal.String())
	assert.Equal(t, "09:30", e.Total().String())

	// A day cannot exceed 23:59
	err := e.SetDurations(hm(20, 0), hm(5, 0), t0)
	assert.ErrorIs(t, err, worktime.ErrDurationOutOfRange)
	assert.Equal(t, "09:30", e.Total().String(), "failed edit leaves the entry unchanged")
}

func TestMutations_FailOnNonEditableEntries(t *testing.T) {
	for _, s := range []timesheet.Status{timesheet.StatusSubmitted, timesheet.StatusValidated} {
		t.Run(string(s), func(t *testing.T) {
			e := inStatus(t, s)
			before := *e

			assert.ErrorIs(t, e.SetDurations(hm(1, 0), nil, t0), timesheet.ErrNotEditable)
			assert.ErrorIs(t, e.SetNote("x", t0), timesheet.ErrNotEditable)
			assert.ErrorIs(t, e.Sign("J. Martin", t0), timesheet.ErrNotEditable)
			assert.ErrorIs(t, e.Submit(t0), timesheet.ErrIllegalTransition)
			assert.ErrorIs(t, e.Correct(t0), timesheet.ErrIllegalTransition)
			assert.False(t, e.CanDelete())

			assert.Equal(t, before.Status, e.Status)
			assert.Equal(t, before.Normal, e.Normal)
			assert.Equal(t, before.Note, e.Note)
		})
	}
}

func TestNotEditableError_CarriesContext(t *testing.T) {
	e := inStatus(t, timesheet.StatusValidated)

	err := e.SetNote("late fix", t0)

	var ne *timesheet.NotEditableError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, int64(1), ne.EntryID)
	assert.Equal(t, timesheet.StatusValidated, ne.Status)
	assert.True(t, timesheet.IsConflict(err))
}

func TestSign(t *testing.T) {
	e := newDraft(t)

	assert.ErrorIs(t, e.Sign("   ", t0), timesheet.ErrEmptySignature)
	assert.False(t, e.IsSigned())

	require.NoError(t, e.Sign("J. Martin", t0))
	assert.True(t, e.IsSigned())
	require.NotNil(t, e.SignedAt)

	assert.ErrorIs(t, e.Sign("J. Martin", t0), timesheet.ErrAlreadySigned)
}

func TestLifecycle_SubmitValidate(t *testing.T) {
	e := newDraft(t)
	require.NoError(t, e.Submit(t0))

	at := t0.Add(48 * time.Hour)
	require.NoError(t, e.Validate(20, at))

	assert.Equal(t, timesheet.StatusValidated, e.Status)
	require.NotNil(t, e.ValidatorID)
	assert.Equal(t, int64(20), *e.ValidatorID)
	assert.Equal(t, at, *e.ValidatedAt)
	assert.Nil(t, e.RejectionReason)
}

func TestLifecycle_RejectRequiresReason(t *testing.T) {
	e := inStatus(t, timesheet.StatusSubmitted)

	err := e.Reject(20, "  ", t0)
	assert.ErrorIs(t, err, timesheet.ErrEmptyRejectionReason)
	assert.True(t, timesheet.IsClientError(err))
	assert.Equal(t, timesheet.StatusSubmitted, e.Status)
	assert.Nil(t, e.ValidatorID)

	require.NoError(t, e.Reject(20, "wrong site", t0))
	assert.Equal(t, timesheet.StatusRejected, e.Status)
	assert.Equal(t, "wrong site", *e.RejectionReason)
}

func TestLifecycle_ValidateRequiresSubmitted(t *testing.T) {
	e := newDraft(t)

	err := e.Validate(20, t0)

	var it *timesheet.IllegalTransitionError
	require.ErrorAs(t, err, &it)
	assert.Equal(t, timesheet.StatusDraft, it.From)
	assert.Equal(t, timesheet.StatusValidated, it.To)
	assert.Nil(t, e.ValidatorID)
}

func TestLifecycle_CorrectClearsSignatureAndAllowsResigning(t *testing.T) {
	// GIVEN: a signed entry that was submitted and rejected
	e := newDraft(t)
	require.NoError(t, e.Sign("J. Martin", t0))
	require.NoError(t, e.Submit(t0))
	require.NoError(t, e.Reject(20, "hours too high", t0))
	assert.True(t, e.IsEditable())
	assert.True(t, e.CanDelete())

	// WHEN: corrected
	require.NoError(t, e.Correct(t0))

	// THEN: back to draft, unsigned, and can be signed again
	assert.Equal(t, timesheet.StatusDraft, e.Status)
	assert.False(t, e.IsSigned())
	assert.Nil(t, e.SignedAt)
	require.NoError(t, e.Sign("J. Martin", t0))

	// The corrected entry goes through review again; validation clears the reason
	require.NoError(t, e.Submit(t0))
	require.NoError(t, e.Validate(21, t0))
	assert.Nil(t, e.RejectionReason)
}

func TestClone_SharesNoPointers(t *testing.T) {
	e := inStatus(t, timesheet.StatusRejected)
	c := e.Clone()

	*c.RejectionReason = "changed"
	*c.ValidatorID = 99

	assert.Equal(t, "missing overtime", *e.RejectionReason)
	assert.Equal(t, int64(20), *e.ValidatorID)
}
