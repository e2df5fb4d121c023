package timesheet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/timesheet/store"
)

func TestLockdown_AnnouncesEachMonthOnce(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	notes := &timesheet.RecordingNotifier{}
	seed(t, m, 7, 1, "2026-01-12", timesheet.StatusDraft)
	seed(t, m, 7, 1, "2026-01-13", timesheet.StatusSubmitted)
	seed(t, m, 7, 1, "2026-01-14", timesheet.StatusValidated)
	seed(t, m, 7, 1, "2026-02-02", timesheet.StatusDraft)

	l := &timesheet.Lockdown{Gateway: m, Runs: m, Notifier: notes}

	// GIVEN: January 20, before January's lockdown date. December is
	// already locked and gets announced with nothing pending.
	runs, err := l.Check(ctx, time.Date(2026, 1, 20, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, time.December, runs[0].Month)
	assert.Equal(t, 0, runs[0].Pending)

	// WHEN: January 24, the day after January's lockdown date
	runs, err = l.Check(ctx, time.Date(2026, 1, 24, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// THEN: only January is announced, with two entries still pending
	require.Len(t, runs, 1)
	assert.Equal(t, time.January, runs[0].Month)
	assert.Equal(t, 2, runs[0].Pending)
	assert.Equal(t, "2026-01-23", runs[0].LockdownDate.String())

	sent := notes.Notifications()
	require.Len(t, sent, 2)
	assert.Equal(t, timesheet.NotifyPeriodLocked, sent[1].Kind)
	assert.Equal(t, 2, sent[1].Count)

	// A later tick in February does not repeat January
	runs, err = l.Check(ctx, time.Date(2026, 2, 3, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Len(t, notes.Notifications(), 2)
}

func TestLockdown_Status(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	seed(t, m, 7, 1, "2026-02-02", timesheet.StatusSubmitted)
	l := &timesheet.Lockdown{Gateway: m, Runs: m}

	st, err := l.Status(ctx, 2026, time.February, time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, st.Locked)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, "2026-02-20", st.LockdownDate.String())
	assert.Nil(t, st.Run)
}
