package timesheet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

func TestLockdownDate(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  string
	}{
		{2026, time.January, "2026-01-23"},
		{2026, time.February, "2026-02-20"},
		{2026, time.March, "2026-03-27"},  // last day Tue 31, Monday 30
		{2026, time.August, "2026-08-28"}, // last day Mon 31 is itself the Monday
		{2024, time.February, "2024-02-23"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := timesheet.LockdownDate(tt.year, tt.month)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, time.Friday, got.Weekday())
		})
	}
}

func TestIsLocked(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		today string
		want  bool
	}{
		{"before lockdown date", "2026-01-05", "2026-01-20", false},
		{"after lockdown date", "2026-01-05", "2026-01-25", true},
		{"future month", "2026-02-10", "2026-02-05", false},
		{"on the lockdown date itself", "2026-01-05", "2026-01-23", false},
		{"day after lockdown date", "2026-01-05", "2026-01-24", true},
		{"previous month", "2026-01-30", "2026-02-02", true},
		{"next month is never locked", "2026-03-02", "2026-02-27", false},
		{"previous year", "2025-12-15", "2026-01-02", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timesheet.IsLocked(worktime.MustParseDate(tt.entry), worktime.MustParseDate(tt.today))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckUnlocked_CarriesLockdownDate(t *testing.T) {
	err := timesheet.CheckUnlocked(worktime.MustParseDate("2026-01-05"), worktime.MustParseDate("2026-01-25"))

	var locked *timesheet.PeriodLockedError
	require.ErrorAs(t, err, &locked)
	assert.ErrorIs(t, err, timesheet.ErrPeriodLocked)
	assert.Equal(t, "2026-01-23", locked.LockdownDate.String())
	assert.Contains(t, err.Error(), "2026-01-23")

	assert.NoError(t, timesheet.CheckUnlocked(worktime.MustParseDate("2026-01-05"), worktime.MustParseDate("2026-01-20")))
}
