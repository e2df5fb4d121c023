package timesheet

import (
	"time"

	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// PERIOD LOCK - Payroll lockdown rule
// =============================================================================
//
// Payroll for a month closes on the Friday before the month's final week:
//
//   last day of month ──▶ most recent Monday ≤ last day ──▶ minus 3 days
//
//   January 2026:  Sat 31 ──▶ Mon 26 ──▶ Fri 23
//   February 2026: Sat 28 ──▶ Mon 23 ──▶ Fri 20
//
// From the day after the lockdown date, entries dated in that month can no
// longer be edited or validated. Months after today's month are never locked.

// LockdownDate returns the payroll lockdown Friday of a month.
func LockdownDate(year int, month time.Month) worktime.Date {
	last := worktime.EndOfMonth(year, month)
	return last.Monday().AddDays(-3)
}

// IsLocked reports whether entryDate's payroll month is locked as of today.
func IsLocked(entryDate, today worktime.Date) bool {
	if monthIndex(entryDate) > monthIndex(today) {
		return false
	}
	return today.After(LockdownDate(entryDate.Year(), entryDate.Month()))
}

// CheckUnlocked returns a PeriodLockedError when IsLocked is true.
func CheckUnlocked(entryDate, today worktime.Date) error {
	if IsLocked(entryDate, today) {
		return &PeriodLockedError{
			Date:         entryDate,
			LockdownDate: LockdownDate(entryDate.Year(), entryDate.Month()),
		}
	}
	return nil
}

func monthIndex(d worktime.Date) int {
	return d.Year()*12 + int(d.Month()) - 1
}
