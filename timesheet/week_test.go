package timesheet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

func entryOn(t *testing.T, worker, site int64, date string, normal, overtime *worktime.Duration, s timesheet.Status) *timesheet.Entry {
	t.Helper()
	e, err := timesheet.NewEntry(worker, site, worktime.MustParseDate(date), worker, t0)
	require.NoError(t, err)
	require.NoError(t, e.SetDurations(normal, overtime, t0))
	e.Status = s
	return e
}

func TestNewWeek_FiltersWorkerAndWindow(t *testing.T) {
	// GIVEN: entries for two workers across three weeks
	entries := []*timesheet.Entry{
		entryOn(t, 7, 1, "2026-02-09", hm(8, 0), nil, timesheet.StatusDraft), // previous week
		entryOn(t, 7, 2, "2026-02-11", hm(7, 0), hm(1, 0), timesheet.StatusDraft),
		entryOn(t, 7, 1, "2026-02-10", hm(8, 0), nil, timesheet.StatusDraft), // previous week
		entryOn(t, 7, 1, "2026-02-16", hm(8, 0), nil, timesheet.StatusDraft),
		entryOn(t, 8, 1, "2026-02-17", hm(8, 0), nil, timesheet.StatusDraft), // other worker
		entryOn(t, 7, 1, "2026-02-22", hm(4, 0), nil, timesheet.StatusDraft), // Sunday
		entryOn(t, 7, 1, "2026-02-23", hm(8, 0), nil, timesheet.StatusDraft), // next week
	}

	// WHEN: building the week of Wednesday 2026-02-18
	w := timesheet.NewWeek(7, worktime.MustParseDate("2026-02-18"), entries)

	// THEN: Monday 16 to Sunday 22, two entries
	assert.Equal(t, "2026-02-16", w.Monday.String())
	assert.Equal(t, "2026-02-22", w.Sunday().String())
	require.Len(t, w.Entries(), 2)
	assert.Equal(t, "12:00", w.Total().String())
	assert.Len(t, w.Days(), 7)
}

func TestWeek_Totals(t *testing.T) {
	entries := []*timesheet.Entry{
		entryOn(t, 7, 1, "2026-02-16", hm(8, 0), hm(1, 30), timesheet.StatusDraft),
		entryOn(t, 7, 2, "2026-02-16", hm(2, 0), nil, timesheet.StatusDraft),
		entryOn(t, 7, 1, "2026-02-17", hm(8, 15), hm(0, 45), timesheet.StatusDraft),
		entryOn(t, 7, 1, "2026-02-18", hm(8, 0), nil, timesheet.StatusDraft),
		entryOn(t, 7, 1, "2026-02-19", hm(8, 0), hm(2, 0), timesheet.StatusDraft),
		entryOn(t, 7, 1, "2026-02-20", hm(7, 0), nil, timesheet.StatusDraft),
	}
	w := timesheet.NewWeek(7, worktime.MustParseDate("2026-02-16"), entries)

	assert.Equal(t, "41:15", w.TotalNormal().String())
	assert.Equal(t, "04:15", w.TotalOvertime().String())
	assert.Equal(t, "45:30", w.Total().String(), "weekly totals go past 24h")

	days := w.TotalsByDay()
	require.Len(t, days, 7)
	assert.Equal(t, "2026-02-16", days[0].Date.String())
	assert.Equal(t, "11:30", days[0].Total.String())
	assert.True(t, days[5].Total.IsZero())
	assert.True(t, days[6].Total.IsZero())

	sites := w.TotalsBySite()
	assert.Equal(t, "43:30", sites[1].String())
	assert.Equal(t, "02:00", sites[2].String())

	assert.True(t, w.IsComplete())
}

func TestWeek_IsComplete_NeedsEveryWeekday(t *testing.T) {
	entries := []*timesheet.Entry{
		entryOn(t, 7, 1, "2026-02-16", hm(8, 0), nil, timesheet.StatusDraft),
		entryOn(t, 7, 1, "2026-02-17", hm(8, 0), nil, timesheet.StatusDraft),
		entryOn(t, 7, 1, "2026-02-19", hm(8, 0), nil, timesheet.StatusDraft),
		entryOn(t, 7, 1, "2026-02-20", hm(8, 0), nil, timesheet.StatusDraft),
		entryOn(t, 7, 1, "2026-02-21", hm(8, 0), nil, timesheet.StatusDraft),
	}
	w := timesheet.NewWeek(7, worktime.MustParseDate("2026-02-16"), entries)
	assert.False(t, w.IsComplete(), "Wednesday missing; Saturday does not count")
}

func TestGlobalStatusOf_Precedence(t *testing.T) {
	d, s, v, r := timesheet.StatusDraft, timesheet.StatusSubmitted, timesheet.StatusValidated, timesheet.StatusRejected

	tests := []struct {
		name     string
		statuses []timesheet.Status
		want     timesheet.Status
	}{
		{"empty week", nil, d},
		{"all validated", []timesheet.Status{v, v, v}, v},
		{"one submitted", []timesheet.Status{v, s, v}, s},
		{"draft beats submitted", []timesheet.Status{s, d, v}, d},
		{"rejected beats everything", []timesheet.Status{v, s, d, r}, r},
		{"rejected alone", []timesheet.Status{r}, r},
		{"rejected among validated", []timesheet.Status{v, v, r, v}, r},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, timesheet.GlobalStatusOf(tt.statuses))
		})
	}
}

func TestWeek_GlobalStatus_RejectedWins(t *testing.T) {
	entries := []*timesheet.Entry{
		entryOn(t, 7, 1, "2026-02-16", hm(8, 0), nil, timesheet.StatusValidated),
		entryOn(t, 7, 1, "2026-02-17", hm(8, 0), nil, timesheet.StatusSubmitted),
		entryOn(t, 7, 1, "2026-02-18", hm(8, 0), nil, timesheet.StatusDraft),
		entryOn(t, 7, 1, "2026-02-19", hm(8, 0), nil, timesheet.StatusRejected),
	}
	w := timesheet.NewWeek(7, worktime.MustParseDate("2026-02-16"), entries)
	assert.Equal(t, timesheet.StatusRejected, w.GlobalStatus())
}
