package timesheet

import (
	"sort"
	"time"

	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// WEEK - Read-model over one worker's ISO week
// =============================================================================

// Week holds a worker's entries for Monday..Sunday. Entries are referenced,
// not copied, and are supplied by the caller.
type Week struct {
	WorkerID int64
	Monday   worktime.Date
	entries  []*Entry
}

// DayTotal is one row of the per-day breakdown.
type DayTotal struct {
	Date     worktime.Date
	Normal   worktime.Duration
	Overtime worktime.Duration
	Total    worktime.Duration
}

// NewWeek attaches the worker's entries whose date falls in the ISO week
// containing anyDate. Entries of other workers or other weeks are ignored.
func NewWeek(workerID int64, anyDate worktime.Date, entries []*Entry) *Week {
	span := worktime.WeekOf(anyDate)
	w := &Week{WorkerID: workerID, Monday: span.From}
	for _, e := range entries {
		if e.WorkerID == workerID && span.Contains(e.Date) {
			w.entries = append(w.entries, e)
		}
	}
	sort.SliceStable(w.entries, func(i, j int) bool {
		if !w.entries[i].Date.Equal(w.entries[j].Date) {
			return w.entries[i].Date.Before(w.entries[j].Date)
		}
		return w.entries[i].SiteID < w.entries[j].SiteID
	})
	return w
}

func (w *Week) Sunday() worktime.Date { return w.Monday.AddDays(6) }
func (w *Week) Range() worktime.Range { return worktime.Range{From: w.Monday, To: w.Sunday()} }
func (w *Week) Entries() []*Entry { return w.entries }

// Days lists the seven dates Monday to Sunday.
func (w *Week) Days() []worktime.Date { return w.Range().Days() }

func (w *Week) TotalNormal() worktime.Duration {
	var d worktime.Duration
	for _, e := range w.entries {
		d = d.Add(e.Normal)
	}
	return d
}

func (w *Week) TotalOvertime() worktime.Duration {
	var d worktime.Duration
	for _, e := range w.entries {
		d = d.Add(e.Overtime)
	}
	return d
}

func (w *Week) Total() worktime.Duration { return w.TotalNormal().Add(w.TotalOvertime()) }

// TotalsByDay returns seven rows, Monday first, including empty days.
func (w *Week) TotalsByDay() []DayTotal {
	rows := make([]DayTotal, 7)
	for i := range rows {
		rows[i].Date = w.Monday.AddDays(i)
	}
	for _, e := range w.entries {
		i := int(e.Date.Time().Sub(w.Monday.Time()).Hours() / 24)
		rows[i].Normal = rows[i].Normal.Add(e.Normal)
		rows[i].Overtime = rows[i].Overtime.Add(e.Overtime)
		rows[i].Total = rows[i].Total.Add(e.Total())
	}
	return rows
}

// TotalsBySite returns the total duration worked on each site.
func (w *Week) TotalsBySite() map[int64]worktime.Duration {
	totals := make(map[int64]worktime.Duration)
	for _, e := range w.entries {
		totals[e.SiteID] = totals[e.SiteID].Add(e.Total())
	}
	return totals
}

// IsComplete is true when every weekday Monday..Friday has an entry.
func (w *Week) IsComplete() bool {
	seen := make(map[time.Weekday]bool)
	for _, e := range w.entries {
		seen[e.Date.Weekday()] = true
	}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		if !seen[wd] {
			return false
		}
	}
	return true
}

func (w *Week) GlobalStatus() Status {
	statuses := make([]Status, len(w.entries))
	for i, e := range w.entries {
		statuses[i] = e.Status
	}
	return GlobalStatusOf(statuses)
}

// GlobalStatusOf derives one status for a set of entries. Precedence:
// rejected, then draft, then submitted; validated only when every entry is
// validated. An empty set is draft.
func GlobalStatusOf(statuses []Status) Status {
	var anyDraft, anySubmitted bool
	allValidated := len(statuses) > 0
	for _, s := range statuses {
		switch s {
		case StatusRejected:
			return StatusRejected
		case StatusDraft:
			anyDraft = true
		case StatusSubmitted:
			anySubmitted = true
		}
		if s != StatusValidated {
			allValidated = false
		}
	}
	switch {
	case anyDraft:
		return StatusDraft
	case anySubmitted:
		return StatusSubmitted
	case allValidated:
		return StatusValidated
	default:
		return StatusDraft
	}
}
