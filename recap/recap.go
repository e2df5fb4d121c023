/*
Package recap builds the monthly payroll recap of one worker.

PURPOSE:
  Payroll needs, per worker and month: hours by ISO week, month totals,
  and the pay variables grouped by class. Build is a pure function over
  entries and variables supplied by the caller.

WEEKS:
  One summary per ISO week overlapping the month. Weeks that straddle a
  month boundary only count the days inside the month:

      February 2026
      W05  Mon 26 Jan .. Sun 01 Feb   (1 day in month)
      W06  Mon 02 Feb .. Sun 08 Feb
      W07  Mon 09 Feb .. Sun 15 Feb
      W08  Mon 16 Feb .. Sun 22 Feb
      W09  Mon 23 Feb .. Sun 01 Mar   (6 days in month)

VARIABLES:
  allowance  count, unit value when every occurrence has the same amount, total
  absence    distinct days, total Duration
  hours      count, total decimal hours

FORMULA CONTEXT:
  FormulaContext turns entries into the names pay formulas reference
  (jours_travailles, heures_normales, ...).
*/
package recap

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/site-timesheets/payroll"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

type WeekSummary struct {
	ISOYear     int
	ISOWeek     int
	Monday      worktime.Date
	Sunday      worktime.Date
	DaysInMonth int
	EntryCount  int

	Normal   worktime.Duration
	Overtime worktime.Duration
	Total    worktime.Duration

	NormalHours   decimal.Decimal
	OvertimeHours decimal.Decimal
	TotalHours    decimal.Decimal

	Status timesheet.Status
}

type AllowanceSummary struct {
	Type      payroll.VariableType
	Count     int
	UnitValue *decimal.Decimal // nil when amounts differ
	Total     decimal.Decimal
}

type AbsenceSummary struct {
	Type  payroll.VariableType
	Days  int
	Total worktime.Duration
}

type HoursSummary struct {
	Type  payroll.VariableType
	Count int
	Total decimal.Decimal
}

type MonthlyRecap struct {
	WorkerID int64
	Year     int
	Month    time.Month
	Period   worktime.Range

	Weeks []WeekSummary

	Normal        worktime.Duration
	Overtime      worktime.Duration
	Total         worktime.Duration
	NormalHours   decimal.Decimal
	OvertimeHours decimal.Decimal
	TotalHours    decimal.Decimal
	WorkedDays    int
	EntryCount    int

	Allowances []AllowanceSummary
	Absences   []AbsenceSummary
	Hours      []HoursSummary

	// AllValidated is true when the month has entries and all of them are
	// validated.
	AllValidated bool
	Status       timesheet.Status
}

// Build aggregates the worker's entries and variables dated in the month.
// Anything outside the month or belonging to another worker is ignored.
func Build(workerID int64, year int, month time.Month, entries []*timesheet.Entry, variables []*payroll.Variable) *MonthlyRecap {
	period := worktime.MonthOf(year, month)
	r := &MonthlyRecap{
		WorkerID: workerID,
		Year:     period.From.Year(),
		Month:    period.From.Month(),
		Period:   period,
	}

	var inMonth []*timesheet.Entry
	for _, e := range entries {
		if e.WorkerID == workerID && period.Contains(e.Date) {
			inMonth = append(inMonth, e)
		}
	}

	for _, span := range worktime.WeeksOverlapping(period) {
		w := buildWeek(workerID, span, period, inMonth)
		r.Weeks = append(r.Weeks, w)
		r.Normal = r.Normal.Add(w.Normal)
		r.Overtime = r.Overtime.Add(w.Overtime)
		r.EntryCount += w.EntryCount
	}
	r.Total = r.Normal.Add(r.Overtime)
	r.NormalHours = r.Normal.DecimalHours()
	r.OvertimeHours = r.Overtime.DecimalHours()
	r.TotalHours = r.Total.DecimalHours()
	r.WorkedDays = workedDays(inMonth)

	statuses := make([]timesheet.Status, len(inMonth))
	for i, e := range inMonth {
		statuses[i] = e.Status
	}
	r.Status = timesheet.GlobalStatusOf(statuses)
	r.AllValidated = len(inMonth) > 0 && r.Status == timesheet.StatusValidated

	var monthVars []*payroll.Variable
	for _, v := range variables {
		if period.Contains(v.Date) {
			monthVars = append(monthVars, v)
		}
	}
	r.Allowances = summarizeAllowances(monthVars)
	r.Absences = summarizeAbsences(monthVars)
	r.Hours = summarizeHours(monthVars)
	return r
}

func buildWeek(workerID int64, span, month worktime.Range, entries []*timesheet.Entry) WeekSummary {
	w := timesheet.NewWeek(workerID, span.From, entries)
	isoYear, isoWeek := span.From.ISOWeek()

	days := 0
	for _, d := range span.Days() {
		if month.Contains(d) {
			days++
		}
	}
	return WeekSummary{
		ISOYear:       isoYear,
		ISOWeek:       isoWeek,
		Monday:        span.From,
		Sunday:        span.To,
		DaysInMonth:   days,
		EntryCount:    len(w.Entries()),
		Normal:        w.TotalNormal(),
		Overtime:      w.TotalOvertime(),
		Total:         w.Total(),
		NormalHours:   w.TotalNormal().DecimalHours(),
		OvertimeHours: w.TotalOvertime().DecimalHours(),
		TotalHours:    w.Total().DecimalHours(),
		Status:        w.GlobalStatus(),
	}
}

func workedDays(entries []*timesheet.Entry) int {
	days := make(map[worktime.Date]bool)
	for _, e := range entries {
		if !e.Total().IsZero() {
			days[e.Date] = true
		}
	}
	return len(days)
}

// =============================================================================
// VARIABLE SUMMARIES
// =============================================================================

func byType(vars []*payroll.Variable, class payroll.Class) map[payroll.VariableType][]*payroll.Variable {
	out := make(map[payroll.VariableType][]*payroll.Variable)
	for _, v := range vars {
		if v.Type.Class() == class {
			out[v.Type] = append(out[v.Type], v)
		}
	}
	return out
}

func summarizeAllowances(vars []*payroll.Variable) []AllowanceSummary {
	groups := byType(vars, payroll.ClassAllowance)
	out := []AllowanceSummary{}
	for _, t := range payroll.TypesOf(payroll.ClassAllowance) {
		group := groups[t]
		if len(group) == 0 {
			continue
		}
		s := AllowanceSummary{Type: t, Count: len(group), Total: decimal.Zero}
		constant := true
		for _, v := range group {
			s.Total = s.Total.Add(v.Value)
			if !v.Value.Equal(group[0].Value) {
				constant = false
			}
		}
		if constant {
			unit := group[0].Value
			s.UnitValue = &unit
		}
		out = append(out, s)
	}
	return out
}

func summarizeAbsences(vars []*payroll.Variable) []AbsenceSummary {
	groups := byType(vars, payroll.ClassAbsence)
	out := []AbsenceSummary{}
	for _, t := range payroll.TypesOf(payroll.ClassAbsence) {
		group := groups[t]
		if len(group) == 0 {
			continue
		}
		days := make(map[worktime.Date]bool)
		var total worktime.Duration
		for _, v := range group {
			days[v.Date] = true
			total = total.Add(v.Duration())
		}
		out = append(out, AbsenceSummary{Type: t, Days: len(days), Total: total})
	}
	return out
}

func summarizeHours(vars []*payroll.Variable) []HoursSummary {
	groups := byType(vars, payroll.ClassHours)
	out := []HoursSummary{}
	for _, t := range payroll.TypesOf(payroll.ClassHours) {
		group := groups[t]
		if len(group) == 0 {
			continue
		}
		s := HoursSummary{Type: t, Count: len(group), Total: decimal.Zero}
		for _, v := range group {
			s.Total = s.Total.Add(v.Value)
		}
		out = append(out, s)
	}
	return out
}
