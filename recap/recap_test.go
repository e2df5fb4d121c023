package recap_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/site-timesheets/payroll"
	"github.com/warp/site-timesheets/recap"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

var at = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func entry(t *testing.T, worker int64, date string, normalH, overtimeH int, s timesheet.Status) *timesheet.Entry {
	t.Helper()
	e, err := timesheet.NewEntry(worker, 1, worktime.MustParseDate(date), worker, at)
	require.NoError(t, err)
	n, o := worktime.MustNew(normalH, 0), worktime.MustNew(overtimeH, 0)
	require.NoError(t, e.SetDurations(&n, &o, at))
	e.Status = s
	return e
}

func variable(t *testing.T, typ payroll.VariableType, date, value string) *payroll.Variable {
	t.Helper()
	v, err := payroll.NewVariable(1, typ, decimal.RequireFromString(value), worktime.MustParseDate(date), at)
	require.NoError(t, err)
	return v
}

func TestBuild_WeeksOfFebruary2026(t *testing.T) {
	// GIVEN: validated entries spread over February plus noise
	v := timesheet.StatusValidated
	entries := []*timesheet.Entry{
		entry(t, 7, "2026-01-30", 8, 0, timesheet.StatusDraft), // January
		entry(t, 7, "2026-02-02", 8, 1, v),
		entry(t, 7, "2026-02-03", 8, 0, v),
		entry(t, 7, "2026-02-16", 7, 2, v),
		entry(t, 7, "2026-02-27", 8, 0, v),
		entry(t, 8, "2026-02-03", 8, 0, timesheet.StatusDraft), // other worker
	}

	// WHEN
	r := recap.Build(7, 2026, time.February, entries, nil)

	// THEN: five ISO weeks, W05 to W09
	require.Len(t, r.Weeks, 5)
	assert.Equal(t, 5, r.Weeks[0].ISOWeek)
	assert.Equal(t, "2026-01-26", r.Weeks[0].Monday.String())
	assert.Equal(t, 1, r.Weeks[0].DaysInMonth)
	assert.Equal(t, 0, r.Weeks[0].EntryCount, "January 30 is outside the month")
	assert.Equal(t, 9, r.Weeks[4].ISOWeek)
	assert.Equal(t, 6, r.Weeks[4].DaysInMonth)

	assert.Equal(t, "17:00", r.Weeks[1].Total.String())
	assert.Equal(t, "17", r.Weeks[1].TotalHours.String())
	assert.Equal(t, timesheet.StatusValidated, r.Weeks[1].Status)
	assert.Equal(t, timesheet.StatusDraft, r.Weeks[2].Status, "empty week")

	assert.Equal(t, "31:00", r.Normal.String())
	assert.Equal(t, "03:00", r.Overtime.String())
	assert.Equal(t, "34:00", r.Total.String())
	assert.Equal(t, 4, r.EntryCount)
	assert.Equal(t, 4, r.WorkedDays)
	assert.True(t, r.AllValidated)
}

func TestBuild_AllValidatedIsFalseWithOneOpenEntry(t *testing.T) {
	for _, open := range []timesheet.Status{timesheet.StatusDraft, timesheet.StatusSubmitted, timesheet.StatusRejected} {
		t.Run(string(open), func(t *testing.T) {
			entries := []*timesheet.Entry{
				entry(t, 7, "2026-02-02", 8, 0, timesheet.StatusValidated),
				entry(t, 7, "2026-02-03", 8, 0, timesheet.StatusValidated),
				entry(t, 7, "2026-02-04", 8, 0, open),
			}
			r := recap.Build(7, 2026, time.February, entries, nil)
			assert.False(t, r.AllValidated)
		})
	}

	empty := recap.Build(7, 2026, time.February, nil, nil)
	assert.False(t, empty.AllValidated)
	assert.Len(t, empty.Weeks, 5)
}

func TestBuild_VariableSummaries(t *testing.T) {
	vars := []*payroll.Variable{
		variable(t, payroll.MealAllowance, "2026-02-02", "10.10"),
		variable(t, payroll.MealAllowance, "2026-02-03", "10.10"),
		variable(t, payroll.MealAllowance, "2026-02-04", "10.10"),
		variable(t, payroll.TransportAllowance, "2026-02-02", "12.80"),
		variable(t, payroll.TransportAllowance, "2026-02-03", "6.40"),
		variable(t, payroll.SickLeave, "2026-02-10", "7.5"),
		variable(t, payroll.SickLeave, "2026-02-11", "7.5"),
		variable(t, payroll.SickLeave, "2026-02-11", "0.5"),
		variable(t, payroll.NightHours, "2026-02-12", "3"),
		variable(t, payroll.MealAllowance, "2026-03-02", "10.10"), // next month
	}

	r := recap.Build(7, 2026, time.February, nil, vars)

	require.Len(t, r.Allowances, 2)
	meal := r.Allowances[0]
	assert.Equal(t, payroll.MealAllowance, meal.Type)
	assert.Equal(t, 3, meal.Count)
	require.NotNil(t, meal.UnitValue)
	assert.Equal(t, "10.1", meal.UnitValue.String())
	assert.Equal(t, "30.3", meal.Total.String())

	transport := r.Allowances[1]
	assert.Nil(t, transport.UnitValue, "amounts differ")
	assert.Equal(t, "19.2", transport.Total.String())

	require.Len(t, r.Absences, 1)
	assert.Equal(t, payroll.SickLeave, r.Absences[0].Type)
	assert.Equal(t, 2, r.Absences[0].Days)
	assert.Equal(t, "15:30", r.Absences[0].Total.String())

	require.Len(t, r.Hours, 1)
	assert.Equal(t, "3", r.Hours[0].Total.String())
}

func TestFormulaContext(t *testing.T) {
	entries := []*timesheet.Entry{
		entry(t, 7, "2026-02-02", 8, 1, timesheet.StatusDraft),
		entry(t, 7, "2026-02-03", 7, 0, timesheet.StatusDraft),
		entry(t, 7, "2026-02-04", 0, 0, timesheet.StatusDraft),
	}

	ctx := recap.FormulaContext(entries, map[string]float64{recap.KeyDistanceKm: 120})

	assert.Equal(t, 2.0, ctx[recap.KeyWorkedDays])
	assert.Equal(t, 15.0, ctx[recap.KeyNormalHours])
	assert.Equal(t, 1.0, ctx[recap.KeyOvertimeHours])
	assert.Equal(t, 16.0, ctx[recap.KeyTotalHours])
	assert.Equal(t, 0.0, ctx[recap.KeyWeatherDays])
	assert.Equal(t, 120.0, ctx[recap.KeyDistanceKm])
	for _, k := range recap.ContextKeys {
		assert.Contains(t, ctx, k)
	}
}

func TestFormulaContext_FeedsFormula(t *testing.T) {
	entries := []*timesheet.Entry{
		entry(t, 7, "2026-02-02", 8, 0, timesheet.StatusDraft),
		entry(t, 7, "2026-02-03", 8, 0, timesheet.StatusDraft),
	}
	f, err := payroll.NewFormula("Panier", "indemnites", payroll.MealAllowance,
		"jours_travailles * montant_unitaire", map[string]float64{"montant_unitaire": 10.10}, 1, at)
	require.NoError(t, err)

	got, err := f.Evaluate(recap.FormulaContext(entries, nil))
	require.NoError(t, err)
	assert.Equal(t, "20.2", got.String())
}
