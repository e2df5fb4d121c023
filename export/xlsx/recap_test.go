package xlsx_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/site-timesheets/export/xlsx"
	"github.com/warp/site-timesheets/payroll"
	"github.com/warp/site-timesheets/recap"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
	"github.com/xuri/excelize/v2"
)

var at = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func TestRecap_Workbook(t *testing.T) {
	// GIVEN: a February recap with one validated entry and one allowance
	e, err := timesheet.NewEntry(7, 1, worktime.MustParseDate("2026-02-03"), 7, at)
	require.NoError(t, err)
	n := worktime.MustNew(7, 30)
	require.NoError(t, e.SetDurations(&n, nil, at))
	e.Status = timesheet.StatusValidated
	meal, err := payroll.NewVariable(1, payroll.MealAllowance, decimal.RequireFromString("10.10"), e.Date, at)
	require.NoError(t, err)
	r := recap.Build(7, 2026, time.February, []*timesheet.Entry{e}, []*payroll.Variable{meal})

	// WHEN
	buf, err := xlsx.Recap(r)
	require.NoError(t, err)

	// THEN: the workbook reads back with both sheets filled
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Semaines", "Variables"}, f.GetSheetList())

	rows, err := f.GetRows("Semaines")
	require.NoError(t, err)
	require.Len(t, rows, 1+1+5+1, "title, header, five weeks, total")
	assert.Equal(t, "Semaine", rows[1][0])
	assert.Equal(t, "2026-W06", rows[3][0])
	assert.Equal(t, "07:30", rows[3][5])
	assert.Equal(t, "Total mois", rows[7][0])
	assert.Equal(t, "07:30", rows[7][7])

	vars, err := f.GetRows("Variables")
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "meal_allowance", vars[1][1])
	assert.Equal(t, "10.1", vars[1][4])

	assert.Equal(t, "recap_7_2026-02.xlsx", xlsx.FileName(r))
}
