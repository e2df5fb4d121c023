package recap

import (
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

// Names available to pay formulas.
const (
	KeyWorkedDays    = "jours_travailles"
	KeyNormalHours   = "heures_normales"
	KeyOvertimeHours = "heures_supplementaires"
	KeyTotalHours    = "heures_totales"
	KeyWeatherDays   = "jours_intemperies"
	KeyDistanceKm    = "distance_km"
)

// ContextKeys lists the names FormulaContext always provides.
var ContextKeys = []string{KeyWorkedDays, KeyNormalHours, KeyOvertimeHours, KeyTotalHours, KeyWeatherDays, KeyDistanceKm}

// FormulaContext derives formula inputs from entries. Weather days and
// distance are not recorded on entries and default to 0; extra values are
// merged on top and win.
func FormulaContext(entries []*timesheet.Entry, extra map[string]float64) map[string]float64 {
	var normal, overtime worktime.Duration
	for _, e := range entries {
		normal = normal.Add(e.Normal)
		overtime = overtime.Add(e.Overtime)
	}
	total := normal.Add(overtime)

	ctx := map[string]float64{
		KeyWorkedDays:    float64(workedDays(entries)),
		KeyNormalHours:   normal.DecimalHours().InexactFloat64(),
		KeyOvertimeHours: overtime.DecimalHours().InexactFloat64(),
		KeyTotalHours:    total.DecimalHours().InexactFloat64(),
		KeyWeatherDays:   0,
		KeyDistanceKm:    0,
	}
	for k, v := range extra {
		ctx[k] = v
	}
	return ctx
}
