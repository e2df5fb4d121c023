package factory

import (
	"encoding/json"

	"github.com/warp/site-timesheets/payroll"
	"github.com/warp/site-timesheets/recap"
)

// =============================================================================
// PRESET FORMULAS
// =============================================================================

// MealAllowanceJSON returns JSON for the daily meal allowance ("panier").
func MealAllowanceJSON(unitAmount float64) string {
	return presetJSON(FormulaJSON{
		Name:         "Panier repas",
		Category:     "indemnites",
		VariableType: string(payroll.MealAllowance),
		Expression:   recap.KeyWorkedDays + " * montant_unitaire",
		Parameters:   map[string]float64{"montant_unitaire": unitAmount},
	})
}

// MileageJSON returns JSON for the transport allowance paid per kilometre,
// capped at a monthly ceiling.
func MileageJSON(ratePerKm, monthlyCap float64) string {
	return presetJSON(FormulaJSON{
		Name:         "Indemnite kilometrique",
		Category:     "indemnites",
		VariableType: string(payroll.TransportAllowance),
		Expression:   "min(round(" + recap.KeyDistanceKm + " * taux_km, 2), plafond)",
		Parameters:   map[string]float64{"taux_km": ratePerKm, "plafond": monthlyCap},
	})
}

// WeatherBonusJSON returns JSON for the bad-weather bonus ("intemperies"),
// a flat amount per stopped day.
func WeatherBonusJSON(perDay float64) string {
	return presetJSON(FormulaJSON{
		Name:         "Prime intemperies",
		Category:     "primes",
		VariableType: string(payroll.WeatherBonus),
		Expression:   recap.KeyWeatherDays + " * forfait_jour",
		Parameters:   map[string]float64{"forfait_jour": perDay},
	})
}

// OvertimeNightJSON returns JSON for the night-hours variable derived from
// overtime above a weekly threshold.
func OvertimeNightJSON(threshold float64) string {
	return presetJSON(FormulaJSON{
		Name:         "Heures de nuit",
		Category:     "heures",
		VariableType: string(payroll.NightHours),
		Expression:   "max(" + recap.KeyOvertimeHours + " - seuil, 0)",
		Parameters:   map[string]float64{"seuil": threshold},
	})
}

// DefaultPresetsJSON lists the presets loaded into an empty database.
func DefaultPresetsJSON() []string {
	return []string{
		MealAllowanceJSON(10.10),
		MileageJSON(0.32, 250),
		WeatherBonusJSON(25),
		OvertimeNightJSON(10),
	}
}

func presetJSON(fj FormulaJSON) string {
	b, _ := json.MarshalIndent(fj, "", "  ")
	return string(b)
}
