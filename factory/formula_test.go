package factory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/site-timesheets/factory"
	"github.com/warp/site-timesheets/payroll"
	"github.com/warp/site-timesheets/payroll/expr"
	"github.com/warp/site-timesheets/recap"
)

func fixedNow() time.Time { return time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC) }

func TestParseFormula(t *testing.T) {
	f := factory.NewFormulaFactory(fixedNow)

	formula, err := f.ParseFormula(`{
		"id": "6f1c0b9e-6f0e-4d55-9f3e-0c1a2d3e4f50",
		"name": "Panier repas",
		"variable_type": "meal_allowance",
		"expression": "jours_travailles * montant_unitaire",
		"parameters": {"montant_unitaire": 10.10}
	}`, 30)
	require.NoError(t, err)

	assert.Equal(t, "6f1c0b9e-6f0e-4d55-9f3e-0c1a2d3e4f50", formula.ID.String())
	assert.Equal(t, "general", formula.Category)
	assert.Equal(t, payroll.MealAllowance, formula.VariableType)
	assert.True(t, formula.Active)
	assert.Equal(t, int64(30), formula.CreatedBy)
	assert.Equal(t, fixedNow(), formula.CreatedAt)
}

func TestParseFormula_Errors(t *testing.T) {
	f := factory.NewFormulaFactory(fixedNow)

	_, err := f.ParseFormula(`{not json`, 1)
	assert.Error(t, err)

	_, err = f.ParseFormula(`{"name": "x", "variable_type": "bonus", "expression": "1"}`, 1)
	assert.ErrorIs(t, err, payroll.ErrUnknownVariableType)

	_, err = f.ParseFormula(`{"name": "x", "variable_type": "meal_allowance", "expression": "open('/etc/passwd')"}`, 1)
	assert.ErrorIs(t, err, expr.ErrUnsafeExpression)

	_, err = f.ParseFormula(`{"id": "nope", "name": "x", "variable_type": "meal_allowance", "expression": "1"}`, 1)
	assert.ErrorIs(t, err, payroll.ErrInvalidFormula)
}

func TestParseFormulas_ReportsIndex(t *testing.T) {
	f := factory.NewFormulaFactory(fixedNow)

	_, err := f.ParseFormulas(`[
		{"name": "ok", "variable_type": "meal_allowance", "expression": "1"},
		{"name": "bad", "variable_type": "meal_allowance", "expression": "x."}
	]`, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "formula 1 (bad)")
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := factory.NewFormulaFactory(fixedNow)
	inactive := false

	original, err := f.FromJSON(factory.FormulaJSON{
		Name: "Prime", Category: "primes", VariableType: "tooling_bonus",
		Expression: "forfait", Parameters: map[string]float64{"forfait": 12}, Active: &inactive,
	}, 1)
	require.NoError(t, err)

	back, err := f.FromJSON(f.ToJSON(original), 1)
	require.NoError(t, err)
	assert.Equal(t, original.ID, back.ID)
	assert.Equal(t, original.Parameters, back.Parameters)
	assert.False(t, back.Active)
}

func TestPresets_ParseAndEvaluate(t *testing.T) {
	f := factory.NewFormulaFactory(fixedNow)
	ctx := map[string]float64{
		recap.KeyWorkedDays:    22,
		recap.KeyDistanceKm:    1000,
		recap.KeyWeatherDays:   3,
		recap.KeyOvertimeHours: 12.5,
	}

	tests := []struct {
		json string
		want string
	}{
		{factory.MealAllowanceJSON(10.10), "222.2"},
		{factory.MileageJSON(0.32, 250), "250"},
		{factory.MileageJSON(0.32, 500), "320"},
		{factory.WeatherBonusJSON(25), "75"},
		{factory.OvertimeNightJSON(10), "2.5"},
	}
	for _, tt := range tests {
		formula, err := f.ParseFormula(tt.json, 1)
		require.NoError(t, err)
		got, err := formula.Evaluate(ctx)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String(), formula.Name)
	}

	assert.Len(t, factory.DefaultPresetsJSON(), 4)
}
