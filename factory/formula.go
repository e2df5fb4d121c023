/*
Package factory provides JSON to Go pay formula conversion.

PURPOSE:
  Converts JSON formula definitions into payroll.Formula objects, so payroll
  administrators can ship formulas as configuration. The API accepts the
  same document on POST /api/formulas and the SQLite store keeps the
  parameter map in this shape.

JSON SCHEMA:
  {
    "id": "6f1c0b9e-6f0e-4d55-9f3e-0c1a2d3e4f50",   (optional, generated)
    "name": "Panier repas",
    "category": "indemnites",
    "variable_type": "meal_allowance",
    "expression": "jours_travailles * montant_unitaire",
    "parameters": {"montant_unitaire": 10.10},
    "active": true                                    (optional, default true)
  }

KEY FEATURES:
  - Validates the expression through the sandboxed parser
  - Defaults: active, empty parameter map, category "general"
  - Round-trips through ToJSON

USAGE:
  factory := NewFormulaFactory(time.Now)
  formula, err := factory.ParseFormula(MealAllowanceJSON(10.10), actorID)

SEE ALSO:
  - payroll/formula.go: Formula type and evaluation
  - presets.go: built-in formulas
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/site-timesheets/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// FormulaJSON is the JSON representation of a pay formula.
type FormulaJSON struct {
	ID           string             `json:"id,omitempty"`
	Name         string             `json:"name"`
	Category     string             `json:"category,omitempty"`
	VariableType string             `json:"variable_type"`
	Expression   string             `json:"expression"`
	Parameters   map[string]float64 `json:"parameters,omitempty"`
	Active       *bool              `json:"active,omitempty"`
}

const defaultCategory = "general"

// =============================================================================
// FORMULA FACTORY
// =============================================================================

// FormulaFactory converts JSON formulas to payroll.Formula.
type FormulaFactory struct {
	Now func() time.Time
}

// NewFormulaFactory creates a factory stamping formulas with now.
func NewFormulaFactory(now func() time.Time) *FormulaFactory {
	if now == nil {
		now = time.Now
	}
	return &FormulaFactory{Now: now}
}

// ParseFormula parses a JSON document into a validated Formula.
func (f *FormulaFactory) ParseFormula(jsonStr string, createdBy int64) (*payroll.Formula, error) {
	var fj FormulaJSON
	if err := json.Unmarshal([]byte(jsonStr), &fj); err != nil {
		return nil, fmt.Errorf("failed to parse formula JSON: %w", err)
	}
	return f.FromJSON(fj, createdBy)
}

// ParseFormulas parses a JSON array of formulas. The first invalid one
// aborts with its index.
func (f *FormulaFactory) ParseFormulas(jsonStr string, createdBy int64) ([]*payroll.Formula, error) {
	var list []FormulaJSON
	if err := json.Unmarshal([]byte(jsonStr), &list); err != nil {
		return nil, fmt.Errorf("failed to parse formula list JSON: %w", err)
	}
	out := make([]*payroll.Formula, 0, len(list))
	for i, fj := range list {
		formula, err := f.FromJSON(fj, createdBy)
		if err != nil {
			return nil, fmt.Errorf("formula %d (%s): %w", i, fj.Name, err)
		}
		out = append(out, formula)
	}
	return out, nil
}

// FromJSON converts FormulaJSON to payroll.Formula.
func (f *FormulaFactory) FromJSON(fj FormulaJSON, createdBy int64) (*payroll.Formula, error) {
	target, err := payroll.ParseVariableType(fj.VariableType)
	if err != nil {
		return nil, err
	}
	category := strings.TrimSpace(fj.Category)
	if category == "" {
		category = defaultCategory
	}

	formula, err := payroll.NewFormula(fj.Name, category, target, fj.Expression, fj.Parameters, createdBy, f.Now().UTC())
	if err != nil {
		return nil, err
	}
	if fj.ID != "" {
		id, err := uuid.Parse(fj.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: id %q is not a uuid", payroll.ErrInvalidFormula, fj.ID)
		}
		formula.ID = id
	}
	if fj.Active != nil {
		formula.Active = *fj.Active
	}
	return formula, nil
}

// ToJSON converts a Formula to FormulaJSON.
func (f *FormulaFactory) ToJSON(formula *payroll.Formula) FormulaJSON {
	active := formula.Active
	return FormulaJSON{
		ID:           formula.ID.String(),
		Name:         formula.Name,
		Category:     formula.Category,
		VariableType: string(formula.VariableType),
		Expression:   formula.Expression,
		Parameters:   formula.Parameters,
		Active:       &active,
	}
}
