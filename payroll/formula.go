package payroll

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/site-timesheets/payroll/expr"
	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// FORMULA - Administrator-defined pay computation
// =============================================================================
//
// Evaluation order:
//
//   runtime context ──▶ overlay Parameters ──▶ parse ──▶ eval ──▶ round(2)
//   (from timesheets)   (configured rates win)
//
// Evaluation does not look at entry statuses; a formula can be previewed
// on draft weeks.

var (
	ErrInvalidFormula  = errors.New("invalid formula")
	ErrFormulaNotFound = errors.New("formula not found")
	ErrFormulaInactive = errors.New("formula is inactive")
)

type Formula struct {
	ID           uuid.UUID
	Name         string
	Category     string
	VariableType VariableType // type of the variable Apply produces
	Expression   string
	Parameters   map[string]float64
	Active       bool
	CreatedBy    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewFormula builds an active formula after checking that name and
// expression are present and that the expression parses.
func NewFormula(name, category string, target VariableType, expression string, params map[string]float64, createdBy int64, at time.Time) (*Formula, error) {
	f := &Formula{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Category:     strings.TrimSpace(category),
		VariableType: target,
		Expression:   strings.TrimSpace(expression),
		Parameters:   params,
		Active:       true,
		CreatedBy:    createdBy,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	if f.Parameters == nil {
		f.Parameters = map[string]float64{}
	}
	if _, err := f.Check(); err != nil {
		return nil, err
	}
	return f, nil
}

// Check validates the formula without evaluating it and returns the names
// the expression references.
func (f *Formula) Check() ([]string, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidFormula)
	}
	if f.Expression == "" {
		return nil, fmt.Errorf("%w: expression is required", ErrInvalidFormula)
	}
	if f.VariableType != "" && !f.VariableType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariableType, f.VariableType)
	}
	n, err := expr.Parse(f.Expression)
	if err != nil {
		return nil, err
	}
	return expr.Names(n), nil
}

// Inputs lists the names the caller must supply: referenced names that
// are not parameters.
func (f *Formula) Inputs() ([]string, error) {
	names, err := f.Check()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names {
		if _, ok := f.Parameters[n]; !ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Evaluate merges ctx with the parameters (parameters win), evaluates the
// expression and rounds half away from zero to 2 decimals.
func (f *Formula) Evaluate(ctx map[string]float64) (decimal.Decimal, error) {
	if f.Expression == "" {
		return decimal.Zero, fmt.Errorf("%w: expression is required", ErrInvalidFormula)
	}
	vars := make(expr.Vars, len(ctx)+len(f.Parameters))
	for k, v := range ctx {
		vars[k] = v
	}
	for k, v := range f.Parameters {
		vars[k] = v
	}

	n, err := expr.Parse(f.Expression)
	if err != nil {
		return decimal.Zero, err
	}
	v, err := expr.Eval(n, vars)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(v).Round(2), nil
}

// Apply evaluates the formula and wraps the result in a variable of the
// formula's target type for entryID.
func (f *Formula) Apply(entryID int64, date worktime.Date, ctx map[string]float64, at time.Time) (*Variable, error) {
	if !f.Active {
		return nil, fmt.Errorf("%w: %s", ErrFormulaInactive, f.Name)
	}
	if !f.VariableType.Valid() {
		return nil, fmt.Errorf("%w: formula %s has no target variable type", ErrInvalidFormula, f.Name)
	}
	value, err := f.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	v, err := NewVariable(entryID, f.VariableType, value, date, at)
	if err != nil {
		return nil, err
	}
	id := f.ID
	v.FormulaID = &id
	v.Note = f.Name
	return v, nil
}

// IsFormulaError reports evaluation failures a user can fix by changing
// the expression or its inputs.
func IsFormulaError(err error) bool {
	return errors.Is(err, expr.ErrUnsafeExpression) ||
		errors.Is(err, expr.ErrUnknownVariable) ||
		errors.Is(err, expr.ErrArithmetic) ||
		errors.Is(err, ErrInvalidFormula) ||
		errors.Is(err, ErrFormulaInactive) ||
		errors.Is(err, ErrUnknownVariableType) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrInvalidVariable)
}
