package payroll

import (
	"context"

	"github.com/google/uuid"
	"github.com/warp/site-timesheets/worktime"
)

// VariableStore persists pay variables.
type VariableStore interface {
	SaveVariable(ctx context.Context, v *Variable) error
	// VariablesByEntry returns the variables of one entry ordered by date and type.
	VariablesByEntry(ctx context.Context, entryID int64) ([]*Variable, error)
	// VariablesByEntries returns the variables of many entries in [from, to].
	VariablesByEntries(ctx context.Context, entryIDs []int64, from, to worktime.Date) ([]*Variable, error)
	DeleteVariable(ctx context.Context, id uuid.UUID) error
}

// FormulaStore persists pay formulas.
type FormulaStore interface {
	SaveFormula(ctx context.Context, f *Formula) error
	// FindFormula returns ErrFormulaNotFound (wrapped) for unknown ids.
	FindFormula(ctx context.Context, id uuid.UUID) (*Formula, error)
	ListFormulas(ctx context.Context, activeOnly bool) ([]*Formula, error)
}
