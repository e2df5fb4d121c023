package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/warp/site-timesheets/payroll"
	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// PAY VARIABLES (payroll.VariableStore interface)
// =============================================================================

const variableColumns = `id, entry_id, var_type, value, var_date, note, formula_id, created_at`

func (s *Store) SaveVariable(ctx context.Context, v *payroll.Variable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var formulaID sql.NullString
	if v.FormulaID != nil {
		formulaID = sql.NullString{String: v.FormulaID.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pay_variables (`+variableColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			var_type = excluded.var_type,
			value = excluded.value,
			var_date = excluded.var_date,
			note = excluded.note
	`, v.ID.String(), v.EntryID, string(v.Type), v.Value.String(), v.Date, v.Note, formulaID, formatTime(v.CreatedAt))
	if isForeignKeyError(err) {
		return errors.Wrapf(payroll.ErrInvalidVariable, "entry %d does not exist", v.EntryID)
	}
	return errors.Wrapf(err, "save variable %s", v.ID)
}

func (s *Store) VariablesByEntry(ctx context.Context, entryID int64) ([]*payroll.Variable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryVariables(ctx, `SELECT `+variableColumns+` FROM pay_variables
		WHERE entry_id = ? ORDER BY var_date, var_type, created_at`, entryID)
}

func (s *Store) VariablesByEntries(ctx context.Context, entryIDs []int64, from, to worktime.Date) ([]*payroll.Variable, error) {
	if len(entryIDs) == 0 {
		return []*payroll.Variable{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	args := make([]any, 0, len(entryIDs)+2)
	for _, id := range entryIDs {
		args = append(args, id)
	}
	query := `SELECT ` + variableColumns + ` FROM pay_variables
		WHERE entry_id IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(entryIDs)), ", ") + `)`
	if !from.IsZero() {
		query += " AND var_date >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND var_date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY var_date, var_type, created_at"
	return s.queryVariables(ctx, query, args...)
}

func (s *Store) DeleteVariable(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM pay_variables WHERE id = ?`, id.String())
	if err != nil {
		return errors.Wrapf(err, "delete variable %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(payroll.ErrVariableNotFound, "variable %s", id)
	}
	return nil
}

func (s *Store) queryVariables(ctx context.Context, query string, args ...any) ([]*payroll.Variable, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query variables")
	}
	defer rows.Close()

	out := []*payroll.Variable{}
	for rows.Next() {
		var (
			v              payroll.Variable
			id, typ, value string
			formulaID      sql.NullString
			createdAt      string
		)
		if err := rows.Scan(&id, &v.EntryID, &typ, &value, &v.Date, &v.Note, &formulaID, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan variable")
		}
		if v.ID, err = uuid.Parse(id); err != nil {
			return nil, errors.Wrapf(err, "variable id %q", id)
		}
		if v.Value, err = decimal.NewFromString(value); err != nil {
			return nil, errors.Wrapf(err, "variable %s value", id)
		}
		if formulaID.Valid {
			fid, err := uuid.Parse(formulaID.String)
			if err != nil {
				return nil, errors.Wrapf(err, "variable %s formula id", id)
			}
			v.FormulaID = &fid
		}
		v.Type = payroll.VariableType(typ)
		v.CreatedAt = parseTime(createdAt)
		out = append(out, &v)
	}
	return out, rows.Err()
}

// =============================================================================
// FORMULAS (payroll.FormulaStore interface)
// =============================================================================

const formulaColumns = `id, name, category, variable_type, expression, parameters_json, active, created_by, created_at, updated_at`

func (s *Store) SaveFormula(ctx context.Context, f *payroll.Formula) error {
	params := f.Parameters
	if params == nil {
		params = map[string]float64{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return errors.Wrapf(err, "encode parameters of formula %s", f.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pay_formulas (`+formulaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			variable_type = excluded.variable_type,
			expression = excluded.expression,
			parameters_json = excluded.parameters_json,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, f.ID.String(), f.Name, f.Category, string(f.VariableType), f.Expression, string(paramsJSON),
		f.Active, f.CreatedBy, formatTime(f.CreatedAt), formatTime(f.UpdatedAt))
	return errors.Wrapf(err, "save formula %s", f.ID)
}

func (s *Store) FindFormula(ctx context.Context, id uuid.UUID) (*payroll.Formula, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+formulaColumns+` FROM pay_formulas WHERE id = ?`, id.String())
	f, err := scanFormula(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(payroll.ErrFormulaNotFound, "formula %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find formula %s", id)
	}
	return f, nil
}

func (s *Store) ListFormulas(ctx context.Context, activeOnly bool) ([]*payroll.Formula, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + formulaColumns + ` FROM pay_formulas`
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "list formulas")
	}
	defer rows.Close()

	out := []*payroll.Formula{}
	for rows.Next() {
		f, err := scanFormula(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan formula")
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanFormula(row scanner) (*payroll.Formula, error) {
	var (
		f                    payroll.Formula
		id, typ, paramsJSON  string
		createdAt, updatedAt string
	)
	if err := row.Scan(&id, &f.Name, &f.Category, &typ, &f.Expression, &paramsJSON,
		&f.Active, &f.CreatedBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.Wrapf(err, "formula id %q", id)
	}
	f.ID = parsed
	f.VariableType = payroll.VariableType(typ)
	if err := json.Unmarshal([]byte(paramsJSON), &f.Parameters); err != nil {
		return nil, errors.Wrapf(err, "decode parameters of formula %s", id)
	}
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}
