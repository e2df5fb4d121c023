package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/site-timesheets/access"
	"github.com/warp/site-timesheets/export/xlsx"
	"github.com/warp/site-timesheets/payroll"
	"github.com/warp/site-timesheets/recap"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// PAY VARIABLES
// =============================================================================

// ListVariables returns the variables of an entry the actor may see.
func (h *Handler) ListVariables(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if _, err := h.Service.Get(ctx, actorID, id); err != nil {
		h.fail(w, "Failed to get entry", err)
		return
	}
	vars, err := h.Store.VariablesByEntry(ctx, id)
	if err != nil {
		h.fail(w, "Failed to list variables", err)
		return
	}
	writeJSON(w, http.StatusOK, toVariableDTOs(vars))
}

// CreateVariable attaches a typed amount to an entry. The entry's month
// must still be open.
func (h *Handler) CreateVariable(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	var req CreateVariableRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	e, err := h.openEntry(ctx, actorID, id)
	if err != nil {
		h.fail(w, "Cannot add variable", err)
		return
	}
	typ, err := payroll.ParseVariableType(req.Type)
	if err != nil {
		h.fail(w, "Invalid variable type", err)
		return
	}
	date := e.Date
	if req.Date != nil {
		date = *req.Date
	}
	if err := timesheet.CheckUnlocked(date, worktime.DateOf(h.now())); err != nil {
		h.fail(w, "Cannot add variable", err)
		return
	}

	v, err := payroll.NewVariable(e.ID, typ, req.Value, date, h.now())
	if err != nil {
		h.fail(w, "Invalid variable", err)
		return
	}
	v.Note = req.Note
	if err := h.Store.SaveVariable(ctx, v); err != nil {
		h.fail(w, "Failed to save variable", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVariableDTO(v))
}

func (h *Handler) DeleteVariable(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	variableID, err := uuid.Parse(chi.URLParam(r, "variableID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid variable ID", err)
		return
	}

	ctx := r.Context()
	if _, err := h.openEntry(ctx, actorID, id); err != nil {
		h.fail(w, "Cannot delete variable", err)
		return
	}
	vars, err := h.Store.VariablesByEntry(ctx, id)
	if err != nil {
		h.fail(w, "Failed to list variables", err)
		return
	}
	for _, v := range vars {
		if v.ID != variableID {
			continue
		}
		if err := timesheet.CheckUnlocked(v.Date, worktime.DateOf(h.now())); err != nil {
			h.fail(w, "Cannot delete variable", err)
			return
		}
		if err := h.Store.DeleteVariable(ctx, variableID); err != nil {
			h.fail(w, "Failed to delete variable", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.fail(w, "Variable not found", fmt.Errorf("%w: %s on entry %d", payroll.ErrVariableNotFound, variableID, id))
}

// openEntry loads an entry the actor may modify and whose month is open.
func (h *Handler) openEntry(ctx context.Context, actorID, id int64) (*timesheet.Entry, error) {
	e, err := h.Service.Get(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if err := timesheet.CheckUnlocked(e.Date, worktime.DateOf(h.now())); err != nil {
		var locked *timesheet.PeriodLockedError
		if errors.As(err, &locked) {
			locked.EntryID = e.ID
		}
		return nil, err
	}
	return e, nil
}

// =============================================================================
// FORMULAS
// =============================================================================

// ListFormulas returns all formulas, or only active ones with ?active=true.
func (h *Handler) ListFormulas(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	formulas, err := h.Store.ListFormulas(r.Context(), activeOnly)
	if err != nil {
		h.fail(w, "Failed to list formulas", err)
		return
	}
	out := make([]FormulaDTO, len(formulas))
	for i, f := range formulas {
		out[i] = toFormulaDTO(h.FormulaFactory, f)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateFormula accepts a factory.FormulaJSON document.
func (h *Handler) CreateFormula(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := access.AuthorizeManageFormulas(actor); err != nil {
		h.fail(w, "Not allowed to manage formulas", err)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	f, err := h.FormulaFactory.ParseFormula(string(body), actor.ID)
	if err != nil {
		h.failFormula(w, err)
		return
	}
	if err := h.Store.SaveFormula(r.Context(), f); err != nil {
		h.fail(w, "Failed to save formula", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFormulaDTO(h.FormulaFactory, f))
}

func (h *Handler) GetFormula(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	f, ok := h.loadFormula(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toFormulaDTO(h.FormulaFactory, f))
}

// UpdateFormula replaces a formula's definition, keeping its id and author.
func (h *Handler) UpdateFormula(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := access.AuthorizeManageFormulas(actor); err != nil {
		h.fail(w, "Not allowed to manage formulas", err)
		return
	}
	existing, ok := h.loadFormula(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	f, err := h.FormulaFactory.ParseFormula(string(body), existing.CreatedBy)
	if err != nil {
		h.failFormula(w, err)
		return
	}
	f.ID = existing.ID
	f.CreatedAt = existing.CreatedAt
	if err := h.Store.SaveFormula(r.Context(), f); err != nil {
		h.fail(w, "Failed to save formula", err)
		return
	}
	writeJSON(w, http.StatusOK, toFormulaDTO(h.FormulaFactory, f))
}

// EvaluateFormula computes a formula without storing anything.
func (h *Handler) EvaluateFormula(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	f, ok := h.loadFormula(w, r)
	if !ok {
		return
	}
	var req EvaluateRequest
	if !decode(w, r, &req) {
		return
	}

	vars := req.Variables
	if req.WorkerID != 0 {
		if req.Year == 0 || req.Month < 1 || req.Month > 12 {
			writeError(w, http.StatusBadRequest, "year and month are required with worker_id", nil)
			return
		}
		entries, err := h.Service.Month(r.Context(), actor.ID, req.WorkerID, req.Year, time.Month(req.Month))
		if err != nil {
			h.fail(w, "Failed to load month", err)
			return
		}
		vars = recap.FormulaContext(entries, req.Variables)
	}
	if vars == nil {
		vars = map[string]float64{}
	}

	result, err := f.Evaluate(vars)
	if err != nil {
		h.failFormula(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{FormulaID: f.ID, Result: result, Context: vars})
}

// ApplyFormula evaluates a formula on one entry's figures and stores the
// result as a pay variable of the formula's target type.
func (h *Handler) ApplyFormula(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	f, ok := h.loadFormula(w, r)
	if !ok {
		return
	}
	var req ApplyRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	e, err := h.openEntry(ctx, actorID, req.EntryID)
	if err != nil {
		h.fail(w, "Cannot apply formula", err)
		return
	}
	v, err := f.Apply(e.ID, e.Date, recap.FormulaContext([]*timesheet.Entry{e}, req.Variables), h.now())
	if err != nil {
		h.failFormula(w, err)
		return
	}
	if err := h.Store.SaveVariable(ctx, v); err != nil {
		h.fail(w, "Failed to save variable", err)
		return
	}
	h.Log.WithField("formula_id", f.ID).WithField("entry_id", e.ID).Info("formula applied")
	writeJSON(w, http.StatusCreated, toVariableDTO(v))
}

func (h *Handler) loadFormula(w http.ResponseWriter, r *http.Request) (*payroll.Formula, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid formula ID", err)
		return nil, false
	}
	f, err := h.Store.FindFormula(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to get formula", err)
		return nil, false
	}
	return f, true
}

// failFormula reports formula errors as 422 and anything else through fail.
func (h *Handler) failFormula(w http.ResponseWriter, err error) {
	if payroll.IsFormulaError(err) && statusFor(err) != http.StatusConflict {
		writeError(w, http.StatusUnprocessableEntity, "Invalid formula", err)
		return
	}
	if statusFor(err) == http.StatusInternalServerError {
		// JSON syntax errors from the factory
		writeError(w, http.StatusBadRequest, "Invalid formula document", err)
		return
	}
	h.fail(w, "Formula failed", err)
}

// =============================================================================
// MONTHLY RECAP
// =============================================================================

func (h *Handler) GetRecap(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	rc, ok := h.buildRecap(w, r, actorID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRecapDTO(rc))
}

// ExportRecap streams the recap workbook. Managers and admins only.
func (h *Handler) ExportRecap(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := access.AuthorizeExport(actor); err != nil {
		h.fail(w, "Not allowed to export", err)
		return
	}
	rc, ok := h.buildRecap(w, r, actor.ID)
	if !ok {
		return
	}

	buf, err := xlsx.Recap(rc)
	if err != nil {
		h.fail(w, "Failed to build workbook", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, xlsx.FileName(rc)))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Log.WithError(err).Warn("write recap workbook")
	}
}

func (h *Handler) buildRecap(w http.ResponseWriter, r *http.Request, actorID int64) (*recap.MonthlyRecap, bool) {
	workerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid worker ID", err)
		return nil, false
	}
	year, month, ok := yearMonth(w, r)
	if !ok {
		return nil, false
	}

	ctx := r.Context()
	entries, err := h.Service.Month(ctx, actorID, workerID, year, month)
	if err != nil {
		h.fail(w, "Failed to load month", err)
		return nil, false
	}
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	period := worktime.MonthOf(year, month)
	vars, err := h.Store.VariablesByEntries(ctx, ids, period.From, period.To)
	if err != nil {
		h.fail(w, "Failed to load variables", err)
		return nil, false
	}
	return recap.Build(workerID, year, month, entries, vars), true
}
