/*
scenarios.go - Demo scenario loaders and directory sync

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	site data for demos: actors, planned assignments, entries in every
	lifecycle state, pay variables, and the preset formulas.

AVAILABLE SCENARIOS:

	chantier-demo:   Current week on two sites, entries in every status
	month-end-lock:  Last month half validated, ready for the lockdown run
	empty:           Directory and preset formulas only

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create actors and assignments
 3. Save entries and walk them through the lifecycle
 4. Attach pay variables
 5. Load preset formulas via factory

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "chantier-demo"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler
  - factory/presets.go: Preset formula JSON
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/site-timesheets/access"
	"github.com/warp/site-timesheets/factory"
	"github.com/warp/site-timesheets/payroll"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

// Demo directory.
const (
	demoAdmin      int64 = 1
	demoManager    int64 = 2
	demoSupervisor int64 = 10
	demoForeman    int64 = 11
	demoWorkerA    int64 = 20
	demoWorkerB    int64 = 21
	demoWorkerC    int64 = 22

	siteBridge int64 = 100
	siteSchool int64 = 200
)

var scenarios = []ScenarioDTO{
	{
		ID:          "chantier-demo",
		Name:        "Chantier demo",
		Description: "Current week on two sites with draft, submitted, validated and rejected entries",
	},
	{
		ID:          "month-end-lock",
		Name:        "Month-end lock",
		Description: "Last month partly validated; running the lockdown reports the pending entries",
	},
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "Directory and preset formulas, no entries",
	},
}

// ListScenarios returns all available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	var load func(ctx context.Context) error
	switch req.ScenarioID {
	case "chantier-demo":
		load = h.loadChantierScenario
	case "month-end-lock":
		load = h.loadMonthEndScenario
	case "empty":
		load = func(context.Context) error { return nil }
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	err := h.seedDirectory(ctx)
	if err == nil {
		err = load(ctx)
	}
	if err == nil {
		_, err = h.SeedPresets(ctx)
	}
	if err != nil {
		h.fail(w, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Log.WithField("scenario", req.ScenarioID).Info("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// SeedPresets stores the preset formulas when no formula exists yet. It
// returns the number of formulas created.
func (h *Handler) SeedPresets(ctx context.Context) (int, error) {
	existing, err := h.Store.ListFormulas(ctx, false)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for _, js := range factory.DefaultPresetsJSON() {
		f, err := h.FormulaFactory.ParseFormula(js, demoAdmin)
		if err != nil {
			return 0, errors.Wrap(err, "parse preset")
		}
		if err := h.Store.SaveFormula(ctx, f); err != nil {
			return 0, errors.Wrapf(err, "save preset %s", f.Name)
		}
	}
	return len(factory.DefaultPresetsJSON()), nil
}

// =============================================================================
// DIRECTORY SYNC
// =============================================================================

// PutActor creates or replaces an actor. Admins only.
func (h *Handler) PutActor(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.admin(w, r)
	if !ok {
		return
	}
	var req ActorRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := toActor(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid actor", err)
		return
	}
	if a.ID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid actor", fmt.Errorf("actor id must be positive, got %d", a.ID))
		return
	}
	if err := h.Store.PutActor(r.Context(), a); err != nil {
		h.fail(w, "Failed to save actor", err)
		return
	}
	h.Log.WithFields(logrus.Fields{"actor_id": caller.ID, "target": a.ID, "role": a.Role}).Info("actor saved")
	writeJSON(w, http.StatusOK, req)
}

// PutAssignment creates or replaces a planned assignment. Admins only.
func (h *Handler) PutAssignment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.admin(w, r); !ok {
		return
	}
	var req AssignmentRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID <= 0 || req.WorkerID <= 0 || req.SiteID <= 0 || req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "Invalid assignment", errors.New("id, worker_id, site_id and date are required"))
		return
	}
	a := timesheet.Assignment{
		ID:       req.ID,
		WorkerID: req.WorkerID,
		SiteID:   req.SiteID,
		Date:     req.Date,
		Planned:  req.Planned,
	}
	if err := h.Store.PutAssignment(r.Context(), a); err != nil {
		h.fail(w, "Failed to save assignment", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) admin(w http.ResponseWriter, r *http.Request) (access.Actor, bool) {
	a, ok := h.actor(w, r)
	if !ok {
		return access.Actor{}, false
	}
	if a.Role != access.RoleAdmin {
		h.fail(w, "Admin role required", &access.DeniedError{ActorID: a.ID, Role: a.Role, Capability: "admin"})
		return access.Actor{}, false
	}
	return a, true
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) seedDirectory(ctx context.Context) error {
	actors := []access.Actor{
		{ID: demoAdmin, Name: "Camille Admin", Role: access.RoleAdmin},
		{ID: demoManager, Name: "Nadia Conduite", Role: access.RoleManager},
		{ID: demoSupervisor, Name: "Luc Chef", Role: access.RoleSupervisor, Sites: []int64{siteBridge}},
		{ID: demoForeman, Name: "Ines Chef", Role: access.RoleSupervisor, Sites: []int64{siteSchool}},
		{ID: demoWorkerA, Name: "Marc Macon", Role: access.RoleWorker},
		{ID: demoWorkerB, Name: "Sofia Coffreuse", Role: access.RoleWorker},
		{ID: demoWorkerC, Name: "Yanis Grutier", Role: access.RoleWorker},
	}
	for _, a := range actors {
		if err := h.Store.PutActor(ctx, a); err != nil {
			return errors.Wrapf(err, "put actor %d", a.ID)
		}
	}
	return nil
}

// loadChantierScenario seeds the current week: assignments for every worker,
// and entries for workers A and B in each lifecycle state.
func (h *Handler) loadChantierScenario(ctx context.Context) error {
	now := h.now()
	monday := worktime.DateOf(now).Monday()

	planned := worktime.MustNew(7, 30)
	nextID := int64(1)
	for day := 0; day < 5; day++ {
		date := monday.AddDays(day)
		for _, p := range []struct{ worker, site int64 }{
			{demoWorkerA, siteBridge},
			{demoWorkerB, siteBridge},
			{demoWorkerC, siteSchool},
		} {
			a := timesheet.Assignment{ID: nextID, WorkerID: p.worker, SiteID: p.site, Date: date, Planned: planned}
			if err := h.Store.PutAssignment(ctx, a); err != nil {
				return errors.Wrap(err, "put assignment")
			}
			nextID++
		}
	}

	seeds := []entrySeed{
		{worker: demoWorkerA, site: siteBridge, date: monday, normal: planned, overtime: worktime.MustNew(1, 0), to: timesheet.StatusValidated},
		{worker: demoWorkerA, site: siteBridge, date: monday.AddDays(1), normal: planned, to: timesheet.StatusSubmitted},
		{worker: demoWorkerA, site: siteBridge, date: monday.AddDays(2), normal: worktime.MustNew(4, 0), to: timesheet.StatusDraft, note: "Pluie l'apres-midi"},
		{worker: demoWorkerB, site: siteBridge, date: monday, normal: planned, to: timesheet.StatusRejected, reason: "Heures supplementaires manquantes"},
		{worker: demoWorkerB, site: siteBridge, date: monday.AddDays(1), normal: planned, to: timesheet.StatusSubmitted},
		{worker: demoWorkerC, site: siteSchool, date: monday, normal: worktime.MustNew(8, 0), to: timesheet.StatusSubmitted},
	}
	entries, err := h.seedEntries(ctx, seeds, now)
	if err != nil {
		return err
	}

	vars := []struct {
		entry *timesheet.Entry
		typ   payroll.VariableType
		value string
	}{
		{entries[0], payroll.MealAllowance, "10.10"},
		{entries[0], payroll.TransportAllowance, "12.50"},
		{entries[2], payroll.WeatherBonus, "1"},
		{entries[3], payroll.MealAllowance, "10.10"},
	}
	for _, v := range vars {
		if err := h.seedVariable(ctx, v.entry, v.typ, v.value, now); err != nil {
			return err
		}
	}
	return nil
}

// loadMonthEndScenario seeds every weekday of last month for two workers;
// worker A is fully validated, worker B still has submitted entries.
func (h *Handler) loadMonthEndScenario(ctx context.Context) error {
	now := h.now()
	last := worktime.DateOf(now).AddMonths(-1)
	month := worktime.MonthOf(last.Year(), last.Month())

	var seeds []entrySeed
	for i, day := range month.Days() {
		if day.IsWeekend() {
			continue
		}
		seeds = append(seeds, entrySeed{
			worker: demoWorkerA, site: siteBridge, date: day,
			normal: worktime.MustNew(7, 0), to: timesheet.StatusValidated,
		})
		status := timesheet.StatusValidated
		if i%3 == 0 {
			status = timesheet.StatusSubmitted
		}
		seeds = append(seeds, entrySeed{
			worker: demoWorkerB, site: siteSchool, date: day,
			normal: worktime.MustNew(7, 0), to: status,
		})
	}
	entries, err := h.seedEntries(ctx, seeds, now)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := h.seedVariable(ctx, e, payroll.MealAllowance, "10.10", now); err != nil {
			return err
		}
	}
	return nil
}

type entrySeed struct {
	worker, site     int64
	date             worktime.Date
	normal, overtime worktime.Duration
	note             string
	to               timesheet.Status
	reason           string
}

// seedEntries walks each seed to its target status and saves them in one
// batch. Seeds bypass the service so that past, locked months can be
// populated.
func (h *Handler) seedEntries(ctx context.Context, seeds []entrySeed, now time.Time) ([]*timesheet.Entry, error) {
	entries := make([]*timesheet.Entry, 0, len(seeds))
	for _, s := range seeds {
		e, err := timesheet.NewEntry(s.worker, s.site, s.date, demoAdmin, now)
		if err != nil {
			return nil, err
		}
		n, o := s.normal, s.overtime
		if err := e.SetDurations(&n, &o, now); err != nil {
			return nil, err
		}
		if s.note != "" {
			if err := e.SetNote(s.note, now); err != nil {
				return nil, err
			}
		}
		if err := advance(e, s, now); err != nil {
			return nil, errors.Wrapf(err, "seed entry %d/%s", s.worker, s.date)
		}
		entries = append(entries, e)
	}
	if err := h.Store.SaveBatch(ctx, entries); err != nil {
		return nil, errors.Wrapf(err, "save %d seeded entries", len(entries))
	}
	return entries, nil
}

func advance(e *timesheet.Entry, s entrySeed, at time.Time) error {
	if s.to == timesheet.StatusDraft {
		return nil
	}
	if err := e.Sign(fmt.Sprintf("signed:%d", s.worker), at); err != nil {
		return err
	}
	if err := e.Submit(at); err != nil {
		return err
	}
	switch s.to {
	case timesheet.StatusValidated:
		return e.Validate(demoManager, at)
	case timesheet.StatusRejected:
		return e.Reject(demoManager, s.reason, at)
	}
	return nil
}

func (h *Handler) seedVariable(ctx context.Context, e *timesheet.Entry, typ payroll.VariableType, value string, now time.Time) error {
	v, err := payroll.NewVariable(e.ID, typ, decimal.RequireFromString(value), e.Date, now)
	if err != nil {
		return err
	}
	return errors.Wrapf(h.Store.SaveVariable(ctx, v), "save %s on entry %d", typ, e.ID)
}
