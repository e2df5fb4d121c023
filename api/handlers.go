/*
handlers.go - HTTP API handlers for site timesheets

PURPOSE:
  Exposes the timesheet engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to timesheet.Service, the lockdown job
  and the payroll stores.

ENDPOINTS:
  Entries:
    POST   /api/entries                     Create a draft entry
    POST   /api/entries/from-assignment     Create from a planned assignment
    GET    /api/entries                     Search (worker_id, site_id, from, to, status)
    GET    /api/entries/{id}                Get one entry
    PUT    /api/entries/{id}                Update durations and/or note
    DELETE /api/entries/{id}                Delete a draft or rejected entry
    POST   /api/entries/{id}/sign           Worker signature
    POST   /api/entries/{id}/submit         Draft -> submitted
    POST   /api/entries/{id}/validate       Submitted -> validated
    POST   /api/entries/{id}/reject         Submitted -> rejected (reason required)
    POST   /api/entries/{id}/correct        Rejected -> draft
    POST   /api/entries/bulk-validate       Validate many, per-item results

  Workers:
    GET    /api/workers/{id}/weeks/{date}               Weekly timesheet
    GET    /api/workers/{id}/recap/{year}/{month}       Monthly recap
    GET    /api/workers/{id}/recap/{year}/{month}/export  Recap workbook (xlsx)

  Payroll (payroll.go):
    GET/POST /api/entries/{id}/variables, DELETE /api/entries/{id}/variables/{variableID}
    GET/POST /api/formulas, GET/PUT /api/formulas/{id}
    POST   /api/formulas/{id}/evaluate, POST /api/formulas/{id}/apply

  Lockdown:
    GET    /api/lockdown/{year}/{month}     Lock state of a month
    POST   /api/lockdown/run                Run the lockdown check now

  Admin / Scenarios (scenarios.go):
    POST   /api/admin/actors, POST /api/admin/assignments
    GET    /api/scenarios, GET /api/scenarios/current, POST /api/scenarios/load

AUTHENTICATION:
  The caller is identified by the X-Actor-ID header and resolved through
  the directory. Authentication of that header is the gateway's job.

ERROR HANDLING:
  Errors are returned as JSON with an HTTP status derived from the error:
  - 400: Malformed input, invalid durations or pay variables, empty reason/signature
  - 401: Missing or unknown actor
  - 403: Permission denied
  - 404: Entry, assignment, formula or variable not found
  - 409: Locked period, not editable, illegal transition, duplicate
  - 422: Formula errors
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - timesheet/service.go: Business operations
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/site-timesheets/access"
	"github.com/warp/site-timesheets/factory"
	"github.com/warp/site-timesheets/payroll"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

// ActorHeader carries the id of the calling actor.
const ActorHeader = "X-Actor-ID"

var errMissingActor = errors.New("missing or invalid " + ActorHeader + " header")

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the API persists. *sqlite.Store implements it.
type Store interface {
	timesheet.Gateway
	timesheet.AssignmentSource
	timesheet.LockRunStore
	access.Directory
	payroll.VariableStore
	payroll.FormulaStore

	PutActor(ctx context.Context, a access.Actor) error
	PutAssignment(ctx context.Context, a timesheet.Assignment) error
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store          Store
	Service        *timesheet.Service
	Lockdown       *timesheet.Lockdown
	FormulaFactory *factory.FormulaFactory
	Log            *logrus.Entry

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler wires the service and the lockdown job on store.
func NewHandler(store Store, policy access.Policy, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	notifier := timesheet.LogNotifier{Log: log.WithField("component", "notifier")}

	svc := timesheet.NewService(store, store, policy)
	svc.Assignments = store
	svc.Notifier = notifier
	svc.Log = log.WithField("component", "timesheet")

	h := &Handler{
		Store:   store,
		Service: svc,
		Lockdown: &timesheet.Lockdown{
			Gateway:  store,
			Runs:     store,
			Notifier: notifier,
			Log:      log.WithField("component", "lockdown"),
		},
		Log: log.WithField("component", "api"),
	}
	h.FormulaFactory = factory.NewFormulaFactory(h.now)
	return h
}

func (h *Handler) now() time.Time {
	if h.Service.Clock != nil {
		return h.Service.Clock()
	}
	return timesheet.SystemClock()
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	var req CreateEntryRequest
	if !decode(w, r, &req) {
		return
	}

	e, err := h.Service.Create(r.Context(), actorID, timesheet.CreateInput{
		WorkerID: req.WorkerID,
		SiteID:   req.SiteID,
		Date:     req.Date,
		Normal:   req.Normal,
		Overtime: req.Overtime,
		Note:     req.Note,
	})
	if err != nil {
		h.fail(w, "Failed to create entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(e))
}

func (h *Handler) CreateEntryFromAssignment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	var req CreateFromAssignmentRequest
	if !decode(w, r, &req) {
		return
	}

	e, err := h.Service.CreateFromAssignment(r.Context(), actorID, req.AssignmentID)
	if err != nil {
		h.fail(w, "Failed to create entry from assignment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(e))
}

// SearchEntries filters by worker_id, site_id, from, to and status
// (comma separated). Workers only ever see their own entries.
func (h *Handler) SearchEntries(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var filter timesheet.Filter
	var err error
	if filter.WorkerID, err = queryInt(q.Get("worker_id")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid worker_id", err)
		return
	}
	if filter.SiteID, err = queryInt(q.Get("site_id")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid site_id", err)
		return
	}
	if filter.From, err = queryDate(q.Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	if filter.To, err = queryDate(q.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}
	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st, err := timesheet.ParseStatus(strings.TrimSpace(s))
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid status", err)
				return
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}

	entries, err := h.Service.Search(r.Context(), actorID, filter)
	if err != nil {
		h.fail(w, "Failed to search entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	e, err := h.Service.Get(r.Context(), actorID, id)
	if err != nil {
		h.fail(w, "Failed to get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	var req UpdateEntryRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Normal == nil && req.Overtime == nil && req.Note == nil {
		writeError(w, http.StatusBadRequest, "Nothing to update", nil)
		return
	}

	ctx := r.Context()
	var e *timesheet.Entry
	var err error
	if req.Normal != nil || req.Overtime != nil {
		if e, err = h.Service.UpdateDurations(ctx, actorID, id, req.Normal, req.Overtime); err != nil {
			h.fail(w, "Failed to update durations", err)
			return
		}
	}
	if req.Note != nil {
		if e, err = h.Service.UpdateNote(ctx, actorID, id, *req.Note); err != nil {
			h.fail(w, "Failed to update note", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), actorID, id); err != nil {
		h.fail(w, "Failed to delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SignEntry(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	var req SignRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondEntry(w, "Failed to sign entry")(h.Service.Sign(r.Context(), actorID, id, req.Signature))
}

func (h *Handler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	h.respondEntry(w, "Failed to submit entry")(h.Service.Submit(r.Context(), actorID, id))
}

func (h *Handler) ValidateEntry(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	h.respondEntry(w, "Failed to validate entry")(h.Service.Validate(r.Context(), actorID, id))
}

func (h *Handler) RejectEntry(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	var req RejectRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondEntry(w, "Failed to reject entry")(h.Service.Reject(r.Context(), actorID, id, req.Reason))
}

func (h *Handler) CorrectEntry(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	h.respondEntry(w, "Failed to correct entry")(h.Service.Correct(r.Context(), actorID, id))
}

// BulkValidate answers 200 with per-item results even when some failed.
func (h *Handler) BulkValidate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	var req BulkValidateRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.EntryIDs) == 0 {
		writeError(w, http.StatusBadRequest, "entry_ids is required", nil)
		return
	}

	result, err := h.Service.BulkValidate(r.Context(), actorID, req.EntryIDs)
	if err != nil {
		h.fail(w, "Failed to validate entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toBulkResultDTO(result))
}

// =============================================================================
// WORKER VIEWS
// =============================================================================

func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	workerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid worker ID", err)
		return
	}
	date, err := worktime.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	week, err := h.Service.Week(r.Context(), actorID, workerID, date)
	if err != nil {
		h.fail(w, "Failed to load week", err)
		return
	}
	writeJSON(w, http.StatusOK, toWeekDTO(week))
}

// =============================================================================
// LOCKDOWN
// =============================================================================

func (h *Handler) GetLockdown(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	year, month, ok := yearMonth(w, r)
	if !ok {
		return
	}
	st, err := h.Lockdown.Status(r.Context(), year, month, h.now())
	if err != nil {
		h.fail(w, "Failed to read lockdown status", err)
		return
	}
	writeJSON(w, http.StatusOK, toLockdownDTO(st))
}

// RunLockdown runs the lockdown check immediately. Managers and admins only.
func (h *Handler) RunLockdown(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := access.AuthorizeExport(actor); err != nil {
		h.fail(w, "Not allowed to run lockdown", err)
		return
	}
	runs, err := h.Lockdown.Check(r.Context(), h.now())
	if err != nil {
		h.fail(w, "Lockdown check failed", err)
		return
	}
	out := make([]LockRunDTO, len(runs))
	for i, run := range runs {
		out[i] = LockRunDTO{LockdownDate: run.LockdownDate, Pending: run.Pending, RanAt: run.RanAt}
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps a domain error to its status and logs server-side failures.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.WithError(err).Error(message)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingActor), errors.Is(err, access.ErrUnknownActor):
		return http.StatusUnauthorized
	case timesheet.IsForbidden(err):
		return http.StatusForbidden
	case timesheet.IsNotFound(err),
		errors.Is(err, payroll.ErrFormulaNotFound),
		errors.Is(err, payroll.ErrVariableNotFound):
		return http.StatusNotFound
	case timesheet.IsConflict(err), errors.Is(err, payroll.ErrFormulaInactive):
		return http.StatusConflict
	case timesheet.IsClientError(err),
		errors.Is(err, payroll.ErrUnknownVariableType),
		errors.Is(err, payroll.ErrNegativeValue),
		errors.Is(err, payroll.ErrInvalidVariable):
		return http.StatusBadRequest
	case payroll.IsFormulaError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondEntry(w http.ResponseWriter, message string) func(*timesheet.Entry, error) {
	return func(e *timesheet.Entry, err error) {
		if err != nil {
			h.fail(w, message, err)
			return
		}
		writeJSON(w, http.StatusOK, toEntryDTO(e))
	}
}

func (h *Handler) actorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get(ActorHeader), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusUnauthorized, "Unauthenticated", errMissingActor)
		return 0, false
	}
	return id, true
}

// actor resolves the caller through the directory, for handlers that
// authorize outside the service.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (access.Actor, bool) {
	id, ok := h.actorID(w, r)
	if !ok {
		return access.Actor{}, false
	}
	a, err := h.Store.Actor(r.Context(), id)
	if err != nil {
		h.fail(w, "Unknown actor", err)
		return access.Actor{}, false
	}
	return a, true
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return 0, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry ID", err)
		return 0, 0, false
	}
	return actorID, id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func yearMonth(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, 0, false
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func queryInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func queryDate(s string) (worktime.Date, error) {
	if s == "" {
		return worktime.Date{}, nil
	}
	return worktime.ParseDate(s)
}
