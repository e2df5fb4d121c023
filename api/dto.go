/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the timesheet domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

FORMATS:
  Dates are "YYYY-MM-DD", durations "HH:MM", money and decimal hours are
  decimal strings ("10.1"), instants RFC 3339.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/formula.go: FormulaJSON type
*/
package api

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/site-timesheets/access"
	"github.com/warp/site-timesheets/factory"
	"github.com/warp/site-timesheets/payroll"
	"github.com/warp/site-timesheets/recap"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// ENTRIES
// =============================================================================

type EntryDTO struct {
	ID              int64             `json:"id"`
	WorkerID        int64             `json:"worker_id"`
	SiteID          int64             `json:"site_id"`
	Date            worktime.Date     `json:"date"`
	Normal          worktime.Duration `json:"normal"`
	Overtime        worktime.Duration `json:"overtime"`
	Total           worktime.Duration `json:"total"`
	Status          timesheet.Status  `json:"status"`
	Editable        bool              `json:"editable"`
	Note            string            `json:"note"`
	Signature       *string           `json:"signature,omitempty"`
	SignedAt        *time.Time        `json:"signed_at,omitempty"`
	ValidatorID     *int64            `json:"validator_id,omitempty"`
	ValidatedAt     *time.Time        `json:"validated_at,omitempty"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	AssignmentID    *int64            `json:"assignment_id,omitempty"`
	CreatedBy       int64             `json:"created_by"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type CreateEntryRequest struct {
	WorkerID int64              `json:"worker_id"`
	SiteID   int64              `json:"site_id"`
	Date     worktime.Date      `json:"date"`
	Normal   *worktime.Duration `json:"normal,omitempty"`
	Overtime *worktime.Duration `json:"overtime,omitempty"`
	Note     string             `json:"note,omitempty"`
}

type CreateFromAssignmentRequest struct {
	AssignmentID int64 `json:"assignment_id"`
}

// UpdateEntryRequest changes durations and/or the note. Absent fields are
// left untouched.
type UpdateEntryRequest struct {
	Normal   *worktime.Duration `json:"normal,omitempty"`
	Overtime *worktime.Duration `json:"overtime,omitempty"`
	Note     *string            `json:"note,omitempty"`
}

type SignRequest struct {
	Signature string `json:"signature"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type BulkValidateRequest struct {
	EntryIDs []int64 `json:"entry_ids"`
}

type BulkFailureDTO struct {
	EntryID int64                   `json:"entry_id"`
	Reason  timesheet.FailureReason `json:"reason"`
	Message string                  `json:"message"`
}

type BulkResultDTO struct {
	Succeeded    []int64          `json:"succeeded"`
	Failed       []BulkFailureDTO `json:"failed"`
	SuccessCount int              `json:"success_count"`
	FailureCount int              `json:"failure_count"`
}

// =============================================================================
// WEEK
// =============================================================================

type DayTotalDTO struct {
	Date     worktime.Date     `json:"date"`
	Normal   worktime.Duration `json:"normal"`
	Overtime worktime.Duration `json:"overtime"`
	Total    worktime.Duration `json:"total"`
}

type WeekDTO struct {
	WorkerID      int64                        `json:"worker_id"`
	Monday        worktime.Date                `json:"monday"`
	Sunday        worktime.Date                `json:"sunday"`
	Entries       []EntryDTO                   `json:"entries"`
	Days          []DayTotalDTO                `json:"days"`
	Sites         map[string]worktime.Duration `json:"sites"`
	TotalNormal   worktime.Duration            `json:"total_normal"`
	TotalOvertime worktime.Duration            `json:"total_overtime"`
	Total         worktime.Duration            `json:"total"`
	Complete      bool                         `json:"complete"`
	Status        timesheet.Status             `json:"status"`
}

// =============================================================================
// PAY VARIABLES AND FORMULAS
// =============================================================================

type VariableDTO struct {
	ID        uuid.UUID            `json:"id"`
	EntryID   int64                `json:"entry_id"`
	Type      payroll.VariableType `json:"type"`
	Class     payroll.Class        `json:"class"`
	Value     decimal.Decimal      `json:"value"`
	Date      worktime.Date        `json:"date"`
	Note      string               `json:"note,omitempty"`
	FormulaID *uuid.UUID           `json:"formula_id,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// CreateVariableRequest attaches a variable to an entry. Date defaults to
// the entry's date.
type CreateVariableRequest struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
	Date  *worktime.Date  `json:"date,omitempty"`
	Note  string          `json:"note,omitempty"`
}

type FormulaDTO struct {
	factory.FormulaJSON
	Inputs    []string  `json:"inputs"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EvaluateRequest supplies formula inputs. When WorkerID, Year and Month
// are set, the month's timesheet figures are derived first and Variables
// are merged on top.
type EvaluateRequest struct {
	Variables map[string]float64 `json:"variables,omitempty"`
	WorkerID  int64              `json:"worker_id,omitempty"`
	Year      int                `json:"year,omitempty"`
	Month     int                `json:"month,omitempty"`
}

type EvaluateResponse struct {
	FormulaID uuid.UUID          `json:"formula_id"`
	Result    decimal.Decimal    `json:"result"`
	Context   map[string]float64 `json:"context"`
}

// ApplyRequest computes a formula for one entry and stores the result.
type ApplyRequest struct {
	EntryID   int64              `json:"entry_id"`
	Variables map[string]float64 `json:"variables,omitempty"`
}

// =============================================================================
// RECAP AND LOCKDOWN
// =============================================================================

type WeekSummaryDTO struct {
	ISOYear       int               `json:"iso_year"`
	ISOWeek       int               `json:"iso_week"`
	Monday        worktime.Date     `json:"monday"`
	Sunday        worktime.Date     `json:"sunday"`
	DaysInMonth   int               `json:"days_in_month"`
	EntryCount    int               `json:"entry_count"`
	Normal        worktime.Duration `json:"normal"`
	Overtime      worktime.Duration `json:"overtime"`
	Total         worktime.Duration `json:"total"`
	NormalHours   decimal.Decimal   `json:"normal_hours"`
	OvertimeHours decimal.Decimal   `json:"overtime_hours"`
	TotalHours    decimal.Decimal   `json:"total_hours"`
	Status        timesheet.Status  `json:"status"`
}

type AllowanceDTO struct {
	Type      payroll.VariableType `json:"type"`
	Count     int                  `json:"count"`
	UnitValue *decimal.Decimal     `json:"unit_value,omitempty"`
	Total     decimal.Decimal      `json:"total"`
}

type AbsenceDTO struct {
	Type  payroll.VariableType `json:"type"`
	Days  int                  `json:"days"`
	Total worktime.Duration    `json:"total"`
}

type HoursDTO struct {
	Type  payroll.VariableType `json:"type"`
	Count int                  `json:"count"`
	Total decimal.Decimal      `json:"total"`
}

type RecapDTO struct {
	WorkerID      int64             `json:"worker_id"`
	Year          int               `json:"year"`
	Month         int               `json:"month"`
	From          worktime.Date     `json:"from"`
	To            worktime.Date     `json:"to"`
	Weeks         []WeekSummaryDTO  `json:"weeks"`
	Normal        worktime.Duration `json:"normal"`
	Overtime      worktime.Duration `json:"overtime"`
	Total         worktime.Duration `json:"total"`
	NormalHours   decimal.Decimal   `json:"normal_hours"`
	OvertimeHours decimal.Decimal   `json:"overtime_hours"`
	TotalHours    decimal.Decimal   `json:"total_hours"`
	WorkedDays    int               `json:"worked_days"`
	EntryCount    int               `json:"entry_count"`
	Allowances    []AllowanceDTO    `json:"allowances"`
	Absences      []AbsenceDTO      `json:"absences"`
	Hours         []HoursDTO        `json:"hours"`
	AllValidated  bool              `json:"all_validated"`
	Status        timesheet.Status  `json:"status"`
}

type LockRunDTO struct {
	LockdownDate worktime.Date `json:"lockdown_date"`
	Pending      int           `json:"pending"`
	RanAt        time.Time     `json:"ran_at"`
}

type LockdownDTO struct {
	Year         int           `json:"year"`
	Month        int           `json:"month"`
	LockdownDate worktime.Date `json:"lockdown_date"`
	Locked       bool          `json:"locked"`
	Pending      int           `json:"pending"`
	Run          *LockRunDTO   `json:"run,omitempty"`
}

// =============================================================================
// ADMIN AND SCENARIOS
// =============================================================================

type ActorRequest struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Role  string  `json:"role"`
	Sites []int64 `json:"sites,omitempty"`
}

type AssignmentRequest struct {
	ID       int64             `json:"id"`
	WorkerID int64             `json:"worker_id"`
	SiteID   int64             `json:"site_id"`
	Date     worktime.Date     `json:"date"`
	Planned  worktime.Duration `json:"planned"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toEntryDTO(e *timesheet.Entry) EntryDTO {
	return EntryDTO{
		ID:              e.ID,
		WorkerID:        e.WorkerID,
		SiteID:          e.SiteID,
		Date:            e.Date,
		Normal:          e.Normal,
		Overtime:        e.Overtime,
		Total:           e.Total(),
		Status:          e.Status,
		Editable:        e.IsEditable(),
		Note:            e.Note,
		Signature:       e.Signature,
		SignedAt:        e.SignedAt,
		ValidatorID:     e.ValidatorID,
		ValidatedAt:     e.ValidatedAt,
		RejectionReason: e.RejectionReason,
		AssignmentID:    e.AssignmentID,
		CreatedBy:       e.CreatedBy,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toEntryDTOs(entries []*timesheet.Entry) []EntryDTO {
	out := make([]EntryDTO, len(entries))
	for i, e := range entries {
		out[i] = toEntryDTO(e)
	}
	return out
}

func toBulkResultDTO(r timesheet.BulkResult) BulkResultDTO {
	dto := BulkResultDTO{
		Succeeded:    r.Succeeded,
		Failed:       make([]BulkFailureDTO, len(r.Failed)),
		SuccessCount: r.SuccessCount(),
		FailureCount: r.FailureCount(),
	}
	if dto.Succeeded == nil {
		dto.Succeeded = []int64{}
	}
	for i, f := range r.Failed {
		dto.Failed[i] = BulkFailureDTO{EntryID: f.EntryID, Reason: f.Reason, Message: f.Message}
	}
	return dto
}

func toWeekDTO(w *timesheet.Week) WeekDTO {
	dto := WeekDTO{
		WorkerID:      w.WorkerID,
		Monday:        w.Monday,
		Sunday:        w.Sunday(),
		Entries:       toEntryDTOs(w.Entries()),
		Sites:         make(map[string]worktime.Duration),
		TotalNormal:   w.TotalNormal(),
		TotalOvertime: w.TotalOvertime(),
		Total:         w.Total(),
		Complete:      w.IsComplete(),
		Status:        w.GlobalStatus(),
	}
	for _, d := range w.TotalsByDay() {
		dto.Days = append(dto.Days, DayTotalDTO{Date: d.Date, Normal: d.Normal, Overtime: d.Overtime, Total: d.Total})
	}
	for site, total := range w.TotalsBySite() {
		dto.Sites[strconv.FormatInt(site, 10)] = total
	}
	return dto
}

func toVariableDTO(v *payroll.Variable) VariableDTO {
	return VariableDTO{
		ID:        v.ID,
		EntryID:   v.EntryID,
		Type:      v.Type,
		Class:     v.Type.Class(),
		Value:     v.Value,
		Date:      v.Date,
		Note:      v.Note,
		FormulaID: v.FormulaID,
		CreatedAt: v.CreatedAt,
	}
}

func toVariableDTOs(vs []*payroll.Variable) []VariableDTO {
	out := make([]VariableDTO, len(vs))
	for i, v := range vs {
		out[i] = toVariableDTO(v)
	}
	return out
}

func toFormulaDTO(ff *factory.FormulaFactory, f *payroll.Formula) FormulaDTO {
	inputs, _ := f.Inputs()
	if inputs == nil {
		inputs = []string{}
	}
	return FormulaDTO{
		FormulaJSON: ff.ToJSON(f),
		Inputs:      inputs,
		CreatedBy:   f.CreatedBy,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

func toRecapDTO(r *recap.MonthlyRecap) RecapDTO {
	dto := RecapDTO{
		WorkerID:      r.WorkerID,
		Year:          r.Year,
		Month:         int(r.Month),
		From:          r.Period.From,
		To:            r.Period.To,
		Normal:        r.Normal,
		Overtime:      r.Overtime,
		Total:         r.Total,
		NormalHours:   r.NormalHours,
		OvertimeHours: r.OvertimeHours,
		TotalHours:    r.TotalHours,
		WorkedDays:    r.WorkedDays,
		EntryCount:    r.EntryCount,
		Allowances:    []AllowanceDTO{},
		Absences:      []AbsenceDTO{},
		Hours:         []HoursDTO{},
		AllValidated:  r.AllValidated,
		Status:        r.Status,
	}
	for _, w := range r.Weeks {
		dto.Weeks = append(dto.Weeks, WeekSummaryDTO{
			ISOYear: w.ISOYear, ISOWeek: w.ISOWeek, Monday: w.Monday, Sunday: w.Sunday,
			DaysInMonth: w.DaysInMonth, EntryCount: w.EntryCount,
			Normal: w.Normal, Overtime: w.Overtime, Total: w.Total,
			NormalHours: w.NormalHours, OvertimeHours: w.OvertimeHours, TotalHours: w.TotalHours,
			Status: w.Status,
		})
	}
	for _, a := range r.Allowances {
		dto.Allowances = append(dto.Allowances, AllowanceDTO{Type: a.Type, Count: a.Count, UnitValue: a.UnitValue, Total: a.Total})
	}
	for _, a := range r.Absences {
		dto.Absences = append(dto.Absences, AbsenceDTO{Type: a.Type, Days: a.Days, Total: a.Total})
	}
	for _, h := range r.Hours {
		dto.Hours = append(dto.Hours, HoursDTO{Type: h.Type, Count: h.Count, Total: h.Total})
	}
	return dto
}

func toLockdownDTO(st timesheet.LockdownStatus) LockdownDTO {
	dto := LockdownDTO{
		Year:         st.Year,
		Month:        int(st.Month),
		LockdownDate: st.LockdownDate,
		Locked:       st.Locked,
		Pending:      st.Pending,
	}
	if st.Run != nil {
		dto.Run = &LockRunDTO{LockdownDate: st.Run.LockdownDate, Pending: st.Run.Pending, RanAt: st.Run.RanAt}
	}
	return dto
}

func toActor(req ActorRequest) (access.Actor, error) {
	role, err := access.ParseRole(req.Role)
	if err != nil {
		return access.Actor{}, err
	}
	sites := append([]int64(nil), req.Sites...)
	sort.Slice(sites, func(i, j int) bool { return sites[i] < sites[j] })
	return access.Actor{ID: req.ID, Name: req.Name, Role: role, Sites: sites}, nil
}
