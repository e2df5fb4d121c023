/*
Package payroll holds the pay variables attached to timesheet entries and
the administrator-defined formulas that compute them.

TAXONOMY:
  Every VariableType belongs to exactly one Class. The class decides how
  the monthly recap aggregates it.

  ┌────────────┬──────────────────────────────────────────────────────────┐
  │ Class      │ Types                                                    │
  ├────────────┼──────────────────────────────────────────────────────────┤
  │ hours      │ normal, overtime, night, sunday, holiday hours           │
  │ allowance  │ meal, transport, weather bonus, dirty work, tooling      │
  │ absence    │ paid leave, reduced time day, sick leave, work accident, │
  │            │ justified absence, unjustified absence                   │
  └────────────┴──────────────────────────────────────────────────────────┘

  Allowances are amounts of money. Hours and absences are decimal hours
  (an absence records the hours missed on that day).

SEE ALSO:
  - formula.go: computes variables from timesheet context
  - recap/recap.go: per-class aggregation
*/
package payroll

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// TAXONOMY
// =============================================================================

type Class string

const (
	ClassHours     Class = "hours"
	ClassAllowance Class = "allowance"
	ClassAbsence   Class = "absence"
)

type VariableType string

const (
	NormalHours   VariableType = "normal_hours"
	OvertimeHours VariableType = "overtime_hours"
	NightHours    VariableType = "night_hours"
	SundayHours   VariableType = "sunday_hours"
	HolidayHours  VariableType = "holiday_hours"

	MealAllowance      VariableType = "meal_allowance"
	TransportAllowance VariableType = "transport_allowance"
	WeatherBonus       VariableType = "weather_bonus"
	DirtyWorkBonus     VariableType = "dirty_work_bonus"
	ToolingBonus       VariableType = "tooling_bonus"

	PaidLeave          VariableType = "paid_leave"
	ReducedTimeDay     VariableType = "reduced_time_day"
	SickLeave          VariableType = "sick_leave"
	WorkAccident       VariableType = "work_accident"
	JustifiedAbsence   VariableType = "justified_absence"
	UnjustifiedAbsence VariableType = "unjustified_absence"
)

// AllVariableTypes in display order.
var AllVariableTypes = []VariableType{
	NormalHours, OvertimeHours, NightHours, SundayHours, HolidayHours,
	MealAllowance, TransportAllowance, WeatherBonus, DirtyWorkBonus, ToolingBonus,
	PaidLeave, ReducedTimeDay, SickLeave, WorkAccident, JustifiedAbsence, UnjustifiedAbsence,
}

var classOf = map[VariableType]Class{
	NormalHours:        ClassHours,
	OvertimeHours:      ClassHours,
	NightHours:         ClassHours,
	SundayHours:        ClassHours,
	HolidayHours:       ClassHours,
	MealAllowance:      ClassAllowance,
	TransportAllowance: ClassAllowance,
	WeatherBonus:       ClassAllowance,
	DirtyWorkBonus:     ClassAllowance,
	ToolingBonus:       ClassAllowance,
	PaidLeave:          ClassAbsence,
	ReducedTimeDay:     ClassAbsence,
	SickLeave:          ClassAbsence,
	WorkAccident:       ClassAbsence,
	JustifiedAbsence:   ClassAbsence,
	UnjustifiedAbsence: ClassAbsence,
}

// Class returns the class of t, or "" for an unknown type.
func (t VariableType) Class() Class { return classOf[t] }

func (t VariableType) Valid() bool {
	_, ok := classOf[t]
	return ok
}

func (t VariableType) IsHours() bool     { return t.Class() == ClassHours }
func (t VariableType) IsAllowance() bool { return t.Class() == ClassAllowance }
func (t VariableType) IsAbsence() bool   { return t.Class() == ClassAbsence }

func ParseVariableType(s string) (VariableType, error) {
	t := VariableType(strings.TrimSpace(s))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariableType, s)
	}
	return t, nil
}

// TypesOf lists the types of one class in display order.
func TypesOf(c Class) []VariableType {
	var out []VariableType
	for _, t := range AllVariableTypes {
		if t.Class() == c {
			out = append(out, t)
		}
	}
	return out
}

// =============================================================================
// VARIABLE
// =============================================================================

var (
	ErrUnknownVariableType = errors.New("unknown variable type")
	ErrNegativeValue       = errors.New("variable value must not be negative")
	ErrVariableNotFound    = errors.New("pay variable not found")
	ErrInvalidVariable     = errors.New("invalid pay variable")
)

// Variable is one typed amount attached to a timesheet entry.
type Variable struct {
	ID        uuid.UUID
	EntryID   int64
	Type      VariableType
	Value     decimal.Decimal
	Date      worktime.Date
	Note      string
	FormulaID *uuid.UUID // set when computed by a formula
	CreatedAt time.Time
}

// NewVariable validates and builds a variable with a fresh id.
func NewVariable(entryID int64, typ VariableType, value decimal.Decimal, date worktime.Date, at time.Time) (*Variable, error) {
	if entryID <= 0 {
		return nil, fmt.Errorf("%w: entry id must be positive, got %d", ErrInvalidVariable, entryID)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariableType, typ)
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativeValue, value)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidVariable)
	}
	return &Variable{
		ID:        uuid.New(),
		EntryID:   entryID,
		Type:      typ,
		Value:     value,
		Date:      date,
		CreatedAt: at,
	}, nil
}

// Duration reads the value of an hours or absence variable as a Duration.
func (v *Variable) Duration() worktime.Duration {
	return worktime.FromDecimalHours(v.Value)
}
