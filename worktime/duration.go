/*
Package worktime provides the arithmetic primitives of the timesheet engine.

PURPOSE:
  Every other package measures worked time with Duration and places it on
  the calendar with Date. Both are small immutable value types.

KEY CONCEPTS:
  - Duration: a non-negative amount of worked time, stored as whole minutes
    and rendered as "HH:MM"
  - Date: a calendar day with no time-of-day or zone (see date.go)

BOUNDS:
  A single entry records at most one day of work, so New and WithinDay
  bound a Duration to [00:00, 23:59]. Sums are NOT bounded: a week of work
  is 39:00, a month is 169:00. Aggregates are built with Add, which never
  clamps.

USAGE:
  normal, _ := worktime.Parse("07:30")
  overtime := worktime.FromMinutes(45)
  total := normal.Add(overtime)        // 08:15
  total.DecimalHours()                 // 8.25

SEE ALSO:
  - date.go: calendar days and ISO weeks
  - timesheet/entry.go: enforces the per-day bound
*/
package worktime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNegativeDuration is returned when an operation would produce a
	// duration below zero.
	ErrNegativeDuration = errors.New("negative duration")

	// ErrDurationOutOfRange is returned when a per-day duration exceeds 23:59
	// or a component is outside its range.
	ErrDurationOutOfRange = errors.New("duration out of range")

	// ErrInvalidDurationFormat is returned by Parse for anything but "HH:MM".
	ErrInvalidDurationFormat = errors.New("invalid duration format, expected HH:MM")
)

// NegativeDurationError carries both operands of a failed subtraction.
type NegativeDurationError struct {
	From     Duration
	Subtract Duration
}

func (e *NegativeDurationError) Error() string {
	return fmt.Sprintf("negative duration: %s - %s", e.From, e.Subtract)
}

func (e *NegativeDurationError) Unwrap() error {
	return ErrNegativeDuration
}

// =============================================================================
// DURATION
// =============================================================================

const (
	minutesPerHour = 60
	// MaxDayMinutes is the largest duration a single entry may record (23:59).
	MaxDayMinutes = 23*minutesPerHour + 59
)

// Duration is a non-negative count of worked minutes.
// The zero value is 00:00.
type Duration struct {
	minutes int
}

// Zero returns 00:00.
func Zero() Duration { return Duration{} }

// New builds a per-day duration from its components.
// Hours must be in [0,23] and minutes in [0,59].
func New(hours, minutes int) (Duration, error) {
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return Duration{}, fmt.Errorf("%w: %d:%d", ErrDurationOutOfRange, hours, minutes)
	}
	return Duration{minutes: hours*minutesPerHour + minutes}, nil
}

// MustNew is New for constants and tests.
func MustNew(hours, minutes int) Duration {
	d, err := New(hours, minutes)
	if err != nil {
		panic(err)
	}
	return d
}

// FromMinutes converts a minute count. Negative input yields zero.
// Values beyond 23:59 are kept as-is; use WithinDay to check the per-day bound.
func FromMinutes(n int) Duration {
	if n < 0 {
		return Duration{}
	}
	return Duration{minutes: n}
}

// FromDecimalHours converts decimal hours (7.5 → 07:30), rounding to the
// nearest minute. Negative input yields zero.
func FromDecimalHours(hours decimal.Decimal) Duration {
	m := hours.Mul(decimal.NewFromInt(minutesPerHour)).Round(0).IntPart()
	return FromMinutes(int(m))
}

// maxParseHours bounds the hour field so the minute count cannot overflow.
const maxParseHours = 1_000_000

// Parse reads "HH:MM". Hours may exceed 23 so that formatted aggregates
// round-trip; minutes must be in [0,59].
func Parse(s string) (Duration, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || hh == "" || len(mm) != 2 {
		return Duration{}, fmt.Errorf("%w: %q", ErrInvalidDurationFormat, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > maxParseHours || strings.ContainsAny(hh, "+-") {
		return Duration{}, fmt.Errorf("%w: %q", ErrInvalidDurationFormat, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || strings.ContainsAny(mm, "+-") {
		return Duration{}, fmt.Errorf("%w: %q", ErrInvalidDurationFormat, s)
	}
	return Duration{minutes: h*minutesPerHour + m}, nil
}

// Arithmetic
func (d Duration) Add(o Duration) Duration { return Duration{minutes: d.minutes + o.minutes} }

// Sub returns d - o, failing with NegativeDurationError when o > d.
func (d Duration) Sub(o Duration) (Duration, error) {
	if o.minutes > d.minutes {
		return Duration{}, &NegativeDurationError{From: d, Subtract: o}
	}
	return Duration{minutes: d.minutes - o.minutes}, nil
}

// Comparison
func (d Duration) Compare(o Duration) int {
	switch {
	case d.minutes < o.minutes:
		return -1
	case d.minutes > o.minutes:
		return 1
	default:
		return 0
	}
}
func (d Duration) Before(o Duration) bool { return d.minutes < o.minutes }
func (d Duration) After(o Duration) bool { return d.minutes > o.minutes }
func (d Duration) Equal(o Duration) bool { return d.minutes == o.minutes }

// Properties
func (d Duration) Minutes() int { return d.minutes }
func (d Duration) Hours() int { return d.minutes / minutesPerHour }
func (d Duration) MinutePart() int { return d.minutes % minutesPerHour }
func (d Duration) IsZero() bool { return d.minutes == 0 }
func (d Duration) WithinDay() bool { return d.minutes <= MaxDayMinutes }

// DecimalHours returns the duration in hours, exact to 2 decimal places.
func (d Duration) DecimalHours() decimal.Decimal {
	return decimal.NewFromInt(int64(d.minutes)).
		Div(decimal.NewFromInt(minutesPerHour)).
		Round(2)
}

// String formats as "HH:MM".
func (d Duration) String() string {
	return fmt.Sprintf("%02d:%02d", d.Hours(), d.MinutePart())
}

// Sum adds all durations.
func Sum(ds ...Duration) Duration {
	var total Duration
	for _, d := range ds {
		total = total.Add(d)
	}
	return total
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
