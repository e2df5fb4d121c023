package worktime

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day (no time of day, no zone)
// =============================================================================

// DateLayout is the textual form of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day. Internally it is midnight UTC so that arithmetic
// never crosses a DST boundary.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day in the timestamp's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date { return DateOf(time.Now()) }

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for constants and tests.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.t.After(o.t) }
func (d Date) AfterOrEqual(o Date) bool { return !d.t.Before(o.t) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool { return d.t.IsZero() }
func (d Date) Time() time.Time { return d.t }
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (d Date) ISOWeek() (year, week int) { return d.t.ISOWeek() }

func (d Date) String() string { return d.t.Format(DateLayout) }

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// =============================================================================
// WEEKS AND MONTHS
// =============================================================================

// Monday returns the Monday that starts d's ISO week.
func (d Date) Monday() Date {
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return d.AddDays(-offset)
}

// Sunday returns the Sunday that ends d's ISO week.
func (d Date) Sunday() Date { return d.Monday().AddDays(6) }

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month+1, 1).AddDays(-1)
}

// Range is an inclusive span of days.
type Range struct {
	From Date
	To   Date
}

// Contains returns true if d is within [From, To].
func (r Range) Contains(d Date) bool {
	return d.AfterOrEqual(r.From) && d.BeforeOrEqual(r.To)
}

// Days returns every day of the range in order.
func (r Range) Days() []Date {
	var days []Date
	for cur := r.From; cur.BeforeOrEqual(r.To); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

func (r Range) String() string {
	return "[" + r.From.String() + ", " + r.To.String() + "]"
}

// WeekOf returns the Monday-Sunday range containing d.
func WeekOf(d Date) Range {
	return Range{From: d.Monday(), To: d.Sunday()}
}

// MonthOf returns the first-to-last day range of a month.
func MonthOf(year int, month time.Month) Range {
	return Range{From: StartOfMonth(year, month), To: EndOfMonth(year, month)}
}

// WeeksOverlapping returns, in order, every ISO week that has at least one
// day inside r.
func WeeksOverlapping(r Range) []Range {
	var weeks []Range
	for monday := r.From.Monday(); monday.BeforeOrEqual(r.To); monday = monday.AddDays(7) {
		weeks = append(weeks, Range{From: monday, To: monday.AddDays(6)})
	}
	return weeks
}

// =============================================================================
// ENCODING
// =============================================================================

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores a Date as "YYYY-MM-DD".
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan reads a Date from a TEXT or time column.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case time.Time:
		*d = DateOf(v.UTC())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into worktime.Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
