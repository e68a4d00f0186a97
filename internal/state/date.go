package state

import (
	"encoding/json"
	"fmt"
	"time"
)

// dateLayout is the wire format for calendar dates in the persisted file.
const dateLayout = "2006-01-02"

// Date is a calendar day without time-of-day or location. The zero value
// is not a valid date; optional dates are represented as *Date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar day in loc.
func Today(loc *time.Location) Date {
	return DateOf(time.Now().In(loc))
}

// ParseDate parses a date in ISO form (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("state: invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// midnight anchors the date at 00:00 UTC for day arithmetic. Using a fixed
// zone keeps DaysSince free of DST skew.
func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// DaysSince returns the number of whole days from o to d. Negative if d is
// before o.
func (d Date) DaysSince(o Date) int {
	return int(d.midnight().Sub(o.midnight()) / (24 * time.Hour))
}

// Equal reports whether two dates name the same calendar day.
func (d Date) Equal(o Date) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.midnight().Before(o.midnight())
}

// After reports whether d is a later calendar day than o.
func (d Date) After(o Date) bool {
	return d.midnight().After(o.midnight())
}

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String returns the date in ISO form.
func (d Date) String() string {
	return d.midnight().Format(dateLayout)
}

// MarshalJSON encodes the date as a "YYYY-MM-DD" JSON string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" JSON string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("state: date must be a JSON string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
