// Package dateutil provides timezone-safe calendar-day arithmetic.
//
// Every function here works on calendar days, not instants. A day is represented
// as midnight UTC of the calendar date the input shows in its own location, so
// daylight saving transitions never add or remove a day.
package dateutil

import (
	"fmt"
	"iter"
	"time"

	"github.com/teambition/rrule-go"
)

const (
	// ISODate is the wire and storage format for calendar dates.
	ISODate = "2006-01-02"

	// WeekDays is the length of a week view.
	WeekDays = 7
	// MonthGridCells is the number of cells in a month view (6 weeks).
	MonthGridCells = 42

	secondsPerDay = 24 * 60 * 60
)

// Day returns the calendar day of t as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar day from its parts.
func Date(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// DaysBetween returns the number of whole days from `from` to `to`.
// The result is negative if `to` is before `from`. It counts from Unix seconds
// because time.Duration saturates after about 292 years.
func DaysBetween(from, to time.Time) int {
	return int((Day(to).Unix() - Day(from).Unix()) / secondsPerDay)
}

// AddDays moves a calendar day by n days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// FloorMod returns a mod n in [0, n), also for negative a. n must be positive.
func FloorMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// StartOfWeek returns the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	d := Day(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// EndOfWeek returns the Sunday on or after t.
func EndOfWeek(t time.Time) time.Time {
	return StartOfWeek(t).AddDate(0, 0, WeekDays-1)
}

// StartOfMonth returns the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), 1)
}

// EndOfMonth returns the last day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// MonthGridStart returns the first cell of a Monday-start month grid.
func MonthGridStart(year int, month time.Month) time.Time {
	return StartOfWeek(Date(year, month, 1))
}

// MonthGridEnd returns the last cell of the 42-cell grid for the month.
func MonthGridEnd(year int, month time.Month) time.Time {
	return MonthGridStart(year, month).AddDate(0, 0, MonthGridCells-1)
}

// Days yields every calendar day from start to end inclusive, in ascending order.
// The sequence is lazy and can be ranged over any number of times. It is empty
// if start is after end.
func Days(start, end time.Time) iter.Seq[time.Time] {
	start, end = Day(start), Day(end)
	return func(yield func(time.Time) bool) {
		if start.After(end) {
			return
		}
		r, err := rrule.NewRRule(rrule.ROption{
			Freq:    rrule.DAILY,
			Dtstart: start,
			Until:   end,
		})
		if err != nil {
			// A daily rule with a valid DTSTART cannot be rejected; fall back to plain stepping.
			for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
				if !yield(d) {
					return
				}
			}
			return
		}
		next := r.Iterator()
		for d, ok := next(); ok; d, ok = next() {
			if !yield(Day(d)) {
				return
			}
		}
	}
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders the calendar day of t as an ISO date.
func FormatDate(t time.Time) string {
	return Day(t).Format(ISODate)
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(now.In(loc))
}
