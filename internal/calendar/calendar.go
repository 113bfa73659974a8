// Package calendar holds the wall-clock arithmetic the occurrence engine runs on.
// All operations use the Calendar's location; there is no per-call timezone.
package calendar

import (
	"time"

	"github.com/samber/mo"
	"github.com/tazhate/pillbot/internal/domain"
)

const (
	minYear = 1
	maxYear = 9999
)

// Calendar is the host calendar: Gregorian in a fixed location.
type Calendar struct {
	loc *time.Location
}

// New returns a calendar in loc, UTC when loc is nil
func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc}
}

// Local returns a calendar in the process's local timezone
func Local() *Calendar {
	return New(time.Local)
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// TimeOf extracts hour and minute
func (c *Calendar) TimeOf(t time.Time) domain.TimeOfDay {
	lt := t.In(c.loc)
	return domain.TimeOfDay{Hour: lt.Hour(), Minute: lt.Minute()}
}

// WithTimeOfDay returns t's calendar day at tod with seconds zeroed.
// When that cannot be represented, t is returned unchanged.
func (c *Calendar) WithTimeOfDay(t time.Time, tod domain.TimeOfDay) time.Time {
	if tod.Validate() != nil {
		return t
	}
	lt := t.In(c.loc)
	r := time.Date(lt.Year(), lt.Month(), lt.Day(), tod.Hour, tod.Minute, 0, 0, c.loc)
	if !inRange(r) {
		return t
	}
	return r
}

// AddDays adds n calendar days keeping the wall-clock time
func (c *Calendar) AddDays(t time.Time, n int) mo.Option[time.Time] {
	r := t.In(c.loc).AddDate(0, 0, n)
	if !inRange(r) {
		return mo.None[time.Time]()
	}
	return mo.Some(r)
}

// AddMonths adds n calendar months. A day past the end of the target month
// is clamped to its last day, so Jan 31 + 1 month is Feb 28 (or 29).
func (c *Calendar) AddMonths(t time.Time, n int) mo.Option[time.Time] {
	lt := t.In(c.loc)
	total := int(lt.Month()) - 1 + n
	year := lt.Year() + floorDiv(total, 12)
	month := time.Month(floorMod(total, 12) + 1)
	if year < minYear || year > maxYear {
		return mo.None[time.Time]()
	}
	day := lt.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	r := time.Date(year, month, day, lt.Hour(), lt.Minute(), lt.Second(), lt.Nanosecond(), c.loc)
	if !inRange(r) {
		return mo.None[time.Time]()
	}
	return mo.Some(r)
}

// WeekdayCode returns the calendar weekday code, Sunday = 1 ... Saturday = 7
func (c *Calendar) WeekdayCode(t time.Time) int {
	return int(t.In(c.loc).Weekday()) + 1
}

// WeekdayOf maps t to a Weekday through its calendar code.
func (c *Calendar) WeekdayOf(t time.Time) (domain.Weekday, error) {
	return domain.WeekdayFromCode(c.WeekdayCode(t))
}

// DayOfMonth returns the day of month, 1-31
func (c *Calendar) DayOfMonth(t time.Time) int {
	return t.In(c.loc).Day()
}

// IsLastDayOfMonth reports whether the next day falls in another month
func (c *Calendar) IsLastDayOfMonth(t time.Time) bool {
	next, ok := c.AddDays(t, 1).Get()
	if !ok {
		return false
	}
	return next.Month() != t.In(c.loc).Month()
}

// Noon returns t's calendar day at 12:00
func (c *Calendar) Noon(t time.Time) time.Time {
	return c.WithTimeOfDay(t, domain.TimeOfDay{Hour: 12})
}

// DaysBetween counts whole calendar days from from to to, negative when to is earlier
func (c *Calendar) DaysBetween(from, to time.Time) int {
	a := civilDate(from.In(c.loc))
	b := civilDate(to.In(c.loc))
	return int(b.Sub(a).Hours() / 24)
}

// MonthsBetween counts whole months from from to to, truncated toward zero.
// A clamped end-of-month date (Jan 31 -> Feb 28) counts as a full month.
func (c *Calendar) MonthsBetween(from, to time.Time) int {
	a := from.In(c.loc)
	b := to.In(c.loc)
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	aClock := clockOf(a)
	bClock := clockOf(b)
	switch {
	case months > 0:
		clamped := b.Day() == daysIn(b.Year(), b.Month()) && a.Day() > b.Day()
		if !clamped && (b.Day() < a.Day() || b.Day() == a.Day() && bClock < aClock) {
			months--
		}
	case months < 0:
		clamped := a.Day() == daysIn(a.Year(), a.Month()) && b.Day() > a.Day()
		if !clamped && (b.Day() > a.Day() || b.Day() == a.Day() && bClock > aClock) {
			months++
		}
	}
	return months
}

// Components splits t into calendar components in the calendar's location
func (c *Calendar) Components(t time.Time) domain.DateComponents {
	lt := t.In(c.loc)
	return domain.DateComponents{
		Year:     lt.Year(),
		Month:    int(lt.Month()),
		Day:      lt.Day(),
		Hour:     lt.Hour(),
		Minute:   lt.Minute(),
		Second:   lt.Second(),
		Location: c.loc,
	}
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func clockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func inRange(t time.Time) bool {
	return t.Year() >= minYear && t.Year() <= maxYear
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
