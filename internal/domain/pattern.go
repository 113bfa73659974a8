package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Kind names a recurrence pattern variant.
type Kind string

const (
	KindOnce           Kind = "once"
	KindWeekly         Kind = "weekly"
	KindMonthly        Kind = "monthly"
	KindDaysOfMonth    Kind = "days_of_month"
	KindLastDayOfMonth Kind = "last_day_of_month"
)

// AllKinds lists the pattern kinds in display order.
var AllKinds = []Kind{KindOnce, KindWeekly, KindMonthly, KindDaysOfMonth, KindLastDayOfMonth}

// Pattern is one of Once, Weekly, Monthly, DaysOfMonth or LastDayOfMonth.
// The set is closed: the unexported method keeps other packages from adding variants.
type Pattern interface {
	Kind() Kind
	// Time is the time of day the pattern fires at.
	Time() TimeOfDay
	isPattern()
}

// Once fires exactly once at At.
type Once struct {
	At time.Time
}

// Weekly fires on each selected weekday. No days means it never fires.
type Weekly struct {
	Days []Weekday
	At   TimeOfDay
}

// Monthly fires once a month on the start date's day of month.
type Monthly struct {
	At TimeOfDay
}

// DaysOfMonth fires on each selected day of month (1-31). No days means it never fires.
type DaysOfMonth struct {
	Days []int
	At   TimeOfDay
}

// LastDayOfMonth fires on the last calendar day of every month.
type LastDayOfMonth struct {
	At TimeOfDay
}

func (Once) Kind() Kind           { return KindOnce }
func (Weekly) Kind() Kind         { return KindWeekly }
func (Monthly) Kind() Kind        { return KindMonthly }
func (DaysOfMonth) Kind() Kind    { return KindDaysOfMonth }
func (LastDayOfMonth) Kind() Kind { return KindLastDayOfMonth }

func (p Once) Time() TimeOfDay           { return TimeOfDay{Hour: p.At.Hour(), Minute: p.At.Minute()} }
func (p Weekly) Time() TimeOfDay         { return p.At }
func (p Monthly) Time() TimeOfDay        { return p.At }
func (p DaysOfMonth) Time() TimeOfDay    { return p.At }
func (p LastDayOfMonth) Time() TimeOfDay { return p.At }

func (Once) isPattern()           {}
func (Weekly) isPattern()         {}
func (Monthly) isPattern()        {}
func (DaysOfMonth) isPattern()    {}
func (LastDayOfMonth) isPattern() {}

// Contains reports whether day is selected
func (p Weekly) Contains(day Weekday) bool {
	for _, d := range p.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Contains reports whether the day of month is selected
func (p DaysOfMonth) Contains(day int) bool {
	for _, d := range p.Days {
		if d == day {
			return true
		}
	}
	return false
}

// SelectedWeekdays returns the weekday selection of a Weekly pattern, nil otherwise.
func SelectedWeekdays(p Pattern) []Weekday {
	if w, ok := p.(Weekly); ok {
		return w.Days
	}
	return nil
}

// SelectedMonthDays returns the day selection of a DaysOfMonth pattern, nil otherwise.
func SelectedMonthDays(p Pattern) []int {
	if d, ok := p.(DaysOfMonth); ok {
		return d.Days
	}
	return nil
}

// ValidatePattern checks time of day and selection values.
func ValidatePattern(p Pattern) error {
	if p == nil {
		return fmt.Errorf("%w: missing pattern", ErrInvalidPattern)
	}
	switch v := p.(type) {
	case Once:
		if v.At.IsZero() {
			return fmt.Errorf("%w: one-shot reminder without a date", ErrInvalidPattern)
		}
		return nil
	case Weekly:
		for _, d := range v.Days {
			if !d.Valid() {
				return fmt.Errorf("%w: weekday %q", ErrInvalidPattern, d)
			}
		}
	case DaysOfMonth:
		for _, d := range v.Days {
			if d < 1 || d > 31 {
				return fmt.Errorf("%w: day of month %d", ErrInvalidPattern, d)
			}
		}
	}
	return p.Time().Validate()
}

// patternJSON is the tagged wire form of a Pattern.
type patternJSON struct {
	Kind      Kind       `json:"kind"`
	At        *time.Time `json:"at,omitempty"`
	Time      *TimeOfDay `json:"time,omitempty"`
	Weekdays  []Weekday  `json:"weekdays,omitempty"`
	MonthDays []int      `json:"month_days,omitempty"`
}

// MarshalPattern encodes p as a tagged JSON object.
func MarshalPattern(p Pattern) ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	out := patternJSON{Kind: p.Kind()}
	switch v := p.(type) {
	case Once:
		at := v.At
		out.At = &at
	case Weekly:
		t := v.At
		out.Time = &t
		out.Weekdays = v.Days
	case Monthly:
		t := v.At
		out.Time = &t
	case DaysOfMonth:
		t := v.At
		out.Time = &t
		out.MonthDays = v.Days
	case LastDayOfMonth:
		t := v.At
		out.Time = &t
	}
	return json.Marshal(out)
}

// UnmarshalPattern decodes the tagged JSON form written by MarshalPattern.
func UnmarshalPattern(data []byte) (Pattern, error) {
	var in patternJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode pattern: %w", err)
	}
	var t TimeOfDay
	if in.Time != nil {
		t = *in.Time
	}
	switch in.Kind {
	case KindOnce:
		if in.At == nil {
			return nil, fmt.Errorf("%w: once without at", ErrInvalidPattern)
		}
		return Once{At: *in.At}, nil
	case KindWeekly:
		return Weekly{Days: in.Weekdays, At: t}, nil
	case KindMonthly:
		return Monthly{At: t}, nil
	case KindDaysOfMonth:
		return DaysOfMonth{Days: in.MonthDays, At: t}, nil
	case KindLastDayOfMonth:
		return LastDayOfMonth{At: t}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidPattern, in.Kind)
	}
}

// SortMonthDays returns days deduplicated and ascending
func SortMonthDays(days []int) []int {
	seen := make(map[int]bool, len(days))
	var out []int
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}
