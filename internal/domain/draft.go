package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WeekdaySelection is one weekday toggle in a Draft.
type WeekdaySelection struct {
	Day      Weekday `json:"day"`
	Selected bool    `json:"selected"`
}

// DayOfMonthSelection is one day-of-month toggle in a Draft.
type DayOfMonthSelection struct {
	Day      int  `json:"day"`
	Selected bool `json:"selected"`
}

// Draft is the mutable working copy of a Reminder while it is being edited.
// It keeps a toggle for every weekday and every day of month so switching the
// interval back and forth does not lose selections.
type Draft struct {
	ID           string                `json:"id"`
	Enabled      bool                  `json:"enabled"`
	Name         string                `json:"name"`
	Interval     Kind                  `json:"interval"`
	Weekdays     []WeekdaySelection    `json:"weekdays"`
	MonthDays    []DayOfMonthSelection `json:"month_days"`
	Time         TimeOfDay             `json:"time"`
	Date         time.Time             `json:"date"`
	HaltInterval HaltUnit              `json:"halt_interval"`
	HaltNth      int                   `json:"halt_nth"`
	HaltAnchor   time.Time             `json:"halt_anchor"`
	Start        time.Time             `json:"start"`
}

// NewDraft returns a fresh enabled one-shot draft five minutes after now.
func NewDraft(now time.Time) Draft {
	at := now.Add(5 * time.Minute).Truncate(time.Minute)
	return ToDraft(Reminder{
		ID:      uuid.NewString(),
		Enabled: true,
		Pattern: Once{At: at},
		Start:   now,
	})
}

// ToDraft projects a reminder into its editable form.
func ToDraft(r Reminder) Draft {
	enabledDays := AllWeekdays
	if w, ok := r.Pattern.(Weekly); ok {
		enabledDays = w.Days
	}
	weekdays := make([]WeekdaySelection, 0, len(AllWeekdays))
	for _, d := range AllWeekdays {
		weekdays = append(weekdays, WeekdaySelection{Day: d, Selected: containsWeekday(enabledDays, d)})
	}

	// Patterns without a day selection start with every day toggled on.
	allMonthDays := true
	var enabledMonthDays []int
	if m, ok := r.Pattern.(DaysOfMonth); ok {
		allMonthDays = false
		enabledMonthDays = m.Days
	}
	monthDays := make([]DayOfMonthSelection, 0, 31)
	for day := 1; day <= 31; day++ {
		selected := allMonthDays || containsInt(enabledMonthDays, day)
		monthDays = append(monthDays, DayOfMonthSelection{Day: day, Selected: selected})
	}

	d := Draft{
		ID:           r.ID,
		Enabled:      r.Enabled,
		Name:         r.Name,
		Weekdays:     weekdays,
		MonthDays:    monthDays,
		HaltInterval: HaltNone,
		HaltNth:      2,
		Start:        r.Start,
	}
	if r.Pattern != nil {
		d.Interval = r.Pattern.Kind()
		d.Time = r.Pattern.Time()
	}
	if o, ok := r.Pattern.(Once); ok {
		d.Date = o.At
	}
	if r.Halt != nil {
		d.HaltInterval = r.Halt.Unit
		d.HaltNth = r.Halt.Nth
		d.HaltAnchor = r.Halt.Anchor
	}
	return d
}

// SelectedWeekdays returns the toggled weekdays in display order
func (d Draft) SelectedWeekdays() []Weekday {
	var out []Weekday
	for _, s := range d.Weekdays {
		if s.Selected {
			out = append(out, s.Day)
		}
	}
	return out
}

// SelectedMonthDays returns the toggled days of month
func (d Draft) SelectedMonthDays() []int {
	var out []int
	for _, s := range d.MonthDays {
		if s.Selected {
			out = append(out, s.Day)
		}
	}
	return out
}

// Pattern reduces the draft back to a recurrence pattern.
func (d Draft) Pattern() (Pattern, error) {
	if err := d.Time.Validate(); err != nil {
		return nil, err
	}
	switch d.Interval {
	case KindOnce:
		day := d.Date
		if day.IsZero() {
			day = d.Start
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), d.Time.Hour, d.Time.Minute, 0, 0, day.Location())
		return Once{At: at}, nil
	case KindWeekly:
		return Weekly{Days: d.SelectedWeekdays(), At: d.Time}, nil
	case KindMonthly:
		return Monthly{At: d.Time}, nil
	case KindDaysOfMonth:
		return DaysOfMonth{Days: d.SelectedMonthDays(), At: d.Time}, nil
	case KindLastDayOfMonth:
		return LastDayOfMonth{At: d.Time}, nil
	default:
		return nil, fmt.Errorf("%w: unknown interval %q", ErrInvalidPattern, d.Interval)
	}
}

// HaltRule reduces the halt settings, nil when halting is off. A zero anchor
// is kept as is; evaluation counts from Start then (see Reminder.HaltAnchor).
func (d Draft) HaltRule() *HaltRule {
	switch d.HaltInterval {
	case HaltWeek, HaltMonth:
		return &HaltRule{Unit: d.HaltInterval, Anchor: d.HaltAnchor, Nth: d.HaltNth}
	default:
		return nil
	}
}

// ToReminder converts the draft back into an immutable reminder.
func (d Draft) ToReminder() (Reminder, error) {
	p, err := d.Pattern()
	if err != nil {
		return Reminder{}, err
	}
	r := Reminder{
		ID:      d.ID,
		Enabled: d.Enabled,
		Name:    d.Name,
		Pattern: p,
		Halt:    d.HaltRule(),
		Start:   d.Start,
	}
	if err := r.Halt.Validate(); err != nil {
		return Reminder{}, err
	}
	return r, nil
}

func containsWeekday(days []Weekday, d Weekday) bool {
	for _, x := range days {
		if x == d {
			return true
		}
	}
	return false
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
