package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Reminder is an immutable reminder definition. Disabled reminders never fire.
type Reminder struct {
	ID      string
	Enabled bool
	Name    string
	Pattern Pattern
	Halt    *HaltRule
	// Start anchors one-shot and monthly patterns and is the default halt anchor.
	Start time.Time
}

type reminderJSON struct {
	ID      string          `json:"id"`
	Enabled bool            `json:"enabled"`
	Name    string          `json:"name"`
	When    json.RawMessage `json:"when"`
	Halt    *HaltRule       `json:"halt,omitempty"`
	Start   time.Time       `json:"start"`
}

func (r Reminder) MarshalJSON() ([]byte, error) {
	when, err := MarshalPattern(r.Pattern)
	if err != nil {
		return nil, fmt.Errorf("encode pattern: %w", err)
	}
	return json.Marshal(reminderJSON{
		ID:      r.ID,
		Enabled: r.Enabled,
		Name:    r.Name,
		When:    when,
		Halt:    r.Halt,
		Start:   r.Start,
	})
}

func (r *Reminder) UnmarshalJSON(data []byte) error {
	var in reminderJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p, err := UnmarshalPattern(in.When)
	if err != nil {
		return fmt.Errorf("reminder %s: %w", in.ID, err)
	}
	*r = Reminder{
		ID:      in.ID,
		Enabled: in.Enabled,
		Name:    in.Name,
		Pattern: p,
		Halt:    in.Halt,
		Start:   in.Start,
	}
	return nil
}

// Validate checks the name, pattern and halt rule
func (r Reminder) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if err := ValidatePattern(r.Pattern); err != nil {
		return err
	}
	return r.Halt.Validate()
}

// HaltAnchor returns the halt rule anchor, falling back to Start
func (r Reminder) HaltAnchor() time.Time {
	if r.Halt != nil && !r.Halt.Anchor.IsZero() {
		return r.Halt.Anchor
	}
	return r.Start
}

// Describe summarizes the pattern, e.g. "Mon, Wed at 8:30"
func (r Reminder) Describe() string {
	var s string
	switch p := r.Pattern.(type) {
	case Once:
		s = "once on " + p.At.Format("2006-01-02") + " at " + p.Time().Describe()
	case Weekly:
		if len(p.Days) == 0 {
			s = "never (no weekdays selected)"
			break
		}
		names := make([]string, 0, len(p.Days))
		for _, d := range SortWeekdays(p.Days) {
			names = append(names, d.Short())
		}
		s = strings.Join(names, ", ") + " at " + p.At.Describe()
	case Monthly:
		s = fmt.Sprintf("monthly on day %d at %s", r.Start.Day(), p.At.Describe())
	case DaysOfMonth:
		if len(p.Days) == 0 {
			s = "never (no days selected)"
			break
		}
		days := make([]string, 0, len(p.Days))
		for _, d := range SortMonthDays(p.Days) {
			days = append(days, fmt.Sprint(d))
		}
		s = "days " + strings.Join(days, ", ") + " at " + p.At.Describe()
	case LastDayOfMonth:
		s = "last day of month at " + p.At.Describe()
	default:
		s = "unknown"
	}
	if r.Halt != nil {
		s += ", " + r.Halt.Describe()
	}
	return s
}

// DatedReminder pairs an occurrence time with its reminder.
type DatedReminder struct {
	At       time.Time
	Reminder Reminder
}
