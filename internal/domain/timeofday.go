package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is a wall-clock hour and minute.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// NewTimeOfDay validates hour 0-23 and minute 0-59
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	t := TimeOfDay{Hour: hour, Minute: minute}
	if err := t.Validate(); err != nil {
		return TimeOfDay{}, err
	}
	return t, nil
}

func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, t.Hour, t.Minute)
	}
	return nil
}

// Describe formats as H:MM, e.g. "8:05"
func (t TimeOfDay) Describe() string {
	return fmt.Sprintf("%d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM" or "H:MM"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return NewTimeOfDay(hour, minute)
}
