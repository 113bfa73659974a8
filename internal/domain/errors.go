package domain

import "errors"

var (
	// ErrInvalidWeekday covers calendar codes outside 1..7 and unknown names.
	ErrInvalidWeekday = errors.New("invalid weekday")
	ErrInvalidTime    = errors.New("invalid time of day")
	ErrInvalidHalt    = errors.New("invalid halt rule")
	ErrInvalidPattern = errors.New("invalid recurrence pattern")
	ErrEmptyName      = errors.New("reminder name cannot be empty")
	ErrNotFound       = errors.New("reminder not found")
	ErrDuplicateID    = errors.New("reminder already exists")
)
