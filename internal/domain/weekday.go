package domain

import (
	"fmt"
	"strings"
)

// Weekday represents a day of the week, Monday first.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// AllWeekdays lists the weekdays in display order.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Calendar weekday codes as the host calendar reports them (Sunday = 1 ... Saturday = 7).
var weekdayByCode = map[int]Weekday{
	1: Sunday,
	2: Monday,
	3: Tuesday,
	4: Wednesday,
	5: Thursday,
	6: Friday,
	7: Saturday,
}

var codeByWeekday = map[Weekday]int{
	Sunday:    1,
	Monday:    2,
	Tuesday:   3,
	Wednesday: 4,
	Thursday:  5,
	Friday:    6,
	Saturday:  7,
}

// WeekdayFromCode maps a calendar weekday code to a Weekday
func WeekdayFromCode(code int) (Weekday, error) {
	if d, ok := weekdayByCode[code]; ok {
		return d, nil
	}
	return "", fmt.Errorf("%w: %d", ErrInvalidWeekday, code)
}

// Code returns the calendar weekday code, 0 for unknown values
func (d Weekday) Code() int {
	return codeByWeekday[d]
}

// Valid reports whether d is one of the seven weekdays
func (d Weekday) Valid() bool {
	_, ok := codeByWeekday[d]
	return ok
}

// Short returns the three-letter display form
func (d Weekday) Short() string {
	switch d {
	case Monday:
		return "Mon"
	case Tuesday:
		return "Tue"
	case Wednesday:
		return "Wed"
	case Thursday:
		return "Thu"
	case Friday:
		return "Fri"
	case Saturday:
		return "Sat"
	case Sunday:
		return "Sun"
	default:
		return ""
	}
}

func (d Weekday) String() string {
	return string(d)
}

// ParseWeekday parses full or short weekday names, case-insensitive
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range AllWeekdays {
		if s == strings.ToLower(string(d)) || s == strings.ToLower(d.Short()) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// SortWeekdays returns days deduplicated in display order
func SortWeekdays(days []Weekday) []Weekday {
	selected := make(map[Weekday]bool, len(days))
	for _, d := range days {
		selected[d] = true
	}
	var out []Weekday
	for _, d := range AllWeekdays {
		if selected[d] {
			out = append(out, d)
		}
	}
	return out
}
