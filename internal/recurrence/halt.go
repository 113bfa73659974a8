package recurrence

import (
	"time"

	"github.com/tazhate/pillbot/internal/calendar"
	"github.com/tazhate/pillbot/internal/domain"
)

// IsHalted reports whether the halt rule suppresses candidate.
//
// Anchor and candidate are both moved to noon before counting, so sub-day
// offsets and DST shifts around midnight do not change the elapsed unit count.
// The period containing elapsed = N-1 is the suppressed one: a rule with N = 2
// fires for one week (or month), skips the next, and so on.
func IsHalted(cal *calendar.Calendar, rule *domain.HaltRule, candidate time.Time) bool {
	if rule == nil || rule.Nth < 2 {
		return false
	}
	from := cal.Noon(rule.Anchor)
	to := cal.Noon(candidate)

	var elapsed int
	switch rule.Unit {
	case domain.HaltWeek:
		elapsed = cal.DaysBetween(from, to) / 7
	case domain.HaltMonth:
		elapsed = cal.MonthsBetween(from, to)
	default:
		return false
	}
	return (elapsed+1)%rule.Nth == 0
}
