package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"github.com/tazhate/pillbot/internal/calendar"
	"github.com/tazhate/pillbot/internal/domain"
)

// ErrNoRRule is returned for patterns an RFC 5545 rule cannot describe.
var ErrNoRRule = errors.New("pattern has no recurrence rule")

var rruleWeekdays = map[domain.Weekday]rrule.Weekday{
	domain.Monday:    rrule.MO,
	domain.Tuesday:   rrule.TU,
	domain.Wednesday: rrule.WE,
	domain.Thursday:  rrule.TH,
	domain.Friday:    rrule.FR,
	domain.Saturday:  rrule.SA,
	domain.Sunday:    rrule.SU,
}

// RRule describes a pattern as an RFC 5545 rule starting at start's day.
// Halt rules have no RRULE form and are not reflected. A monthly rule on
// days 29-31 skips short months where the engine clamps to the month end.
func RRule(cal *calendar.Calendar, p domain.Pattern, start time.Time) (*rrule.RRule, error) {
	if p == nil {
		return nil, ErrNoRRule
	}
	opt := rrule.ROption{
		Dtstart: cal.WithTimeOfDay(start, p.Time()),
	}

	switch v := p.(type) {
	case domain.Weekly:
		if len(v.Days) == 0 {
			return nil, ErrNoRRule
		}
		opt.Freq = rrule.WEEKLY
		for _, d := range domain.SortWeekdays(v.Days) {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case domain.Monthly:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{cal.DayOfMonth(start)}
	case domain.DaysOfMonth:
		if len(v.Days) == 0 {
			return nil, ErrNoRRule
		}
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = domain.SortMonthDays(v.Days)
	case domain.LastDayOfMonth:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{-1}
	default:
		return nil, ErrNoRRule
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}
	return rule, nil
}

// RRuleText renders the rule body, e.g. "FREQ=WEEKLY;BYDAY=MO,WE", or "" when there is none.
func RRuleText(cal *calendar.Calendar, p domain.Pattern, start time.Time) string {
	rule, err := RRule(cal, p, start)
	if err != nil {
		return ""
	}
	return rule.OrigOptions.RRuleString()
}
