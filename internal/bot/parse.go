package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tazhate/pillbot/internal/domain"
)

const addUsage = "Usage: /add HH:MM once YYYY-MM-DD|weekly mon,wed|monthly|dom 1,15|last [halt week|month N] Title"

// ParseAdd parses the /add arguments into a draft:
//
//	HH:MM <kind> [kind args] [halt week|month N] Title
//
// Kinds are once YYYY-MM-DD, weekly mon,wed, monthly, dom 1,15 and last.
// Dates are read in loc and now becomes the reminder's start.
func ParseAdd(args string, now time.Time, loc *time.Location) (domain.Draft, error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return domain.Draft{}, fmt.Errorf("%s", addUsage)
	}

	at, err := domain.ParseTimeOfDay(fields[0])
	if err != nil {
		return domain.Draft{}, err
	}

	var p domain.Pattern
	rest := fields[2:]
	switch strings.ToLower(fields[1]) {
	case "once":
		if len(rest) == 0 {
			return domain.Draft{}, fmt.Errorf("once needs a date: YYYY-MM-DD")
		}
		day, err := time.ParseInLocation("2006-01-02", rest[0], loc)
		if err != nil {
			return domain.Draft{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", rest[0])
		}
		p = domain.Once{At: time.Date(day.Year(), day.Month(), day.Day(), at.Hour, at.Minute, 0, 0, loc)}
		rest = rest[1:]
	case "weekly":
		if len(rest) == 0 {
			return domain.Draft{}, fmt.Errorf("weekly needs days, e.g. mon,wed")
		}
		days, err := parseWeekdays(rest[0])
		if err != nil {
			return domain.Draft{}, err
		}
		p = domain.Weekly{Days: days, At: at}
		rest = rest[1:]
	case "monthly":
		p = domain.Monthly{At: at}
	case "dom":
		if len(rest) == 0 {
			return domain.Draft{}, fmt.Errorf("dom needs days of month, e.g. 1,15")
		}
		days, err := parseMonthDays(rest[0])
		if err != nil {
			return domain.Draft{}, err
		}
		p = domain.DaysOfMonth{Days: days, At: at}
		rest = rest[1:]
	case "last":
		p = domain.LastDayOfMonth{At: at}
	default:
		return domain.Draft{}, fmt.Errorf("unknown kind %q\n%s", fields[1], addUsage)
	}

	var halt *domain.HaltRule
	if len(rest) > 0 && strings.EqualFold(rest[0], "halt") {
		if len(rest) < 3 {
			return domain.Draft{}, fmt.Errorf("halt needs a unit and a number, e.g. halt week 2")
		}
		nth, err := strconv.Atoi(rest[2])
		if err != nil {
			return domain.Draft{}, fmt.Errorf("invalid halt number %q", rest[2])
		}
		switch strings.ToLower(rest[1]) {
		case "week":
			halt = domain.EveryNthWeek(now.In(loc), nth)
		case "month":
			halt = domain.EveryNthMonth(now.In(loc), nth)
		default:
			return domain.Draft{}, fmt.Errorf("halt unit must be week or month")
		}
		if err := halt.Validate(); err != nil {
			return domain.Draft{}, err
		}
		rest = rest[3:]
	}

	name := strings.Join(rest, " ")
	if name == "" {
		return domain.Draft{}, fmt.Errorf("title is required\n%s", addUsage)
	}

	return domain.ToDraft(domain.Reminder{
		Enabled: true,
		Name:    name,
		Pattern: p,
		Halt:    halt,
		Start:   now.In(loc),
	}), nil
}

func parseWeekdays(s string) ([]domain.Weekday, error) {
	var days []domain.Weekday
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			continue
		}
		d, err := domain.ParseWeekday(part)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no weekdays given")
	}
	return domain.SortWeekdays(days), nil
}

func parseMonthDays(s string) ([]int, error) {
	var days []int
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 1 || d > 31 {
			return nil, fmt.Errorf("invalid day of month %q", part)
		}
		days = append(days, d)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no days of month given")
	}
	return domain.SortMonthDays(days), nil
}

// resolveID finds the one reminder whose ID starts with prefix
func resolveID(reminders []domain.Reminder, prefix string) (domain.Reminder, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return domain.Reminder{}, fmt.Errorf("reminder id is required")
	}
	var found []domain.Reminder
	for _, r := range reminders {
		if r.ID == prefix {
			return r, nil
		}
		if strings.HasPrefix(r.ID, prefix) {
			found = append(found, r)
		}
	}
	switch len(found) {
	case 0:
		return domain.Reminder{}, fmt.Errorf("%w: %s", domain.ErrNotFound, prefix)
	case 1:
		return found[0], nil
	default:
		return domain.Reminder{}, fmt.Errorf("id %q is ambiguous, use more characters", prefix)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
