package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/tazhate/pillbot/internal/domain"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type HaltRequest struct {
	Unit   string     `json:"unit" validate:"required,oneof=week month"`
	Nth    int        `json:"nth" validate:"required,min=2"`
	Anchor *time.Time `json:"anchor,omitempty"`
}

// ReminderRequest is the flat create/update body. Date is only read for
// kind "once", Weekdays for "weekly" and Days for "days_of_month".
type ReminderRequest struct {
	Name     string       `json:"name" validate:"required,max=200"`
	Enabled  *bool        `json:"enabled"`
	Kind     string       `json:"kind" validate:"required,oneof=once weekly monthly days_of_month last_day_of_month"`
	Time     string       `json:"time" validate:"required"`
	Date     string       `json:"date" validate:"required_if=Kind once"`
	Weekdays []string     `json:"weekdays" validate:"dive,required"`
	Days     []int        `json:"days" validate:"dive,min=1,max=31"`
	Halt     *HaltRequest `json:"halt"`
	Start    *time.Time   `json:"start"`
}

type EnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type HaltResponse struct {
	Unit   string    `json:"unit"`
	Nth    int       `json:"nth"`
	Anchor time.Time `json:"anchor"`
}

type ReminderResponse struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Enabled bool          `json:"enabled"`
	Kind    string        `json:"kind"`
	Summary string        `json:"summary"`
	RRule   string        `json:"rrule,omitempty"`
	Halt    *HaltResponse `json:"halt,omitempty"`
	Start   time.Time     `json:"start"`
	NextRun *time.Time    `json:"next_run,omitempty"`
}

type OccurrenceResponse struct {
	At         time.Time `json:"at"`
	ReminderID string    `json:"reminder_id"`
	Name       string    `json:"name"`
}

type TriggerResponse struct {
	ID     string    `json:"id,omitempty"`
	Title  string    `json:"title"`
	Body   string    `json:"body,omitempty"`
	FireAt time.Time `json:"fire_at"`
}

// toDraft converts the request into an edit draft in loc
func (req ReminderRequest) toDraft(loc *time.Location) (domain.Draft, error) {
	at, err := domain.ParseTimeOfDay(req.Time)
	if err != nil {
		return domain.Draft{}, err
	}

	var p domain.Pattern
	switch domain.Kind(req.Kind) {
	case domain.KindOnce:
		day, err := time.ParseInLocation("2006-01-02", req.Date, loc)
		if err != nil {
			return domain.Draft{}, fmt.Errorf("%w: date %q, use YYYY-MM-DD", domain.ErrInvalidPattern, req.Date)
		}
		p = domain.Once{At: time.Date(day.Year(), day.Month(), day.Day(), at.Hour, at.Minute, 0, 0, loc)}
	case domain.KindWeekly:
		days := make([]domain.Weekday, 0, len(req.Weekdays))
		for _, s := range req.Weekdays {
			d, err := domain.ParseWeekday(s)
			if err != nil {
				return domain.Draft{}, err
			}
			days = append(days, d)
		}
		p = domain.Weekly{Days: domain.SortWeekdays(days), At: at}
	case domain.KindMonthly:
		p = domain.Monthly{At: at}
	case domain.KindDaysOfMonth:
		p = domain.DaysOfMonth{Days: domain.SortMonthDays(req.Days), At: at}
	case domain.KindLastDayOfMonth:
		p = domain.LastDayOfMonth{At: at}
	default:
		return domain.Draft{}, fmt.Errorf("%w: kind %q", domain.ErrInvalidPattern, req.Kind)
	}

	r := domain.Reminder{
		Enabled: true,
		Name:    strings.TrimSpace(req.Name),
		Pattern: p,
	}
	if req.Enabled != nil {
		r.Enabled = *req.Enabled
	}
	if req.Start != nil {
		r.Start = *req.Start
	}
	if req.Halt != nil {
		r.Halt = &domain.HaltRule{Unit: domain.HaltUnit(req.Halt.Unit), Nth: req.Halt.Nth}
		if req.Halt.Anchor != nil {
			r.Halt.Anchor = *req.Halt.Anchor
		}
	}

	return domain.ToDraft(r), nil
}

// haltResponse reports the anchor the rule is evaluated against
func haltResponse(r domain.Reminder) *HaltResponse {
	if r.Halt == nil {
		return nil
	}
	return &HaltResponse{Unit: string(r.Halt.Unit), Nth: r.Halt.Nth, Anchor: r.HaltAnchor()}
}
