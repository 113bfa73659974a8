// Package recurrence turns reminder patterns into concrete occurrence times.
package recurrence

import (
	"time"

	"github.com/tazhate/pillbot/internal/calendar"
	"github.com/tazhate/pillbot/internal/domain"
)

const (
	// DefaultMaxExpansions bounds how many candidate windows one query may scan.
	DefaultMaxExpansions = 512
	// maxRealignSteps bounds monthly realignment, one step per month since the anchor.
	maxRealignSteps = 12 * 400
)

// Query is one occurrence request.
type Query struct {
	Pattern domain.Pattern
	Halt    *domain.HaltRule
	Enabled bool
	// Anchor is the series anchor for Monthly; SearchFrom is used when zero.
	Anchor time.Time
	// SearchFrom is where the first candidate window starts.
	SearchFrom time.Time
	// NotBefore excludes candidates at or before it.
	NotBefore time.Time
	Count     int
}

// Generator computes occurrences on a fixed calendar.
type Generator struct {
	cal           *calendar.Calendar
	MaxExpansions int
}

// NewGenerator creates a generator with the default expansion cap
func NewGenerator(cal *calendar.Calendar) *Generator {
	return &Generator{
		cal:           cal,
		MaxExpansions: DefaultMaxExpansions,
	}
}

func (g *Generator) Calendar() *calendar.Calendar {
	return g.cal
}

// Occurrences returns up to q.Count strictly increasing times matching the
// pattern, each after q.NotBefore and none suppressed by q.Halt.
//
// Work is done in windows the size of the still-missing count. When filtering
// leaves a window short, the search origin moves past it and the next window
// covers the remainder. Scanning stops when the count is reached, when
// calendar arithmetic fails, or after MaxExpansions windows.
func (g *Generator) Occurrences(q Query) []time.Time {
	if q.Count <= 0 || !q.Enabled || q.Pattern == nil {
		return nil
	}

	acc := &accumulator{g: g, q: q}
	switch p := q.Pattern.(type) {
	case domain.Once:
		g.once(acc, p)
	case domain.Weekly:
		if len(p.Days) == 0 {
			return nil
		}
		g.daily(acc, p.At, func(t time.Time) bool {
			day, err := g.cal.WeekdayOf(t)
			if err != nil {
				return false
			}
			return p.Contains(day)
		})
	case domain.DaysOfMonth:
		if len(p.Days) == 0 {
			return nil
		}
		g.daily(acc, p.At, func(t time.Time) bool {
			return p.Contains(g.cal.DayOfMonth(t))
		})
	case domain.Monthly:
		g.monthly(acc, p)
	case domain.LastDayOfMonth:
		g.lastDayOfMonth(acc, p)
	}
	return acc.out
}

// Upcoming returns the next count occurrences of r after from.
func (g *Generator) Upcoming(r domain.Reminder, from time.Time, count int) []time.Time {
	return g.Occurrences(QueryFor(r, from, count))
}

// QueryFor maps a reminder onto a query searching from from.
func QueryFor(r domain.Reminder, from time.Time, count int) Query {
	q := Query{
		Pattern:    r.Pattern,
		Halt:       r.Halt,
		Enabled:    r.Enabled,
		Anchor:     r.Start,
		SearchFrom: from,
		NotBefore:  from,
		Count:      count,
	}
	if r.Halt != nil && r.Halt.Anchor.IsZero() {
		h := *r.Halt
		h.Anchor = r.Start
		q.Halt = &h
	}
	switch p := r.Pattern.(type) {
	case domain.Once:
		q.SearchFrom = p.At
	case domain.LastDayOfMonth:
		if r.Start.After(from) {
			q.SearchFrom = r.Start
		}
	}
	return q
}

func (g *Generator) once(acc *accumulator, p domain.Once) {
	from := acc.q.SearchFrom
	if from.IsZero() {
		from = p.At
	}
	acc.offer(g.cal.WithTimeOfDay(from, g.cal.TimeOf(p.At)))
}

// daily scans consecutive days starting today at tod, or tomorrow when that
// instant is not after the search origin, keeping days accepted by match.
// Each day gets tod again, so a clock shifted by a DST gap stays on that day.
func (g *Generator) daily(acc *accumulator, tod domain.TimeOfDay, match func(time.Time) bool) {
	from := acc.q.SearchFrom
	for i := 0; i < g.maxExpansions() && acc.remaining() > 0; i++ {
		window := acc.remaining()
		next := g.cal.WithTimeOfDay(from, tod)
		if !from.Before(next) {
			tomorrow, ok := g.cal.AddDays(next, 1).Get()
			if !ok {
				return
			}
			next = tomorrow
		}
		for k := 0; k < window; k++ {
			day, ok := g.cal.AddDays(next, k).Get()
			if !ok {
				break
			}
			day = g.cal.WithTimeOfDay(day, tod)
			if match(day) {
				acc.offer(day)
			}
		}
		nextFrom, ok := g.cal.AddDays(from, window).Get()
		if !ok {
			return
		}
		from = nextFrom
	}
}

// monthly realigns the anchor past the search origin one month at a time,
// then emits consecutive months from it.
func (g *Generator) monthly(acc *accumulator, p domain.Monthly) {
	from := acc.q.SearchFrom
	anchor := acc.q.Anchor
	if anchor.IsZero() {
		anchor = from
	}
	candidate := g.cal.WithTimeOfDay(anchor, p.At)
	steps := 0
	for i := 0; i < g.maxExpansions() && acc.remaining() > 0; i++ {
		for from.After(candidate) {
			if steps >= maxRealignSteps {
				return
			}
			next, ok := g.cal.AddMonths(candidate, 1).Get()
			if !ok {
				return
			}
			candidate = next
			steps++
		}
		window := acc.remaining()
		for k := 0; k < window; k++ {
			month, ok := g.cal.AddMonths(candidate, k).Get()
			if !ok {
				break
			}
			acc.offer(g.cal.WithTimeOfDay(month, p.At))
		}
		nextFrom, ok := g.cal.AddMonths(from, window).Get()
		if !ok {
			return
		}
		from = nextFrom
	}
}

func (g *Generator) lastDayOfMonth(acc *accumulator, p domain.LastDayOfMonth) {
	from := acc.q.SearchFrom
	for i := 0; i < g.maxExpansions() && acc.remaining() > 0; i++ {
		window := acc.remaining()
		start := g.cal.WithTimeOfDay(from, p.At)
		for k := 0; k < window; k++ {
			day, ok := g.cal.AddDays(start, k).Get()
			if !ok {
				break
			}
			day = g.cal.WithTimeOfDay(day, p.At)
			if g.cal.IsLastDayOfMonth(day) {
				acc.offer(day)
			}
		}
		nextFrom, ok := g.cal.AddDays(from, window).Get()
		if !ok {
			return
		}
		from = nextFrom
	}
}

func (g *Generator) maxExpansions() int {
	if g.MaxExpansions <= 0 {
		return DefaultMaxExpansions
	}
	return g.MaxExpansions
}

// accumulator collects accepted candidates across windows.
type accumulator struct {
	g   *Generator
	q   Query
	out []time.Time
}

func (a *accumulator) remaining() int {
	return a.q.Count - len(a.out)
}

// offer keeps t if it is after the floor, not halted, later than the last
// kept time, and the count is not yet reached.
func (a *accumulator) offer(t time.Time) {
	if a.remaining() <= 0 {
		return
	}
	if IsHalted(a.g.cal, a.q.Halt, t) {
		return
	}
	if !t.After(a.q.NotBefore) {
		return
	}
	if n := len(a.out); n > 0 && !t.After(a.out[n-1]) {
		return
	}
	a.out = append(a.out, t)
}
