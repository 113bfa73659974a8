package caldav

import "time"

// Calendar represents a remote calendar collection
type Calendar struct {
	Path        string
	DisplayName string
}

// Event is a single timed reminder event with an optional alarm
type Event struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	Duration    time.Duration
	// Alarm fires this long before Start; negative means no alarm.
	AlarmBefore time.Duration
	RRule       string
}

// End returns Start plus Duration
func (e *Event) End() time.Time {
	return e.Start.Add(e.Duration)
}
