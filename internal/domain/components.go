package domain

import (
	"fmt"
	"time"
)

// DateComponents is the calendar-style trigger date handed to a notifier.
type DateComponents struct {
	Year     int
	Month    int
	Day      int
	Hour     int
	Minute   int
	Second   int
	Location *time.Location
}

// Time resolves the components in their location, UTC if none
func (c DateComponents) Time() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(c.Year, time.Month(c.Month), c.Day, c.Hour, c.Minute, c.Second, 0, loc)
}

func (c DateComponents) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second)
}
