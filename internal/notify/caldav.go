package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tazhate/pillbot/internal/clients/caldav"
	"github.com/tazhate/pillbot/internal/domain"
)

// EventClient is the part of the CalDAV client CalDAV uses
type EventClient interface {
	PutEvent(ctx context.Context, event *caldav.Event) error
	DeleteEvent(ctx context.Context, uid string) error
	ListOwnedEvents(ctx context.Context, from time.Time) ([]caldav.Event, error)
}

const defaultEventDuration = 5 * time.Minute

// CalDAV mirrors each notification as a short event with an alarm at its start,
// so phones subscribed to the calendar ring too.
type CalDAV struct {
	client   EventClient
	now      func() time.Time
	Duration time.Duration
}

func NewCalDAV(client EventClient) *CalDAV {
	return &CalDAV{client: client, now: time.Now, Duration: defaultEventDuration}
}

func (c *CalDAV) ScheduleOnce(ctx context.Context, title, body string, at domain.DateComponents) error {
	event := &caldav.Event{
		UID:         caldav.NewUID(),
		Summary:     title,
		Description: body,
		Start:       at.Time(),
		Duration:    c.Duration,
		AlarmBefore: 0,
	}
	if err := c.client.PutEvent(ctx, event); err != nil {
		return fmt.Errorf("schedule caldav event: %w", err)
	}
	return nil
}

// RemoveAllPending deletes this bot's future events; other events in the calendar are left alone.
func (c *CalDAV) RemoveAllPending(ctx context.Context) error {
	events, err := c.client.ListOwnedEvents(ctx, c.now())
	if err != nil {
		return fmt.Errorf("list caldav events: %w", err)
	}
	var errs []error
	for _, e := range events {
		if err := c.client.DeleteEvent(ctx, e.UID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *CalDAV) Pending(ctx context.Context) ([]domain.Trigger, error) {
	events, err := c.client.ListOwnedEvents(ctx, c.now())
	if err != nil {
		return nil, fmt.Errorf("list caldav events: %w", err)
	}
	out := make([]domain.Trigger, 0, len(events))
	for _, e := range events {
		out = append(out, domain.Trigger{
			ID:     caldav.TriggerID(e.UID),
			Title:  e.Summary,
			Body:   e.Description,
			FireAt: e.Start,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out, nil
}
