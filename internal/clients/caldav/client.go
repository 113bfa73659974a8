package caldav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

const (
	// UIDSuffix marks events created by this client
	UIDSuffix = "@pillbot"

	productID = "-//Pillbot//Reminders//EN"
)

// Client talks to one CalDAV calendar collection
type Client struct {
	baseURL      string
	username     string
	password     string
	calendarPath string
	client       *caldav.Client
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password, calendarPath string) *Client {
	return &Client{
		baseURL:      baseURL,
		username:     username,
		password:     password,
		calendarPath: calendarPath,
	}
}

// IsConfigured returns true if the client has a server, credentials and a calendar
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.username != "" && c.password != "" && c.calendarPath != ""
}

func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars lists the calendars in the user's home set
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	result := make([]Calendar, 0, len(cals))
	for _, cal := range cals {
		result = append(result, Calendar{Path: cal.Path, DisplayName: cal.Name})
	}
	return result, nil
}

// ListOwnedEvents returns events created by this client that start after from
func (c *Client) ListOwnedEvents(ctx context.Context, from time.Time) ([]Event, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{
				{
					Name:  ical.CompEvent,
					Start: from,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var events []Event
	for _, obj := range objects {
		event, err := parseCalendarObject(&obj)
		if err != nil {
			continue
		}
		if !IsOwned(event.UID) || !event.Start.After(from) {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// PutEvent creates or replaces an event, assigning a UID when it has none
func (c *Client) PutEvent(ctx context.Context, event *Event) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	if event.UID == "" {
		event.UID = NewUID()
	}

	if _, err := client.PutCalendarObject(ctx, c.eventPath(event.UID), eventToICS(event)); err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

// DeleteEvent deletes an event by UID
func (c *Client) DeleteEvent(ctx context.Context, uid string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	if err := client.RemoveAll(ctx, c.eventPath(uid)); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (c *Client) eventPath(uid string) string {
	path := c.calendarPath
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + uid + ".ics"
}

// NewUID returns a fresh UID carrying the pillbot suffix
func NewUID() string {
	return uuid.NewString() + UIDSuffix
}

// IsOwned reports whether uid was generated by NewUID
func IsOwned(uid string) bool {
	return strings.HasSuffix(uid, UIDSuffix)
}

// TriggerID strips the pillbot suffix from an owned UID
func TriggerID(uid string) string {
	return strings.TrimSuffix(uid, UIDSuffix)
}

// parseCalendarObject reads the first VEVENT of a CalDAV object
func parseCalendarObject(obj *caldav.CalendarObject) (Event, error) {
	if obj.Data == nil {
		return Event{}, fmt.Errorf("no data in calendar object")
	}
	return parseCalendar(obj.Data)
}

func parseCalendar(cal *ical.Calendar) (Event, error) {
	event := Event{AlarmBefore: -1}

	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}

		if prop := comp.Props.Get(ical.PropUID); prop != nil {
			event.UID = prop.Value
		}
		if prop := comp.Props.Get(ical.PropSummary); prop != nil {
			event.Summary = prop.Value
		}
		if prop := comp.Props.Get(ical.PropDescription); prop != nil {
			event.Description = prop.Value
		}
		if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
			event.RRule = prop.Value
		}

		if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
			t, err := prop.DateTime(time.UTC)
			if err != nil {
				return Event{}, fmt.Errorf("parse start: %w", err)
			}
			event.Start = t
		}
		if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
			if t, err := prop.DateTime(time.UTC); err == nil && !event.Start.IsZero() {
				event.Duration = t.Sub(event.Start)
			}
		}

		for _, child := range comp.Children {
			if child.Name != ical.CompAlarm {
				continue
			}
			if prop := child.Props.Get(ical.PropTrigger); prop != nil {
				if d, err := prop.Duration(); err == nil {
					event.AlarmBefore = -d
				}
			}
			break
		}

		return event, nil
	}

	return Event{}, fmt.Errorf("no VEVENT in calendar object")
}

// eventToICS converts an Event to iCalendar format
func eventToICS(event *Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.UID)
	vevent.Props.SetText(ical.PropSummary, event.Summary)
	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}

	// Stored in UTC, iCalendar uses the Z suffix
	vevent.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
	if event.Duration > 0 {
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.End().UTC())
	}
	if event.RRule != "" {
		vevent.Props.SetText(ical.PropRecurrenceRule, event.RRule)
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	if event.AlarmBefore >= 0 {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, event.Summary)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = formatTrigger(event.AlarmBefore)
		alarm.Props.Set(trigger)
		vevent.Children = append(vevent.Children, alarm)
	}

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}

// formatTrigger renders a relative alarm trigger, e.g. "-PT15M"
func formatTrigger(before time.Duration) string {
	minutes := int(before / time.Minute)
	if minutes == 0 {
		return "PT0M"
	}
	return fmt.Sprintf("-PT%dM", minutes)
}

// SerializeCalendar converts calendar to string (for debugging)
func SerializeCalendar(cal *ical.Calendar) string {
	var buf bytes.Buffer
	enc := ical.NewEncoder(&buf)
	_ = enc.Encode(cal)
	return buf.String()
}
