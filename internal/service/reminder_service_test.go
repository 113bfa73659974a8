package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/pillbot/internal/calendar"
	"github.com/tazhate/pillbot/internal/domain"
	"github.com/tazhate/pillbot/internal/notify"
	"github.com/tazhate/pillbot/internal/recurrence"
)

type memStore struct {
	reminders []domain.Reminder
	last      time.Time
	hasLast   bool
	saveErr   error
	readErr   error
}

func (m *memStore) LoadReminders() []domain.Reminder {
	return append([]domain.Reminder(nil), m.reminders...)
}

func (m *memStore) ReadReminders() ([]domain.Reminder, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.LoadReminders(), nil
}

func (m *memStore) SaveReminders(reminders []domain.Reminder) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.reminders = append([]domain.Reminder(nil), reminders...)
	return nil
}

func (m *memStore) LastReschedule() (time.Time, bool) {
	return m.last, m.hasLast
}

func (m *memStore) SetLastReschedule(t time.Time) error {
	m.last, m.hasLast = t, true
	return nil
}

func (m *memStore) ClearLastReschedule() error {
	m.last, m.hasLast = time.Time{}, false
	return nil
}

type fakeNotifier struct {
	ops       []string
	scheduled []domain.DateComponents
	titles    []string
	removeErr error
}

func (f *fakeNotifier) ScheduleOnce(_ context.Context, title, body string, at domain.DateComponents) error {
	f.ops = append(f.ops, "schedule")
	f.titles = append(f.titles, title)
	f.scheduled = append(f.scheduled, at)
	return nil
}

func (f *fakeNotifier) RemoveAllPending(context.Context) error {
	f.ops = append(f.ops, "remove")
	f.scheduled = nil
	f.titles = nil
	return f.removeErr
}

func (f *fakeNotifier) Pending(context.Context) ([]domain.Trigger, error) {
	out := make([]domain.Trigger, 0, len(f.scheduled))
	for i, at := range f.scheduled {
		out = append(out, domain.Trigger{Title: f.titles[i], FireAt: at.Time()})
	}
	return out, nil
}

var testNow = time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC) // Monday

func newTestService(opts Options) (*ReminderService, *memStore, *fakeNotifier) {
	store := &memStore{}
	notifier := &fakeNotifier{}
	svc := NewReminderService(store, notifier, recurrence.NewGenerator(calendar.New(time.UTC)), opts)
	svc.now = func() time.Time { return testNow }
	return svc, store, notifier
}

func dailyDraft(name string, hour int) domain.Draft {
	d := domain.ToDraft(domain.Reminder{
		Enabled: true,
		Name:    name,
		Pattern: domain.Weekly{Days: domain.AllWeekdays, At: domain.TimeOfDay{Hour: hour}},
	})
	return d
}

func TestCreate_PersistsAndReschedules(t *testing.T) {
	svc, store, notifier := newTestService(Options{TotalLimit: 5})
	ctx := context.Background()

	r, err := svc.Create(ctx, dailyDraft("Iron", 8))
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, testNow, r.Start)
	require.Len(t, store.reminders, 1)
	assert.Equal(t, "Iron", store.reminders[0].Name)

	assert.Equal(t, []string{"remove", "schedule", "schedule", "schedule", "schedule", "schedule"}, notifier.ops)
	assert.Equal(t, domain.DateComponents{Year: 2024, Month: 3, Day: 4, Hour: 8, Location: time.UTC}, notifier.scheduled[0])
	assert.Equal(t, []string{"Iron", "Iron", "Iron", "Iron", "Iron"}, notifier.titles)

	last, ok := store.LastReschedule()
	require.True(t, ok)
	assert.Equal(t, testNow, last)
}

func TestCreate_RejectsInvalidDraft(t *testing.T) {
	svc, store, notifier := newTestService(Options{})
	ctx := context.Background()

	_, err := svc.Create(ctx, dailyDraft("   ", 8))
	assert.ErrorIs(t, err, domain.ErrEmptyName)

	bad := dailyDraft("Iron", 8)
	bad.HaltInterval = domain.HaltWeek
	bad.HaltNth = 1
	_, err = svc.Create(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrInvalidHalt)

	assert.Empty(t, store.reminders)
	assert.Empty(t, notifier.ops)
}

func TestCreate_RejectsDuplicateID(t *testing.T) {
	svc, store, _ := newTestService(Options{})
	ctx := context.Background()

	d := dailyDraft("Iron", 8)
	d.ID = "fixed"
	_, err := svc.Create(ctx, d)
	require.NoError(t, err)

	_, err = svc.Create(ctx, d)
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
	assert.Len(t, store.reminders, 1)
}

func TestCreate_SaveFailureSkipsReset(t *testing.T) {
	svc, store, notifier := newTestService(Options{})
	store.saveErr = errors.New("disk full")

	_, err := svc.Create(context.Background(), dailyDraft("Iron", 8))
	assert.Error(t, err)
	assert.Empty(t, notifier.ops)
	assert.False(t, store.hasLast)
}

func TestReset_MergesAndLimits(t *testing.T) {
	svc, _, notifier := newTestService(Options{PerReminderLimit: 3, TotalLimit: 4})
	ctx := context.Background()

	_, err := svc.Create(ctx, dailyDraft("Evening", 20))
	require.NoError(t, err)
	_, err = svc.Create(ctx, dailyDraft("Morning", 8))
	require.NoError(t, err)

	assert.Equal(t, []string{"Morning", "Evening", "Morning", "Evening"}, notifier.titles)

	n, err := svc.Reset(ctx, testNow.Add(13*time.Hour)) // 19:00, today's 08:00 already gone
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"Evening", "Morning", "Evening", "Morning"}, notifier.titles)
	assert.Equal(t, 20, notifier.scheduled[0].Hour)
	assert.Equal(t, 4, notifier.scheduled[0].Day)
}

func TestReset_RemoveFailureAborts(t *testing.T) {
	svc, store, notifier := newTestService(Options{})
	store.reminders = []domain.Reminder{{ID: "a", Enabled: true, Name: "Iron", Pattern: domain.Weekly{Days: domain.AllWeekdays}}}
	store.last, store.hasLast = testNow.Add(-time.Hour), true
	notifier.removeErr = errors.New("offline")

	_, err := svc.Reset(context.Background(), testNow)
	assert.Error(t, err)
	assert.Equal(t, []string{"remove"}, notifier.ops)
	assert.False(t, store.hasLast, "a failed clear must leave the schedule stale")
}

func TestReset_PartialClearStillSchedulesAndRetries(t *testing.T) {
	store := &memStore{}
	local := &fakeNotifier{}
	remote := &fakeNotifier{removeErr: errors.New("caldav down")}
	svc := NewReminderService(store, notify.NewMulti(local, remote), recurrence.NewGenerator(calendar.New(time.UTC)), Options{TotalLimit: 5})
	svc.now = func() time.Time { return testNow }
	ctx := context.Background()

	store.last, store.hasLast = testNow.Add(-time.Hour), true

	_, err := svc.Create(ctx, dailyDraft("Iron", 8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caldav down")
	assert.Len(t, store.reminders, 1)
	assert.Len(t, local.titles, 5, "local notifications are rebuilt")
	assert.Equal(t, []string{"remove"}, remote.ops, "uncleared notifier gets no second batch")
	assert.False(t, store.hasLast)

	remote.removeErr = nil
	ran, err := svc.ResetIfStale(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Len(t, local.titles, 5)
	assert.Len(t, remote.titles, 5)
	assert.Equal(t, testNow, store.last)
}

func TestMutations_ReadErrorKeepsStoredList(t *testing.T) {
	svc, store, notifier := newTestService(Options{})
	ctx := context.Background()

	r, err := svc.Create(ctx, dailyDraft("Iron", 8))
	require.NoError(t, err)
	notifier.ops = nil
	store.readErr = errors.New("database is locked")

	_, err = svc.Create(ctx, dailyDraft("Zinc", 9))
	assert.ErrorIs(t, err, store.readErr)
	_, err = svc.Update(ctx, r.ID, domain.ToDraft(r))
	assert.ErrorIs(t, err, store.readErr)
	_, err = svc.SetEnabled(ctx, r.ID, false)
	assert.ErrorIs(t, err, store.readErr)
	assert.ErrorIs(t, svc.Delete(ctx, r.ID), store.readErr)
	_, err = svc.Reset(ctx, testNow)
	assert.ErrorIs(t, err, store.readErr)

	require.Len(t, store.reminders, 1)
	assert.Equal(t, r.ID, store.reminders[0].ID)
	assert.Empty(t, notifier.ops)
}

func TestSetEnabled_DisabledReminderIsNotScheduled(t *testing.T) {
	svc, _, notifier := newTestService(Options{})
	ctx := context.Background()

	r, err := svc.Create(ctx, dailyDraft("Iron", 8))
	require.NoError(t, err)
	require.NotEmpty(t, notifier.titles)

	off, err := svc.SetEnabled(ctx, r.ID, false)
	require.NoError(t, err)
	assert.False(t, off.Enabled)
	assert.Empty(t, notifier.titles)

	_, err = svc.SetEnabled(ctx, "missing", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateAndDelete(t *testing.T) {
	svc, store, _ := newTestService(Options{})
	ctx := context.Background()

	r, err := svc.Create(ctx, dailyDraft("Iron", 8))
	require.NoError(t, err)

	d := domain.ToDraft(r)
	d.Name = "Iron + C"
	d.Interval = domain.KindLastDayOfMonth
	d.Start = time.Time{}
	updated, err := svc.Update(ctx, r.ID, d)
	require.NoError(t, err)
	assert.Equal(t, r.ID, updated.ID)
	assert.Equal(t, r.Start, updated.Start)
	assert.Equal(t, domain.KindLastDayOfMonth, updated.Pattern.Kind())

	got, err := svc.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Iron + C", got.Name)

	_, err = svc.Update(ctx, "missing", d)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, r.ID))
	assert.Empty(t, store.reminders)
	assert.ErrorIs(t, svc.Delete(ctx, r.ID), domain.ErrNotFound)

	_, err = svc.Get(r.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResetIfStale(t *testing.T) {
	svc, store, notifier := newTestService(Options{})
	ctx := context.Background()

	ran, err := svc.ResetIfStale(ctx)
	require.NoError(t, err)
	assert.True(t, ran, "missing timestamp resets")

	store.last = testNow.Add(-48 * time.Hour)
	notifier.ops = nil
	ran, err = svc.ResetIfStale(ctx)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, notifier.ops)

	store.last = testNow.Add(-73 * time.Hour)
	ran, err = svc.ResetIfStale(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, testNow, store.last)
}

func TestUpcomingPreviewDescribe(t *testing.T) {
	svc, _, _ := newTestService(Options{TotalLimit: 10})
	ctx := context.Background()

	r, err := svc.Create(ctx, dailyDraft("Iron", 8))
	require.NoError(t, err)

	next, err := svc.Upcoming(r.ID, 3)
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC), next[0])

	_, err = svc.Upcoming("missing", 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	unsaved := r
	unsaved.ID = "not-stored"
	assert.Equal(t, next, svc.UpcomingFor(unsaved, 3))

	assert.Len(t, svc.Preview(2), 2)
	assert.Len(t, svc.Preview(0), 10)
	assert.Len(t, svc.Preview(500), 10)

	assert.Equal(t, "Mon, Tue, Wed, Thu, Fri, Sat, Sun at 8:00, next Mon Mar 4 08:00", svc.Describe(r))
	r.Enabled = false
	assert.Contains(t, svc.Describe(r), "(off)")

	assert.Contains(t, svc.RRule(r), "FREQ=WEEKLY")

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 10)
}

func TestSaveAll_ValidatesEveryReminder(t *testing.T) {
	svc, store, notifier := newTestService(Options{})

	err := svc.SaveAll(context.Background(), []domain.Reminder{
		{ID: "a", Enabled: true, Name: "Iron", Pattern: domain.Monthly{}},
		{ID: "b", Enabled: true, Name: "", Pattern: domain.Monthly{}},
	})
	assert.Error(t, err)
	assert.Empty(t, store.reminders)
	assert.Empty(t, notifier.ops)
}
