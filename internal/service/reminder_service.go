package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tazhate/pillbot/internal/domain"
	"github.com/tazhate/pillbot/internal/notify"
	"github.com/tazhate/pillbot/internal/recurrence"
)

// DefaultStaleAfter is how old the last full reschedule may get before ResetIfStale rebuilds it
const DefaultStaleAfter = 72 * time.Hour

// ReminderStore persists the reminder list and the reschedule timestamp.
// LoadReminders degrades to an empty list for display; ReadReminders is used
// before the list is written back and reports read failures.
type ReminderStore interface {
	LoadReminders() []domain.Reminder
	ReadReminders() ([]domain.Reminder, error)
	SaveReminders(reminders []domain.Reminder) error
	LastReschedule() (time.Time, bool)
	SetLastReschedule(t time.Time) error
	ClearLastReschedule() error
}

// Options tune the reset protocol
type Options struct {
	PerReminderLimit int
	TotalLimit       int
	StaleAfter       time.Duration
}

func (o Options) withDefaults() Options {
	if o.PerReminderLimit <= 0 {
		o.PerReminderLimit = recurrence.DefaultPerReminderLimit
	}
	if o.TotalLimit <= 0 {
		o.TotalLimit = recurrence.DefaultTotalLimit
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	return o
}

// ReminderService edits the reminder list and keeps the pending notifications in sync with it.
// Every save clears all pending notifications and schedules a fresh batch.
type ReminderService struct {
	mu       sync.Mutex
	store    ReminderStore
	notifier notify.Notifier
	gen      *recurrence.Generator
	opts     Options
	now      func() time.Time
}

func NewReminderService(store ReminderStore, notifier notify.Notifier, gen *recurrence.Generator, opts Options) *ReminderService {
	return &ReminderService{
		store:    store,
		notifier: notifier,
		gen:      gen,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

func (s *ReminderService) Options() Options {
	return s.opts
}

// List returns every stored reminder in stored order
func (s *ReminderService) List() []domain.Reminder {
	return s.store.LoadReminders()
}

func (s *ReminderService) Get(id string) (domain.Reminder, error) {
	for _, r := range s.store.LoadReminders() {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Reminder{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}

// NewDraft returns a blank draft for a new reminder
func (s *ReminderService) NewDraft() domain.Draft {
	return domain.NewDraft(s.now().In(s.gen.Calendar().Location()))
}

// Create stores a reminder built from d and reschedules
func (s *ReminderService) Create(ctx context.Context, d domain.Draft) (domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Start.IsZero() {
		d.Start = s.now()
	}
	r, err := s.fromDraft(d)
	if err != nil {
		return domain.Reminder{}, err
	}

	reminders, err := s.store.ReadReminders()
	if err != nil {
		return domain.Reminder{}, err
	}
	for _, existing := range reminders {
		if existing.ID == r.ID {
			return domain.Reminder{}, fmt.Errorf("%w: %s", domain.ErrDuplicateID, r.ID)
		}
	}
	reminders = append(reminders, r)

	if err := s.saveAll(ctx, reminders); err != nil {
		return domain.Reminder{}, err
	}
	return r, nil
}

// Update replaces the reminder with the given id and reschedules
func (s *ReminderService) Update(ctx context.Context, id string, d domain.Draft) (domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.store.ReadReminders()
	if err != nil {
		return domain.Reminder{}, err
	}
	idx := indexOf(reminders, id)
	if idx < 0 {
		return domain.Reminder{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	d.ID = id
	if d.Start.IsZero() {
		d.Start = reminders[idx].Start
	}
	r, err := s.fromDraft(d)
	if err != nil {
		return domain.Reminder{}, err
	}
	reminders[idx] = r

	if err := s.saveAll(ctx, reminders); err != nil {
		return domain.Reminder{}, err
	}
	return r, nil
}

func (s *ReminderService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.store.ReadReminders()
	if err != nil {
		return err
	}
	idx := indexOf(reminders, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	reminders = append(reminders[:idx], reminders[idx+1:]...)
	return s.saveAll(ctx, reminders)
}

// SetEnabled turns a reminder on or off and reschedules
func (s *ReminderService) SetEnabled(ctx context.Context, id string, enabled bool) (domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.store.ReadReminders()
	if err != nil {
		return domain.Reminder{}, err
	}
	idx := indexOf(reminders, id)
	if idx < 0 {
		return domain.Reminder{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	reminders[idx].Enabled = enabled

	if err := s.saveAll(ctx, reminders); err != nil {
		return domain.Reminder{}, err
	}
	return reminders[idx], nil
}

// SaveAll persists the whole list and reschedules
func (s *ReminderService) SaveAll(ctx context.Context, reminders []domain.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range reminders {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("reminder %s: %w", r.ID, err)
		}
	}
	return s.saveAll(ctx, reminders)
}

func (s *ReminderService) saveAll(ctx context.Context, reminders []domain.Reminder) error {
	if err := s.store.SaveReminders(reminders); err != nil {
		return fmt.Errorf("save reminders: %w", err)
	}
	if _, err := s.reset(ctx, reminders, s.now()); err != nil {
		return fmt.Errorf("reschedule: %w", err)
	}
	return nil
}

// Reset clears every pending notification, schedules the next batch after
// from, and records from as the last reschedule. It returns how many
// notifications were scheduled.
func (s *ReminderService) Reset(ctx context.Context, from time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.store.ReadReminders()
	if err != nil {
		return 0, err
	}
	return s.reset(ctx, reminders, from)
}

// reset drops the last reschedule stamp when the clear fails, so the next
// staleness check retries. Notifiers that did clear are still scheduled.
func (s *ReminderService) reset(ctx context.Context, reminders []domain.Reminder, from time.Time) (int, error) {
	var errs []error
	clearFailed := false
	if err := s.notifier.RemoveAllPending(ctx); err != nil {
		clearFailed = true
		if clearErr := s.store.ClearLastReschedule(); clearErr != nil {
			log.Printf("Error clearing last reschedule: %v", clearErr)
		}
		var partial *notify.PartialError
		if !errors.As(err, &partial) {
			return 0, fmt.Errorf("remove pending: %w", err)
		}
		log.Printf("[reset] %v, scheduling the rest", err)
		errs = append(errs, fmt.Errorf("remove pending: %w", err))
	}

	cal := s.gen.Calendar()
	schedule := recurrence.BuildSchedule(s.gen, reminders, from, s.opts.PerReminderLimit, s.opts.TotalLimit)

	scheduled := 0
	for _, entry := range schedule {
		if err := s.notifier.ScheduleOnce(ctx, entry.Reminder.Name, "", cal.Components(entry.At)); err != nil {
			log.Printf("Error scheduling %q at %s: %v", entry.Reminder.Name, entry.At.Format(time.RFC3339), err)
			errs = append(errs, err)
			continue
		}
		scheduled++
	}

	if !clearFailed {
		if err := s.store.SetLastReschedule(from); err != nil {
			errs = append(errs, fmt.Errorf("set last reschedule: %w", err))
		}
	}

	log.Printf("[reset] scheduled %d notifications for %d reminders", scheduled, len(reminders))
	return scheduled, errors.Join(errs...)
}

// ResetIfStale resets when the last reschedule is missing or older than StaleAfter.
// It reports whether a reset ran.
func (s *ReminderService) ResetIfStale(ctx context.Context) (bool, error) {
	now := s.now()
	if last, ok := s.store.LastReschedule(); ok && now.Sub(last) < s.opts.StaleAfter {
		return false, nil
	}
	if _, err := s.Reset(ctx, now); err != nil {
		return true, err
	}
	return true, nil
}

// Upcoming returns the next count occurrences of one reminder
func (s *ReminderService) Upcoming(id string, count int) ([]time.Time, error) {
	r, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.UpcomingFor(r, count), nil
}

// UpcomingFor returns the next count occurrences of a reminder already at hand
func (s *ReminderService) UpcomingFor(r domain.Reminder, count int) []time.Time {
	return s.gen.Upcoming(r, s.now(), count)
}

// Preview returns what a reset right now would schedule, cut to limit
func (s *ReminderService) Preview(limit int) []domain.DatedReminder {
	if limit <= 0 || limit > s.opts.TotalLimit {
		limit = s.opts.TotalLimit
	}
	return recurrence.BuildSchedule(s.gen, s.store.LoadReminders(), s.now(), s.opts.PerReminderLimit, limit)
}

// Pending lists the notifications currently scheduled
func (s *ReminderService) Pending(ctx context.Context) ([]domain.Trigger, error) {
	return s.notifier.Pending(ctx)
}

// Describe renders a one-line summary with the next occurrence
func (s *ReminderService) Describe(r domain.Reminder) string {
	var sb strings.Builder
	sb.WriteString(r.Describe())
	if !r.Enabled {
		sb.WriteString(" (off)")
		return sb.String()
	}
	if next := s.UpcomingFor(r, 1); len(next) > 0 {
		sb.WriteString(", next ")
		sb.WriteString(next[0].In(s.gen.Calendar().Location()).Format("Mon Jan 2 15:04"))
	}
	return sb.String()
}

// RRule returns the RFC 5545 form of the reminder's pattern, "" when there is none
func (s *ReminderService) RRule(r domain.Reminder) string {
	return recurrence.RRuleText(s.gen.Calendar(), r.Pattern, r.Start)
}

func (s *ReminderService) fromDraft(d domain.Draft) (domain.Reminder, error) {
	d.Name = strings.TrimSpace(d.Name)
	r, err := d.ToReminder()
	if err != nil {
		return domain.Reminder{}, err
	}
	if err := r.Validate(); err != nil {
		return domain.Reminder{}, err
	}
	return r, nil
}

func indexOf(reminders []domain.Reminder, id string) int {
	for i, r := range reminders {
		if r.ID == id {
			return i
		}
	}
	return -1
}
