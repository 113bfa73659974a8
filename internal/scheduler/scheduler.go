package scheduler

import (
	"context"
	"fmt"
	"html"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tazhate/pillbot/config"
	"github.com/tazhate/pillbot/internal/domain"
)

// maxAttempts is how many failed sends a trigger gets before it is dropped
const maxAttempts = 5

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// TriggerQueue is the local trigger storage the dispatcher drains
type TriggerQueue interface {
	ListDueTriggers(now time.Time) ([]*domain.Trigger, error)
	MarkTriggerDelivered(id string, at time.Time) error
	IncrementTriggerAttempts(id string) (int, error)
	DeleteDeliveredBefore(t time.Time) (int64, error)
}

// Resetter rebuilds the pending notifications when they are stale
type Resetter interface {
	ResetIfStale(ctx context.Context) (bool, error)
}

type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	queue    TriggerQueue
	resetter Resetter
	sender   MessageSender
	now      func() time.Time
	ctx      context.Context
}

func New(cfg *config.Config, queue TriggerQueue, resetter Resetter) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.Location))

	return &Scheduler{
		cron:     c,
		cfg:      cfg,
		queue:    queue,
		resetter: resetter,
		now:      time.Now,
		ctx:      context.Background(),
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

// Start registers the jobs, runs one staleness check right away and blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx

	if _, err := s.cron.AddFunc(s.cfg.Schedule.DispatchSpec, s.dispatchDue); err != nil {
		return fmt.Errorf("add trigger dispatch: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule.StaleCheckSpec, s.checkStale); err != nil {
		return fmt.Errorf("add staleness check: %w", err)
	}

	// Old delivered triggers are only history
	if _, err := s.cron.AddFunc("@daily", s.pruneDelivered); err != nil {
		return fmt.Errorf("add prune: %w", err)
	}

	s.checkStale()

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s, dispatch: %s, stale check: %s)",
		s.cfg.Location, s.cfg.Schedule.DispatchSpec, s.cfg.Schedule.StaleCheckSpec)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) checkStale() {
	ran, err := s.resetter.ResetIfStale(s.ctx)
	if err != nil {
		log.Printf("Error resetting stale schedule: %v", err)
		return
	}
	if ran {
		log.Printf("[scheduler] schedule was stale, rebuilt")
	}
}

// dispatchDue sends every due trigger to all configured chats and marks it delivered.
// A trigger that keeps failing is marked delivered after maxAttempts so it does not repeat forever.
func (s *Scheduler) dispatchDue() {
	if s.sender == nil {
		return
	}

	now := s.now()
	triggers, err := s.queue.ListDueTriggers(now)
	if err != nil {
		log.Printf("Error getting due triggers: %v", err)
		return
	}

	for _, t := range triggers {
		text := FormatTrigger(t, s.cfg.Location)

		failed := false
		for _, chatID := range s.cfg.ChatIDs() {
			if err := s.sender.SendMessage(chatID, text); err != nil {
				log.Printf("Error sending trigger %s to %d: %v", t.ID, chatID, err)
				failed = true
			}
		}

		if failed {
			attempts, err := s.queue.IncrementTriggerAttempts(t.ID)
			if err != nil {
				log.Printf("Error counting attempts for trigger %s: %v", t.ID, err)
				continue
			}
			if attempts < maxAttempts {
				continue
			}
			log.Printf("[scheduler] giving up on trigger %s after %d attempts", t.ID, attempts)
		}

		if err := s.queue.MarkTriggerDelivered(t.ID, now); err != nil {
			log.Printf("Error marking trigger %s as delivered: %v", t.ID, err)
		}
	}
}

func (s *Scheduler) pruneDelivered() {
	n, err := s.queue.DeleteDeliveredBefore(s.now().AddDate(0, 0, -30))
	if err != nil {
		log.Printf("Error pruning delivered triggers: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[scheduler] pruned %d delivered triggers", n)
	}
}

// FormatTrigger renders the chat message for a fired trigger
func FormatTrigger(t *domain.Trigger, loc *time.Location) string {
	text := fmt.Sprintf("💊 <b>%s</b>\n⏰ %s", html.EscapeString(t.Title), t.FireAt.In(loc).Format("15:04"))
	if t.Body != "" {
		text += "\n\n" + html.EscapeString(t.Body)
	}
	return text
}
