package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tazhate/pillbot/internal/domain"
)

// TriggerStore is the persistence Local needs
type TriggerStore interface {
	CreateTrigger(t *domain.Trigger) error
	ListPendingTriggers() ([]*domain.Trigger, error)
	DeletePendingTriggers() (int64, error)
}

// Local keeps pending notifications in the trigger queue; the scheduler delivers them.
type Local struct {
	store TriggerStore
	now   func() time.Time
}

func NewLocal(store TriggerStore) *Local {
	return &Local{store: store, now: time.Now}
}

func (l *Local) ScheduleOnce(ctx context.Context, title, body string, at domain.DateComponents) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &domain.Trigger{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		FireAt:    at.Time(),
		CreatedAt: l.now(),
	}
	if err := l.store.CreateTrigger(t); err != nil {
		return fmt.Errorf("create trigger: %w", err)
	}
	return nil
}

func (l *Local) RemoveAllPending(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := l.store.DeletePendingTriggers(); err != nil {
		return fmt.Errorf("delete pending triggers: %w", err)
	}
	return nil
}

func (l *Local) Pending(ctx context.Context) ([]domain.Trigger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	triggers, err := l.store.ListPendingTriggers()
	if err != nil {
		return nil, fmt.Errorf("list pending triggers: %w", err)
	}
	out := make([]domain.Trigger, 0, len(triggers))
	for _, t := range triggers {
		out = append(out, *t)
	}
	return out, nil
}
