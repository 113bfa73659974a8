// Package notify schedules one-shot reminder notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tazhate/pillbot/internal/domain"
)

// Notifier is the platform scheduling service the reset protocol drives.
type Notifier interface {
	// ScheduleOnce registers a single notification at the given calendar date.
	ScheduleOnce(ctx context.Context, title, body string, at domain.DateComponents) error
	// RemoveAllPending cancels every notification that has not fired yet.
	RemoveAllPending(ctx context.Context) error
	// Pending lists notifications that have not fired yet, earliest first.
	Pending(ctx context.Context) ([]domain.Trigger, error)
}

// PartialError is returned when a fan-out call failed on some notifiers only.
type PartialError struct {
	Failed int
	Total  int
	Err    error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%d of %d notifiers failed: %v", e.Failed, e.Total, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// Multi fans every call out to several notifiers. Pending reports the first one.
// A notifier whose last RemoveAllPending failed gets no new notifications until
// a later clear succeeds, so its old batch is not doubled.
type Multi struct {
	notifiers []Notifier

	mu        sync.Mutex
	uncleared []bool
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{
		notifiers: notifiers,
		uncleared: make([]bool, len(notifiers)),
	}
}

func (m *Multi) ScheduleOnce(ctx context.Context, title, body string, at domain.DateComponents) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i, n := range m.notifiers {
		if m.uncleared[i] {
			continue
		}
		if err := n.ScheduleOnce(ctx, title, body, at); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RemoveAllPending clears every notifier. When only some fail the error is a *PartialError.
func (m *Multi) RemoveAllPending(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i, n := range m.notifiers {
		err := n.RemoveAllPending(ctx)
		m.uncleared[i] = err != nil
		if err != nil {
			errs = append(errs, err)
		}
	}
	switch {
	case len(errs) == 0:
		return nil
	case len(errs) < len(m.notifiers):
		return &PartialError{Failed: len(errs), Total: len(m.notifiers), Err: errors.Join(errs...)}
	default:
		return errors.Join(errs...)
	}
}

func (m *Multi) Pending(ctx context.Context) ([]domain.Trigger, error) {
	if len(m.notifiers) == 0 {
		return nil, nil
	}
	return m.notifiers[0].Pending(ctx)
}
