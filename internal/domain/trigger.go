package domain

import "time"

// Trigger is one pending one-shot notification.
type Trigger struct {
	ID          string
	Title       string
	Body        string
	FireAt      time.Time
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// IsDelivered reports whether the trigger has already been sent
func (t *Trigger) IsDelivered() bool {
	return t.DeliveredAt != nil
}
