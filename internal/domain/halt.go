package domain

import (
	"fmt"
	"time"
)

// HaltUnit is the period a halt rule counts in.
type HaltUnit string

const (
	HaltNone  HaltUnit = "none"
	HaltWeek  HaltUnit = "week"
	HaltMonth HaltUnit = "month"
)

// HaltRule suppresses every Nth week or month counted from Anchor.
type HaltRule struct {
	Unit   HaltUnit  `json:"unit"`
	Anchor time.Time `json:"anchor"`
	Nth    int       `json:"nth"`
}

// EveryNthWeek builds a week-based halt rule
func EveryNthWeek(anchor time.Time, nth int) *HaltRule {
	return &HaltRule{Unit: HaltWeek, Anchor: anchor, Nth: nth}
}

// EveryNthMonth builds a month-based halt rule
func EveryNthMonth(anchor time.Time, nth int) *HaltRule {
	return &HaltRule{Unit: HaltMonth, Anchor: anchor, Nth: nth}
}

func (h *HaltRule) Validate() error {
	if h == nil {
		return nil
	}
	if h.Unit != HaltWeek && h.Unit != HaltMonth {
		return fmt.Errorf("%w: unit %q", ErrInvalidHalt, h.Unit)
	}
	if h.Nth < 2 {
		return fmt.Errorf("%w: nth must be at least 2, got %d", ErrInvalidHalt, h.Nth)
	}
	return nil
}

// Describe returns a short human description, e.g. "every 3rd week off"
func (h *HaltRule) Describe() string {
	if h == nil {
		return ""
	}
	return fmt.Sprintf("every %s %s off", ordinal(h.Nth), h.Unit)
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
