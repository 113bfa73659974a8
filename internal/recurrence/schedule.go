package recurrence

import (
	"sort"
	"time"

	"github.com/tazhate/pillbot/internal/domain"
)

const (
	// DefaultPerReminderLimit keeps one dense reminder from crowding out the rest before the merge.
	DefaultPerReminderLimit = 64
	// DefaultTotalLimit is the number of pending triggers handed to the notifier.
	DefaultTotalLimit = 64
)

// BuildSchedule merges every reminder's next perReminderLimit occurrences into
// one list ordered by time and cut to totalLimit. Equal times keep reminder order.
func BuildSchedule(g *Generator, reminders []domain.Reminder, from time.Time, perReminderLimit, totalLimit int) []domain.DatedReminder {
	if totalLimit <= 0 {
		return nil
	}

	var all []domain.DatedReminder
	for _, r := range reminders {
		for _, at := range g.Upcoming(r, from, perReminderLimit) {
			all = append(all, domain.DatedReminder{At: at, Reminder: r})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].At.Before(all[j].At)
	})

	if len(all) > totalLimit {
		all = all[:totalLimit]
	}
	return all
}
