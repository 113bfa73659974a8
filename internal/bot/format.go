package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/tazhate/pillbot/internal/domain"
)

func formatReminderList(reminders []domain.Reminder, describe func(domain.Reminder) string) string {
	if len(reminders) == 0 {
		return "No reminders yet.\n\n" + addUsage
	}

	var sb strings.Builder
	sb.WriteString("<b>💊 Reminders</b>\n\n")
	for _, r := range reminders {
		icon := "🔔"
		if !r.Enabled {
			icon = "🔕"
		}
		fmt.Fprintf(&sb, "%s <code>%s</code> <b>%s</b>\n   %s\n", icon, shortID(r.ID), html.EscapeString(r.Name), html.EscapeString(describe(r)))
	}
	return sb.String()
}

func formatUpcoming(r domain.Reminder, times []time.Time, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>📅 %s</b>\n%s\n\n", html.EscapeString(r.Name), html.EscapeString(r.Describe()))
	if len(times) == 0 {
		sb.WriteString("No upcoming occurrences.")
		return sb.String()
	}
	for _, t := range times {
		sb.WriteString("• " + t.In(loc).Format("Mon 02 Jan 2006 15:04") + "\n")
	}
	return sb.String()
}

func formatPreview(entries []domain.DatedReminder, loc *time.Location) string {
	if len(entries) == 0 {
		return "Nothing scheduled."
	}

	var sb strings.Builder
	sb.WriteString("<b>⏰ Next notifications</b>\n")
	lastDay := ""
	for _, e := range entries {
		at := e.At.In(loc)
		if day := at.Format("Mon 02 Jan"); day != lastDay {
			sb.WriteString("\n<b>" + day + "</b>\n")
			lastDay = day
		}
		fmt.Fprintf(&sb, "%s %s\n", at.Format("15:04"), html.EscapeString(e.Reminder.Name))
	}
	return sb.String()
}

func formatPending(triggers []domain.Trigger, loc *time.Location) string {
	if len(triggers) == 0 {
		return "No pending notifications."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>📬 Pending notifications: %d</b>\n\n", len(triggers))
	for _, t := range triggers {
		fmt.Fprintf(&sb, "%s %s\n", t.FireAt.In(loc).Format("02.01 15:04"), html.EscapeString(t.Title))
	}
	return sb.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
