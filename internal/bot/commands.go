package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/pillbot/internal/domain"
)

const defaultUpcoming = 10

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	switch cmd {
	case "start":
		b.cmdStart(msg)
	case "help":
		b.cmdHelp(chatID)
	case "add":
		b.cmdAdd(ctx, chatID, args)
	case "list":
		b.cmdList(chatID)
	case "next":
		b.cmdNext(chatID, args)
	case "upcoming":
		b.cmdUpcoming(chatID, args)
	case "on":
		b.cmdSetEnabled(ctx, chatID, args, true)
	case "off":
		b.cmdSetEnabled(ctx, chatID, args, false)
	case "del":
		b.cmdDelete(chatID, args)
	case "pending":
		b.cmdPending(ctx, chatID)
	case "reset":
		b.cmdReset(ctx, chatID)
	default:
		b.SendMessage(chatID, "Unknown command. /help for the list")
	}
}

func (b *Bot) cmdStart(msg *tgbotapi.Message) {
	b.SendMessage(msg.Chat.ID, fmt.Sprintf("👋 Hi, %s!\n\nI remind you about pills and other recurring things.\n\n/help for commands",
		html.EscapeString(msg.From.FirstName)))
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>Commands:</b>

<b>Reminders</b>
/list — all reminders
/add HH:MM kind [halt week|month N] Title — add a reminder
/on ID, /off ID — enable or disable
/del ID — delete

<b>Schedule</b>
/next [N] — next notifications across all reminders
/upcoming ID [N] — next occurrences of one reminder
/pending — notifications already scheduled
/reset — rebuild notifications now

<b>Kinds for /add</b>
<code>once 2024-05-01</code> — one time
<code>weekly mon,wed,fri</code> — on weekdays
<code>monthly</code> — every month on today's day
<code>dom 1,15</code> — on days of month
<code>last</code> — last day of each month

<b>Examples</b>
<code>/add 08:30 weekly mon,fri Iron</code>
<code>/add 21:00 dom 1,15 halt month 3 Vitamin D</code>

IDs are the first characters shown in /list.`
	b.SendMessage(chatID, text)
}

func (b *Bot) cmdAdd(ctx context.Context, chatID int64, args string) {
	draft, err := ParseAdd(args, b.now(), b.cfg.Location)
	if err != nil {
		b.SendMessage(chatID, "❌ "+html.EscapeString(err.Error()))
		return
	}

	r, err := b.svc.Create(ctx, draft)
	if err != nil {
		log.Printf("Error creating reminder: %v", err)
		b.SendMessage(chatID, "❌ Error: "+html.EscapeString(err.Error()))
		return
	}

	b.SendMessage(chatID, fmt.Sprintf("✅ Added <code>%s</code> <b>%s</b>\n%s",
		shortID(r.ID), html.EscapeString(r.Name), html.EscapeString(b.svc.Describe(r))))
}

func (b *Bot) cmdList(chatID int64) {
	reminders := b.svc.List()
	text := formatReminderList(reminders, b.svc.Describe)
	if len(reminders) == 0 {
		b.SendMessage(chatID, text)
		return
	}
	b.SendMessageWithKeyboard(chatID, text, *reminderListKeyboard(reminders))
}

func (b *Bot) cmdNext(chatID int64, args string) {
	limit := defaultUpcoming
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 {
			b.SendMessage(chatID, "Usage: /next [N]")
			return
		}
		limit = n
	}
	b.SendMessage(chatID, formatPreview(b.svc.Preview(limit), b.cfg.Location))
}

func (b *Bot) cmdUpcoming(chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.SendMessage(chatID, "Usage: /upcoming ID [N]")
		return
	}

	count := defaultUpcoming
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			b.SendMessage(chatID, "Usage: /upcoming ID [N]")
			return
		}
		count = n
	}

	r, err := resolveID(b.svc.List(), fields[0])
	if err != nil {
		b.SendMessage(chatID, "❌ "+html.EscapeString(err.Error()))
		return
	}
	b.sendUpcoming(chatID, r, count)
}

func (b *Bot) sendUpcoming(chatID int64, r domain.Reminder, count int) {
	b.SendMessage(chatID, formatUpcoming(r, b.svc.UpcomingFor(r, count), b.cfg.Location))
}

func (b *Bot) cmdSetEnabled(ctx context.Context, chatID int64, args string, enabled bool) {
	r, err := resolveID(b.svc.List(), args)
	if err != nil {
		b.SendMessage(chatID, "❌ "+html.EscapeString(err.Error()))
		return
	}

	if _, err := b.svc.SetEnabled(ctx, r.ID, enabled); err != nil {
		log.Printf("Error updating reminder %s: %v", r.ID, err)
		b.SendMessage(chatID, "❌ Error: "+html.EscapeString(err.Error()))
		return
	}

	state := "🔔 enabled"
	if !enabled {
		state = "🔕 disabled"
	}
	b.SendMessage(chatID, fmt.Sprintf("<b>%s</b> %s", html.EscapeString(r.Name), state))
}

func (b *Bot) cmdDelete(chatID int64, args string) {
	r, err := resolveID(b.svc.List(), args)
	if err != nil {
		b.SendMessage(chatID, "❌ "+html.EscapeString(err.Error()))
		return
	}
	b.SendMessageWithKeyboard(chatID, fmt.Sprintf("Delete <b>%s</b>?", html.EscapeString(r.Name)), confirmDeleteKeyboard(r.ID))
}

func (b *Bot) cmdPending(ctx context.Context, chatID int64) {
	triggers, err := b.svc.Pending(ctx)
	if err != nil {
		log.Printf("Error listing pending notifications: %v", err)
		b.SendMessage(chatID, "❌ Error: "+html.EscapeString(err.Error()))
		return
	}
	b.SendMessage(chatID, formatPending(triggers, b.cfg.Location))
}

func (b *Bot) cmdReset(ctx context.Context, chatID int64) {
	n, err := b.svc.Reset(ctx, b.now())
	if err != nil {
		log.Printf("Error resetting schedule: %v", err)
		if n == 0 {
			b.SendMessage(chatID, "❌ Error: "+html.EscapeString(err.Error()))
			return
		}
		b.SendMessage(chatID, fmt.Sprintf("⚠️ Scheduled %d notifications with errors: %s", n, html.EscapeString(err.Error())))
		return
	}
	b.SendMessage(chatID, fmt.Sprintf("🔄 Scheduled %d notifications", n))
}
