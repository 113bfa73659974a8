package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	if !b.cfg.IsAllowedUser(msg.From.ID) {
		b.SendMessage(chatID, "⛔ Access denied")
		return
	}

	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	b.SendMessage(chatID, "Use /add to create a reminder, /help for everything else")
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if !b.cfg.IsAllowedUser(cb.From.ID) {
		b.answerCallback(cb.ID, "⛔")
		return
	}
	if cb.Message == nil {
		b.answerCallback(cb.ID, "")
		return
	}

	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	action, arg, _ := strings.Cut(cb.Data, ":")

	switch action {
	case "toggle":
		r, err := b.svc.Get(arg)
		if err != nil {
			b.answerCallback(cb.ID, "❌ Not found")
			return
		}
		if _, err := b.svc.SetEnabled(ctx, r.ID, !r.Enabled); err != nil {
			log.Printf("Error toggling reminder %s: %v", r.ID, err)
			b.answerCallback(cb.ID, "❌ Error")
			return
		}
		if r.Enabled {
			b.answerCallback(cb.ID, "🔕 Disabled")
		} else {
			b.answerCallback(cb.ID, "🔔 Enabled")
		}
		b.refreshList(chatID, messageID)

	case "upcoming":
		r, err := b.svc.Get(arg)
		if err != nil {
			b.answerCallback(cb.ID, "❌ Not found")
			return
		}
		times := b.svc.UpcomingFor(r, defaultUpcoming)
		b.answerCallback(cb.ID, "")
		b.editMessage(chatID, messageID, formatUpcoming(r, times, b.cfg.Location), backKeyboard())

	case "del":
		r, err := b.svc.Get(arg)
		if err != nil {
			b.answerCallback(cb.ID, "❌ Not found")
			return
		}
		b.answerCallback(cb.ID, "")
		kb := confirmDeleteKeyboard(r.ID)
		b.editMessage(chatID, messageID, fmt.Sprintf("Delete <b>%s</b>?", html.EscapeString(r.Name)), &kb)

	case "confirm_del":
		if err := b.svc.Delete(ctx, arg); err != nil {
			log.Printf("Error deleting reminder %s: %v", arg, err)
			b.answerCallback(cb.ID, "❌ Error")
			return
		}
		b.answerCallback(cb.ID, "🗑 Deleted")
		b.refreshList(chatID, messageID)

	case "menu":
		b.answerCallback(cb.ID, "")
		if arg == "next" {
			b.editMessage(chatID, messageID, formatPreview(b.svc.Preview(defaultUpcoming), b.cfg.Location), backKeyboard())
		}

	case "refresh", "back":
		b.answerCallback(cb.ID, "")
		b.refreshList(chatID, messageID)

	default:
		b.answerCallback(cb.ID, "")
	}
}

func (b *Bot) refreshList(chatID int64, messageID int) {
	reminders := b.svc.List()
	text := formatReminderList(reminders, b.svc.Describe)
	if len(reminders) == 0 {
		b.editMessage(chatID, messageID, text, nil)
		return
	}
	b.editMessage(chatID, messageID, text, reminderListKeyboard(reminders))
}

func (b *Bot) answerCallback(callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(callback); err != nil {
		log.Printf("Error answering callback: %v", err)
	}
}
