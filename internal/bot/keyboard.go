package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/pillbot/internal/domain"
)

// Reminder list keyboard, one row per reminder
func reminderListKeyboard(reminders []domain.Reminder) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, r := range reminders {
		toggle := "🔕 Off"
		if !r.Enabled {
			toggle = "🔔 On"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(truncate(r.Name, 20), "upcoming:"+r.ID),
			tgbotapi.NewInlineKeyboardButtonData(toggle, "toggle:"+r.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", "del:"+r.ID),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⏰ Next", "menu:next"),
		tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", "refresh:list"),
	))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &keyboard
}

// Confirm delete keyboard
func confirmDeleteKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Yes, delete", "confirm_del:"+id),
			tgbotapi.NewInlineKeyboardButtonData("◀️ Cancel", "back:list"),
		),
	)
}

func backKeyboard() *tgbotapi.InlineKeyboardMarkup {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Back to list", "back:list"),
		),
	)
	return &keyboard
}
