package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/pillbot/config"
	"github.com/tazhate/pillbot/internal/service"
)

// WebhookPath is where the HTTP server mounts WebhookHandler
const WebhookPath = "/bot"

type Bot struct {
	api     *tgbotapi.BotAPI
	cfg     *config.Config
	svc     *service.ReminderService
	updates chan tgbotapi.Update
	now     func() time.Time
}

func New(cfg *config.Config, svc *service.ReminderService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("Authorized as @%s", api.Self.UserName)

	bot := &Bot{
		api:     api,
		cfg:     cfg,
		svc:     svc,
		updates: make(chan tgbotapi.Update, 100),
		now:     time.Now,
	}

	bot.setCommands()

	return bot, nil
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "list", Description: "💊 Reminders"},
		{Command: "next", Description: "⏰ Next notifications"},
		{Command: "add", Description: "➕ Add a reminder"},
		{Command: "upcoming", Description: "📅 Occurrences of one reminder"},
		{Command: "reset", Description: "🔄 Rebuild notifications"},
		{Command: "help", Description: "❓ Help"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		log.Printf("Failed to set commands: %v", err)
	}
}

func (b *Bot) SetupWebhook() error {
	webhookURL := b.cfg.Telegram.WebhookURL + WebhookPath

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	_, err = b.api.Request(wh)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}

	if info.LastErrorDate != 0 {
		log.Printf("Webhook last error: %s", info.LastErrorMessage)
	}

	log.Printf("Webhook set to: %s", webhookURL)
	return nil
}

// WebhookHandler decodes Telegram webhook posts and queues them for Start
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		update, err := b.api.HandleUpdate(r)
		if err != nil {
			log.Printf("Error decoding webhook update: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case b.updates <- *update:
		default:
			log.Printf("[bot] update queue full, dropping update %d", update.UpdateID)
		}
	}
}

// Start handles updates until ctx is done. Updates come from the webhook when
// a webhook URL is configured and from long polling otherwise.
func (b *Bot) Start(ctx context.Context) error {
	var updates <-chan tgbotapi.Update
	if b.cfg.Telegram.WebhookURL != "" {
		if err := b.SetupWebhook(); err != nil {
			return err
		}
		updates = b.updates
	} else {
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Printf("Error deleting webhook: %v", err)
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = b.api.GetUpdatesChan(u)
		log.Println("Polling for updates")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) Stop() {
	if b.cfg.Telegram.WebhookURL == "" {
		b.api.StopReceivingUpdates()
	}
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) editMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "HTML"
	edit.ReplyMarkup = keyboard
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Error editing message: %v", err)
	}
}
