package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tazhate/pillbot/config"
	"github.com/tazhate/pillbot/internal/api"
	"github.com/tazhate/pillbot/internal/bot"
	"github.com/tazhate/pillbot/internal/calendar"
	"github.com/tazhate/pillbot/internal/clients/caldav"
	"github.com/tazhate/pillbot/internal/notify"
	"github.com/tazhate/pillbot/internal/recurrence"
	"github.com/tazhate/pillbot/internal/scheduler"
	"github.com/tazhate/pillbot/internal/service"
	"github.com/tazhate/pillbot/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", os.Getenv("PILL_CONFIG"), "path to YAML config file")
	discover := flag.Bool("caldav-discover", false, "list the CalDAV calendars of the configured account and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *discover {
		discoverCalendars(cfg)
		return
	}

	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	// Local triggers are always kept; the bot delivers them
	var notifier notify.Notifier = notify.NewLocal(store)
	if cfg.CalDAVEnabled() {
		client := caldav.NewClient(cfg.CalDAV.URL, cfg.CalDAV.Username, cfg.CalDAV.Password, cfg.CalDAV.Calendar)
		notifier = notify.NewMulti(notifier, notify.NewCalDAV(client))
		log.Printf("CalDAV mirroring enabled: %s", cfg.CalDAV.URL)
	}

	gen := recurrence.NewGenerator(calendar.New(cfg.Location))
	reminderSvc := service.NewReminderService(store, notifier, gen, service.Options{
		PerReminderLimit: cfg.Schedule.PerReminderLimit,
		TotalLimit:       cfg.Schedule.TotalLimit,
		StaleAfter:       cfg.Schedule.StaleAfter,
	})

	sched := scheduler.New(cfg, store, reminderSvc)

	var tgBot *bot.Bot
	var webhook http.HandlerFunc
	if cfg.Telegram.Enabled {
		tgBot, err = bot.New(cfg, reminderSvc)
		if err != nil {
			log.Fatalf("Failed to init bot: %v", err)
		}
		sched.SetSender(tgBot)
		if cfg.Telegram.WebhookURL != "" {
			webhook = tgBot.WebhookHandler()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	if tgBot != nil {
		go func() {
			if err := tgBot.Start(ctx); err != nil {
				log.Printf("Bot error: %v", err)
			}
		}()
	}

	var httpServer *api.Server
	if cfg.Server.Enabled {
		httpServer = api.New(cfg, reminderSvc, bot.WebhookPath, webhook)
		go func() {
			if err := httpServer.Start(); err != nil {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}

	log.Println("PillBot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()
	sched.Stop()
	if tgBot != nil {
		tgBot.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error stopping HTTP server: %v", err)
		}
	}

	log.Println("PillBot stopped")
}

func discoverCalendars(cfg *config.Config) {
	if cfg.CalDAV.URL == "" || cfg.CalDAV.Username == "" || cfg.CalDAV.Password == "" {
		log.Fatalf("CalDAV is not configured: set caldav.url, caldav.username and caldav.password")
	}
	client := caldav.NewClient(cfg.CalDAV.URL, cfg.CalDAV.Username, cfg.CalDAV.Password, cfg.CalDAV.Calendar)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	calendars, err := client.DiscoverCalendars(ctx)
	if err != nil {
		log.Fatalf("Failed to discover calendars: %v", err)
	}
	for _, c := range calendars {
		fmt.Printf("%s\t%s\n", c.Path, c.DisplayName)
	}
}
