package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// sections: PILL_TELEGRAM__OWNER_ID sets telegram.owner_id.
const EnvPrefix = "PILL_"

type Config struct {
	Timezone string         `koanf:"timezone"`
	Telegram TelegramConfig `koanf:"telegram"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	CalDAV   CalDAVConfig   `koanf:"caldav"`
	Schedule ScheduleConfig `koanf:"schedule"`

	Location *time.Location `koanf:"-"`
}

type TelegramConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Token      string `koanf:"token"`
	OwnerID    int64  `koanf:"owner_id"`
	PartnerID  int64  `koanf:"partner_id"`
	WebhookURL string `koanf:"webhook_url"` // empty means long polling
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type ServerConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Port     string `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type CalDAVConfig struct {
	URL      string `koanf:"url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Calendar string `koanf:"calendar"`
}

type ScheduleConfig struct {
	PerReminderLimit int           `koanf:"per_reminder_limit"`
	TotalLimit       int           `koanf:"total_limit"`
	StaleAfter       time.Duration `koanf:"stale_after"`
	DispatchSpec     string        `koanf:"dispatch_spec"`
	StaleCheckSpec   string        `koanf:"stale_check_spec"`
}

// Load layers defaults, the optional YAML file at path and PILL_ environment
// variables, then validates the result. A .env file in the working directory
// is read first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env: %v", err)
	}

	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}
	applyLegacyEnv(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// applyLegacyEnv keeps the unprefixed variable names older deployments use
func applyLegacyEnv(k *koanf.Koanf) {
	legacy := map[string]string{
		"TELEGRAM_BOT_TOKEN":  "telegram.token",
		"OWNER_TELEGRAM_ID":   "telegram.owner_id",
		"PARTNER_TELEGRAM_ID": "telegram.partner_id",
		"DATABASE_PATH":       "database.path",
		"TIMEZONE":            "timezone",
		"WEBHOOK_URL":         "telegram.webhook_url",
		"SERVER_PORT":         "server.port",
	}
	for name, key := range legacy {
		if v := os.Getenv(name); v != "" && os.Getenv(EnvPrefix+strings.ToUpper(strings.ReplaceAll(key, ".", "__"))) == "" {
			k.Set(key, v)
		}
	}
}

// Validate checks required values and resolves Location
func (c *Config) Validate() error {
	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			return fmt.Errorf("telegram token is required (set PILL_TELEGRAM__TOKEN or TELEGRAM_BOT_TOKEN)")
		}
		if c.Telegram.OwnerID == 0 {
			return fmt.Errorf("telegram owner id is required (set PILL_TELEGRAM__OWNER_ID or OWNER_TELEGRAM_ID)")
		}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Schedule.PerReminderLimit <= 0 {
		return fmt.Errorf("per_reminder_limit must be positive")
	}
	if c.Schedule.TotalLimit <= 0 {
		return fmt.Errorf("total_limit must be positive")
	}
	if c.Schedule.StaleAfter <= 0 {
		return fmt.Errorf("stale_after must be positive")
	}
	if _, err := cron.ParseStandard(c.Schedule.DispatchSpec); err != nil {
		return fmt.Errorf("invalid dispatch_spec: %w", err)
	}
	if _, err := cron.ParseStandard(c.Schedule.StaleCheckSpec); err != nil {
		return fmt.Errorf("invalid stale_check_spec: %w", err)
	}
	if c.Server.Enabled {
		if _, err := strconv.Atoi(c.Server.Port); err != nil {
			return fmt.Errorf("invalid server port %q", c.Server.Port)
		}
	}
	return nil
}

// CalDAVEnabled reports whether calendar mirroring is configured
func (c *Config) CalDAVEnabled() bool {
	return c.CalDAV.URL != "" && c.CalDAV.Username != "" && c.CalDAV.Password != "" && c.CalDAV.Calendar != ""
}

func (c *Config) IsAllowedUser(telegramID int64) bool {
	return telegramID == c.Telegram.OwnerID || (c.Telegram.PartnerID != 0 && telegramID == c.Telegram.PartnerID)
}

// ChatIDs returns the chats notifications are delivered to
func (c *Config) ChatIDs() []int64 {
	ids := []int64{c.Telegram.OwnerID}
	if c.Telegram.PartnerID != 0 {
		ids = append(ids, c.Telegram.PartnerID)
	}
	return ids
}
