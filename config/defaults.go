package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"timezone": "Europe/Moscow",
		"telegram": map[string]interface{}{
			"enabled":     true,
			"token":       "",
			"owner_id":    0,
			"partner_id":  0,
			"webhook_url": "",
		},
		"database": map[string]interface{}{
			"path": "./data/pillbot.db",
		},
		"server": map[string]interface{}{
			"enabled":  true,
			"port":     "8080",
			"username": "",
			"password": "",
		},
		"caldav": map[string]interface{}{
			"url":      "",
			"username": "",
			"password": "",
			"calendar": "",
		},
		"schedule": map[string]interface{}{
			"per_reminder_limit": 64,
			"total_limit":        64,
			"stale_after":        "72h",
			"dispatch_spec":      "* * * * *",
			"stale_check_spec":   "@hourly",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}
