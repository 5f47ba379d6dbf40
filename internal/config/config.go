package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type SettingsBackend string

const (
	BackendFile  SettingsBackend = "file"
	BackendRedis SettingsBackend = "redis"
)

type Config struct {
	// HTTP API
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Telegram (optional front end)
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN"`
	AllowedUsers     []int64 `env:"ALLOWED_USERS" envSeparator:":"`
	AdminUserID      int64   `env:"ADMIN_USER_ID"`

	// Simulated timings
	ThinkingDelay time.Duration `env:"THINKING_DELAY" envDefault:"1500ms"`
	BuildDelay    time.Duration `env:"BUILD_DELAY" envDefault:"3s"`

	// Settings persistence (API key)
	SettingsBackend  SettingsBackend `env:"SETTINGS_BACKEND" envDefault:"file"`
	SettingsFilePath string          `env:"SETTINGS_FILE_PATH" envDefault:"data/settings.json"`
	RedisAddr        string          `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string          `env:"REDIS_PASSWORD"`
	RedisDB          int             `env:"REDIS_DB" envDefault:"0"`

	// Storage
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/interactions.jsonl"`

	// Daily activity digest
	DigestSchedule string `env:"DIGEST_SCHEDULE" envDefault:"0 21 * * *"`

	// Canned responses override
	TemplatesPath string `env:"TEMPLATES_PATH"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SettingsBackend {
	case BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown settings backend: %s", c.SettingsBackend)
	}
	if c.ThinkingDelay < 0 || c.BuildDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}
