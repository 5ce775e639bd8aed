// Package config holds the settings every bot built on the core shares.
// Files are YAML; environment variables named in the envconfig tags win over
// the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Run modes for receiving Telegram updates.
const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update kinds that may bypass the rate limit.
const (
	UpdateCallback    = "callback"
	UpdateMessage     = "message"
	UpdateInlineQuery = "inline_query"
)

var (
	runModeAliases = map[string]string{
		"":              RunModeLongpoll,
		"polling":       RunModeLongpoll,
		RunModeLongpoll: RunModeLongpoll,
		RunModeWebhook:  RunModeWebhook,
	}
	updateKinds = []string{UpdateCallback, UpdateMessage, UpdateInlineQuery}
)

// ErrNoToken is returned when no bot token is configured.
var ErrNoToken = errors.New("telegram token is required")

// TelegramConfig identifies the bot and how it receives updates.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// AdminID is the bot operator allowed to run AdminOnly commands.
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds of 0 selects the runtime default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// Webhook reports whether updates arrive through a webhook.
func (t TelegramConfig) Webhook() bool {
	return t.RunMode == RunModeWebhook
}

// WebhookConfig is the public URL and local listener of webhook mode.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig feeds the structured logger.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order" envconfig:"LOG_KEYS_ORDER"`
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Stacks      string `yaml:"stacks" envconfig:"LOG_STACKS"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile is "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig throttles updates per user. ExcludeUpdates lists update
// kinds (callback, message, inline_query) that are never throttled.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config is the part of a bot's configuration owned by the core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// LoadFile decodes the YAML file at path into dst and applies the
// environment on top. dst must be a pointer to a struct.
func LoadFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Load reads a core-only configuration.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := LoadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and canonicalizes run mode and update kinds.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return ErrNoToken
	}
	if err := normalizeRunMode(cfg); err != nil {
		return err
	}
	return normalizeExcludes(&cfg.RateLimit)
}

func normalizeRunMode(cfg *Config) error {
	mode, ok := runModeAliases[strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))]
	if !ok {
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: %s, %s", cfg.Telegram.RunMode, RunModeWebhook, RunModeLongpoll)
	}
	cfg.Telegram.RunMode = mode

	if mode == RunModeLongpoll {
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
		}
		return nil
	}
	var missing []string
	if strings.TrimSpace(cfg.Webhook.URL) == "" {
		missing = append(missing, "webhook.url")
	}
	if strings.TrimSpace(cfg.Webhook.Listen) == "" {
		missing = append(missing, "webhook.listen")
	}
	if cfg.Webhook.Port <= 0 {
		missing = append(missing, "webhook.port")
	}
	if len(missing) > 0 {
		return fmt.Errorf("webhook run mode needs %s", strings.Join(missing, ", "))
	}
	return nil
}

func normalizeExcludes(rl *RateLimitConfig) error {
	for i, v := range rl.ExcludeUpdates {
		kind := strings.ToLower(strings.TrimSpace(v))
		if kind == "" {
			continue
		}
		if !slices.Contains(updateKinds, kind) {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: %s", v, strings.Join(updateKinds, ", "))
		}
		rl.ExcludeUpdates[i] = kind
	}
	return nil
}
