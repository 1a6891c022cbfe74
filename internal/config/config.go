// Package config loads the TOML configuration file, creating it with
// defaults on first run, and applies REMINDD_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "remindd.db"
)

// SMTP configures the email notification channel.
type SMTP struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

// Telegram configures the telegram notification channel.
type Telegram struct {
	Token  string `toml:"token"`
	ChatID string `toml:"chat_id"`
}

// Notifier selects and configures the dispatch channel. Channel is one
// of "log", "smtp" or "telegram". Destination is where reminders for
// the configured owner go: an email address for smtp, a chat id for
// telegram.
type Notifier struct {
	Channel     string   `toml:"channel"`
	Destination string   `toml:"destination"`
	SMTP        SMTP     `toml:"smtp"`
	Telegram    Telegram `toml:"telegram"`
}

// ResolveDestination returns where reminders for the configured owner go.
// The explicit destination wins; for the telegram channel the chat id
// doubles as the destination so it need not be stated twice.
func (n Notifier) ResolveDestination() string {
	if n.Destination != "" {
		return n.Destination
	}
	if n.Channel == "telegram" {
		return n.Telegram.ChatID
	}
	return ""
}

// Scheduler tunes the reminder poll loop.
type Scheduler struct {
	IntervalMinutes        int `toml:"interval_minutes"`
	LookaheadMinutes       int `toml:"lookahead_minutes"`
	DispatchTimeoutSeconds int `toml:"dispatch_timeout_seconds"`
}

type Config struct {
	DBPath    string    `toml:"db_path"`
	OwnerID   string    `toml:"owner_id"`
	Notifier  Notifier  `toml:"notifier"`
	Scheduler Scheduler `toml:"scheduler"`
}

func Default() Config {
	return Config{
		DBPath:  DefaultDBName,
		OwnerID: "default",
		Notifier: Notifier{
			Channel: "log",
			SMTP:    SMTP{Port: 587},
		},
		Scheduler: Scheduler{
			IntervalMinutes:        10,
			LookaheadMinutes:       30,
			DispatchTimeoutSeconds: 30,
		},
	}
}

// LoadOrCreate reads the config at path, writing the defaults there
// first if the file does not exist yet.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if cfg.OwnerID == "" {
		cfg.OwnerID = "default"
	}
	if cfg.Scheduler.IntervalMinutes <= 0 {
		cfg.Scheduler.IntervalMinutes = 10
	}
	if cfg.Scheduler.LookaheadMinutes <= 0 {
		cfg.Scheduler.LookaheadMinutes = 30
	}
	if cfg.Scheduler.DispatchTimeoutSeconds <= 0 {
		cfg.Scheduler.DispatchTimeoutSeconds = 30
	}
	return cfg, nil
}

// FromEnv layers REMINDD_* environment variables over cfg. Unset or
// malformed values leave the base untouched.
func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnv("REMINDD_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := getEnv("REMINDD_OWNER_ID"); ok {
		cfg.OwnerID = v
	}
	if v, ok := getEnv("REMINDD_NOTIFIER_CHANNEL"); ok {
		cfg.Notifier.Channel = strings.ToLower(v)
	}
	if v, ok := getEnv("REMINDD_NOTIFIER_DESTINATION"); ok {
		cfg.Notifier.Destination = v
	}
	if v, ok := getEnv("REMINDD_SMTP_HOST"); ok {
		cfg.Notifier.SMTP.Host = v
	}
	if v, ok := getEnvInt("REMINDD_SMTP_PORT"); ok && v > 0 {
		cfg.Notifier.SMTP.Port = v
	}
	if v, ok := getEnv("REMINDD_SMTP_USERNAME"); ok {
		cfg.Notifier.SMTP.Username = v
	}
	if v, ok := getEnv("REMINDD_SMTP_PASSWORD"); ok {
		cfg.Notifier.SMTP.Password = v
	}
	if v, ok := getEnv("REMINDD_TELEGRAM_TOKEN"); ok {
		cfg.Notifier.Telegram.Token = v
	}
	if v, ok := getEnv("REMINDD_TELEGRAM_CHAT_ID"); ok {
		cfg.Notifier.Telegram.ChatID = v
	}
	if v, ok := getEnvInt("REMINDD_SCHEDULER_INTERVAL_MINUTES"); ok && v > 0 {
		cfg.Scheduler.IntervalMinutes = v
	}
	if v, ok := getEnvInt("REMINDD_SCHEDULER_LOOKAHEAD_MINUTES"); ok && v > 0 {
		cfg.Scheduler.LookaheadMinutes = v
	}
	if v, ok := getEnvInt("REMINDD_SCHEDULER_DISPATCH_TIMEOUT_SECONDS"); ok && v > 0 {
		cfg.Scheduler.DispatchTimeoutSeconds = v
	}
	return cfg
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func getEnv(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw, ok := getEnv(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
