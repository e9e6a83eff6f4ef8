package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the bot and the CLI.
type Config struct {
	TelegramToken string `yaml:"telegram_token"`
	DatabaseURL   string `yaml:"database_url"`

	// ReportAt is a daily HH:MM report time; when empty the report repeats
	// every ReportIntervalHours.
	ReportAt            string `yaml:"report_at"`
	ReportIntervalHours int    `yaml:"report_interval_hours"`
	RolloverAt          string `yaml:"rollover_at"`

	TimerPollSeconds    int    `yaml:"timer_poll_seconds"`
	DefaultTimerMinutes int    `yaml:"default_timer_minutes"`
	Timezone            string `yaml:"timezone"`

	// LocalTelegramID is the account the CLI acts as.
	LocalTelegramID int64 `yaml:"local_telegram_id"`

	Location *time.Location `yaml:"-"`
}

// ConfigFileEnv names the variable pointing at an optional YAML file.
const ConfigFileEnv = "DAYRALLY_CONFIG"

func defaults() Config {
	return Config{
		DatabaseURL:         "dayrally.db",
		ReportIntervalHours: 5,
		RolloverAt:          "00:00:05",
		TimerPollSeconds:    1,
		DefaultTimerMinutes: 25,
	}
}

// Load reads configuration from a .env file, the optional YAML file and
// environment variables, in increasing priority, with sane defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[warn] .env: %v", err)
	}

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "dayrally.db"
	}
	if cfg.TimerPollSeconds <= 0 {
		cfg.TimerPollSeconds = 1
	}
	if cfg.DefaultTimerMinutes <= 0 {
		cfg.DefaultTimerMinutes = 25
	}

	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return cfg, fmt.Errorf("TIMEZONE %q: %w", cfg.Timezone, err)
		}
	}
	cfg.Location = loc

	return cfg, nil
}

// RequireTelegram reports whether the bot can be started.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

// ReportInterval is the period of the repeating report job.
func (c Config) ReportInterval() time.Duration {
	return time.Duration(c.ReportIntervalHours) * time.Hour
}

// TimerPoll is the period of the timer expiry job.
func (c Config) TimerPoll() time.Duration {
	return time.Duration(c.TimerPollSeconds) * time.Second
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.ReportAt, "REPORT_AT")
	setString(&cfg.RolloverAt, "ROLLOVER_AT")
	setString(&cfg.Timezone, "TIMEZONE")

	if raw := env("REPORT_INTERVAL_HOURS"); raw != "" {
		cfg.ReportIntervalHours = parseInterval(raw)
	}
	for name, dst := range map[string]*int{
		"TIMER_POLL_SECONDS":    &cfg.TimerPollSeconds,
		"DEFAULT_TIMER_MINUTES": &cfg.DefaultTimerMinutes,
	} {
		if raw := env(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
	}
	if raw := env("LOCAL_TELEGRAM_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("LOCAL_TELEGRAM_ID: %w", err)
		}
		cfg.LocalTelegramID = id
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

func setString(dst *string, name string) {
	if v := env(name); v != "" {
		*dst = v
	}
}

// parseInterval keeps whole hours; anything unparsable or non-positive
// disables the repeating report.
func parseInterval(raw string) int {
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return int(hours / time.Hour)
}
