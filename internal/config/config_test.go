package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		ConfigFileEnv, "TELEGRAM_TOKEN", "DATABASE_URL", "REPORT_AT", "ROLLOVER_AT", "TIMEZONE",
		"REPORT_INTERVAL_HOURS", "TIMER_POLL_SECONDS", "DEFAULT_TIMER_MINUTES", "LOCAL_TELEGRAM_ID",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "dayrally.db" || cfg.TimerPoll() != time.Second || cfg.DefaultTimerMinutes != 25 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ReportInterval() != 5*time.Hour || cfg.RolloverAt != "00:00:05" {
		t.Fatalf("unexpected schedule defaults: %+v", cfg)
	}
	if cfg.Location == nil {
		t.Fatalf("location not set")
	}
	if err := cfg.RequireTelegram(); err == nil {
		t.Fatalf("missing token accepted")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "dayrally.yaml")
	data := []byte(`
telegram_token: from-file
database_url: /var/lib/dayrally/planner.db
timezone: Europe/Moscow
default_timer_minutes: 50
report_at: "08:30"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("TELEGRAM_TOKEN", "from-env")
	t.Setenv("TIMER_POLL_SECONDS", "3")
	t.Setenv("LOCAL_TELEGRAM_ID", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TelegramToken != "from-env" {
		t.Fatalf("env must override the file, got %q", cfg.TelegramToken)
	}
	if cfg.DatabaseURL != "/var/lib/dayrally/planner.db" || cfg.DefaultTimerMinutes != 50 || cfg.ReportAt != "08:30" {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.TimerPoll() != 3*time.Second || cfg.LocalTelegramID != 42 {
		t.Fatalf("env values lost: %+v", cfg)
	}
	if cfg.Location.String() != "Europe/Moscow" {
		t.Fatalf("location = %s", cfg.Location)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"TIMEZONE":           "Mars/Olympus",
		"TIMER_POLL_SECONDS": "fast",
		"LOCAL_TELEGRAM_ID":  "me",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(name, value)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%q accepted", name, value)
			}
		})
	}
}

func TestParseInterval(t *testing.T) {
	cases := map[string]int{"5": 5, "1.5": 1, "0": 0, "-2": 0, "soon": 0}
	for in, want := range cases {
		if got := parseInterval(in); got != want {
			t.Errorf("parseInterval(%q) = %d, want %d", in, got, want)
		}
	}
}
