package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"TIMEHUNT_CONFIG", "TELEGRAM_TOKEN", "DATABASE_URL", "TICK_INTERVAL", "DIGEST_TIME",
	"TZ_OFFSET", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "LEADERBOARD_TTL",
	"NOTIFY_RATE", "LOG_LEVEL", "LOG_PATH", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS",
	"LOG_MAX_AGE_DAYS", "LOG_COMPRESS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "timehunt.db" {
		t.Fatalf("DatabaseURL=%q", cfg.DatabaseURL)
	}
	if cfg.TickInterval != 30*time.Second {
		t.Fatalf("TickInterval=%v", cfg.TickInterval)
	}
	if cfg.LeaderboardTTL != time.Minute {
		t.Fatalf("LeaderboardTTL=%v", cfg.LeaderboardTTL)
	}
	if _, off := time.Date(2025, 1, 1, 0, 0, 0, 0, cfg.Location).Zone(); off != 5*3600+30*60 {
		t.Fatalf("offset=%d, want IST", off)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel=%q", cfg.LogLevel)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without TELEGRAM_TOKEN")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "timehunt.yaml")
	body := "telegram_token: from-file\n" +
		"database_url: data/file.db\n" +
		"tick_interval: 10s\n" +
		"digest_time: \"07:45\"\n" +
		"redis_addr: localhost:6379\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TIMEHUNT_CONFIG", path)
	t.Setenv("DATABASE_URL", "env.db")
	t.Setenv("TZ_OFFSET", "-03:00")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TelegramToken != "from-file" {
		t.Fatalf("TelegramToken=%q", cfg.TelegramToken)
	}
	if cfg.DatabaseURL != "env.db" {
		t.Fatalf("env should override file, got %q", cfg.DatabaseURL)
	}
	if cfg.TickInterval != 10*time.Second {
		t.Fatalf("TickInterval=%v", cfg.TickInterval)
	}
	if cfg.DigestTime != "07:45" || cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if _, off := time.Now().In(cfg.Location).Zone(); off != -3*3600 {
		t.Fatalf("offset=%d", off)
	}
}

func TestLoadRejectsBadDigestTime(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("DIGEST_TIME", "7pm")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for bad DIGEST_TIME")
	}
}

func TestParseOffset(t *testing.T) {
	cases := map[string]int{
		"+05:30": 19800,
		"-07:00": -25200,
		"UTC":    0,
		"":       0,
	}
	for raw, want := range cases {
		loc, err := ParseOffset(raw)
		if err != nil {
			t.Fatalf("ParseOffset(%q): %v", raw, err)
		}
		if _, off := time.Date(2025, 6, 1, 0, 0, 0, 0, loc).Zone(); off != want {
			t.Fatalf("ParseOffset(%q) offset=%d, want %d", raw, off, want)
		}
	}
	if _, err := ParseOffset("India"); err == nil {
		t.Fatalf("expected error for named zone")
	}
}
