package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the bot and the sync core.
type Config struct {
	TelegramToken string `yaml:"telegram_token"`
	DatabaseURL   string `yaml:"database_url"`

	TickInterval time.Duration  `yaml:"tick_interval"`
	DigestTime   string         `yaml:"digest_time"`
	TZOffset     string         `yaml:"tz_offset"`
	Location     *time.Location `yaml:"-"`

	RedisAddr      string        `yaml:"redis_addr"`
	RedisPassword  string        `yaml:"redis_password"`
	RedisDB        int           `yaml:"redis_db"`
	LeaderboardTTL time.Duration `yaml:"leaderboard_ttl"`

	NotifyRate float64 `yaml:"notify_rate"`

	LogLevel      string `yaml:"log_level"`
	LogPath       string `yaml:"log_path"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
	LogCompress   bool   `yaml:"log_compress"`
}

const (
	defaultDatabaseURL    = "timehunt.db"
	defaultTickInterval   = 30 * time.Second
	defaultTZOffset       = "+05:30"
	defaultLeaderboardTTL = time.Minute
	defaultNotifyRate     = 20
)

// Load reads configuration from .env, an optional YAML file named by
// TIMEHUNT_CONFIG and the environment, in that order of precedence (env wins).
func Load() (Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	var cfg Config
	if path := strings.TrimSpace(os.Getenv("TIMEHUNT_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	loc, err := ParseOffset(cfg.TZOffset)
	if err != nil {
		return cfg, err
	}
	cfg.Location = loc

	if cfg.DigestTime != "" {
		if _, err := time.Parse("15:04", cfg.DigestTime); err != nil {
			return cfg, fmt.Errorf("DIGEST_TIME must be HH:MM: %w", err)
		}
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setDuration(&cfg.TickInterval, "TICK_INTERVAL")
	setString(&cfg.DigestTime, "DIGEST_TIME")
	setString(&cfg.TZOffset, "TZ_OFFSET")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setInt(&cfg.RedisDB, "REDIS_DB")
	setDuration(&cfg.LeaderboardTTL, "LEADERBOARD_TTL")
	if raw := strings.TrimSpace(os.Getenv("NOTIFY_RATE")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			cfg.NotifyRate = v
		}
	}
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogPath, "LOG_PATH")
	setInt(&cfg.LogMaxSizeMB, "LOG_MAX_SIZE_MB")
	setInt(&cfg.LogMaxBackups, "LOG_MAX_BACKUPS")
	setInt(&cfg.LogMaxAgeDays, "LOG_MAX_AGE_DAYS")
	if raw := strings.TrimSpace(os.Getenv("LOG_COMPRESS")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.LogCompress = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.TZOffset == "" {
		cfg.TZOffset = defaultTZOffset
	}
	if cfg.LeaderboardTTL <= 0 {
		cfg.LeaderboardTTL = defaultLeaderboardTTL
	}
	if cfg.NotifyRate <= 0 {
		cfg.NotifyRate = defaultNotifyRate
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// ParseOffset turns "+05:30" style offsets into a fixed zone.
func ParseOffset(raw string) (*time.Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "UTC") || raw == "Z" {
		return time.UTC, nil
	}
	t, err := time.Parse("-07:00", raw)
	if err != nil {
		return nil, fmt.Errorf("TZ_OFFSET %q: want +HH:MM", raw)
	}
	_, offset := t.Zone()
	return time.FixedZone("UTC"+raw, offset), nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	if v, err := strconv.Atoi(raw); err == nil {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		*dst = d
	}
}
