package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"ChipSentinel/internal/strategy"
)

const (
	// MinLookbackDays is the shortest window that still yields strategy.MinHistoryBars trading days.
	MinLookbackDays = 100
	MaxLookbackDays = 730

	// holidayAllowance covers the longest TWSE closure (Lunar New Year) plus scattered holidays.
	holidayAllowance = 16
)

// DefaultWatchlist is scanned when no watchlist is configured.
var DefaultWatchlist = []string{"2330", "2317", "2454", "2303", "2382", "3231", "2881", "2882"}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider string        `yaml:"provider"` // finmind | yahoo
		BaseURL  string        `yaml:"base_url"`
		APIToken string        `yaml:"api_token"`
		Throttle time.Duration `yaml:"throttle"`
	} `yaml:"data_source"`
	Strategy strategy.Thresholds `yaml:"strategy"`
	Single   struct {
		LookbackDays int `yaml:"lookback_days"`
	} `yaml:"single"`
	Scan struct {
		Watchlist    []string `yaml:"watchlist"`
		LookbackDays int      `yaml:"lookback_days"`
		Cron         string   `yaml:"cron"`
	} `yaml:"scan"`
	Cache struct {
		Backend    string        `yaml:"backend"` // memory | redis | sqlite | none
		TTL        time.Duration `yaml:"ttl"`
		SQLitePath string        `yaml:"sqlite_path"`
		Redis      struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Proxy string `yaml:"proxy"`
}

// TelegramEnabled reports whether both bot token and chat ID are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Load reads .env and the YAML file, then applies environment overrides and defaults.
// Both files are optional.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{Strategy: strategy.DefaultThresholds()}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("FINMIND_TOKEN"); v != "" {
		c.DataSource.APIToken = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Scan.Watchlist = splitList(v)
	}
	if v := os.Getenv("CRON_SCAN"); v != "" {
		c.Scan.Cron = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Cache.SQLitePath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "finmind"
	}
	c.DataSource.Provider = strings.ToLower(c.DataSource.Provider)
	if c.DataSource.Throttle == 0 {
		c.DataSource.Throttle = time.Second
	}
	if c.Single.LookbackDays == 0 {
		c.Single.LookbackDays = 120
	}
	if c.Scan.LookbackDays == 0 {
		c.Scan.LookbackDays = 120
	}
	if len(c.Scan.Watchlist) == 0 {
		c.Scan.Watchlist = append([]string(nil), DefaultWatchlist...)
	}
	if c.Scan.Cron == "" {
		c.Scan.Cron = "0 30 17 * * 1-5"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	c.Cache.Backend = strings.ToLower(c.Cache.Backend)
	if c.Cache.TTL == 0 {
		c.Cache.TTL = time.Hour
	}
	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = "data/chip_sentinel.db"
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = "localhost:6379"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch c.DataSource.Provider {
	case "finmind", "yahoo":
	default:
		return fmt.Errorf("data_source.provider must be finmind or yahoo, got %q", c.DataSource.Provider)
	}
	if c.DataSource.Throttle < 0 {
		return fmt.Errorf("data_source.throttle must not be negative")
	}
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if err := ValidateLookback(c.Single.LookbackDays); err != nil {
		return fmt.Errorf("single.lookback_days: %w", err)
	}
	if err := ValidateLookback(c.Scan.LookbackDays); err != nil {
		return fmt.Errorf("scan.lookback_days: %w", err)
	}
	if err := CoversThresholds(c.Single.LookbackDays, c.Strategy); err != nil {
		return fmt.Errorf("single.lookback_days: %w", err)
	}
	if err := CoversThresholds(c.Scan.LookbackDays, c.Strategy); err != nil {
		return fmt.Errorf("scan.lookback_days: %w", err)
	}
	if _, err := cron.NewParser(
		cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	).Parse(c.Scan.Cron); err != nil {
		return fmt.Errorf("scan.cron: %w", err)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "sqlite", "none":
	default:
		return fmt.Errorf("cache.backend must be memory, redis, sqlite or none, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	return nil
}

// ValidateLookback checks a lookback window in calendar days.
func ValidateLookback(days int) error {
	if days < MinLookbackDays || days > MaxLookbackDays {
		return fmt.Errorf("must be between %d and %d, got %d", MinLookbackDays, MaxLookbackDays, days)
	}
	return nil
}

// LookbackFor returns the calendar days needed to collect the given number of trading bars.
func LookbackFor(bars int) int {
	return (bars*7+4)/5 + holidayAllowance
}

// CoversThresholds checks that a lookback can hold th.RequiredBars() trading days.
func CoversThresholds(days int, th strategy.Thresholds) error {
	if need := LookbackFor(th.RequiredBars()); days < need {
		return fmt.Errorf("%d days cannot hold %d trading bars, need at least %d", days, th.RequiredBars(), need)
	}
	return nil
}

// EnvBool reads a boolean environment variable, false when unset or invalid.
func EnvBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
