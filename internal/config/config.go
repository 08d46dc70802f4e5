package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"StockAnalyzer/internal/logger"
)

// Pair is a pair of symbols checked for spread divergence.
type Pair struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

func (p Pair) String() string { return p.A + "/" + p.B }

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log        logger.Config `yaml:"log"`
	DataSource struct {
		Provider      string        `yaml:"provider"` // yahoo, rest or mock
		BaseURL       string        `yaml:"base_url"`
		APIKey        string        `yaml:"api_key"`
		HistoryDays   int           `yaml:"history_days"`
		RatePerSecond float64       `yaml:"rate_per_second"`
		Timeout       time.Duration `yaml:"timeout"`
	} `yaml:"data_source"`
	Finnhub struct {
		APIKey        string  `yaml:"api_key"`
		BaseURL       string  `yaml:"base_url"`
		LookbackDays  int     `yaml:"lookback_days"`
		RatePerSecond float64 `yaml:"rate_per_second"`
	} `yaml:"finnhub"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		ScanCron string `yaml:"scan_cron"`
		PairCron string `yaml:"pair_cron"`
	} `yaml:"schedule"`
	Watchlist []string `yaml:"watchlist"`
	Pairs     []Pair   `yaml:"pairs"`
	Analysis  struct {
		Horizon     string `yaml:"horizon"`
		Risk        int    `yaml:"risk"`
		ScanWorkers int    `yaml:"scan_workers"`
		ScanFilter  string `yaml:"scan_filter"`
		Options     bool   `yaml:"options"`
	} `yaml:"analysis"`
	Cache struct {
		Backend string        `yaml:"backend"` // memory, redis or none
		TTL     time.Duration `yaml:"ttl"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

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
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
		c.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
		c.DataSource.Provider = "rest"
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Backend = "redis"
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist = ParseSymbols(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.HistoryDays == 0 {
		c.DataSource.HistoryDays = 180
	}
	if c.DataSource.RatePerSecond == 0 {
		c.DataSource.RatePerSecond = 2
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.Finnhub.BaseURL == "" {
		c.Finnhub.BaseURL = "https://finnhub.io/api/v1"
	}
	if c.Finnhub.LookbackDays == 0 {
		c.Finnhub.LookbackDays = 30
	}
	if c.Finnhub.RatePerSecond == 0 {
		c.Finnhub.RatePerSecond = 1
	}
	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "0 30 16 * * 1-5"
	}
	if c.Schedule.PairCron == "" {
		c.Schedule.PairCron = "0 0 * * * 1-5"
	}
	if len(c.Watchlist) == 0 {
		c.Watchlist = []string{"AAPL", "MSFT", "TSLA", "NVDA", "AMD", "GOOGL", "META", "NFLX"}
	}
	if c.Analysis.Horizon == "" {
		c.Analysis.Horizon = "1w"
	}
	if c.Analysis.Risk == 0 {
		c.Analysis.Risk = 5
	}
	if c.Analysis.ScanWorkers == 0 {
		c.Analysis.ScanWorkers = 4
	}
	if c.Analysis.ScanFilter == "" {
		c.Analysis.ScanFilter = "ALL"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = "localhost:6379"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/stock_analyzer.db"
	}
}

// Validate checks field ranges and that enabled integrations are configured.
func (c *Config) Validate() error {
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, rest, mock", c.DataSource.Provider)
	}
	if c.DataSource.HistoryDays < 30 {
		return fmt.Errorf("data_source.history_days must be at least 30")
	}
	if c.Analysis.Risk < 1 || c.Analysis.Risk > 10 {
		return fmt.Errorf("analysis.risk must be within [1,10]")
	}
	if c.Analysis.ScanWorkers < 1 {
		return fmt.Errorf("analysis.scan_workers must be positive")
	}
	switch strings.ToUpper(c.Analysis.ScanFilter) {
	case "ALL", "BUY", "WATCH":
	default:
		return fmt.Errorf("analysis.scan_filter %q is not one of ALL, BUY, WATCH", c.Analysis.ScanFilter)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.backend %q is not one of memory, redis, none", c.Cache.Backend)
	}
	for _, p := range c.Pairs {
		if p.A == "" || p.B == "" || strings.EqualFold(p.A, p.B) {
			return fmt.Errorf("pair %q needs two distinct symbols", p.String())
		}
	}
	return nil
}

// ParseSymbols splits a comma separated list into upper-cased, trimmed symbols.
func ParseSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if sym := strings.ToUpper(strings.TrimSpace(part)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}
