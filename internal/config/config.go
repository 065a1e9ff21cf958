package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"gopkg.in/yaml.v3"
)

// PairConfig names an exchange product and the first day to scan it from.
type PairConfig struct {
	ID    string `yaml:"id"`
	Epoch string `yaml:"epoch"`
}

// Config holds all application configuration.
type Config struct {
	Asset string `yaml:"asset"`
	Pairs struct {
		USD PairConfig `yaml:"usd"`
		EUR PairConfig `yaml:"eur"`
	} `yaml:"pairs"`
	Sources struct {
		CoinbaseURL string `yaml:"coinbase_url"`
		FREDURL     string `yaml:"fred_url"`
		FREDSeries  string `yaml:"fred_series"`
		EurostatURL string `yaml:"eurostat_url"`
	} `yaml:"sources"`
	Discovery struct {
		WindowDays   int           `yaml:"window_days"`
		PageDelay    time.Duration `yaml:"page_delay"`
		RetryDelay   time.Duration `yaml:"retry_delay"`
		MaxAttempts  int           `yaml:"max_attempts"`
		ExtendCached bool          `yaml:"extend_cached"`
	} `yaml:"discovery"`
	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`
	SpotTTL     *time.Duration `yaml:"spot_ttl"` // nil means the default; 0 disables caching
	Milestone   float64        `yaml:"milestone"`
	HTTPTimeout time.Duration  `yaml:"http_timeout"`
	Telegram    struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		ReportCron  string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
// A missing file is not an error.
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
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("ATH_CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		c.Schedule.RefreshCron = v
	}
	if v := os.Getenv("CRON_REPORT"); v != "" {
		c.Schedule.ReportCron = v
	}
	if v := os.Getenv("SPOT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SpotTTL = &d
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Asset == "" {
		c.Asset = "ETH"
	}
	if c.Pairs.USD.ID == "" {
		c.Pairs.USD.ID = c.Asset + "-USD"
	}
	if c.Pairs.EUR.ID == "" {
		c.Pairs.EUR.ID = c.Asset + "-EUR"
	}
	if c.Pairs.USD.Epoch == "" {
		c.Pairs.USD.Epoch = "2015-01-01"
	}
	if c.Pairs.EUR.Epoch == "" {
		c.Pairs.EUR.Epoch = "2015-01-01"
	}
	if c.Discovery.WindowDays == 0 {
		c.Discovery.WindowDays = 300
	}
	if c.Discovery.PageDelay == 0 {
		c.Discovery.PageDelay = 110 * time.Millisecond
	}
	if c.Discovery.RetryDelay == 0 {
		c.Discovery.RetryDelay = time.Second
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "data/inflation_ath.cache.json"
	}
	if c.SpotTTL == nil {
		ttl := 10 * time.Second
		c.SpotTTL = &ttl
	}
	if c.Milestone == 0 {
		c.Milestone = 10000
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 20 * time.Second
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 */5 * * * *"
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 0 9 * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/athwatch.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// SpotCacheTTL returns how long spot prices are reused. Zero disables reuse.
func (c *Config) SpotCacheTTL() time.Duration {
	if c.SpotTTL == nil {
		return 0
	}
	return *c.SpotTTL
}

// Epochs parses the configured scan start days.
func (c *Config) Epochs() (usd, eur civil.Date, err error) {
	if usd, err = civil.ParseDate(c.Pairs.USD.Epoch); err != nil {
		return usd, eur, fmt.Errorf("pairs.usd.epoch: %w", err)
	}
	if eur, err = civil.ParseDate(c.Pairs.EUR.Epoch); err != nil {
		return usd, eur, fmt.Errorf("pairs.eur.epoch: %w", err)
	}
	return usd, eur, nil
}

// Validate checks the settings the metrics engine cannot run without.
func (c *Config) Validate() error {
	if _, _, err := c.Epochs(); err != nil {
		return err
	}
	if c.Discovery.WindowDays <= 0 || c.Discovery.WindowDays > 300 {
		return fmt.Errorf("discovery.window_days must be in 1..300")
	}
	if c.Discovery.MaxAttempts < 0 {
		return fmt.Errorf("discovery.max_attempts must not be negative")
	}
	if c.Milestone <= 0 {
		return fmt.Errorf("milestone must be positive")
	}
	if c.Pairs.USD.ID == c.Pairs.EUR.ID {
		return fmt.Errorf("pairs.usd.id and pairs.eur.id must differ")
	}
	return nil
}

// ValidateNotifier checks the Telegram settings needed by the daemon.
func (c *Config) ValidateNotifier() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}
