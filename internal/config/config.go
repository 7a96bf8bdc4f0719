// Package config defines the top-level configuration for the listing bot
// and provides validation helpers.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by LISTINGBOT_* environment variables.
type Config struct {
	Binance  BinanceConfig  `toml:"binance"`
	Gate     GateConfig     `toml:"gate"`
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Feed     FeedConfig     `toml:"feed"`
	Scraper  ScraperConfig  `toml:"scraper"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
	// ErrorLogFile is an additional durable log that receives only
	// warning-and-above records. Empty disables it.
	ErrorLogFile string `toml:"error_log_file"`
}

// TradingConfig holds the per-broker trading parameters shared by every
// exchange section.
type TradingConfig struct {
	QuoteAsset    string  `toml:"quote_asset"`
	OrderQuantity float64 `toml:"order_quantity"`
	// Percentages may be given either as whole percents (3 means 3%) or as
	// fractions (0.03 means 3%); Normalize folds both forms to whole
	// percents.
	StopLossPercent   float64 `toml:"stop_loss_percent"`
	TakeProfitPercent float64 `toml:"take_profit_percent"`

	EnableTrailingStopLoss     bool    `toml:"enable_trailing_stop_loss"`
	TrailingStopLossPercent    float64 `toml:"trailing_stop_loss_percent"`
	TrailingStopLossActivation float64 `toml:"trailing_stop_loss_activation"`

	// Test routes entry orders to the exchange's order validation endpoint
	// instead of placing real trades.
	Test bool `toml:"test"`

	PollSeconds           int `toml:"poll_seconds"`
	StatusIntervalMinutes int `toml:"status_interval_minutes"`
}

// BinanceConfig holds Binance spot API credentials and trading parameters.
type BinanceConfig struct {
	Enabled   bool          `toml:"enabled"`
	APIKey    string        `toml:"api_key"`
	APISecret string        `toml:"api_secret"`
	BaseURL   string        `toml:"base_url"`
	Trading   TradingConfig `toml:"trading"`
}

// GateConfig holds Gate.io spot API credentials and trading parameters.
type GateConfig struct {
	Enabled   bool          `toml:"enabled"`
	APIKey    string        `toml:"api_key"`
	APISecret string        `toml:"api_secret"`
	BaseURL   string        `toml:"base_url"`
	Trading   TradingConfig `toml:"trading"`
}

// StorageConfig holds the snapshot file location.
type StorageConfig struct {
	// DataDir is the directory holding the per-broker snapshot files.
	DataDir string `toml:"data_dir"`
}

// PostgresConfig holds PostgreSQL connection parameters for the optional
// trade journal.
type PostgresConfig struct {
	Enabled      bool   `toml:"enabled"`
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// RedisConfig holds Redis connection parameters for the optional price
// cache and scraper dedup set.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
}

// S3Config holds S3-compatible object storage parameters for the optional
// closed-history archiver.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	Prefix          string   `toml:"prefix"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// FeedConfig holds the Binance websocket price feed parameters.
type FeedConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	// PriceTTL bounds how long a cached websocket price is trusted before
	// the cycle falls back to the REST endpoint.
	PriceTTL duration `toml:"price_ttl"`
}

// ScraperConfig holds the announcement page poller parameters.
type ScraperConfig struct {
	Enabled  bool     `toml:"enabled"`
	URL      string   `toml:"url"`
	Interval duration `toml:"interval"`
	// Exclusions drops announcements whose title contains any of these
	// substrings (futures listings, margin pairs and so on).
	Exclusions []string `toml:"exclusions"`
}

// NotifyConfig holds notification channel credentials and per-channel
// category filters.
type NotifyConfig struct {
	TelegramToken  string `toml:"telegram_token"`
	TelegramChatID string `toml:"telegram_chat_id"`
	// TelegramCategories lists the message categories the Telegram channel
	// forwards. Empty means the default set (message, error, entry, close).
	TelegramCategories []string `toml:"telegram_categories"`

	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	DiscordCategories []string `toml:"discord_categories"`

	ConsoleEnabled    bool     `toml:"console_enabled"`
	ConsoleCategories []string `toml:"console_categories"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	trading := TradingConfig{
		QuoteAsset:                 "USDT",
		OrderQuantity:              100,
		StopLossPercent:            3,
		TakeProfitPercent:          3,
		EnableTrailingStopLoss:     true,
		TrailingStopLossPercent:    2,
		TrailingStopLossActivation: 3,
		Test:                       true,
		PollSeconds:                3,
		StatusIntervalMinutes:      15,
	}
	return Config{
		Binance: BinanceConfig{
			Enabled: true,
			BaseURL: "https://api.binance.com",
			Trading: trading,
		},
		Gate: GateConfig{
			Enabled: false,
			BaseURL: "https://api.gateio.ws",
			Trading: trading,
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Postgres: PostgresConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         5432,
			Database:     "listingbot",
			User:         "postgres",
			SSLMode:      "disable",
			PoolMaxConns: 4,
			PoolMinConns: 1,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:         false,
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "listingbot-archive",
			ForcePathStyle:  true,
			Prefix:          "closed",
			ArchiveInterval: duration{time.Hour},
		},
		Feed: FeedConfig{
			Enabled:  false,
			URL:      "wss://stream.binance.com:9443/ws/!miniTicker@arr",
			PriceTTL: duration{10 * time.Second},
		},
		Scraper: ScraperConfig{
			Enabled:    false,
			URL:        "https://www.binance.com/bapi/composite/v1/public/cms/article/catalog/list/query?catalogId=48&pageNo=1&pageSize=15",
			Interval:   duration{time.Minute},
			Exclusions: []string{"Futures", "Margin", "adds"},
		},
		Notify: NotifyConfig{
			ConsoleEnabled: true,
		},
		LogLevel:     "info",
		ErrorLogFile: "error.log",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// NormalizePercent folds a percentage given in any of the accepted input
// forms to a whole percent: the sign is dropped (thresholds encode their own
// direction) and fractional values below 1 are scaled by 100, so 0.03 and 3
// both mean 3%. Values above 100 after normalization are rejected.
func NormalizePercent(v float64) (float64, error) {
	v = math.Abs(v)
	if v < 1 {
		v *= 100
	}
	if v > 100 {
		return 0, fmt.Errorf("config: percent %v exceeds 100 after normalization", v)
	}
	return v, nil
}

// Normalize folds every percentage field of the enabled broker sections to
// whole percents. It must run before Validate.
func (c *Config) Normalize() error {
	for _, t := range []*TradingConfig{&c.Binance.Trading, &c.Gate.Trading} {
		for _, p := range []*float64{
			&t.StopLossPercent,
			&t.TakeProfitPercent,
			&t.TrailingStopLossPercent,
			&t.TrailingStopLossActivation,
		} {
			v, err := NormalizePercent(*p)
			if err != nil {
				return err
			}
			*p = v
		}
	}
	return nil
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if !c.Binance.Enabled && !c.Gate.Enabled {
		errs = append(errs, "at least one broker section must be enabled")
	}

	if c.Binance.Enabled {
		if c.Binance.BaseURL == "" {
			errs = append(errs, "binance: base_url must not be empty")
		}
		if !c.Binance.Trading.Test && (c.Binance.APIKey == "" || c.Binance.APISecret == "") {
			errs = append(errs, "binance: api_key and api_secret are required when test mode is off")
		}
		errs = append(errs, validateTrading("binance", c.Binance.Trading)...)
	}
	if c.Gate.Enabled {
		if c.Gate.BaseURL == "" {
			errs = append(errs, "gate: base_url must not be empty")
		}
		if !c.Gate.Trading.Test && (c.Gate.APIKey == "" || c.Gate.APISecret == "") {
			errs = append(errs, "gate: api_key and api_secret are required when test mode is off")
		}
		errs = append(errs, validateTrading("gate", c.Gate.Trading)...)
	}

	if c.Storage.DataDir == "" {
		errs = append(errs, "storage: data_dir must not be empty")
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.ArchiveInterval.Duration <= 0 {
			errs = append(errs, "s3: archive_interval must be positive")
		}
	}

	if c.Feed.Enabled {
		if c.Feed.URL == "" {
			errs = append(errs, "feed: url must not be empty")
		}
		if !c.Redis.Enabled {
			errs = append(errs, "feed: the websocket feed requires redis to be enabled for the price cache")
		}
	}

	if c.Scraper.Enabled {
		if c.Scraper.URL == "" {
			errs = append(errs, "scraper: url must not be empty")
		}
		if c.Scraper.Interval.Duration <= 0 {
			errs = append(errs, "scraper: interval must be positive")
		}
	}

	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == "" {
		errs = append(errs, "notify: telegram_chat_id is required when telegram_token is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// validateTrading checks one broker's trading section. Percentages are
// assumed to be normalized already.
func validateTrading(section string, t TradingConfig) []string {
	var errs []string
	if t.QuoteAsset == "" {
		errs = append(errs, section+": quote_asset must not be empty")
	}
	if t.OrderQuantity <= 0 {
		errs = append(errs, section+": order_quantity must be > 0")
	}
	if t.StopLossPercent <= 0 {
		errs = append(errs, section+": stop_loss_percent must be > 0")
	}
	if !t.EnableTrailingStopLoss && t.TakeProfitPercent <= 0 {
		errs = append(errs, section+": take_profit_percent must be > 0 when trailing is disabled")
	}
	if t.EnableTrailingStopLoss && t.TrailingStopLossPercent <= 0 {
		errs = append(errs, section+": trailing_stop_loss_percent must be > 0 when trailing is enabled")
	}
	if t.PollSeconds < 1 {
		errs = append(errs, section+": poll_seconds must be >= 1")
	}
	if t.StatusIntervalMinutes < 0 {
		errs = append(errs, section+": status_interval_minutes must be >= 0")
	}
	return errs
}

// PollInterval returns the poll delay for the section.
func (t TradingConfig) PollInterval() time.Duration {
	return time.Duration(t.PollSeconds) * time.Second
}

// StatusEveryCycles converts the status-report interval from minutes to a
// cycle count for the orchestrator. Zero disables status reports.
func (t TradingConfig) StatusEveryCycles() int {
	if t.StatusIntervalMinutes <= 0 || t.PollSeconds <= 0 {
		return 0
	}
	cycles := t.StatusIntervalMinutes * 60 / t.PollSeconds
	if cycles < 1 {
		cycles = 1
	}
	return cycles
}
