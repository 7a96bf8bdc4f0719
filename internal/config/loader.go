package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LISTINGBOT_* environment variable overrides,
// and normalizes percentage fields. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides reads well-known LISTINGBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Binance ──
	setBool(&cfg.Binance.Enabled, "LISTINGBOT_BINANCE_ENABLED")
	setStr(&cfg.Binance.APIKey, "LISTINGBOT_BINANCE_API_KEY")
	setStr(&cfg.Binance.APISecret, "LISTINGBOT_BINANCE_API_SECRET")
	setStr(&cfg.Binance.BaseURL, "LISTINGBOT_BINANCE_BASE_URL")
	applyTradingOverrides(&cfg.Binance.Trading, "LISTINGBOT_BINANCE")

	// ── Gate ──
	setBool(&cfg.Gate.Enabled, "LISTINGBOT_GATE_ENABLED")
	setStr(&cfg.Gate.APIKey, "LISTINGBOT_GATE_API_KEY")
	setStr(&cfg.Gate.APISecret, "LISTINGBOT_GATE_API_SECRET")
	setStr(&cfg.Gate.BaseURL, "LISTINGBOT_GATE_BASE_URL")
	applyTradingOverrides(&cfg.Gate.Trading, "LISTINGBOT_GATE")

	// ── Storage ──
	setStr(&cfg.Storage.DataDir, "LISTINGBOT_STORAGE_DATA_DIR")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "LISTINGBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "LISTINGBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "LISTINGBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "LISTINGBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "LISTINGBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "LISTINGBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "LISTINGBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "LISTINGBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "LISTINGBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "LISTINGBOT_POSTGRES_POOL_MIN_CONNS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "LISTINGBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "LISTINGBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LISTINGBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LISTINGBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LISTINGBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "LISTINGBOT_REDIS_MAX_RETRIES")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "LISTINGBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "LISTINGBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "LISTINGBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "LISTINGBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "LISTINGBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "LISTINGBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "LISTINGBOT_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "LISTINGBOT_S3_PREFIX")
	setDuration(&cfg.S3.ArchiveInterval, "LISTINGBOT_S3_ARCHIVE_INTERVAL")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "LISTINGBOT_FEED_ENABLED")
	setStr(&cfg.Feed.URL, "LISTINGBOT_FEED_URL")
	setDuration(&cfg.Feed.PriceTTL, "LISTINGBOT_FEED_PRICE_TTL")

	// ── Scraper ──
	setBool(&cfg.Scraper.Enabled, "LISTINGBOT_SCRAPER_ENABLED")
	setStr(&cfg.Scraper.URL, "LISTINGBOT_SCRAPER_URL")
	setDuration(&cfg.Scraper.Interval, "LISTINGBOT_SCRAPER_INTERVAL")
	setStringSlice(&cfg.Scraper.Exclusions, "LISTINGBOT_SCRAPER_EXCLUSIONS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "LISTINGBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "LISTINGBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStringSlice(&cfg.Notify.TelegramCategories, "LISTINGBOT_NOTIFY_TELEGRAM_CATEGORIES")
	setStr(&cfg.Notify.DiscordWebhookURL, "LISTINGBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.DiscordCategories, "LISTINGBOT_NOTIFY_DISCORD_CATEGORIES")
	setBool(&cfg.Notify.ConsoleEnabled, "LISTINGBOT_NOTIFY_CONSOLE_ENABLED")
	setStringSlice(&cfg.Notify.ConsoleCategories, "LISTINGBOT_NOTIFY_CONSOLE_CATEGORIES")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "LISTINGBOT_LOG_LEVEL")
	setStr(&cfg.ErrorLogFile, "LISTINGBOT_ERROR_LOG_FILE")
}

// applyTradingOverrides applies the trading-section variables shared by
// every broker prefix.
func applyTradingOverrides(t *TradingConfig, prefix string) {
	setStr(&t.QuoteAsset, prefix+"_QUOTE_ASSET")
	setFloat64(&t.OrderQuantity, prefix+"_ORDER_QUANTITY")
	setFloat64(&t.StopLossPercent, prefix+"_STOP_LOSS_PERCENT")
	setFloat64(&t.TakeProfitPercent, prefix+"_TAKE_PROFIT_PERCENT")
	setBool(&t.EnableTrailingStopLoss, prefix+"_ENABLE_TRAILING_STOP_LOSS")
	setFloat64(&t.TrailingStopLossPercent, prefix+"_TRAILING_STOP_LOSS_PERCENT")
	setFloat64(&t.TrailingStopLossActivation, prefix+"_TRAILING_STOP_LOSS_ACTIVATION")
	setBool(&t.Test, prefix+"_TEST")
	setInt(&t.PollSeconds, prefix+"_POLL_SECONDS")
	setInt(&t.StatusIntervalMinutes, prefix+"_STATUS_INTERVAL_MINUTES")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
