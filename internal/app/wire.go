package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	s3blob "listingbot/internal/blob/s3"
	"listingbot/internal/cache/redis"
	"listingbot/internal/config"
	"listingbot/internal/domain"
	"listingbot/internal/notify"
	"listingbot/internal/platform/binance"
	"listingbot/internal/platform/gate"
	"listingbot/internal/scraper"
	"listingbot/internal/store/file"
	"listingbot/internal/store/postgres"
)

// Broker bundles one enabled exchange: its gateway and its trading
// parameters.
type Broker struct {
	Gateway domain.BrokerGateway
	Config  domain.BrokerConfig
	Trading config.TradingConfig
}

// Dependencies bundles everything the application needs to run. It is
// constructed by Wire and torn down by the returned cleanup function.
// Optional integrations are nil when their config section is disabled.
type Dependencies struct {
	Brokers []Broker

	Store   domain.SnapshotStore
	Journal domain.TradeJournal

	PriceCache *redis.PriceCache
	Dedup      scraper.Dedup

	BlobWriter *s3blob.Writer

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Snapshot store ---
	store, err := file.NewSnapshotStore(cfg.Storage.DataDir, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: snapshot store: %w", err)
	}
	deps.Store = store

	// --- Brokers ---
	if cfg.Binance.Enabled {
		client := binance.NewClient(cfg.Binance.BaseURL, cfg.Binance.APIKey, cfg.Binance.APISecret)
		gw := binance.NewGateway(client, cfg.Binance.Trading.Test, logger)
		deps.Brokers = append(deps.Brokers, Broker{
			Gateway: gw,
			Config:  brokerConfig(gw.Name(), cfg.Binance.Trading),
			Trading: cfg.Binance.Trading,
		})
	}
	if cfg.Gate.Enabled {
		client := gate.NewClient(cfg.Gate.BaseURL, cfg.Gate.APIKey, cfg.Gate.APISecret)
		gw := gate.NewGateway(client, cfg.Gate.Trading.Test, logger)
		deps.Brokers = append(deps.Brokers, Broker{
			Gateway: gw,
			Config:  brokerConfig(gw.Name(), cfg.Gate.Trading),
			Trading: cfg.Gate.Trading,
		})
	}

	// --- PostgreSQL trade journal ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
		deps.Journal = postgres.NewJournal(pgClient.Pool())
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Feed.PriceTTL.Duration)
		deps.Dedup = redis.NewDedupSet(redisClient, "announcements:seen")
	} else {
		deps.Dedup = scraper.NewMemoryDedup()
	}

	// --- S3 archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Notifications ---
	notifier := notify.NewNotifier(logger)
	if cfg.Notify.ConsoleEnabled {
		notifier.Register(notify.NewConsoleSender(os.Stdout), cfg.Notify.ConsoleCategories)
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		notifier.Register(
			notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID),
			cfg.Notify.TelegramCategories,
		)
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		notifier.Register(
			notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL),
			cfg.Notify.DiscordCategories,
		)
	}
	deps.Notifier = notifier

	return deps, cleanup, nil
}

// brokerConfig maps one trading section to the engine's broker parameters.
func brokerConfig(name string, t config.TradingConfig) domain.BrokerConfig {
	return domain.BrokerConfig{
		Broker:                    name,
		QuoteAsset:                t.QuoteAsset,
		OrderQuantity:             t.OrderQuantity,
		StopLossPercent:           t.StopLossPercent,
		TakeProfitPercent:         t.TakeProfitPercent,
		TrailingEnabled:           t.EnableTrailingStopLoss,
		TrailingPercent:           t.TrailingStopLossPercent,
		TrailingActivationPercent: t.TrailingStopLossActivation,
		Test:                      t.Test,
	}
}
