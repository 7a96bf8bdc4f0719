// Package app provides the top-level application lifecycle for the listing
// bot. It wires together the broker gateways, stores, caches, notification
// channels, and background workers, and runs one independent poll loop per
// enabled broker.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"listingbot/internal/config"
	"listingbot/internal/domain"
	"listingbot/internal/engine"
	"listingbot/internal/feed"
	"listingbot/internal/scraper"

	s3blob "listingbot/internal/blob/s3"
)

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions that are called in reverse order on
// shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts one poll loop per enabled broker plus
// the optional background workers, and blocks until the context is
// cancelled. Loops drain gracefully: a cycle in flight always finishes and
// persists before its goroutine exits.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	if len(deps.Brokers) == 0 {
		return errors.New("app: no brokers enabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	// One independent poll loop per broker. Loops share nothing but
	// read-only configuration.
	brokerNames := make([]string, 0, len(deps.Brokers))
	for _, b := range deps.Brokers {
		b := b
		brokerNames = append(brokerNames, b.Config.Broker)

		cycle := engine.NewCycle(engine.CycleDeps{
			Gateway:      b.Gateway,
			Prices:       priceSource(deps, b.Config.Broker),
			Store:        deps.Store,
			Journal:      deps.Journal,
			Notifier:     deps.Notifier,
			Config:       b.Config,
			Logger:       a.logger,
			PollInterval: b.Trading.PollInterval(),
			StatusEvery:  b.Trading.StatusEveryCycles(),
		})
		g.Go(func() error {
			a.logger.InfoContext(gctx, "broker loop starting",
				slog.String("broker", b.Config.Broker),
				slog.Duration("poll_interval", b.Trading.PollInterval()),
				slog.Bool("test", b.Config.Test),
			)
			return cycle.Run(gctx)
		})
	}

	if a.cfg.Feed.Enabled && deps.PriceCache != nil {
		wsFeed := feed.NewBinanceFeed(a.cfg.Feed.URL, deps.PriceCache, a.logger)
		g.Go(func() error {
			return ignoreCancel(wsFeed.Run(gctx))
		})
	}

	if a.cfg.Scraper.Enabled {
		sc := scraper.New(
			a.cfg.Scraper.URL,
			a.cfg.Scraper.Interval.Duration,
			a.cfg.Scraper.Exclusions,
			deps.Dedup,
			deps.Notifier,
			a.logger,
		)
		g.Go(func() error {
			return ignoreCancel(sc.Run(gctx))
		})
	}

	if a.cfg.S3.Enabled && deps.BlobWriter != nil {
		archiver := s3blob.NewArchiver(
			deps.BlobWriter,
			deps.Store,
			brokerNames,
			a.cfg.S3.Prefix,
			a.cfg.S3.ArchiveInterval.Duration,
			a.logger,
		)
		g.Go(func() error {
			return ignoreCancel(archiver.Run(gctx))
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// priceSource returns the fast price path for a broker. Only Binance
// symbols flow through the websocket feed, so other brokers read straight
// from their REST endpoints.
func priceSource(deps *Dependencies, broker string) domain.PriceSource {
	if broker == "binance" && deps.PriceCache != nil {
		return deps.PriceCache
	}
	return nil
}

// ignoreCancel maps context cancellation to a clean exit so a worker
// stopping on shutdown never aborts the errgroup with an error.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
