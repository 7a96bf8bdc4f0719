package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"listingbot/internal/domain"
)

// CycleDeps carries everything one broker's poll cycle needs.
type CycleDeps struct {
	Gateway  domain.BrokerGateway
	Prices   domain.PriceSource   // optional fast path; nil falls through to the gateway
	Store    domain.SnapshotStore
	Journal  domain.TradeJournal  // optional
	Notifier Notifier
	Config   domain.BrokerConfig
	Logger   *slog.Logger

	// PollInterval is the delay between cycles.
	PollInterval time.Duration
	// StatusEvery is the number of cycles between status reports; zero
	// disables them.
	StatusEvery int
}

// Cycle runs the poll loop for a single broker. A Cycle is owned by one
// goroutine; brokers share nothing but read-only configuration.
type Cycle struct {
	gateway  domain.BrokerGateway
	prices   domain.PriceSource
	store    domain.SnapshotStore
	journal  domain.TradeJournal
	notifier Notifier
	cfg      domain.BrokerConfig
	logger   *slog.Logger

	catalog *Catalog
	book    *Book
	life    *Lifecycle

	pollInterval time.Duration
	statusEvery  int
	counter      int
}

// NewCycle wires a Cycle from its dependencies.
func NewCycle(deps CycleDeps) *Cycle {
	logger := deps.Logger.With(
		slog.String("component", "cycle"),
		slog.String("broker", deps.Config.Broker),
	)
	book := NewBook(deps.Config.Broker)
	return &Cycle{
		gateway:      deps.Gateway,
		prices:       deps.Prices,
		store:        deps.Store,
		journal:      deps.Journal,
		notifier:     deps.Notifier,
		cfg:          deps.Config,
		logger:       logger,
		catalog:      NewCatalog(),
		book:         book,
		life:         NewLifecycle(deps.Gateway, book, deps.Notifier, deps.Config, deps.Logger),
		pollInterval: deps.PollInterval,
		statusEvery:  deps.StatusEvery,
	}
}

// Bootstrap restores the persisted snapshot and seeds the catalog with the
// broker's current listings so pre-existing instruments are never treated
// as new. The initial listing fetch is retried until it succeeds or the
// context is cancelled.
func (c *Cycle) Bootstrap(ctx context.Context) error {
	snap, err := c.store.Load(ctx, c.cfg.Broker)
	if err != nil {
		return fmt.Errorf("engine: load snapshot %s: %w", c.cfg.Broker, err)
	}
	c.book.Restore(snap)
	c.logger.InfoContext(ctx, "snapshot restored",
		slog.Int("open", c.book.OpenCount()),
		slog.Int("closed", len(snap.Closed)),
	)

	for {
		instruments, err := c.gateway.ListInstruments(ctx, c.cfg.QuoteAsset)
		if err == nil {
			c.catalog.Bootstrap(instruments)
			c.logger.InfoContext(ctx, "catalog seeded", slog.Int("symbols", c.catalog.Size()))
			return nil
		}
		c.logger.WarnContext(ctx, "initial listing fetch failed, retrying",
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("engine: bootstrap %s: %w", c.cfg.Broker, ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

// Run bootstraps the cycle and then polls until the context is cancelled.
// The first cycle runs immediately. Cancellation never interrupts a cycle
// in flight: the current pass finishes and persists before Run returns.
func (c *Cycle) Run(ctx context.Context) error {
	if err := c.Bootstrap(ctx); err != nil {
		return err
	}

	c.notifier.Message(ctx, fmt.Sprintf("[%s] bot started, watching for new %s listings",
		c.cfg.Broker, c.cfg.QuoteAsset))

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	c.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "cycle loop stopping")
			return nil
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single poll cycle: status report, position
// evaluation, batch close commit, discovery and entry. Every error is
// contained at its unit of work so one bad instrument cannot abort the
// cycle, and the snapshot is persisted on every path.
func (c *Cycle) RunOnce(ctx context.Context) {
	defer c.persist(ctx)
	defer func() { c.counter++ }()

	if c.statusEvery > 0 && c.counter%c.statusEvery == 0 {
		c.reportStatus(ctx)
	}

	pending := c.evaluatePositions(ctx)
	closed := c.life.Commit(ctx, pending)
	c.recordClosed(ctx, closed)

	c.discoverAndOpen(ctx)
}

// currentPrice resolves a price from the fast source when one is wired,
// falling back to the broker REST endpoint when the source has no fresh
// quote for the symbol.
func (c *Cycle) currentPrice(ctx context.Context, inst domain.Instrument) (float64, error) {
	if c.prices != nil {
		price, err := c.prices.Price(ctx, inst.Symbol)
		if err == nil {
			return price, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			c.logger.DebugContext(ctx, "price source lookup failed",
				slog.String("symbol", inst.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	return c.gateway.CurrentPrice(ctx, inst)
}

// evaluatePositions runs the exit rules over every open position and
// returns the closes whose exit orders succeeded. A position whose price
// cannot be fetched is skipped this cycle and retried on the next.
func (c *Cycle) evaluatePositions(ctx context.Context) []pendingClose {
	var pending []pendingClose
	for _, symbol := range c.book.OpenSymbols() {
		pos, ok := c.book.Get(symbol)
		if !ok {
			continue
		}
		price, err := c.currentPrice(ctx, pos.Instrument)
		if err != nil {
			c.logger.WarnContext(ctx, "price unavailable, skipping evaluation",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		pc, err := c.life.Evaluate(ctx, pos, price)
		if err != nil {
			c.logger.ErrorContext(ctx, "position evaluation failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		if pc != nil {
			pending = append(pending, *pc)
		}
	}
	return pending
}

// recordClosed appends committed closes to the trade journal when one is
// configured. Journal failures are logged and otherwise ignored; the
// snapshot remains the source of truth.
func (c *Cycle) recordClosed(ctx context.Context, closed []domain.ClosedPosition) {
	if c.journal == nil {
		return
	}
	for _, cp := range closed {
		if err := c.journal.Record(ctx, cp); err != nil {
			c.logger.WarnContext(ctx, "trade journal write failed",
				slog.String("symbol", cp.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
}

// discoverAndOpen diffs the broker's current listings against the catalog
// and opens a position for each genuinely new instrument. A failed listing
// fetch leaves the catalog untouched.
func (c *Cycle) discoverAndOpen(ctx context.Context) {
	instruments, err := c.gateway.ListInstruments(ctx, c.cfg.QuoteAsset)
	if err != nil {
		err = fmt.Errorf("engine: discovery %s: %w: %w", c.cfg.Broker, domain.ErrDiscoveryFailed, err)
		c.logger.ErrorContext(ctx, "listing fetch failed", slog.String("error", err.Error()))
		c.notifier.Error(ctx, fmt.Sprintf("[%s] listing fetch failed: %v", c.cfg.Broker, err))
		return
	}

	for _, inst := range c.catalog.Discover(instruments) {
		c.logger.InfoContext(ctx, "new listing discovered",
			slog.String("symbol", inst.Symbol),
			slog.String("base_asset", inst.BaseAsset),
		)
		if c.book.Has(inst.Symbol) {
			c.logger.DebugContext(ctx, "position already open, skipping entry",
				slog.String("symbol", inst.Symbol),
			)
			continue
		}
		if err := c.openPosition(ctx, inst); err != nil {
			c.logger.ErrorContext(ctx, "entry failed",
				slog.String("symbol", inst.Symbol),
				slog.String("error", err.Error()),
			)
			c.notifier.Error(ctx, fmt.Sprintf("[%s] entry failed for %s: %v",
				c.cfg.Broker, inst.Symbol, err))
		}
	}
}

// openPosition fetches a reference price, sizes the order to the
// configured notional, places the entry order and records the position.
func (c *Cycle) openPosition(ctx context.Context, inst domain.Instrument) error {
	price, err := c.currentPrice(ctx, inst)
	if err != nil {
		return fmt.Errorf("engine: entry price %s: %w", inst.Symbol, err)
	}
	size, err := c.gateway.SizeForNotional(ctx, inst, c.cfg.OrderQuantity, price)
	if err != nil {
		return fmt.Errorf("engine: size order %s: %w", inst.Symbol, err)
	}
	fill, err := c.gateway.PlaceOrder(ctx, inst, domain.SideBuy, size, price)
	if err != nil {
		return fmt.Errorf("engine: entry order %s: %w", inst.Symbol, err)
	}
	pos, err := c.book.Open(inst, fill, c.cfg)
	if err != nil {
		return fmt.Errorf("engine: record position %s: %w", inst.Symbol, err)
	}

	c.logger.InfoContext(ctx, "position opened",
		slog.String("symbol", pos.Symbol),
		slog.Float64("entry_price", pos.EntryPrice),
		slog.Float64("size", pos.Size),
		slog.String("status", pos.Status),
	)
	c.notifier.Entry(ctx, pos)
	return nil
}

// reportStatus emits a summary of every open position with its latest
// price, plus the most recent realized trades when a journal is wired. It
// never mutates state; price lookups that fail just leave a gap in the
// report.
func (c *Cycle) reportStatus(ctx context.Context) {
	count := c.book.OpenCount()
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] ORDERS UPDATE: %d open position(s)", c.cfg.Broker, count)
	for _, symbol := range c.book.OpenSymbols() {
		pos, ok := c.book.Get(symbol)
		if !ok {
			continue
		}
		price, err := c.currentPrice(ctx, pos.Instrument)
		if err != nil {
			fmt.Fprintf(&sb, "\n%s: entry %.6f, price unavailable", symbol, pos.EntryPrice)
			continue
		}
		change := (price - pos.EntryPrice) / pos.EntryPrice * 100
		fmt.Fprintf(&sb, "\n%s: entry %.6f, now %.6f (%+.2f%%)", symbol, pos.EntryPrice, price, change)
	}

	if c.journal != nil {
		recent, err := c.journal.ListRecent(ctx, c.cfg.Broker, 5)
		if err != nil {
			c.logger.WarnContext(ctx, "trade journal read failed",
				slog.String("error", err.Error()),
			)
		} else if len(recent) > 0 {
			fmt.Fprintf(&sb, "\nrecent closes:")
			for _, cp := range recent {
				fmt.Fprintf(&sb, "\n%s: %+.6f (%+.2f%%)", cp.Symbol, cp.Profit, cp.ProfitPercent)
			}
		}
	}

	c.notifier.Message(ctx, sb.String())
}

// persist writes the current snapshot. A persistence failure threatens
// crash recovery, so it is surfaced on the error channel as well as the
// log, but it never stops the loop.
func (c *Cycle) persist(ctx context.Context) {
	snap := c.book.Snapshot()
	if err := c.store.Save(ctx, c.cfg.Broker, snap); err != nil {
		err = fmt.Errorf("engine: persist %s: %w: %w", c.cfg.Broker, domain.ErrPersistence, err)
		c.logger.ErrorContext(ctx, "snapshot persist failed", slog.String("error", err.Error()))
		c.notifier.Error(ctx, fmt.Sprintf("[%s] snapshot persist failed: %v", c.cfg.Broker, err))
	}
}
