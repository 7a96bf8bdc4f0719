package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"listingbot/internal/domain"
)

func newTestCycle(gw *fakeGateway, store *fakeStore, journal domain.TradeJournal, notifier *fakeNotifier, statusEvery int) *Cycle {
	cfg := testConfig()
	return NewCycle(CycleDeps{
		Gateway:      gw,
		Store:        store,
		Journal:      journal,
		Notifier:     notifier,
		Config:       cfg,
		Logger:       testLogger(),
		PollInterval: time.Millisecond,
		StatusEvery:  statusEvery,
	})
}

func TestCycleOpensNewListingOnce(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{
		instruments: []domain.Instrument{inst("BTCUSDT")},
		prices:      map[string]float64{"BTCUSDT": 40000, "NEWUSDT": 1.5},
	}
	store := newFakeStore()
	notifier := &fakeNotifier{}
	c := newTestCycle(gw, store, nil, notifier, 0)

	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	// The pre-existing pair never triggers an entry.
	c.RunOnce(ctx)
	if len(gw.orders) != 0 {
		t.Fatalf("orders after first cycle = %+v, want none", gw.orders)
	}

	gw.instruments = append(gw.instruments, inst("NEWUSDT"))
	c.RunOnce(ctx)

	if len(gw.orders) != 1 {
		t.Fatalf("orders = %+v, want one entry", gw.orders)
	}
	if gw.orders[0].symbol != "NEWUSDT" || gw.orders[0].side != domain.SideBuy {
		t.Errorf("order = %+v, want NEWUSDT buy", gw.orders[0])
	}
	if len(notifier.entries) != 1 {
		t.Errorf("entry notifications = %d, want 1", len(notifier.entries))
	}

	snap, _ := store.Load(ctx, "fake")
	if _, ok := snap.Open["NEWUSDT"]; !ok {
		t.Error("persisted snapshot missing the new position")
	}

	// The same listing never opens a second position.
	c.RunOnce(ctx)
	if len(gw.orders) != 1 {
		t.Errorf("orders after third cycle = %+v, want still one", gw.orders)
	}
}

func TestCyclePersistsEvenWhenDiscoveryFails(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{instruments: []domain.Instrument{inst("BTCUSDT")}}
	store := newFakeStore()
	notifier := &fakeNotifier{}
	c := newTestCycle(gw, store, nil, notifier, 0)

	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	gw.listErr = errors.New("503 service unavailable")
	before := store.saves
	c.RunOnce(ctx)

	if store.saves != before+1 {
		t.Errorf("saves = %d, want %d", store.saves, before+1)
	}
	if len(notifier.errors) != 1 {
		t.Fatalf("error notifications = %d, want 1", len(notifier.errors))
	}
	if !strings.Contains(notifier.errors[0], "listing fetch failed") {
		t.Errorf("error notification = %q", notifier.errors[0])
	}

	// The failed fetch left the seen set untouched: a pair listed while the
	// feed was down is still discovered once it comes back.
	gw.listErr = nil
	gw.instruments = append(gw.instruments, inst("NEWUSDT"))
	gw.prices = map[string]float64{"NEWUSDT": 1.5}
	c.RunOnce(ctx)

	if len(gw.orders) != 1 || gw.orders[0].symbol != "NEWUSDT" {
		t.Errorf("orders = %+v, want one NEWUSDT entry after recovery", gw.orders)
	}
}

func TestCyclePriceUnavailableSkipsPosition(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{
		instruments: []domain.Instrument{inst("BTCUSDT")},
		prices:      map[string]float64{}, // no quotes at all
	}
	store := newFakeStore()

	// Seed the store with an open position from a previous run.
	seed := NewBook("fake")
	if _, err := seed.Open(inst("NEWUSDT"), testFill("NEWUSDT", 40000, 0.002), testConfig()); err != nil {
		t.Fatalf("seed Open: %v", err)
	}
	if err := store.Save(ctx, "fake", seed.Snapshot()); err != nil {
		t.Fatalf("seed Save: %v", err)
	}

	notifier := &fakeNotifier{}
	c := newTestCycle(gw, store, nil, notifier, 0)
	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	c.RunOnce(ctx)

	if len(gw.orders) != 0 {
		t.Errorf("orders = %+v, want none while the price is unavailable", gw.orders)
	}
	snap, _ := store.Load(ctx, "fake")
	if _, ok := snap.Open["NEWUSDT"]; !ok {
		t.Error("position dropped from the snapshot instead of being skipped")
	}
}

func TestCycleDuplicateListingSkipsEntry(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{
		instruments: []domain.Instrument{inst("BTCUSDT")},
		prices:      map[string]float64{"NEWUSDT": 1.5},
	}
	store := newFakeStore()

	// The position survived a restart; the pair then shows up as "new"
	// because the catalog was rebuilt from scratch.
	seed := NewBook("fake")
	if _, err := seed.Open(inst("NEWUSDT"), testFill("NEWUSDT", 1.5, 10), testConfig()); err != nil {
		t.Fatalf("seed Open: %v", err)
	}
	if err := store.Save(ctx, "fake", seed.Snapshot()); err != nil {
		t.Fatalf("seed Save: %v", err)
	}

	notifier := &fakeNotifier{}
	c := newTestCycle(gw, store, nil, notifier, 0)
	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	gw.instruments = append(gw.instruments, inst("NEWUSDT"))
	c.RunOnce(ctx)

	if len(gw.orders) != 0 {
		t.Errorf("orders = %+v, want none for an already-open symbol", gw.orders)
	}
}

func TestCycleRecordsClosesInJournal(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{
		instruments: []domain.Instrument{inst("BTCUSDT")},
		prices:      map[string]float64{"NEWUSDT": 30000},
	}
	store := newFakeStore()

	seed := NewBook("fake")
	if _, err := seed.Open(inst("NEWUSDT"), testFill("NEWUSDT", 40000, 0.002), testConfig()); err != nil {
		t.Fatalf("seed Open: %v", err)
	}
	if err := store.Save(ctx, "fake", seed.Snapshot()); err != nil {
		t.Fatalf("seed Save: %v", err)
	}

	journal := &fakeJournal{}
	notifier := &fakeNotifier{}
	c := newTestCycle(gw, store, journal, notifier, 0)
	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	// 30000 is below the 3 percent stop at 38800.
	c.RunOnce(ctx)

	if len(journal.records) != 1 {
		t.Fatalf("journal records = %d, want 1", len(journal.records))
	}
	if journal.records[0].Profit != -10000 {
		t.Errorf("journal Profit = %v, want -10000", journal.records[0].Profit)
	}
	snap, _ := store.Load(ctx, "fake")
	if len(snap.Open) != 0 {
		t.Errorf("open positions after close = %d, want 0", len(snap.Open))
	}
	if len(snap.Closed) != 1 {
		t.Errorf("closed history = %d, want 1", len(snap.Closed))
	}
}

func TestCycleStatusReportIncludesRecentCloses(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{instruments: []domain.Instrument{inst("BTCUSDT")}}
	store := newFakeStore()
	journal := &fakeJournal{records: []domain.ClosedPosition{{
		Position: domain.Position{
			Broker:     "fake",
			Symbol:     "OLDUSDT",
			EntryPrice: 40000,
		},
		ExitPrice:     30000,
		Profit:        -10000,
		ProfitPercent: -25,
		ClosedAt:      time.Now().UTC(),
	}}}
	notifier := &fakeNotifier{}
	c := newTestCycle(gw, store, journal, notifier, 1)

	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	c.RunOnce(ctx)

	var report string
	for _, msg := range notifier.messages {
		if strings.Contains(msg, "ORDERS UPDATE") {
			report = msg
		}
	}
	if report == "" {
		t.Fatal("no status report emitted")
	}
	for _, want := range []string{"recent closes:", "OLDUSDT", "-25.00%"} {
		if !strings.Contains(report, want) {
			t.Errorf("status report missing %q:\n%s", want, report)
		}
	}
}

func TestCycleStatusReportCadence(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{instruments: []domain.Instrument{inst("BTCUSDT")}}
	store := newFakeStore()
	notifier := &fakeNotifier{}
	c := newTestCycle(gw, store, nil, notifier, 2)

	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	for i := 0; i < 4; i++ {
		c.RunOnce(ctx)
	}

	var reports int
	for _, msg := range notifier.messages {
		if strings.Contains(msg, "ORDERS UPDATE") {
			reports++
		}
	}
	if reports != 2 {
		t.Errorf("status reports over 4 cycles with interval 2 = %d, want 2", reports)
	}
}
