package file

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"listingbot/internal/domain"
)

func testStore(t *testing.T) *SnapshotStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewSnapshotStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	return s
}

func testSnapshot() domain.Snapshot {
	pos := domain.Position{
		ID:     "6b6f7a2e-0000-4000-8000-000000000001",
		Broker: "binance",
		Symbol: "NEWUSDT",
		Instrument: domain.Instrument{
			Symbol:     "NEWUSDT",
			BaseAsset:  "NEW",
			QuoteAsset: "USDT",
		},
		OpenedAt:   time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC),
		EntryPrice: 1.5,
		Side:       domain.SideBuy,
		Size:       100,
		Status:     domain.StatusLive,

		TakeProfit:      math.Inf(1),
		StopLoss:        1.455,
		TrailingStopMax: math.Inf(-1),
		TrailingStop:    math.Inf(-1),
	}
	closed := domain.ClosedPosition{
		Position:      pos,
		ExitPrice:     1.2,
		Profit:        -0.3,
		ProfitPercent: -20,
		ClosedAt:      time.Date(2026, 2, 14, 14, 0, 0, 0, time.UTC),
	}
	closed.Symbol = "OLDUSDT"
	closed.Position.Instrument.Symbol = "OLDUSDT"

	return domain.Snapshot{
		Open:   map[string]domain.Position{"NEWUSDT": pos},
		Closed: []domain.ClosedPosition{closed},
	}
}

func TestLoadMissingSnapshotIsEmpty(t *testing.T) {
	s := testStore(t)

	snap, err := s.Load(context.Background(), "binance")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Open) != 0 {
		t.Errorf("Open len = %d, want 0", len(snap.Open))
	}
	if len(snap.Closed) != 0 {
		t.Errorf("Closed len = %d, want 0", len(snap.Closed))
	}
	if snap.Open == nil {
		t.Error("Open map is nil, want empty map")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	orig := testSnapshot()

	if err := s.Save(ctx, "binance", orig); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, "binance")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	pos, ok := got.Open["NEWUSDT"]
	if !ok {
		t.Fatal("open position missing after round trip")
	}
	if pos.EntryPrice != 1.5 || pos.StopLoss != 1.455 {
		t.Errorf("position = %+v", pos)
	}
	if !math.IsInf(pos.TakeProfit, 1) || !math.IsInf(pos.TrailingStopMax, -1) {
		t.Errorf("infinite thresholds lost: take_profit %v, trailing_stop_max %v",
			pos.TakeProfit, pos.TrailingStopMax)
	}
	if !pos.OpenedAt.Equal(orig.Open["NEWUSDT"].OpenedAt) {
		t.Errorf("OpenedAt = %v, want %v", pos.OpenedAt, orig.Open["NEWUSDT"].OpenedAt)
	}

	if len(got.Closed) != 1 {
		t.Fatalf("Closed len = %d, want 1", len(got.Closed))
	}
	if got.Closed[0].Symbol != "OLDUSDT" || got.Closed[0].Profit != -0.3 {
		t.Errorf("closed record = %+v", got.Closed[0])
	}
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	snap := testSnapshot()

	if err := s.Save(ctx, "binance", snap); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	delete(snap.Open, "NEWUSDT")
	if err := s.Save(ctx, "binance", snap); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := s.Load(ctx, "binance")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Open) != 0 {
		t.Errorf("Open len = %d, want 0 after overwrite", len(got.Open))
	}
	if len(got.Closed) != 1 {
		t.Errorf("Closed len = %d, want 1", len(got.Closed))
	}
}

func TestSnapshotFilesAreUppercasePerBroker(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	s, err := NewSnapshotStore(dir, logger)
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}

	if err := s.Save(ctx, "binance", testSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for _, name := range []string{"BINANCE_orders.json", "BINANCE_sold.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected file %s: %v", name, err)
		}
	}
}

func TestBrokersDoNotShareFiles(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if err := s.Save(ctx, "binance", testSnapshot()); err != nil {
		t.Fatalf("Save binance: %v", err)
	}

	got, err := s.Load(ctx, "gate")
	if err != nil {
		t.Fatalf("Load gate: %v", err)
	}
	if len(got.Open) != 0 || len(got.Closed) != 0 {
		t.Errorf("gate snapshot = %+v, want empty", got)
	}
}
