package engine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"listingbot/internal/domain"
)

// ============ Test doubles shared by the engine tests ============

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeOrder struct {
	symbol string
	side   domain.OrderSide
	size   float64
	price  float64
}

type fakeGateway struct {
	instruments []domain.Instrument
	listErr     error
	prices      map[string]float64
	placeErr    error
	orders      []fakeOrder
}

var _ domain.BrokerGateway = (*fakeGateway)(nil)

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) ListInstruments(ctx context.Context, quoteAsset string) ([]domain.Instrument, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.instruments, nil
}

func (g *fakeGateway) CurrentPrice(ctx context.Context, inst domain.Instrument) (float64, error) {
	price, ok := g.prices[inst.Symbol]
	if !ok {
		return 0, domain.ErrPriceUnavailable
	}
	return price, nil
}

func (g *fakeGateway) PlaceOrder(ctx context.Context, inst domain.Instrument, side domain.OrderSide, size, referencePrice float64) (domain.OrderResult, error) {
	if g.placeErr != nil {
		return domain.OrderResult{}, g.placeErr
	}
	g.orders = append(g.orders, fakeOrder{
		symbol: inst.Symbol,
		side:   side,
		size:   size,
		price:  referencePrice,
	})
	return domain.OrderResult{
		Symbol:    inst.Symbol,
		Side:      side,
		Price:     referencePrice,
		Size:      size,
		Status:    domain.StatusTest,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (g *fakeGateway) SizeForNotional(ctx context.Context, inst domain.Instrument, notional, price float64) (float64, error) {
	return notional / price, nil
}

type fakeNotifier struct {
	messages []string
	errors   []string
	verboses []string
	entries  []domain.Position
	closes   []domain.ClosedPosition
}

var _ Notifier = (*fakeNotifier)(nil)

func (n *fakeNotifier) Message(ctx context.Context, text string) { n.messages = append(n.messages, text) }
func (n *fakeNotifier) Error(ctx context.Context, text string)   { n.errors = append(n.errors, text) }
func (n *fakeNotifier) Verbose(ctx context.Context, text string) { n.verboses = append(n.verboses, text) }
func (n *fakeNotifier) Entry(ctx context.Context, pos domain.Position) {
	n.entries = append(n.entries, pos)
}
func (n *fakeNotifier) Close(ctx context.Context, closed domain.ClosedPosition) {
	n.closes = append(n.closes, closed)
}

type fakeStore struct {
	snaps   map[string]domain.Snapshot
	saves   int
	saveErr error
}

var _ domain.SnapshotStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{snaps: make(map[string]domain.Snapshot)}
}

func (s *fakeStore) Load(ctx context.Context, broker string) (domain.Snapshot, error) {
	snap, ok := s.snaps[broker]
	if !ok {
		return domain.Snapshot{Open: make(map[string]domain.Position)}, nil
	}
	return snap, nil
}

func (s *fakeStore) Save(ctx context.Context, broker string, snap domain.Snapshot) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snaps[broker] = snap
	return nil
}

type fakeJournal struct {
	records []domain.ClosedPosition
}

var _ domain.TradeJournal = (*fakeJournal)(nil)

func (j *fakeJournal) Record(ctx context.Context, closed domain.ClosedPosition) error {
	j.records = append(j.records, closed)
	return nil
}

func (j *fakeJournal) ListRecent(ctx context.Context, broker string, limit int) ([]domain.ClosedPosition, error) {
	return j.records, nil
}
