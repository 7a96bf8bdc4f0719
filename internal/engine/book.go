package engine

import (
	"time"

	"github.com/google/uuid"

	"listingbot/internal/domain"
)

// Book owns one broker's open positions and its append-only closed history.
// No other component mutates either collection.
//
// A Book belongs to a single broker cycle goroutine (the cycle is the only
// writer and reader), so it carries no lock. Sharing a Book across
// goroutines is a bug.
type Book struct {
	broker string
	open   map[string]domain.Position
	closed []domain.ClosedPosition
}

// NewBook returns an empty Book for the named broker.
func NewBook(broker string) *Book {
	return &Book{
		broker: broker,
		open:   make(map[string]domain.Position),
	}
}

// Restore replaces the book's state with a loaded snapshot.
func (b *Book) Restore(snap domain.Snapshot) {
	b.open = make(map[string]domain.Position, len(snap.Open))
	for sym, pos := range snap.Open {
		b.open[sym] = pos
	}
	b.closed = append([]domain.ClosedPosition(nil), snap.Closed...)
}

// Snapshot returns a copy of the open positions and closed history for
// persistence.
func (b *Book) Snapshot() domain.Snapshot {
	open := make(map[string]domain.Position, len(b.open))
	for sym, pos := range b.open {
		open[sym] = pos
	}
	return domain.Snapshot{
		Open:   open,
		Closed: append([]domain.ClosedPosition(nil), b.closed...),
	}
}

// Open records a new position for the instrument at the given entry fill.
// It returns domain.ErrDuplicatePosition if the symbol already has one.
func (b *Book) Open(inst domain.Instrument, fill domain.OrderResult, cfg domain.BrokerConfig) (domain.Position, error) {
	if _, ok := b.open[inst.Symbol]; ok {
		return domain.Position{}, domain.ErrDuplicatePosition
	}

	th := OpenThresholds(fill.Price, cfg)
	pos := domain.Position{
		ID:         uuid.NewString(),
		Broker:     b.broker,
		Symbol:     inst.Symbol,
		Instrument: inst,
		OpenedAt:   time.Unix(0, fill.Timestamp*int64(time.Millisecond)).UTC(),
		EntryPrice: fill.Price,
		Side:       fill.Side,
		Size:       fill.Size,
		Status:     fill.Status,

		TakeProfit:      th.TakeProfit,
		StopLoss:        th.StopLoss,
		TrailingStopMax: th.TrailingStopMax,
		TrailingStop:    th.TrailingStop,
	}
	b.open[inst.Symbol] = pos
	return pos, nil
}

// Apply replaces the stored position for the symbol (trailing updates).
// It returns domain.ErrPositionNotFound if the symbol is not open.
func (b *Book) Apply(symbol string, pos domain.Position) error {
	if _, ok := b.open[symbol]; !ok {
		return domain.ErrPositionNotFound
	}
	b.open[symbol] = pos
	return nil
}

// Close removes the symbol from the open set and appends a ClosedPosition
// computed at the exit price. Exactly one close per position; a closed
// symbol is never re-evaluated.
func (b *Book) Close(symbol string, exitPrice float64, closedAt time.Time) (domain.ClosedPosition, error) {
	pos, ok := b.open[symbol]
	if !ok {
		return domain.ClosedPosition{}, domain.ErrPositionNotFound
	}

	profit := exitPrice - pos.EntryPrice
	closed := domain.ClosedPosition{
		Position:      pos,
		ExitPrice:     exitPrice,
		Profit:        profit,
		ProfitPercent: profit / pos.EntryPrice * 100,
		ClosedAt:      closedAt,
	}
	delete(b.open, symbol)
	b.closed = append(b.closed, closed)
	return closed, nil
}

// Get returns the open position for the symbol, if any.
func (b *Book) Get(symbol string) (domain.Position, bool) {
	pos, ok := b.open[symbol]
	return pos, ok
}

// Has reports whether the symbol has an open position.
func (b *Book) Has(symbol string) bool {
	_, ok := b.open[symbol]
	return ok
}

// OpenSymbols returns the symbols with open positions. Iteration order is
// unspecified.
func (b *Book) OpenSymbols() []string {
	syms := make([]string, 0, len(b.open))
	for sym := range b.open {
		syms = append(syms, sym)
	}
	return syms
}

// OpenCount returns the number of open positions.
func (b *Book) OpenCount() int {
	return len(b.open)
}

// ClosedHistory returns the closed-position history, oldest first.
func (b *Book) ClosedHistory() []domain.ClosedPosition {
	return append([]domain.ClosedPosition(nil), b.closed...)
}
