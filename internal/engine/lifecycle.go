package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"listingbot/internal/domain"
)

// Action is the outcome of evaluating one open position against the
// current price.
type Action int

const (
	// ActionHold leaves the position untouched.
	ActionHold Action = iota
	// ActionRaiseTrail raises the trailing threshold; the position stays open.
	ActionRaiseTrail
	// ActionClose exits the position.
	ActionClose
)

// CloseReason names the rule that triggered a close.
type CloseReason string

const (
	ReasonStopLoss     CloseReason = "stop_loss"
	ReasonTakeProfit   CloseReason = "take_profit"
	ReasonTrailingStop CloseReason = "trailing_stop"
)

// Decision is the result of applying the exit rules to one position.
type Decision struct {
	Action Action
	Reason CloseReason
}

// Decide applies the exit rules in their fixed priority order; the first
// matching rule wins. Stop-loss protection deliberately precedes
// profit-taking. Note that with trailing enabled the take-profit rule can
// never fire because TakeProfit is +Inf; the trailing rule supersedes it.
func Decide(pos domain.Position, currentPrice float64, trailingEnabled bool) Decision {
	switch {
	case currentPrice < pos.StopLoss:
		return Decision{Action: ActionClose, Reason: ReasonStopLoss}
	case currentPrice > pos.TrailingStopMax && trailingEnabled:
		return Decision{Action: ActionRaiseTrail}
	case currentPrice > pos.TakeProfit:
		return Decision{Action: ActionClose, Reason: ReasonTakeProfit}
	case currentPrice < pos.TrailingStop:
		return Decision{Action: ActionClose, Reason: ReasonTrailingStop}
	default:
		return Decision{Action: ActionHold}
	}
}

// Notifier is the subset of the notification service the engine needs.
type Notifier interface {
	Message(ctx context.Context, text string)
	Error(ctx context.Context, text string)
	Verbose(ctx context.Context, text string)
	Entry(ctx context.Context, pos domain.Position)
	Close(ctx context.Context, closed domain.ClosedPosition)
}

// pendingClose is a close whose exit order has been placed but whose book
// removal is deferred until the end of the evaluation pass, so the open-
// position map is never mutated while it is being iterated.
type pendingClose struct {
	symbol    string
	exitPrice float64
	reason    CloseReason
}

// Lifecycle evaluates open positions and executes the resulting
// transitions against the book and the broker.
type Lifecycle struct {
	gateway  domain.BrokerGateway
	book     *Book
	notifier Notifier
	cfg      domain.BrokerConfig
	logger   *slog.Logger
}

// NewLifecycle creates a Lifecycle bound to one broker's gateway and book.
func NewLifecycle(gateway domain.BrokerGateway, book *Book, notifier Notifier, cfg domain.BrokerConfig, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		gateway:  gateway,
		book:     book,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "lifecycle"), slog.String("broker", cfg.Broker)),
	}
}

// Evaluate runs the exit rules for one open position. A trailing raise is
// applied to the book immediately; a close places the exit order and, on
// success, returns a pending close for the caller to commit after the
// evaluation pass. If the exit order fails the position stays open and the
// same close is retried on the next cycle.
func (l *Lifecycle) Evaluate(ctx context.Context, pos domain.Position, currentPrice float64) (*pendingClose, error) {
	dec := Decide(pos, currentPrice, l.cfg.TrailingEnabled)

	switch dec.Action {
	case ActionHold:
		return nil, nil

	case ActionRaiseTrail:
		updated := RaiseTrailingStop(pos, currentPrice, l.cfg.TrailingPercent)
		if err := l.book.Apply(pos.Symbol, updated); err != nil {
			return nil, fmt.Errorf("engine: apply trailing update %s: %w", pos.Symbol, err)
		}
		l.logger.InfoContext(ctx, "trailing stop raised",
			slog.String("symbol", pos.Symbol),
			slog.Float64("trailing_stop_max", updated.TrailingStopMax),
			slog.Float64("trailing_stop", updated.TrailingStop),
		)
		l.notifier.Verbose(ctx, fmt.Sprintf("[%s] %s trailing stop raised to %.6f",
			l.cfg.Broker, pos.Symbol, updated.TrailingStop))
		return nil, nil

	case ActionClose:
		if _, err := l.gateway.PlaceOrder(ctx, pos.Instrument, domain.SideSell, pos.Size, currentPrice); err != nil {
			// The position stays open; the close is retried verbatim on the
			// next cycle.
			l.notifier.Error(ctx, fmt.Sprintf("[%s] %s exit order failed: %v",
				l.cfg.Broker, pos.Symbol, err))
			return nil, fmt.Errorf("engine: exit order %s: %w", pos.Symbol, err)
		}
		return &pendingClose{symbol: pos.Symbol, exitPrice: currentPrice, reason: dec.Reason}, nil
	}

	return nil, nil
}

// Commit removes each pending close from the book, appends the closed
// record, and emits the close notification. It returns the records it
// committed.
func (l *Lifecycle) Commit(ctx context.Context, pending []pendingClose) []domain.ClosedPosition {
	committed := make([]domain.ClosedPosition, 0, len(pending))
	for _, pc := range pending {
		closed, err := l.book.Close(pc.symbol, pc.exitPrice, time.Now().UTC())
		if err != nil {
			l.logger.ErrorContext(ctx, "commit close failed",
				slog.String("symbol", pc.symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		l.logger.InfoContext(ctx, "position closed",
			slog.String("symbol", pc.symbol),
			slog.String("reason", string(pc.reason)),
			slog.Float64("exit_price", closed.ExitPrice),
			slog.Float64("profit_percent", closed.ProfitPercent),
		)
		l.notifier.Close(ctx, closed)
		committed = append(committed, closed)
	}
	return committed
}
