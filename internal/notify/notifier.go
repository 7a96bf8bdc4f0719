// Package notify provides a multi-channel notification system. Messages are
// dispatched to all registered senders (Telegram, Discord, console) and each
// channel filters independently by message category, so operators receive
// only the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"listingbot/internal/domain"
)

// Category classifies a notification. Each channel carries its own allowed
// set.
type Category string

const (
	CategoryMessage Category = "message"
	CategoryError   Category = "error"
	CategoryVerbose Category = "verbose"
	CategoryWarning Category = "warning"
	CategoryInfo    Category = "info"
	CategoryDebug   Category = "debug"
	CategoryEntry   Category = "entry"
	CategoryClose   Category = "close"
)

// knownCategories enumerates every valid category name.
var knownCategories = map[Category]bool{
	CategoryMessage: true,
	CategoryError:   true,
	CategoryVerbose: true,
	CategoryWarning: true,
	CategoryInfo:    true,
	CategoryDebug:   true,
	CategoryEntry:   true,
	CategoryClose:   true,
}

// DefaultCategories is the allowed set a channel gets when none is
// configured: the high-signal categories, with the chatty ones off.
func DefaultCategories() []Category {
	return []Category{CategoryMessage, CategoryError, CategoryEntry, CategoryClose}
}

// Sender is the interface each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// channel pairs a sender with its own category filter.
type channel struct {
	sender  Sender
	allowed map[Category]bool
}

// Notifier dispatches categorized notifications to its registered channels.
// A channel whose filter excludes the category is skipped; a failing channel
// is logged and never blocks delivery to the others.
type Notifier struct {
	channels []channel
	logger   *slog.Logger
}

// NewNotifier creates a Notifier with no channels. Dispatching with no
// channels registered is a no-op, which keeps notifications optional.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		logger: logger.With(slog.String("component", "notifier")),
	}
}

// Register adds a sender with the given category names. An empty list means
// DefaultCategories. Unknown names are logged and ignored.
func (n *Notifier) Register(s Sender, categories []string) {
	allowed := make(map[Category]bool)
	if len(categories) == 0 {
		for _, c := range DefaultCategories() {
			allowed[c] = true
		}
	} else {
		for _, raw := range categories {
			c := Category(strings.ToLower(strings.TrimSpace(raw)))
			if !knownCategories[c] {
				n.logger.Warn("unknown notification category ignored",
					slog.String("sender", s.Name()),
					slog.String("category", string(c)),
				)
				continue
			}
			allowed[c] = true
		}
	}
	n.channels = append(n.channels, channel{sender: s, allowed: allowed})
}

// Dispatch sends one categorized notification to every channel whose filter
// allows it.
func (n *Notifier) Dispatch(ctx context.Context, cat Category, title, message string) {
	for _, ch := range n.channels {
		if !ch.allowed[cat] {
			continue
		}
		if err := ch.sender.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", ch.sender.Name()),
				slog.String("category", string(cat)),
				slog.String("error", err.Error()),
			)
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", ch.sender.Name()),
			slog.String("category", string(cat)),
		)
	}
}

// Message sends a general announcement.
func (n *Notifier) Message(ctx context.Context, text string) {
	n.Dispatch(ctx, CategoryMessage, "Update", text)
}

// Error sends an error report.
func (n *Notifier) Error(ctx context.Context, text string) {
	n.Dispatch(ctx, CategoryError, "Error", text)
}

// Verbose sends a low-priority progress note.
func (n *Notifier) Verbose(ctx context.Context, text string) {
	n.Dispatch(ctx, CategoryVerbose, "Verbose", text)
}

// Warning sends a warning.
func (n *Notifier) Warning(ctx context.Context, text string) {
	n.Dispatch(ctx, CategoryWarning, "Warning", text)
}

// Info sends an informational note.
func (n *Notifier) Info(ctx context.Context, text string) {
	n.Dispatch(ctx, CategoryInfo, "Info", text)
}

// Debug sends a diagnostic note.
func (n *Notifier) Debug(ctx context.Context, text string) {
	n.Dispatch(ctx, CategoryDebug, "Debug", text)
}

// Entry sends the structured new-position event with the full record.
func (n *Notifier) Entry(ctx context.Context, pos domain.Position) {
	title := fmt.Sprintf("New position on %s", pos.Broker)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %.8g %s @ %.8g", pos.Side, pos.Symbol, pos.Size, pos.Instrument.BaseAsset, pos.EntryPrice)
	fmt.Fprintf(&sb, "\nstop loss %.8g", pos.StopLoss)
	if !math.IsInf(pos.TakeProfit, 1) {
		fmt.Fprintf(&sb, "\ntake profit %.8g", pos.TakeProfit)
	} else {
		sb.WriteString("\ntrailing stop enabled")
	}
	if pos.Status == domain.StatusTest {
		sb.WriteString("\n(test mode, no real order placed)")
	}
	n.Dispatch(ctx, CategoryEntry, title, sb.String())
}

// Close sends the structured position-closed event with the full record.
func (n *Notifier) Close(ctx context.Context, closed domain.ClosedPosition) {
	title := fmt.Sprintf("Position closed on %s", closed.Broker)
	body := fmt.Sprintf("%s entry %.8g exit %.8g\nprofit %.8g (%+.2f%%)",
		closed.Symbol, closed.EntryPrice, closed.ExitPrice, closed.Profit, closed.ProfitPercent)
	n.Dispatch(ctx, CategoryClose, title, body)
}
