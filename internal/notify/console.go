package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// ConsoleSender writes notifications to a local writer, normally stdout.
// It is the zero-configuration channel used when no remote channel is set
// up.
type ConsoleSender struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSender creates a ConsoleSender writing to out.
func NewConsoleSender(out io.Writer) *ConsoleSender {
	return &ConsoleSender{out: out}
}

// Send prints the notification with a timestamp. Writes are serialized so
// concurrent broker loops never interleave lines.
func (c *ConsoleSender) Send(_ context.Context, title, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "%s | %s | %s\n",
		time.Now().UTC().Format(time.RFC3339), title, message)
	if err != nil {
		return fmt.Errorf("console: write: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (c *ConsoleSender) Name() string {
	return "console"
}
