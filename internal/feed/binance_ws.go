// Package feed streams live ticker prices over websocket into the price
// cache, giving the broker cycles a fast price path that avoids one REST
// round trip per open position.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// PriceWriter receives every ticker update the feed decodes.
type PriceWriter interface {
	Set(ctx context.Context, symbol string, price float64, ts time.Time) error
}

// miniTicker is one element of the Binance !miniTicker@arr stream payload.
type miniTicker struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

// BinanceFeed consumes the all-market mini-ticker stream and writes each
// close price into the cache. It reconnects with backoff on disconnect.
type BinanceFeed struct {
	url    string
	writer PriceWriter
	logger *slog.Logger
}

// NewBinanceFeed creates a feed for the given stream URL, normally
// "wss://stream.binance.com:9443/ws/!miniTicker@arr".
func NewBinanceFeed(url string, writer PriceWriter, logger *slog.Logger) *BinanceFeed {
	return &BinanceFeed{
		url:    url,
		writer: writer,
		logger: logger.With(slog.String("component", "binance_feed")),
	}
}

// Run connects and consumes ticker batches until ctx is cancelled.
func (f *BinanceFeed) Run(ctx context.Context) error {
	for {
		if err := f.runConnection(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("feed disconnected, reconnecting", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (f *BinanceFeed) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.url, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.url, err)
	}
	defer conn.Close()

	// Unblock the read loop when the context is cancelled.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	f.logger.Info("feed connected", slog.String("url", f.url))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read: %w", err)
		}
		f.handleMessage(ctx, data)
	}
}

// handleMessage decodes one stream payload. Malformed entries are skipped;
// a bad tick must never take the feed down.
func (f *BinanceFeed) handleMessage(ctx context.Context, data []byte) {
	var ticks []miniTicker
	if err := json.Unmarshal(data, &ticks); err != nil {
		// Single-symbol streams deliver a bare object.
		var one miniTicker
		if err := json.Unmarshal(data, &one); err != nil {
			f.logger.Debug("feed message ignored", slog.Int("payload_len", len(data)))
			return
		}
		ticks = []miniTicker{one}
	}

	for _, t := range ticks {
		if t.Symbol == "" {
			continue
		}
		price, err := strconv.ParseFloat(t.Close, 64)
		if err != nil || price <= 0 {
			continue
		}
		ts := time.UnixMilli(t.EventTime)
		if t.EventTime == 0 {
			ts = time.Now()
		}
		if err := f.writer.Set(ctx, t.Symbol, price, ts); err != nil {
			f.logger.Debug("price cache write failed",
				slog.String("symbol", t.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
}
