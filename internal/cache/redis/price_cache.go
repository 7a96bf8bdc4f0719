package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"listingbot/internal/domain"
)

// PriceCache implements domain.PriceSource using Redis hashes. Each
// symbol's price is stored at key "price:{symbol}" with fields "price" and
// "ts" (Unix nanosecond timestamp). The websocket feed is the writer; the
// broker cycles read and fall back to REST when an entry is missing or
// stale.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ domain.PriceSource = (*PriceCache)(nil)

// NewPriceCache creates a PriceCache backed by the given Client. ttl bounds
// how long a cached price is trusted; zero means no staleness check.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.Underlying(), ttl: ttl}
}

func priceKey(symbol string) string {
	return "price:" + symbol
}

// Set stores the latest price and timestamp for a symbol.
func (pc *PriceCache) Set(ctx context.Context, symbol string, price float64, ts time.Time) error {
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, priceKey(symbol), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", symbol, err)
	}
	return nil
}

// Price retrieves the latest cached price for a symbol. It returns
// domain.ErrNotFound when the symbol has no entry or the entry is older
// than the configured TTL, so the caller falls back to the REST endpoint.
func (pc *PriceCache) Price(ctx context.Context, symbol string) (float64, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(symbol)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: get price %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return 0, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return 0, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse price %s: %w", symbol, err)
	}

	if pc.ttl > 0 {
		tsStr, ok := vals["ts"]
		if !ok {
			return 0, domain.ErrNotFound
		}
		tsNano, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("redis: parse ts %s: %w", symbol, err)
		}
		if time.Since(time.Unix(0, tsNano)) > pc.ttl {
			return 0, domain.ErrNotFound
		}
	}

	return price, nil
}
