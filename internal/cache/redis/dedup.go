package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DedupSet remembers announcement identifiers across restarts so the
// scraper never re-alerts on an article it has already reported.
type DedupSet struct {
	rdb *redis.Client
	key string
}

// NewDedupSet creates a DedupSet stored at the given key.
func NewDedupSet(c *Client, key string) *DedupSet {
	return &DedupSet{rdb: c.Underlying(), key: key}
}

// MarkSeen adds the identifier to the set and reports whether it was
// already present.
func (d *DedupSet) MarkSeen(ctx context.Context, id string) (bool, error) {
	added, err := d.rdb.SAdd(ctx, d.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("redis: mark seen %s: %w", id, err)
	}
	return added == 0, nil
}
