package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/joshu-sajeev/destinations/internal/delivery"
	"github.com/redis/go-redis/v9"
)

const dedupePrefix = "destinations:dedupe:"

// client is the part of redis.Cmdable the deduper uses.
type client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Deduper remembers message ids for ttl using SET NX.
type Deduper struct {
	rdb client
	ttl time.Duration
}

func NewDeduper(rdb client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

var _ delivery.Deduper = (*Deduper)(nil)

// Claim records messageID and reports whether this call was the first to do
// so within the ttl.
func (d *Deduper) Claim(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, fmt.Errorf("message id is required")
	}
	ok, err := d.rdb.SetNX(ctx, dedupePrefix+messageID, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim message %s: %w", messageID, err)
	}
	return ok, nil
}

// Forget releases a claim, used when the enqueue it guarded did not happen.
func (d *Deduper) Forget(ctx context.Context, messageID string) error {
	if err := d.rdb.Del(ctx, dedupePrefix+messageID).Err(); err != nil {
		return fmt.Errorf("forget message %s: %w", messageID, err)
	}
	return nil
}
