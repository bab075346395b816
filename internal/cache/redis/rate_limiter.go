package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// RateLimiter implements domain.RateLimiter as a fixed-window counter: one
// key per window, incremented and expired in a single transaction.
type RateLimiter struct {
	c   *Client
	now func() time.Time
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{c: c, now: time.Now}
}

func (rl *RateLimiter) windowKey(key string, window time.Duration) string {
	slot := rl.now().UnixMilli() / window.Milliseconds()
	return rl.c.key("ratelimit", key, strconv.FormatInt(slot, 10))
}

// Allow counts one request for key and reports whether it is within limit
// for the current window.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if window < time.Millisecond {
		window = time.Millisecond
	}
	k := rl.windowKey(key, window)

	pipe := rl.c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.PExpire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit allow %s: %w", key, err)
	}
	return incr.Val() <= int64(limit), nil
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
