package trading

import (
	"sync"
	"time"
)

// Cooldown suppresses repeated trades on the same asset within a
// time-to-live window. It is safe for concurrent use.
type Cooldown struct {
	last map[string]time.Time // assetID -> last trade time
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
}

// NewCooldown creates a Cooldown that treats an asset as cooling down for
// ttl after it was last stamped.
func NewCooldown(ttl time.Duration, now func() time.Time) *Cooldown {
	if now == nil {
		now = time.Now
	}
	return &Cooldown{
		last: make(map[string]time.Time),
		ttl:  ttl,
		now:  now,
	}
}

// Active reports whether assetID traded less than ttl ago.
func (c *Cooldown) Active(assetID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.last[assetID]
	if !ok {
		return false
	}
	return c.now().Sub(ts) < c.ttl
}

// Stamp records a trade on assetID at the current time.
func (c *Cooldown) Stamp(assetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[assetID] = c.now()
}

// Cleanup removes entries whose window has elapsed.
func (c *Cooldown) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, ts := range c.last {
		if now.Sub(ts) >= c.ttl {
			delete(c.last, id)
			removed++
		}
	}
	return removed
}
