package backend

import (
	"context"
	"sync"
	"time"
)

// availabilityTTL bounds how long a probe result may be reused. Short enough
// that a recovered backend is picked up quickly and a failure is never
// cached for long.
const availabilityTTL = 30 * time.Second

// probeCache memoizes an availability probe with an explicit timestamp and
// TTL rather than an ambient global.
type probeCache struct {
	mu        sync.Mutex
	checkedAt time.Time
	available bool
}

// check returns the cached result when fresh, otherwise runs probe and
// stores its outcome.
func (c *probeCache) check(ctx context.Context, probe func(context.Context) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.checkedAt.IsZero() && time.Since(c.checkedAt) < availabilityTTL {
		return c.available
	}

	c.available = probe(ctx)
	c.checkedAt = time.Now()
	return c.available
}

// invalidate forces the next check to probe again. Called after a failed
// generation so routing does not keep trusting a stale positive.
func (c *probeCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkedAt = time.Time{}
}
