package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries caps a TTLCache built by NewTTLCache.
const DefaultMaxEntries = 10000

type entry struct {
	v   []byte
	exp time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.exp.IsZero() && now.After(e.exp)
}

// TTLCache is an in-process BytesCache holding at most maxEntries keys.
type TTLCache struct {
	mu         sync.RWMutex
	m          map[string]entry
	maxEntries int
	now        func() time.Time
}

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]entry), maxEntries: DefaultMaxEntries, now: time.Now}
}

func (c *TTLCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.expired(c.now()) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.v, true, nil
}

// SetBytes stores a copy of value. A non-positive ttl never expires. When the
// cache is full, expired entries are dropped first, then the entry closest to
// expiry.
func (c *TTLCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now()
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	v := append([]byte(nil), value...)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; !exists && c.maxEntries > 0 && len(c.m) >= c.maxEntries {
		c.sweepLocked(now)
		if len(c.m) >= c.maxEntries {
			c.evictLocked()
		}
	}
	c.m[key] = entry{v: v, exp: exp}
	return nil
}

// Sweep removes expired entries and returns how many were removed.
func (c *TTLCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

// RunSweeper sweeps every interval until ctx is done.
func (c *TTLCache) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *TTLCache) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range c.m {
		if e.expired(now) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

// evictLocked drops the entry that expires first; entries without expiry go last.
func (c *TTLCache) evictLocked() {
	var victim string
	var soonest time.Time
	found := false
	for k, e := range c.m {
		switch {
		case !found:
			victim, soonest, found = k, e.exp, true
		case soonest.IsZero() && !e.exp.IsZero():
			victim, soonest = k, e.exp
		case !e.exp.IsZero() && e.exp.Before(soonest):
			victim, soonest = k, e.exp
		}
	}
	if found {
		delete(c.m, victim)
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
