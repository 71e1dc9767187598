package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type entry struct {
	value   string
	expires time.Time
}

// cache mimics the handful of redis commands the services use.
type cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func newCache() *cache {
	return &cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: string(valueJSON), expires: c.expiry(ttl)}
	return nil
}

func (c *cache) Get(ctx context.Context, key string) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(e.value, nil)
}

func (c *cache) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	for _, key := range keys {
		if _, ok := c.lookup(key); ok {
			delete(c.entries, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type limiter struct {
	cache  *cache
	max    int
	window time.Duration
	counts map[string]int
}

func (l *limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.max <= 0 {
		return true, nil
	}

	c := l.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup("attempts:" + key); !ok {
		l.counts[key] = 0
		c.entries["attempts:"+key] = entry{expires: c.expiry(l.window)}
	}
	l.counts[key]++
	return l.counts[key] <= l.max, nil
}

func (c *cache) lookup(key string) (entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return entry{}, false
	}
	return e, true
}

func (c *cache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}
