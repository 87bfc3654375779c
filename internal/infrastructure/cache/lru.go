package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMaxEntries = 100
	DefaultTTL        = time.Hour
)

// ResultCache keeps converted payloads for a bounded time. Entries are
// evicted least-recently-used once maxEntries is reached.
type ResultCache struct {
	lru    *expirable.LRU[string, []byte]
	hits   atomic.Uint64
	misses atomic.Uint64
}

func New(maxEntries int, ttl time.Duration) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl)}
}

func (c *ResultCache) Get(key string) ([]byte, bool) {
	value, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return value, true
}

func (c *ResultCache) Add(key string, value []byte) {
	c.lru.Add(key, value)
}

func (c *ResultCache) Len() int {
	return c.lru.Len()
}

type Stats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

func (c *ResultCache) Stats() Stats {
	return Stats{Entries: c.lru.Len(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}
