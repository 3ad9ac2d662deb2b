package cachesvc

import (
	"context"
	"sync"
	"time"

	"github.com/Shyamyemuka/goldenspire-learn/core"
)

type memoryEntry struct {
	val       []byte
	expiresAt time.Time
}

// MemoryCache is the process-local fallback used when no redis is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), ttl: ttl}
}

func (c *MemoryCache) Get(_ context.Context, field string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[field]
	if !ok || (!e.expiresAt.IsZero() && !core.NowFunc().Before(e.expiresAt)) {
		return nil, false, nil
	}
	return e.val, true, nil
}

func (c *MemoryCache) Set(_ context.Context, field string, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := memoryEntry{val: val}
	if c.ttl > 0 {
		e.expiresAt = core.NowFunc().Add(c.ttl)
	}
	c.entries[field] = e
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}

// Len counts the stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
