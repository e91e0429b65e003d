package handoff

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryChannel is the single-process default backend. Entries expire
// lazily on access.
type MemoryChannel struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *MemoryChannel {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryChannel{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryChannel) Set(_ context.Context, accountID, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[scopedKey(accountID, key)] = memoryEntry{
		value:   value,
		expires: c.now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryChannel) Get(_ context.Context, accountID, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(scopedKey(accountID, key), false)
}

func (c *MemoryChannel) Take(_ context.Context, accountID, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(scopedKey(accountID, key), true)
}

// lookup requires c.mu held.
func (c *MemoryChannel) lookup(k string, remove bool) (string, error) {
	e, ok := c.entries[k]
	if !ok {
		return "", ErrNotFound
	}
	if c.now().After(e.expires) {
		delete(c.entries, k)
		return "", ErrNotFound
	}
	if remove {
		delete(c.entries, k)
	}
	return e.value, nil
}

func (c *MemoryChannel) Delete(_ context.Context, accountID string, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, scopedKey(accountID, k))
	}
	return nil
}

func (c *MemoryChannel) Close() error {
	return nil
}
