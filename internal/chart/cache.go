package chart

import (
	"sync"
	"time"
)

// entry stores one rendered image with expiry.
type entry struct {
	expiresAt time.Time
	png       []byte
}

// Cache keeps rendered charts for a TTL. When MaxItems is exceeded, expired
// entries go first and then arbitrary ones until the cap holds.
type Cache struct {
	TTL      time.Duration
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
}

func (c *Cache) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Get returns the cached image for key if it has not expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil || c.TTL <= 0 {
		return nil, false
	}
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || !c.clock().Before(e.expiresAt) {
		return nil, false
	}
	return e.png, true
}

// Set stores png under key. A zero TTL disables caching.
func (c *Cache) Set(key string, png []byte) {
	if c == nil || c.TTL <= 0 {
		return
	}
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]entry)
	}
	c.items[key] = entry{expiresAt: now.Add(c.TTL), png: png}

	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		for k, v := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			if !now.Before(v.expiresAt) {
				delete(c.items, k)
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			if k != key {
				delete(c.items, k)
			}
		}
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
