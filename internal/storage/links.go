package storage

import (
	"context"
	"sync"
	"time"
)

// URLSource resolves object keys into playback URLs.
type URLSource interface {
	URL(ctx context.Context, key string) (string, error)
}

type linkEntry struct {
	url     string
	expires time.Time
}

// CachingLinker memoises playback URLs so popular share codes do not presign
// on every request. Entries expire well before the presigned URL does.
type CachingLinker struct {
	base URLSource
	ttl  time.Duration
	now  func() time.Time

	mu        sync.RWMutex
	items     map[string]linkEntry
	nextPrune time.Time
}

// NewCachingLinker caches URLs from base for half of urlTTL.
func NewCachingLinker(base URLSource, urlTTL time.Duration) *CachingLinker {
	ttl := urlTTL / 2
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingLinker{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]linkEntry),
	}
}

// URL returns a cached URL when fresh, otherwise it asks the underlying source.
func (c *CachingLinker) URL(ctx context.Context, key string) (string, error) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.url, nil
	}

	url, err := c.base.URL(ctx, key)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.pruneLocked(now)
	c.items[key] = linkEntry{url: url, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return url, nil
}

// pruneLocked drops expired entries, at most once per ttl. Caller holds mu.
func (c *CachingLinker) pruneLocked(now time.Time) {
	if now.Before(c.nextPrune) {
		return
	}
	for key, entry := range c.items {
		if !now.Before(entry.expires) {
			delete(c.items, key)
		}
	}
	c.nextPrune = now.Add(c.ttl)
}

// Len reports how many entries are cached.
func (c *CachingLinker) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
