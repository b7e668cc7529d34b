package robots

import (
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var errMissingOrigin = errors.New("url has no scheme or host")

// Cache keeps fetched robots.txt documents per URL for a bounded time.
// Rule sets are never cached; callers parse the document on every request.
// A nil *Cache is valid and caches nothing.
type Cache struct {
	lru *expirable.LRU[string, string]
}

// NewCache returns a cache holding up to size documents for ttl. It returns
// nil, disabling caching, when ttl or size is not positive.
func NewCache(size int, ttl time.Duration) *Cache {
	if ttl <= 0 || size <= 0 {
		return nil
	}
	return &Cache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Get returns the cached document for documentURL.
func (c *Cache) Get(documentURL string) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.lru.Get(documentURL)
}

// Add stores document under documentURL.
func (c *Cache) Add(documentURL, document string) {
	if c == nil {
		return
	}
	c.lru.Add(documentURL, document)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
