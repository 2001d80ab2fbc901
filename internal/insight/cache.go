package insight

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"coinwise/internal/cache"
	"coinwise/internal/core"
)

const (
	// CacheTTL bounds how long a generated insight is served before the
	// next request regenerates it. Expiry is lazy, on lookup.
	CacheTTL = 4 * time.Hour

	// DefaultCacheSize caps resident entries; the oldest is evicted
	// first so a long-lived process cannot grow without bound.
	DefaultCacheSize = 1024
)

// CachedInsight is one generated payload addressed by its fingerprint.
type CachedInsight struct {
	Insights    Insights     `json:"insights"`
	DataSummary core.Summary `json:"data_summary"`
	GeneratedAt time.Time    `json:"generated_at"`
	Fallback    bool         `json:"fallback"`
}

// Fingerprint derives the content address for a generated insight from
// the owner, the resolved window boundaries, and the category filter.
// Identical inputs always hash to the same key.
func Fingerprint(userID string, w core.TimeWindow, categoryID string) string {
	var raw string
	if w.All {
		raw = fmt.Sprintf("%s|all|%s", userID, categoryID)
	} else {
		raw = fmt.Sprintf("%s|%d|%d|%s", userID, w.Start.Unix(), w.End.Unix(), categoryID)
	}
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Cache maps fingerprints to generated insight payloads with a TTL.
type Cache struct {
	lru *cache.LRUCache[CachedInsight]
}

func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	return &Cache{lru: cache.NewLRUCache[CachedInsight](maxEntries, CacheTTL)}
}

// SetClock replaces the cache's time source for tests.
func (c *Cache) SetClock(now func() time.Time) { c.lru.SetClock(now) }

// Lookup returns the cached payload and its age, or a miss once stale.
func (c *Cache) Lookup(fingerprint string) (CachedInsight, time.Duration, bool) {
	return c.lru.GetWithAge(fingerprint)
}

func (c *Cache) Store(fingerprint string, payload CachedInsight) {
	c.lru.Set(fingerprint, payload)
}

// CleanExpired implements cache.Cleaner for the periodic sweep.
func (c *Cache) CleanExpired() int { return c.lru.CleanExpired() }

func (c *Cache) Size() int { return c.lru.Size() }
