package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/healthscore-analysis-server/internal/domain"
)

// Cache memoizes extraction results keyed by content hash. OCR in
// particular is expensive enough that re-uploading the same report within
// the TTL should not pay for a second pass.
type Cache struct {
	lru *expirable.LRU[string, []domain.BiomarkerReading]
}

// NewCache creates a cache holding up to size entries for up to ttl each.
func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{
		lru: expirable.NewLRU[string, []domain.BiomarkerReading](size, nil, ttl),
	}
}

// Get returns the cached readings for the key, if present.
func (c *Cache) Get(key string) ([]domain.BiomarkerReading, bool) {
	return c.lru.Get(key)
}

// Add stores the readings under the key.
func (c *Cache) Add(key string, readings []domain.BiomarkerReading) {
	c.lru.Add(key, readings)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// cacheKey derives the cache key from the format and file content, so the
// same bytes uploaded under a different name still hit.
func cacheKey(ext string, data []byte) string {
	sum := sha256.Sum256(data)
	return ext + ":" + hex.EncodeToString(sum[:])
}
