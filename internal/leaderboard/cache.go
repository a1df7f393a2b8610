package leaderboard

import (
	"sync"
	"time"

	"runcomp/internal/models"
)

// DefaultFreshness is how long a fetched leaderboard is served from cache
const DefaultFreshness = 2 * time.Minute

// CacheEntry is a transformed leaderboard and the time it was fetched
type CacheEntry struct {
	Entries   []models.LeaderboardEntry
	FetchedAt time.Time
}

// IsFresh reports whether the entry is younger than the freshness window
func (e CacheEntry) IsFresh(now time.Time, window time.Duration) bool {
	return now.Sub(e.FetchedAt) < window
}

// Cache holds leaderboards keyed by (period, offset). Entries are never
// evicted; the key space is four periods times a bounded offset range.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]CacheEntry
	freshness time.Duration
}

// NewCache creates a cache with the given freshness window
func NewCache(freshness time.Duration) *Cache {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Cache{
		entries:   make(map[string]CacheEntry),
		freshness: freshness,
	}
}

// Fresh returns the cached entries for the key if they are still fresh
func (c *Cache) Fresh(p Period, offset int, now time.Time) ([]models.LeaderboardEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[cacheKey(p, offset)]
	if !ok || !entry.IsFresh(now, c.freshness) {
		return nil, false
	}
	return entry.Entries, true
}

// Peek returns the cached entry for the key regardless of age
func (c *Cache) Peek(p Period, offset int) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[cacheKey(p, offset)]
	return entry, ok
}

// Store records entries for the key, fetched at the given time
func (c *Cache) Store(p Period, offset int, entries []models.LeaderboardEntry, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(p, offset)] = CacheEntry{
		Entries:   entries,
		FetchedAt: fetchedAt,
	}
}

// Len returns the number of cached keys
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
