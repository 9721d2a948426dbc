package matcher

import (
	"sync"

	"github.com/teamarr/teamarr/internal/model"
)

// FingerprintCache maps a stream fingerprint to its last-resolved event,
// avoiding repeated full matching for streams whose displayed name hasn't
// changed (§4.4.7). A change in the displayed name produces a different
// fingerprint and therefore a fresh match automatically, since the map key
// is the fingerprint itself.
type FingerprintCache struct {
	mu      sync.RWMutex
	entries map[model.StreamFingerprint]model.MatchCacheEntry
}

// NewFingerprintCache returns an empty cache.
func NewFingerprintCache() *FingerprintCache {
	return &FingerprintCache{entries: make(map[model.StreamFingerprint]model.MatchCacheEntry)}
}

// Get returns the cached entry for fingerprint, if any.
func (c *FingerprintCache) Get(fp model.StreamFingerprint) (model.MatchCacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[fp]
	return e, ok
}

// Put records a fresh successful match at the given generation.
func (c *FingerprintCache) Put(fp model.StreamFingerprint, eventID, league string, generation int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fp] = model.MatchCacheEntry{
		Fingerprint:        fp,
		EventID:            eventID,
		LeagueSlug:         league,
		LastSeenGeneration: generation,
	}
}

// BumpSeen updates an existing entry's LastSeenGeneration on a cache hit.
func (c *FingerprintCache) BumpSeen(fp model.StreamFingerprint, generation int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fp]
	if !ok {
		return
	}
	e.LastSeenGeneration = generation
	c.entries[fp] = e
}

// Purge removes every entry whose generation age (currentGeneration -
// LastSeenGeneration) is at least maxAge, per §4.4.7.
func (c *FingerprintCache) Purge(currentGeneration int64, maxAge int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for fp, e := range c.entries {
		if currentGeneration-e.LastSeenGeneration >= maxAge {
			delete(c.entries, fp)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count, mainly for tests/reporting.
func (c *FingerprintCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Seed loads entries into the cache, replacing nothing already present.
// Used to restore the cache from durable storage on startup.
func (c *FingerprintCache) Seed(entries []model.MatchCacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		if _, ok := c.entries[e.Fingerprint]; ok {
			continue
		}
		c.entries[e.Fingerprint] = e
	}
}

// Snapshot returns every entry, for persisting the cache between runs.
func (c *FingerprintCache) Snapshot() []model.MatchCacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.MatchCacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	return out
}
