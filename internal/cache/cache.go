// Package cache provides the TTL response cache for assembled search
// responses, keyed by a deterministic fingerprint of the request.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matomesearch/matome/internal/models"
)

const (
	// DefaultTTL matches the thirty-minute response lifetime of the
	// original service.
	DefaultTTL = 30 * time.Minute
	// DefaultMaxEntries is the entry count past which an insert sweeps
	// expired entries.
	DefaultMaxEntries = 1000
)

type entry struct {
	response models.SearchResponse
	inserted time.Time
}

// ResponseCache is a TTL cache of assembled search responses. Entries expire
// lazily: a read past the TTL counts as a miss and evicts the entry, and an
// insert growing the cache past maxEntries sweeps every expired entry.
// Eviction is purely time-based, never size-based. Safe for concurrent use.
//
// Lookups are not coalesced: callers racing the same cold key each run the
// full pipeline and the last write wins.
type ResponseCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	hits       uint64
	misses     uint64
	now        func() time.Time
}

// Stats is a point-in-time snapshot of cache contents and counters. Hits and
// misses accumulate for the process lifetime until Clear.
type Stats struct {
	Entries    int     `json:"entries"`
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	HitRate    string  `json:"hit_rate"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// New creates a ResponseCache. Non-positive ttl or maxEntries fall back to
// the defaults.
func New(ttl time.Duration, maxEntries int) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ResponseCache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Key returns the fingerprint for a request's cacheable identity. Sources and
// languages are sorted first so permutations of either address the same entry.
func Key(query string, sources, languages []string, maxResults int) string {
	s := append([]string(nil), sources...)
	l := append([]string(nil), languages...)
	sort.Strings(s)
	sort.Strings(l)
	data := fmt.Sprintf("%s:%s:%s:%d", query, strings.Join(s, ","), strings.Join(l, ","), maxResults)
	sum := md5.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for the request identity if present and
// within the TTL. An expired entry is evicted and counted as a miss.
func (c *ResponseCache) Get(query string, sources, languages []string, maxResults int) (models.SearchResponse, bool) {
	key := Key(query, sources, languages, maxResults)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if c.now().Sub(e.inserted) < c.ttl {
			c.hits++
			return e.response, true
		}
		delete(c.entries, key)
	}
	c.misses++
	return models.SearchResponse{}, false
}

// Set stores the response under the request identity, then sweeps expired
// entries if the cache has grown past its entry threshold.
func (c *ResponseCache) Set(query string, sources, languages []string, maxResults int, response models.SearchResponse) {
	key := Key(query, sources, languages, maxResults)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{response: response, inserted: c.now()}
	if len(c.entries) > c.maxEntries {
		c.sweepLocked()
	}
}

// sweepLocked removes all entries past the TTL. Callers hold mu.
func (c *ResponseCache) sweepLocked() {
	now := c.now()
	for key, e := range c.entries {
		if now.Sub(e.inserted) >= c.ttl {
			delete(c.entries, key)
		}
	}
}

// SetTTL changes the entry lifetime. Existing entries are re-judged against
// the new TTL on their next read; non-positive values fall back to the default.
func (c *ResponseCache) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}

// Clear drops all entries and resets the hit/miss counters.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.hits, c.misses = 0, 0
}

// Stats reports entry count, counters, and configured TTL.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return Stats{
		Entries:    len(c.entries),
		Hits:       c.hits,
		Misses:     c.misses,
		HitRate:    fmt.Sprintf("%.2f%%", rate),
		TTLSeconds: c.ttl.Seconds(),
	}
}
