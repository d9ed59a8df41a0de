package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/variantlens/backend/internal/domain"
)

// resultCacheBlobKey is the fixed blob-store key for persisted cache state.
const resultCacheBlobKey = "variantlens:analysis_cache"

// maxCacheEntries bounds the in-memory map; when exceeded, expired entries
// are swept and then the oldest entries evicted.
const maxCacheEntries = 256

// cacheEntry is one memoized analysis result.
type cacheEntry struct {
	Key       string                 `json:"key"`
	Result    *domain.AnalysisResult `json:"result"`
	Timestamp time.Time              `json:"timestamp"`
	TTL       time.Duration          `json:"ttl"`
}

// CacheStats reports hit/miss counters and the current entry count.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// ResultCache memoizes analysis results by a hash of the product set and
// options, with a TTL. State survives restarts through the blob store; a
// corrupt or missing blob degrades to an empty cache.
type ResultCache struct {
	mu     sync.RWMutex
	data   map[string]cacheEntry
	maxAge time.Duration
	hits   uint64
	misses uint64
	store  domain.BlobStore
	logger *zap.Logger
}

// NewResultCache creates a cache with the given default TTL. store may be
// nil for a purely in-memory cache.
func NewResultCache(maxAge time.Duration, store domain.BlobStore, logger *zap.Logger) *ResultCache {
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultCache{
		data:   make(map[string]cacheEntry),
		maxAge: maxAge,
		store:  store,
		logger: logger,
	}
}

// Key derives the cache key from the product set and options. Product order
// is irrelevant: ids are sorted before hashing. Each id carries a hash of
// the product's mutable fields so edits invalidate the entry.
func (c *ResultCache) Key(products []domain.Product, opts domain.DetectionOptions) string {
	versions := make([]string, len(products))
	for i, p := range products {
		versions[i] = p.ID + "@" + productVersion(p)
	}
	sort.Strings(versions)

	ph := fnv.New64a()
	for _, v := range versions {
		ph.Write([]byte(v))
		ph.Write([]byte{0})
	}

	oh := fnv.New64a()
	// BypassCache is a delivery detail, not an input to the computation.
	opts.BypassCache = false
	if encoded, err := json.Marshal(opts); err == nil {
		oh.Write(encoded)
	}

	return fmt.Sprintf("%016x:%016x", ph.Sum64(), oh.Sum64())
}

func productVersion(p domain.Product) string {
	h := fnv.New64a()
	h.Write([]byte(p.SKU))
	h.Write([]byte{0})
	h.Write([]byte(p.Name))
	h.Write([]byte{0})
	if p.Price != nil {
		fmt.Fprintf(h, "%g", *p.Price)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Get returns the stored result for key if it is younger than its TTL.
// Stale and absent entries both count as misses.
func (c *ResultCache) Get(key string) (*domain.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok || time.Since(entry.Timestamp) > entry.TTL {
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.Result, true
}

// Put stores a result under key. A positive maxAge overrides the cache's
// default TTL for this entry, so per-run options shorten or extend how long
// their result stays fresh.
func (c *ResultCache) Put(key string, result *domain.AnalysisResult, maxAge time.Duration) {
	if maxAge <= 0 {
		maxAge = c.maxAge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		Key:       key,
		Result:    result,
		Timestamp: time.Now(),
		TTL:       maxAge,
	}
	if len(c.data) > maxCacheEntries {
		c.evictLocked()
	}
}

// evictLocked sweeps expired entries, then removes oldest entries until the
// map fits the bound. Caller holds the write lock.
func (c *ResultCache) evictLocked() {
	now := time.Now()
	for k, e := range c.data {
		if now.Sub(e.Timestamp) > e.TTL {
			delete(c.data, k)
		}
	}
	for len(c.data) > maxCacheEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.data {
			if oldestKey == "" || e.Timestamp.Before(oldest) {
				oldestKey, oldest = k, e.Timestamp
			}
		}
		delete(c.data, oldestKey)
	}
}

// Stats returns a snapshot of the counters.
func (c *ResultCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: len(c.data)}
}

// Clear drops all entries.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]cacheEntry)
}

// Load restores cache state from the blob store. Absent or corrupt blobs
// degrade to an empty cache and never return an error to the caller.
func (c *ResultCache) Load(ctx context.Context) {
	if c.store == nil {
		return
	}
	raw, err := c.store.Get(ctx, resultCacheBlobKey)
	if err != nil {
		return
	}

	var entries map[string]cacheEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.logger.Warn("discarding corrupt cache blob", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = entries
	if c.data == nil {
		c.data = make(map[string]cacheEntry)
	}
}

// Persist writes the current cache state to the blob store. Failures are
// logged and otherwise ignored; the cache keeps serving from memory.
func (c *ResultCache) Persist(ctx context.Context) {
	if c.store == nil {
		return
	}

	c.mu.Lock()
	c.evictLocked()
	encoded, err := json.Marshal(c.data)
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn("failed to serialize cache state", zap.Error(err))
		return
	}

	if err := c.store.Set(ctx, resultCacheBlobKey, encoded); err != nil {
		c.logger.Warn("failed to persist cache state", zap.Error(err))
	}
}
