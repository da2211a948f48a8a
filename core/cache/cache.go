package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Sentinel errors internal to the cache tiers. They never escape Get/Set;
// the public surface degrades every cache problem to a miss.
var (
	errNotPersisted = errors.New("cache entry not persisted")
	errCorrupt      = errors.New("cache entry corrupt")
)

// Key addresses one cached payload.
type Key struct {
	// Source is the remote identity (org alias or username).
	Source string
	// Resource is the resource key, e.g. "Profile/Admin".
	Resource string
	// Version is the remote API version the payload was retrieved with.
	Version string
}

// entry is the in-memory tier representation. The cache owns entries;
// callers never see or mutate them in place.
type entry struct {
	data      []byte
	createdAt time.Time
	ttl       time.Duration
}

// Stats summarizes cache effectiveness for maintenance commands.
type Stats struct {
	// Hits counts Get calls served from either tier.
	Hits int64 `json:"hits"`
	// Misses counts Get calls that found nothing usable.
	Misses int64 `json:"misses"`
	// MemoryEntries is the current in-memory tier size.
	MemoryEntries int `json:"memory_entries"`
	// Evictions counts entries dropped for expiry or corruption.
	Evictions int64 `json:"evictions"`
}

// Cache is the two-tier (memory + persistent) cache. Cache errors are
// never fatal: every failure inside the cache degrades to a miss, so the
// surrounding operation falls back to a fresh fetch. Correctness of the
// system never depends on the cache being available.
type Cache struct {
	mu   sync.RWMutex
	mem  map[Key]entry
	disk *store
	log  *zap.Logger
	sf   singleflight.Group

	hits, misses, evictions int64

	now func() time.Time
}

// New creates a cache persisting under dir.
func New(dir string, log *zap.Logger) (*Cache, error) {
	disk, err := newStore(dir)
	if err != nil {
		return nil, err
	}
	return &Cache{
		mem:  make(map[Key]entry),
		disk: disk,
		log:  log,
		now:  time.Now,
	}, nil
}

// Get returns the cached payload for key, or ok=false on a miss. Expired
// or corrupt entries are deleted and reported as misses; no cache error is
// ever surfaced to the caller.
func (c *Cache) Get(key Key) ([]byte, bool) {
	now := c.now()

	c.mu.RLock()
	e, inMem := c.mem[key]
	c.mu.RUnlock()

	if inMem {
		if !c.entryExpired(e, now) {
			c.count(&c.hits)
			return e.data, true
		}
		c.evict(key)
	}

	rec, err := c.disk.read(key)
	switch {
	case err == nil:
		if expired(rec, now) {
			c.disk.remove(key)
			c.count(&c.evictions)
			c.count(&c.misses)
			return nil, false
		}
		// Re-populate the fast tier from disk.
		e := entry{data: rec.Data, createdAt: rec.CreatedAt, ttl: time.Duration(rec.TTLSeconds) * time.Second}
		c.mu.Lock()
		c.mem[key] = e
		c.mu.Unlock()
		c.count(&c.hits)
		return e.data, true
	case errors.Is(err, errCorrupt):
		c.log.Warn("Deleting corrupt cache record",
			zap.String("source", key.Source),
			zap.String("resource", key.Resource))
		c.disk.remove(key)
		c.count(&c.evictions)
	case errors.Is(err, errNotPersisted):
		// Plain miss.
	default:
		c.log.Warn("Cache read degraded to miss", zap.Error(err))
	}

	c.count(&c.misses)
	return nil, false
}

// Set stores the payload in both tiers. The memory write always succeeds;
// the persistent write is best-effort: on disk exhaustion it evicts
// expired records and retries once, otherwise it logs and moves on. The
// operation in progress must never fail because the cache could not persist.
func (c *Cache) Set(key Key, data []byte, ttl time.Duration) {
	now := c.now()

	c.mu.Lock()
	c.mem[key] = entry{data: data, createdAt: now, ttl: ttl}
	c.mu.Unlock()

	rec := &record{Data: data, CreatedAt: now, TTLSeconds: int64(ttl / time.Second)}
	err := c.disk.write(key, rec)
	if err == nil {
		return
	}
	if diskFull(err) {
		removed, _ := c.disk.purgeExpired()
		c.log.Warn("Cache disk full, evicted expired records and retrying",
			zap.Int("evicted", removed))
		err = c.disk.write(key, rec)
		if err == nil {
			return
		}
	}
	c.log.Warn("Cache persist failed, continuing without persistence",
		zap.String("source", key.Source),
		zap.String("resource", key.Resource),
		zap.Error(err))
}

// Invalidate removes the entry from both tiers.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	delete(c.mem, key)
	c.mu.Unlock()
	c.disk.remove(key)
}

// GetOrFetch returns the cached payload or runs fetch exactly once per key
// across concurrent callers (singleflight), caching the result.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, ttl time.Duration, fetch func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok := c.Get(key); ok {
		return data, nil
	}

	v, err, _ := c.sf.Do(key.Source+"|"+key.Resource+"|"+key.Version, func() (interface{}, error) {
		// Double-check after winning the flight.
		if data, ok := c.Get(key); ok {
			return data, nil
		}
		data, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, data, ttl)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// PurgeExpired removes every expired persisted record and all expired
// memory entries. Returns the number of disk records removed.
func (c *Cache) PurgeExpired() (int, error) {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.mem {
		if c.entryExpired(e, now) {
			delete(c.mem, k)
		}
	}
	c.mu.Unlock()
	return c.disk.purgeExpired()
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		MemoryEntries: len(c.mem),
		Evictions:     c.evictions,
	}
}

// entryExpired mirrors the persisted-record expiry rule for the memory tier.
func (c *Cache) entryExpired(e entry, now time.Time) bool {
	if e.ttl == 0 {
		return true
	}
	return now.Sub(e.createdAt) > e.ttl
}

func (c *Cache) evict(key Key) {
	c.mu.Lock()
	delete(c.mem, key)
	c.mu.Unlock()
	c.count(&c.evictions)
}

func (c *Cache) count(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}
