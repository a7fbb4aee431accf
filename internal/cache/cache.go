// Package cache is an in-process TTL cache with tag invalidation.
//
// Values are held in a ristretto cache. Expiry, tags and size accounting are
// tracked alongside it under one mutex, so expiry follows the injected clock
// and every operation is read-after-write consistent.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"

	"github.com/rcliao/memindex/internal/clock"
)

const (
	DefaultMaxItems = 1 << 16
	DefaultTTL      = 5 * time.Minute
)

// ErrRejected is returned when the value store refuses an item.
var ErrRejected = errors.New("cache rejected item")

// Config configures a Cache.
type Config struct {
	MaxItems   int64
	DefaultTTL time.Duration
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Stats are aggregate cache statistics.
type Stats struct {
	Keys    int     `json:"keys"`
	Tags    int     `json:"tags"`
	Bytes   int64   `json:"bytes"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type meta struct {
	expires time.Time
	tags    []string
	size    int64
}

// Cache is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	values *ristretto.Cache
	meta   map[string]*meta
	byTag  map[string]map[string]struct{}
	stats  Stats

	// gens counts invalidations per tag; epoch counts full clears.
	gens  map[string]uint64
	epoch uint64

	group      singleflight.Group
	defaultTTL time.Duration
	clock      clock.Clock
	log        *slog.Logger
}

// New creates a cache.
func New(cfg Config) (*Cache, error) {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	values, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        cfg.MaxItems * 10,
		MaxCost:            cfg.MaxItems,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Cache{
		values:     values,
		meta:       make(map[string]*meta),
		byTag:      make(map[string]map[string]struct{}),
		gens:       make(map[string]uint64),
		defaultTTL: cfg.DefaultTTL,
		clock:      cfg.Clock,
		log:        cfg.Logger.With("component", "cache"),
	}, nil
}

// Set stores value under key for ttl (DefaultTTL when ttl <= 0) and labels
// it with tags. A later Get observes the value.
func (c *Cache) Set(key string, value any, ttl time.Duration, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(key, value, ttl, tags)
}

// generation returns a counter that changes whenever any of tags is
// cleared or the whole cache is cleared.
func (c *Cache) generation(tags []string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generationLocked(tags)
}

func (c *Cache) generationLocked(tags []string) uint64 {
	g := c.epoch
	for _, t := range tags {
		g += c.gens[t]
	}
	return g
}

// setIfGeneration stores the value only when none of tags was cleared since
// gen was read. It reports whether the value was stored.
func (c *Cache) setIfGeneration(gen uint64, key string, value any, ttl time.Duration, tags []string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generationLocked(tags) != gen {
		return false, nil
	}
	return true, c.setLocked(key, value, ttl, tags)
}

func (c *Cache) setLocked(key string, value any, ttl time.Duration, tags []string) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.setValueLocked(key, value); err != nil {
		c.log.Debug("set rejected", "key", key)
		c.deleteLocked(key)
		c.recomputeLocked()
		return err
	}
	c.unlinkLocked(key)
	m := &meta{expires: c.clock.Now().Add(ttl), tags: dedupe(tags), size: approxSize(key, value)}
	c.meta[key] = m
	for _, t := range m.tags {
		set, ok := c.byTag[t]
		if !ok {
			set = make(map[string]struct{})
			c.byTag[t] = set
		}
		set[key] = struct{}{}
	}
	c.recomputeLocked()
	return nil
}

func (c *Cache) setValueLocked(key string, value any) error {
	// Sets go through a buffer and may be dropped under contention.
	for attempt := 0; attempt < 3; attempt++ {
		if c.values.Set(key, value, 1) {
			c.values.Wait()
			if _, ok := c.values.Get(key); ok {
				return nil
			}
		}
	}
	return fmt.Errorf("set %s: %w", key, ErrRejected)
}

// Get returns the value for key if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.meta[key]
	if ok && !c.clock.Now().Before(m.expires) {
		c.deleteLocked(key)
		c.recomputeLocked()
		ok = false
	}
	var v any
	if ok {
		if v, ok = c.values.Get(key); !ok {
			// Evicted by the value store.
			c.deleteLocked(key)
			c.recomputeLocked()
		}
	}
	if !ok {
		c.stats.Misses++
		c.updateHitRateLocked()
		return nil, false
	}
	c.stats.Hits++
	c.updateHitRateLocked()
	return v, true
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.meta[key]
	c.deleteLocked(key)
	c.recomputeLocked()
	return ok
}

// ClearByTags removes every entry labelled with any of tags and returns how
// many were removed.
func (c *Cache) ClearByTags(tags ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []string
	for _, t := range tags {
		c.gens[t]++
		for k := range c.byTag[t] {
			keys = append(keys, k)
		}
	}
	n := 0
	for _, k := range keys {
		if _, ok := c.meta[k]; ok {
			c.deleteLocked(k)
			n++
		}
	}
	c.recomputeLocked()
	return n
}

// Cleanup removes every expired entry and returns how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	n := 0
	for k, m := range c.meta {
		if !now.Before(m.expires) {
			c.deleteLocked(k)
			n++
		}
	}
	c.recomputeLocked()
	if n > 0 {
		c.log.Debug("cleanup", "removed", n)
	}
	return n
}

// Clear removes everything. Hit and miss counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values.Clear()
	c.meta = make(map[string]*meta)
	c.byTag = make(map[string]map[string]struct{})
	c.epoch++
	c.recomputeLocked()
}

// Keys returns the live keys, sorted.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.meta))
	for k := range c.meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stats returns a snapshot of the cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close releases the value store. The cache must not be used afterwards.
func (c *Cache) Close() {
	c.values.Close()
}

func (c *Cache) deleteLocked(key string) {
	c.values.Del(key)
	c.unlinkLocked(key)
	delete(c.meta, key)
}

func (c *Cache) unlinkLocked(key string) {
	m, ok := c.meta[key]
	if !ok {
		return
	}
	for _, t := range m.tags {
		if set, ok := c.byTag[t]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(c.byTag, t)
			}
		}
	}
}

func (c *Cache) recomputeLocked() {
	c.stats.Keys = len(c.meta)
	c.stats.Tags = len(c.byTag)
	var bytes int64
	for _, m := range c.meta {
		bytes += m.size
	}
	c.stats.Bytes = bytes
	c.updateHitRateLocked()
}

func (c *Cache) updateHitRateLocked() {
	total := c.stats.Hits + c.stats.Misses
	if total == 0 {
		c.stats.HitRate = 0
		return
	}
	c.stats.HitRate = float64(c.stats.Hits) / float64(total)
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
