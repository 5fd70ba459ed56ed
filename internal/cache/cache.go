// Package cache implements the shared two-tier data cache: an in-memory
// LRU store with per-entry TTLs and single-flight loads, optionally backed
// by a persistent snapshot tier that survives restarts.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultMaxEntries caps the in-memory tier when no cap is configured.
const DefaultMaxEntries = 1000

// DefaultSweepInterval is how often the background sweeper evicts
// expired entries that no read has touched.
const DefaultSweepInterval = 10 * time.Minute

// ErrInvalidTTL is returned by Set when the TTL is not positive.
var ErrInvalidTTL = errors.New("cache: ttl must be positive")

// nullValue is the type of the Null sentinel.
type nullValue struct{}

// Null marks a cached negative result: the upstream was asked and had
// nothing (or answered with a typed failure). Distinct from a missing key.
var Null = nullValue{}

// IsNull reports whether v is the null sentinel.
func IsNull(v any) bool {
	_, ok := v.(nullValue)
	return ok
}

// Entry is a cache entry with its timing metadata.
type Entry struct {
	Key       string
	Value     any
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its TTL at time now.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Tier is a persistent backing store for cache entries. Implementations
// must be safe for concurrent use.
type Tier interface {
	Load(key string) (*Entry, bool, error)
	Store(e *Entry) error
	Delete(key string) error
	Flush() error
	Close() error
}

type item struct {
	entry Entry
	size  int
}

type call struct {
	wg  sync.WaitGroup
	val any
	err error
}

// Cache is the in-memory tier: LRU eviction, per-entry TTL, hit/miss
// stats, and single-flight loads. All methods are safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	evictList  *list.List
	maxEntries int
	stats      Stats
	bytes      int64

	// single-flight: in-progress loads keyed by cache key
	inflight map[string]*call

	tier Tier // nil when persistence is disabled
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries overrides the in-memory entry cap.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithTier attaches a persistent second tier. Writes go through to it;
// memory misses consult it and promote live entries.
func WithTier(t Tier) Option {
	return func(c *Cache) { c.tier = t }
}

// New creates a cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		items:      make(map[string]*list.Element),
		evictList:  list.New(),
		maxEntries: DefaultMaxEntries,
		inflight:   make(map[string]*call),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the live value for key. The second return is false when the
// key is absent or expired. A cached Null sentinel is returned as-is;
// callers distinguish it with IsNull.
func (c *Cache) Get(key string) (any, bool) {
	e, ok := c.getEntry(key)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// GetEntry returns a copy of the live entry for key, exposing StoredAt
// for freshness diagnostics.
func (c *Cache) GetEntry(key string) (Entry, bool) {
	return c.getEntry(key)
}

func (c *Cache) getEntry(key string) (Entry, bool) {
	c.mu.Lock()

	el, ok := c.items[key]
	if ok {
		it := el.Value.(*item)
		if it.entry.Expired(time.Now()) {
			c.removeLocked(el)
			c.stats.Misses++
			c.mu.Unlock()
			return Entry{}, false
		}
		c.evictList.MoveToFront(el)
		c.stats.Hits++
		e := it.entry
		c.mu.Unlock()
		return e, true
	}
	c.mu.Unlock()

	// Memory miss: consult the persistent tier before giving up.
	if e, ok := c.loadFromTier(key); ok {
		return e, true
	}

	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
	return Entry{}, false
}

// loadFromTier promotes a live persisted entry into memory.
func (c *Cache) loadFromTier(key string) (Entry, bool) {
	if c.tier == nil {
		return Entry{}, false
	}
	e, ok, err := c.tier.Load(key)
	if err != nil || !ok {
		return Entry{}, false
	}
	if e.Expired(time.Now()) {
		_ = c.tier.Delete(key)
		return Entry{}, false
	}

	c.mu.Lock()
	c.insertLocked(*e)
	c.stats.Hits++
	c.mu.Unlock()
	return *e, true
}

// Set stores value under key with the given TTL, writing through to the
// persistent tier when one is attached. TTL must be positive: every
// entry carries a real expiry.
func (c *Cache) Set(key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}

	now := time.Now()
	e := Entry{
		Key:       key,
		Value:     value,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	c.mu.Lock()
	c.insertLocked(e)
	c.mu.Unlock()

	if c.tier != nil {
		if err := c.tier.Store(&e); err != nil {
			return fmt.Errorf("persist %q: %w", key, err)
		}
	}
	return nil
}

func (c *Cache) insertLocked(e Entry) {
	size := approxSize(e.Key, e.Value)
	if el, ok := c.items[e.Key]; ok {
		c.evictList.MoveToFront(el)
		it := el.Value.(*item)
		c.bytes += int64(size - it.size)
		it.entry = e
		it.size = size
		return
	}

	el := c.evictList.PushFront(&item{entry: e, size: size})
	c.items[e.Key] = el
	c.bytes += int64(size)

	for c.evictList.Len() > c.maxEntries {
		c.evictOldestLocked()
	}
}

// Delete removes key from both tiers. Returns true when a live in-memory
// entry was removed.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	el, ok := c.items[key]
	var live bool
	if ok {
		live = !el.Value.(*item).entry.Expired(time.Now())
		c.removeLocked(el)
	}
	c.mu.Unlock()

	if c.tier != nil {
		_ = c.tier.Delete(key)
	}
	return live
}

// Has reports whether a live entry exists for key. It neither extends the
// entry's LRU position nor counts toward hit/miss stats.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	return !el.Value.(*item).entry.Expired(time.Now())
}

// Flush removes all entries from both tiers.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.items = make(map[string]*list.Element)
	c.evictList.Init()
	c.bytes = 0
	c.mu.Unlock()

	if c.tier != nil {
		_ = c.tier.Flush()
	}
}

// Keys returns the keys of all live in-memory entries.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	keys := make([]string, 0, len(c.items))
	for k, el := range c.items {
		if el.Value.(*item).entry.Expired(now) {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// KeysMatching returns live keys matching the glob pattern, where "*"
// matches any substring.
func (c *Cache) KeysMatching(pattern string) []string {
	var out []string
	for _, k := range c.Keys() {
		if GlobMatch(pattern, k) {
			out = append(out, k)
		}
	}
	return out
}

// Len returns the number of in-memory entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Do runs fn under single-flight for key: concurrent callers that miss
// coalesce onto one execution and share its result. Do never populates
// the cache itself; fn is expected to store what it wants kept (adapters
// cache per outcome class with differing TTLs).
func (c *Cache) Do(key string, fn func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	if cl, ok := c.inflight[key]; ok {
		// A coalesced waiter shares the executor's result: the miss its
		// fast-path Get just recorded becomes a hit.
		c.stats.Misses--
		c.stats.Hits++
		c.mu.Unlock()
		cl.wg.Wait()
		return cl.val, cl.err
	}

	cl := &call{}
	cl.wg.Add(1)
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.val, cl.err = fn()
	cl.wg.Done()

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()

	return cl.val, cl.err
}

// GetOrCompute returns the cached value for key, or runs compute under
// single-flight, stores the result with ttl, and returns it. A compute
// error does not populate the cache.
func (c *Cache) GetOrCompute(key string, ttl time.Duration, compute func() (any, error)) (any, error) {
	return c.Do(key, func() (any, error) {
		v, err := compute()
		if err != nil {
			return nil, err
		}
		if err := c.Set(key, v, ttl); err != nil {
			return nil, err
		}
		return v, nil
	})
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Keys = len(c.items)
	s.ApproxBytes = c.bytes
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// ResetStats zeroes the hit/miss/eviction counters.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{}
}

// StartSweeper evicts expired entries every interval until ctx is done.
// Pass 0 for the default interval.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.sweep()
			}
		}
	}()
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, el := range c.items {
		if el.Value.(*item).entry.Expired(now) {
			c.removeLocked(el)
		}
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	it := el.Value.(*item)
	delete(c.items, it.entry.Key)
	c.evictList.Remove(el)
	c.bytes -= int64(it.size)
}

func (c *Cache) evictOldestLocked() {
	el := c.evictList.Back()
	if el == nil {
		return
	}
	c.removeLocked(el)
	c.stats.Evictions++
}

// approxSize estimates the memory footprint of an entry for stats.
func approxSize(key string, value any) int {
	n := len(key)
	switch v := value.(type) {
	case nullValue:
		// sentinel only
	case string:
		n += len(v)
	case []byte:
		n += len(v)
	case json.RawMessage:
		n += len(v)
	default:
		if b, err := json.Marshal(v); err == nil {
			n += len(b)
		}
	}
	return n
}
