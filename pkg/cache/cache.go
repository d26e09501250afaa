package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrUnavailable marks a backing-store fault. Callers treat it as a miss.
var ErrUnavailable = errors.New("cache: backing store unavailable")

type Options struct {
	// TTL is used by Set when the caller passes ttl <= 0.
	TTL time.Duration
	// MaxEntries bounds the store; oldest inserted keys go first. Zero means unbounded.
	MaxEntries int
	// SweepInterval drives RunSweeper. Zero disables the sweeper.
	SweepInterval time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type MetricsHooks struct {
	OnHit   func(labels map[string]string)
	OnMiss  func(labels map[string]string)
	OnStore func(labels map[string]string)
	OnEvict func(labels map[string]string)
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is an in-memory TTL store safe for concurrent use. Entries are
// replaced on Set and never modified in place.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*entry
	order   []string
	opts    Options
	metrics MetricsHooks
	now     func() time.Time
	sf      singleflight.Group
}

// Stats is the shape reported by the cache stats endpoint.
type Stats struct {
	Size  int   `json:"size"`
	TTLMs int64 `json:"ttlMs"`
}

func New(opts Options, hooks MetricsHooks) *Cache {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		items:   make(map[string]*entry),
		order:   make([]string, 0, 128),
		opts:    opts,
		metrics: hooks,
		now:     now,
	}
}

// Get returns the live value for key. An expired entry is removed and
// reported as a miss.
func (c *Cache) Get(key string) (interface{}, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if ok && !now.After(e.expiresAt) {
		c.fire(c.metrics.OnHit, key)
		return e.value, true
	}
	if ok {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have replaced it.
		if cur, still := c.items[key]; still && now.After(cur.expiresAt) {
			delete(c.items, key)
			c.removeFromOrder(key)
		}
		c.mu.Unlock()
		c.fire(c.metrics.OnEvict, key)
	}
	c.fire(c.metrics.OnMiss, key)
	return nil, false
}

// Set stores val under key for ttl (Options.TTL when ttl <= 0).
func (c *Cache) Set(key string, val interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.opts.TTL
	}
	e := &entry{value: val, expiresAt: c.now().Add(ttl)}
	c.mu.Lock()
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = e
	c.evictIfNeeded()
	c.mu.Unlock()
	c.fire(c.metrics.OnStore, key)
}

// Loader computes a value on a miss. Returning ok=false skips storing it.
type Loader func(ctx context.Context, key string) (val interface{}, ok bool, err error)

// Do returns the cached value for key or runs loader once for all concurrent
// callers asking for the same key. The cache lock is not held while loader runs.
func (c *Cache) Do(ctx context.Context, key string, ttl time.Duration, loader Loader) (interface{}, bool, error) {
	if val, ok := c.Get(key); ok {
		return val, true, nil
	}
	type loadResult struct {
		val interface{}
		ok  bool
	}
	res, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// A previous flight may have stored the value while we waited.
		if val, ok := c.Get(key); ok {
			return loadResult{val: val, ok: true}, nil
		}
		val, ok, err := loader(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			c.Set(key, val, ttl)
		}
		return loadResult{val: val, ok: ok}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := res.(loadResult)
	return r.val, r.ok, nil
}

// Purge removes every expired entry and returns how many were dropped.
func (c *Cache) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	kept := c.order[:0]
	for _, k := range c.order {
		e, ok := c.items[k]
		if !ok {
			continue
		}
		if now.After(e.expiresAt) {
			delete(c.items, k)
			removed++
			continue
		}
		kept = append(kept, k)
	}
	c.order = kept
	return removed
}

// RunSweeper purges expired entries every SweepInterval until ctx is done.
func (c *Cache) RunSweeper(ctx context.Context) {
	if c.opts.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats purges expired entries first so Size reflects live keys only.
func (c *Cache) Stats() Stats {
	c.Purge()
	return Stats{Size: c.Len(), TTLMs: c.opts.TTL.Milliseconds()}
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *Cache) evictIfNeeded() {
	if c.opts.MaxEntries <= 0 || len(c.items) <= c.opts.MaxEntries {
		return
	}
	// FIFO by first insertion
	excess := len(c.items) - c.opts.MaxEntries
	for excess > 0 && len(c.order) > 0 {
		victim := c.order[0]
		c.order = c.order[1:]
		delete(c.items, victim)
		excess--
	}
}

func (c *Cache) fire(hook func(map[string]string), key string) {
	if hook != nil {
		hook(map[string]string{"key": key})
	}
}
