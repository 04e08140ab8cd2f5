// Package objcache is an in-process cache of named values with per-entry
// expiry. The facade uses it as a near cache in front of the store.
package objcache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zhangyunhao116/skipmap"
)

const DefaultTTL = 24 * time.Hour

type iTimeProvider interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

type item struct {
	value     any
	expiresAt time.Time // zero: без срока
	lastVisit atomic.Int64
}

func (it *item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

// Cache is safe for concurrent use.
type Cache struct {
	entries  *skipmap.OrderedMap[string, *item]
	ttl      time.Duration
	capacity int
	tp       iTimeProvider
}

type Option func(*Cache)

// WithTTL sets the expiry applied by Set. Zero keeps entries until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithCapacity bounds the entry count; the least recently visited entry is
// evicted on overflow. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(c *Cache) { c.capacity = n }
}

func WithTimeProvider(tp iTimeProvider) Option {
	return func(c *Cache) { c.tp = tp }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: skipmap.New[string, *item](),
		ttl:     DefaultTTL,
		tp:      wallClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Set(name string, value any) {
	c.SetTTL(name, value, c.ttl)
}

// SetTTL stores value under name, replacing any previous entry.
func (c *Cache) SetTTL(name string, value any, ttl time.Duration) {
	now := c.tp.Now()
	it := &item{value: value}
	if ttl > 0 {
		it.expiresAt = now.Add(ttl)
	}
	it.lastVisit.Store(now.UnixNano())
	c.entries.Store(name, it)

	if c.capacity > 0 && c.entries.Len() > c.capacity {
		c.evict(name)
	}
}

// Get returns the live value under name and marks it visited.
func (c *Cache) Get(name string) (any, bool) {
	it, ok := c.entries.Load(name)
	if !ok {
		return nil, false
	}
	now := c.tp.Now()
	if it.expired(now) {
		c.entries.Delete(name)
		return nil, false
	}
	it.lastVisit.Store(now.UnixNano())
	return it.value, true
}

func (c *Cache) Exists(name string) bool {
	it, ok := c.entries.Load(name)
	return ok && !it.expired(c.tp.Now())
}

// LastVisit reports when name was last stored or read.
func (c *Cache) LastVisit(name string) (time.Time, bool) {
	it, ok := c.entries.Load(name)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(0, it.lastVisit.Load()), true
}

func (c *Cache) Delete(name string) {
	c.entries.Delete(name)
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

// Sweep removes expired entries and returns how many went away.
func (c *Cache) Sweep() int {
	now := c.tp.Now()
	var dead []string
	c.entries.Range(func(name string, it *item) bool {
		if it.expired(now) {
			dead = append(dead, name)
		}
		return true
	})
	for _, name := range dead {
		c.entries.Delete(name)
	}
	return len(dead)
}

// evict drops least recently visited entries until the cache fits, never
// touching keep.
func (c *Cache) evict(keep string) {
	for c.entries.Len() > c.capacity {
		var (
			victim string
			oldest int64
			found  bool
		)
		c.entries.Range(func(name string, it *item) bool {
			if name == keep {
				return true
			}
			if v := it.lastVisit.Load(); !found || v < oldest {
				victim, oldest, found = name, v, true
			}
			return true
		})
		if !found {
			return
		}
		c.entries.Delete(victim)
		slog.Debug("objcache: evicted", "name", victim)
	}
}

// Run sweeps every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				slog.Debug("objcache: swept", "expired", n)
			}
		}
	}
}
