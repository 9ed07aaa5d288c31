// Package cache provides an in-memory TTL cache for computed views.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies one cached value: a view, the owner it was computed for and any
// extra parameters (period, limit, currency).
type Key struct {
	View  string
	Owner string
	Param string
}

// Prefix selects every cached value of one view for one owner
type Prefix struct {
	View  string
	Owner string
}

// Prefix returns the prefix this key belongs to
func (k Key) Prefix() Prefix {
	return Prefix{View: k.View, Owner: k.Owner}
}

type entry struct {
	value      any
	expiresAt  time.Time
	generation uint64
}

// Stats holds cache counters
type Stats struct {
	Hits          uint64
	Misses        uint64
	Invalidations uint64
}

// Memory is a concurrent TTL cache.
// Entries are independent: there is no global lock on the read path.
// Invalidating a prefix bumps that prefix's generation, so a value computed from state
// read before the invalidation is never served afterwards, even if it is written late.
type Memory struct {
	entries     sync.Map // Key -> *entry
	generations sync.Map // Prefix -> *atomic.Uint64
	group       singleflight.Group
	now         func() time.Time

	hits          atomic.Uint64
	misses        atomic.Uint64
	invalidations atomic.Uint64
}

// NewMemory creates an empty cache
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// NewMemoryWithClock creates an empty cache that reads time from now
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{now: now}
}

// Get returns the fresh value stored under key
func (c *Memory) Get(key Key) (any, bool) {
	raw, ok := c.entries.Load(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	e := raw.(*entry)
	if !c.now().Before(e.expiresAt) || e.generation != c.generation(key.Prefix()) {
		c.entries.CompareAndDelete(key, raw)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return e.value, true
}

// Put stores value under key for ttl
func (c *Memory) Put(key Key, value any, ttl time.Duration) {
	c.put(key, value, ttl, c.generation(key.Prefix()))
}

// Invalidate evicts every value under prefix, including values whose computation is
// still in flight. It returns the number of entries removed.
func (c *Memory) Invalidate(prefix Prefix) int {
	c.counter(prefix).Add(1)
	c.invalidations.Add(1)

	removed := 0
	c.entries.Range(func(k, _ any) bool {
		if k.(Key).Prefix() == prefix {
			c.entries.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// Sweep removes expired and invalidated entries and returns how many were removed
func (c *Memory) Sweep() int {
	now := c.now()
	removed := 0
	c.entries.Range(func(k, v any) bool {
		e := v.(*entry)
		if !now.Before(e.expiresAt) || e.generation != c.generation(k.(Key).Prefix()) {
			if c.entries.CompareAndDelete(k, v) {
				removed++
			}
		}
		return true
	})
	return removed
}

// Len returns the number of stored entries, including ones not yet swept
func (c *Memory) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Stats returns a snapshot of the cache counters
func (c *Memory) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
	}
}

// GetOrLoad returns the cached value for key, or runs load and caches its result.
// Concurrent callers for the same key share a single load. Errors are not cached.
// load runs detached from the caller's cancellation so one departing caller does not
// fail the others; each caller still stops waiting when its own ctx is done.
func GetOrLoad[T any](ctx context.Context, c *Memory, key Key, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := c.Get(key); ok {
		return v.(T), nil
	}

	gen := c.generation(key.Prefix())
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey(key, gen), func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.put(key, v, ttl, gen)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (c *Memory) put(key Key, value any, ttl time.Duration, gen uint64) {
	if ttl <= 0 || gen != c.generation(key.Prefix()) {
		return
	}
	c.entries.Store(key, &entry{
		value:      value,
		expiresAt:  c.now().Add(ttl),
		generation: gen,
	})
}

func (c *Memory) generation(p Prefix) uint64 {
	if v, ok := c.generations.Load(p); ok {
		return v.(*atomic.Uint64).Load()
	}
	return 0
}

func (c *Memory) counter(p Prefix) *atomic.Uint64 {
	v, _ := c.generations.LoadOrStore(p, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

// flightKey quotes every component so distinct keys never collide
func flightKey(key Key, gen uint64) string {
	return fmt.Sprintf("%q|%q|%q|%d", key.View, key.Owner, key.Param, gen)
}
