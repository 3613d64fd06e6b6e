// Package memcache provides a process-local, thread-safe cache with
// per-entry absolute and sliding expiration. Expired entries are detected
// lazily on access and removed then; there is no background sweeper.
package memcache

import (
	"sync"
	"time"
)

// Clock supplies the current time. Tests inject a fake clock to exercise
// expiration without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// entry holds a cached value with its expiration bookkeeping.
type entry[T any] struct {
	value        T
	expiresAt    time.Time // zero when no absolute deadline is set
	lastAccessed time.Time
	slidingTTL   time.Duration
	hasSliding   bool
}

// expired reports whether either deadline has passed. When both an
// absolute and a sliding deadline are set, the sooner one wins. A deadline
// landing exactly on now counts as expired.
func (e *entry[T]) expired(now time.Time) bool {
	if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
		return true
	}
	if e.hasSliding && !now.Before(e.lastAccessed.Add(e.slidingTTL)) {
		return true
	}
	return false
}

// Cache is a thread-safe in-memory cache. The zero value is not usable;
// construct with New.
type Cache[T any] struct {
	mu    sync.Mutex
	items map[string]*entry[T]
	clock Clock
}

// Option configures a Cache at construction.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock overrides the cache's time source.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// New creates an empty cache.
func New[T any](opts ...Option) *Cache[T] {
	o := options{clock: systemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		items: make(map[string]*entry[T]),
		clock: o.clock,
	}
}

// EntryOption sets the expiration policy for a single Set call.
type EntryOption func(*entrySettings)

type entrySettings struct {
	absolute    time.Duration
	hasAbsolute bool
	sliding     time.Duration
	hasSliding  bool
}

// WithAbsoluteTTL expires the entry d after the write, no matter how often
// it is read. A zero d makes the entry expire immediately.
func WithAbsoluteTTL(d time.Duration) EntryOption {
	return func(s *entrySettings) {
		s.absolute = d
		s.hasAbsolute = true
	}
}

// WithSlidingTTL expires the entry once d passes without a read; every hit
// pushes the deadline forward. A zero d makes the entry expire immediately.
func WithSlidingTTL(d time.Duration) EntryOption {
	return func(s *entrySettings) {
		s.sliding = d
		s.hasSliding = true
	}
}

// Set stores value under key, replacing any existing entry and its
// expiration state wholesale. Without options the entry never expires.
func (c *Cache[T]) Set(key string, value T, opts ...EntryOption) {
	var s entrySettings
	for _, opt := range opts {
		opt(&s)
	}

	now := c.clock.Now()
	e := &entry[T]{
		value:        value,
		lastAccessed: now,
		slidingTTL:   s.sliding,
		hasSliding:   s.hasSliding,
	}
	if s.hasAbsolute {
		e.expiresAt = now.Add(s.absolute)
	}

	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
}

// Get returns the live value stored under key. An entry found to be
// expired is deleted and reported as a miss. A hit refreshes the entry's
// last-access time, which is what drives sliding expiration.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	now := c.clock.Now()
	if e.expired(now) {
		delete(c.items, key)
		return zero, false
	}
	e.lastAccessed = now
	return e.value, true
}

// Contains reports whether a live entry exists for key without counting as
// a read: sliding deadlines are not refreshed. An expired entry is removed.
func (c *Cache[T]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}
	if e.expired(c.clock.Now()) {
		delete(c.items, key)
		return false
	}
	return true
}

// Remove deletes the entry for key, if any.
func (c *Cache[T]) Remove(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*entry[T])
	c.mu.Unlock()
}

// Len returns the number of stored entries, including any whose expiration
// has passed but which no access has cleaned up yet.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
