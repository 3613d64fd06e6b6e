package memcache

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock for expiration tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCache_GetSet(t *testing.T) {
	c := New[string]()

	c.Set("key1", "value1")

	val, ok := c.Get("key1")
	if !ok {
		t.Error("Get should return true for existing key")
	}
	if val != "value1" {
		t.Errorf("Get returned %q, want %q", val, "value1")
	}

	val, ok = c.Get("nonexistent")
	if ok {
		t.Error("Get should return false for missing key")
	}
	if val != "" {
		t.Errorf("Get should return the zero value for missing key, got %q", val)
	}
}

func TestCache_NoExpiration(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock))

	c.Set("key1", "value1")
	clock.Advance(1000 * time.Hour)

	if _, ok := c.Get("key1"); !ok {
		t.Error("entry without TTL options should never expire")
	}
}

func TestCache_AbsoluteTTL(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock))

	c.Set("key1", "value1", WithAbsoluteTTL(10*time.Minute))

	if _, ok := c.Get("key1"); !ok {
		t.Fatal("entry should be live before the deadline")
	}

	clock.Advance(9 * time.Minute)
	if _, ok := c.Get("key1"); !ok {
		t.Error("entry should still be live one minute before the deadline")
	}

	clock.Advance(1 * time.Minute)
	if _, ok := c.Get("key1"); ok {
		t.Error("entry should be expired exactly at the deadline")
	}
}

func TestCache_AbsoluteTTLIgnoresReads(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock))

	c.Set("key1", "value1", WithAbsoluteTTL(10*time.Minute))

	// Reads must not postpone an absolute deadline.
	for i := 0; i < 5; i++ {
		clock.Advance(2 * time.Minute)
		c.Get("key1")
	}

	if _, ok := c.Get("key1"); ok {
		t.Error("reads should not extend an absolute deadline")
	}
}

func TestCache_SlidingTTL(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock))

	c.Set("key1", "value1", WithSlidingTTL(10*time.Minute))

	// Each read inside the window pushes the deadline forward.
	for i := 0; i < 5; i++ {
		clock.Advance(9 * time.Minute)
		if _, ok := c.Get("key1"); !ok {
			t.Fatalf("entry should survive read %d inside the sliding window", i)
		}
	}

	// A full idle window expires it.
	clock.Advance(10 * time.Minute)
	if _, ok := c.Get("key1"); ok {
		t.Error("entry should expire after a full idle window")
	}
}

func TestCache_AbsoluteCapsSliding(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock))

	c.Set("key1", "value1", WithAbsoluteTTL(30*time.Minute), WithSlidingTTL(10*time.Minute))

	// Keep the entry hot; the absolute deadline must still win.
	for i := 0; i < 3; i++ {
		clock.Advance(9 * time.Minute)
		if _, ok := c.Get("key1"); !ok {
			t.Fatalf("entry should be live at minute %d", (i+1)*9)
		}
	}

	clock.Advance(9 * time.Minute) // minute 36, past the absolute deadline
	if _, ok := c.Get("key1"); ok {
		t.Error("absolute deadline should expire a continuously read entry")
	}
}

func TestCache_SlidingExpiresBeforeAbsolute(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock))

	c.Set("key1", "value1", WithAbsoluteTTL(30*time.Minute), WithSlidingTTL(5*time.Minute))

	clock.Advance(6 * time.Minute)
	if _, ok := c.Get("key1"); ok {
		t.Error("idle entry should expire on the sliding deadline even with absolute time left")
	}
}

func TestCache_ZeroTTLExpiresImmediately(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock))

	c.Set("abs", "v", WithAbsoluteTTL(0))
	c.Set("sli", "v", WithSlidingTTL(0))

	if _, ok := c.Get("abs"); ok {
		t.Error("zero absolute TTL should expire the entry immediately")
	}
	if _, ok := c.Get("sli"); ok {
		t.Error("zero sliding TTL should expire the entry immediately")
	}
}

func TestCache_ExpiredEntryRemovedOnGet(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock))

	c.Set("key1", "value1", WithAbsoluteTTL(time.Minute))
	clock.Advance(2 * time.Minute)

	if c.Len() != 1 {
		t.Fatalf("Len() = %d before cleanup, want 1", c.Len())
	}
	c.Get("key1")
	if c.Len() != 0 {
		t.Errorf("Len() = %d after expired Get, want 0", c.Len())
	}
}

func TestCache_SetReplacesExpirationState(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock))

	c.Set("key1", "value1", WithAbsoluteTTL(time.Minute))
	// Overwrite with no options: the old deadline must not survive.
	c.Set("key1", "value2")

	clock.Advance(time.Hour)
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("overwrite should have cleared the old deadline")
	}
	if val != "value2" {
		t.Errorf("Get returned %q, want %q", val, "value2")
	}
}

func TestCache_Contains(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock))

	c.Set("key1", "value1", WithSlidingTTL(10*time.Minute))

	if !c.Contains("key1") {
		t.Error("Contains should report a live entry")
	}
	if c.Contains("nonexistent") {
		t.Error("Contains should report false for a missing key")
	}

	// Contains is not a read: it must not push the sliding deadline.
	clock.Advance(9 * time.Minute)
	if !c.Contains("key1") {
		t.Fatal("entry should still be live inside the window")
	}
	clock.Advance(2 * time.Minute)
	if c.Contains("key1") {
		t.Error("Contains should not have extended the sliding deadline")
	}
}

func TestCache_RemoveAndClear(t *testing.T) {
	c := New[int]()

	c.Set("a", 1)
	c.Set("b", 2)

	c.Remove("a")
	if _, ok := c.Get("a"); ok {
		t.Error("removed key should be gone")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d after Remove, want 1", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[string]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			c.Set(key, "value", WithSlidingTTL(time.Minute))
		}(i)
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			c.Get(key)
			c.Contains(key)
		}(i)
	}

	wg.Wait()
}
