package lingocache

import (
	"container/list"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/LingoraLabs/lingocache/memcache"
)

// PersistentCache is the contract of a durable cache tier. Implementations
// live in the store package; anything satisfying it can back a
// HybridCache.
type PersistentCache interface {
	// GetProject returns the payload cached for a (project, language)
	// pair. Absence and expiration are a miss (false), not an error.
	GetProject(ctx context.Context, project, lang string) (Payload, bool, error)

	// GetGroup returns one group out of the cached payload. A group
	// missing from an otherwise cached payload is a miss.
	GetGroup(ctx context.Context, project, group, lang string) (Group, bool, error)

	// SaveProject stores the payload for the pair, replacing any
	// previous entry wholesale.
	SaveProject(ctx context.Context, project, lang string, payload Payload) error

	// IsCached reports whether a live entry exists for the pair. It
	// never errors for simple absence.
	IsCached(ctx context.Context, project, lang string) (bool, error)

	// ClearAll removes every entry this tier holds.
	ClearAll(ctx context.Context) error
}

// ErrDisabled is returned by NewHybrid when the configuration switches the
// hybrid cache off. Callers treat it as "construct nothing and fall back
// to direct fetches".
var ErrDisabled = errors.New("hybrid cache is disabled by configuration")

// DefaultMaxEntries bounds the memory tier when HybridConfig leaves
// MaxEntries zero.
const DefaultMaxEntries = 256

// HybridConfig holds configuration for the hybrid cache.
type HybridConfig struct {
	Enabled           bool          // construction fails with ErrDisabled when false
	MaxEntries        int           // memory-tier bound (default: DefaultMaxEntries)
	MemoryTTL         time.Duration // absolute lifetime of memory-tier entries; 0 = none
	MemorySlidingTTL  time.Duration // idle lifetime of memory-tier entries; 0 = none
	WarmupConcurrency int           // max concurrent warmup fetches; 0 = unlimited
	Logger            *log.Logger   // default: log.Default()
}

// lruEntry is the eviction record for one memory-tier key. The list order,
// refreshed on every touch, is what eviction consults; the timestamp is
// informational.
type lruEntry struct {
	key          string
	lastAccessed time.Time
}

// HybridCache layers a bounded in-process memory tier over a durable tier.
// Reads go through the memory tier first and promote durable-tier hits
// into it; saves go to the durable tier first and only then update the
// memory tier. All methods are safe for concurrent use.
type HybridCache struct {
	store PersistentCache
	mem   *memcache.Cache[Payload]

	mu         sync.Mutex
	index      map[string]*list.Element
	order      *list.List // front = most recently accessed
	maxEntries int

	memTTL        time.Duration
	memSlidingTTL time.Duration
	warmupLimit   int
	logger        *log.Logger

	loads singleflight.Group

	l1Hits     int64
	l2Hits     int64
	misses     int64
	promotions int64
	evictions  int64
}

// NewHybrid creates a hybrid cache over the given durable tier.
func NewHybrid(store PersistentCache, cfg HybridConfig) (*HybridCache, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if store == nil {
		return nil, &InvalidArgumentError{Param: "store"}
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &HybridCache{
		store:         store,
		mem:           memcache.New[Payload](),
		index:         make(map[string]*list.Element),
		order:         list.New(),
		maxEntries:    maxEntries,
		memTTL:        cfg.MemoryTTL,
		memSlidingTTL: cfg.MemorySlidingTTL,
		warmupLimit:   cfg.WarmupConcurrency,
		logger:        logger,
	}, nil
}

// GetProject returns the payload for a (project, language) pair, trying
// the memory tier first and falling back to the durable tier. A durable
// hit is promoted into the memory tier. Concurrent calls for the same
// pair share a single durable-tier load. A double miss is (nil, false,
// nil): the caller fetches from its delivery API and saves.
func (h *HybridCache) GetProject(ctx context.Context, project, lang string) (Payload, bool, error) {
	if err := h.opStart(ctx, "get project"); err != nil {
		return nil, false, err
	}
	key, err := BuildProjectKey(project, lang)
	if err != nil {
		return nil, false, err
	}

	if payload, ok := h.mem.Get(key); ok {
		h.touch(key)
		return payload, true, nil
	}

	type loadResult struct {
		payload Payload
		ok      bool
	}
	v, err, _ := h.loads.Do(key, func() (any, error) {
		payload, ok, err := h.store.GetProject(ctx, project, lang)
		if err != nil {
			return nil, err
		}
		if ok {
			h.promote(key, payload)
		}
		return loadResult{payload: payload, ok: ok}, nil
	})
	if err != nil {
		return nil, false, err
	}

	res := v.(loadResult)
	if !res.ok {
		h.mu.Lock()
		h.misses++
		h.mu.Unlock()
		return nil, false, nil
	}
	h.mu.Lock()
	h.l2Hits++
	h.mu.Unlock()
	return res.payload, true, nil
}

// GetGroup returns one group out of the pair's payload, through the same
// two-tier path as GetProject. A group missing from a cached payload is a
// miss, not an error.
func (h *HybridCache) GetGroup(ctx context.Context, project, group, lang string) (Group, bool, error) {
	if strings.TrimSpace(group) == "" {
		return nil, false, &InvalidArgumentError{Param: "group"}
	}
	payload, ok, err := h.GetProject(ctx, project, lang)
	if err != nil || !ok {
		return nil, false, err
	}
	g, ok := payload[group]
	return g, ok, nil
}

// SaveProject writes through: the durable tier first, then the memory
// tier. When the durable save fails the memory tier is left untouched, so
// the tiers never disagree about what was accepted.
func (h *HybridCache) SaveProject(ctx context.Context, project, lang string, payload Payload) error {
	if err := h.opStart(ctx, "save project"); err != nil {
		return err
	}
	key, err := BuildProjectKey(project, lang)
	if err != nil {
		return err
	}

	if err := h.store.SaveProject(ctx, project, lang, payload); err != nil {
		return err
	}

	h.mu.Lock()
	h.insertLocked(key, payload)
	h.mu.Unlock()
	return nil
}

// IsCached reports whether either tier holds a live entry for the pair.
// The memory-tier check does not count as a read, so sliding deadlines
// are not refreshed.
func (h *HybridCache) IsCached(ctx context.Context, project, lang string) (bool, error) {
	if err := h.opStart(ctx, "is cached"); err != nil {
		return false, err
	}
	key, err := BuildProjectKey(project, lang)
	if err != nil {
		return false, err
	}

	if h.mem.Contains(key) {
		return true, nil
	}
	return h.store.IsCached(ctx, project, lang)
}

// ClearAll empties both tiers. The memory tier is dropped first so a
// durable-tier failure cannot leave stale entries serving from memory.
func (h *HybridCache) ClearAll(ctx context.Context) error {
	if err := h.opStart(ctx, "clear all"); err != nil {
		return err
	}

	h.mu.Lock()
	h.mem.Clear()
	h.index = make(map[string]*list.Element)
	h.order.Init()
	h.mu.Unlock()

	return h.store.ClearAll(ctx)
}

// Stats returns a snapshot of cache activity counters.
func (h *HybridCache) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		Entries:    h.order.Len(),
		MaxEntries: h.maxEntries,
		L1Hits:     h.l1Hits,
		L2Hits:     h.l2Hits,
		Misses:     h.misses,
		Promotions: h.promotions,
		Evictions:  h.evictions,
	}
}

func (h *HybridCache) opStart(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return &CancelledError{Op: op, Cause: err}
	}
	return nil
}

// touch records a memory-tier hit: the key moves to the front of the
// eviction order and its last-access time refreshes.
func (h *HybridCache) touch(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if elem, ok := h.index[key]; ok {
		h.order.MoveToFront(elem)
		elem.Value.(*lruEntry).lastAccessed = time.Now()
	}
	h.l1Hits++
}

// promote copies a durable-tier hit into the memory tier.
func (h *HybridCache) promote(key string, payload Payload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.insertLocked(key, payload)
	h.promotions++
}

// insertLocked places key in the memory tier and at the front of the
// eviction order, evicting least-recently-accessed entries first until
// the insert fits the bound. Callers hold h.mu.
func (h *HybridCache) insertLocked(key string, payload Payload) {
	if elem, ok := h.index[key]; ok {
		h.order.MoveToFront(elem)
		elem.Value.(*lruEntry).lastAccessed = time.Now()
	} else {
		for h.order.Len() >= h.maxEntries {
			h.evictOldestLocked()
		}
		h.index[key] = h.order.PushFront(&lruEntry{key: key, lastAccessed: time.Now()})
	}
	h.mem.Set(key, payload, h.memOptions()...)
}

// evictOldestLocked removes the least recently accessed entry from both
// the eviction order and the memory tier. Callers hold h.mu.
func (h *HybridCache) evictOldestLocked() {
	elem := h.order.Back()
	if elem == nil {
		return
	}
	ent := elem.Value.(*lruEntry)
	h.order.Remove(elem)
	delete(h.index, ent.key)
	h.mem.Remove(ent.key)
	h.evictions++
}

func (h *HybridCache) memOptions() []memcache.EntryOption {
	var opts []memcache.EntryOption
	if h.memTTL > 0 {
		opts = append(opts, memcache.WithAbsoluteTTL(h.memTTL))
	}
	if h.memSlidingTTL > 0 {
		opts = append(opts, memcache.WithSlidingTTL(h.memSlidingTTL))
	}
	return opts
}
