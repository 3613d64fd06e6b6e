package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LingoraLabs/lingocache"
)

// DefaultKeyPrefix scopes every key a RedisStore touches. ClearAll removes
// only keys under the store's prefix, so unrelated data on a shared server
// is never dropped.
const DefaultKeyPrefix = "lingocache:"

const (
	probeKeySuffix = "__probe__"
	scanBatchSize  = 100
)

// RedisConfig holds configuration for the Redis-backed cache tier.
type RedisConfig struct {
	URL       string        // connection URL (e.g., "redis://localhost:6379")
	TTL       time.Duration // entry lifetime; 0 or negative means entries never expire
	KeyPrefix string        // prefix for all keys (default: "lingocache:")
}

// record is the single blob stored per (project, language) pair. One key
// per pair keeps each save atomic without a separate manifest. Timestamps
// are epoch milliseconds; ExpiresAt is redundant with the server-side TTL
// and lets the store reject stale blobs a server without eviction kept.
type record struct {
	Project   string             `json:"project"`
	Lang      string             `json:"lang"`
	Data      lingocache.Payload `json:"data"`
	CachedAt  int64              `json:"cachedAt"`
	ExpiresAt int64              `json:"expiresAt,omitempty"`
}

// RedisStore is a Redis-backed cache tier.
type RedisStore struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	now       func() time.Time
}

var _ PersistentCache = (*RedisStore)(nil)

// NewRedisStore dials the configured server and probes that the store is
// actually writable. A reachable server can still refuse writes (read-only
// replica, out of memory), so the probe writes and deletes a sentinel key
// instead of trusting a ping.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &lingocache.StorageUnavailableError{Backend: "redis", Cause: err}
	}

	client := redis.NewClient(opts)
	s := newRedisStore(client, cfg.TTL, cfg.KeyPrefix)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Probe(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// NewRedisStoreFromClient wraps an existing Redis client. No probe is
// performed; call Probe if the availability check is wanted.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration, keyPrefix string) *RedisStore {
	return newRedisStore(client, ttl, keyPrefix)
}

func newRedisStore(client *redis.Client, ttl time.Duration, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// Probe verifies the store accepts writes by writing and deleting a
// sentinel key under the store's prefix.
func (s *RedisStore) Probe(ctx context.Context) error {
	key := s.keyPrefix + probeKeySuffix
	if err := s.client.Set(ctx, key, "1", 0).Err(); err != nil {
		return &lingocache.StorageUnavailableError{Backend: "redis", Cause: err}
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return &lingocache.StorageUnavailableError{Backend: "redis", Cause: err}
	}
	return nil
}

func (s *RedisStore) key(project, lang string) string {
	return s.keyPrefix + project + ":" + lang
}

// GetProject returns the cached payload for a (project, language) pair. A
// blob that does not decode may be corrupted or written by something else
// entirely; either way it is useless, so it is deleted and reported as a
// miss rather than surfaced as an error.
func (s *RedisStore) GetProject(ctx context.Context, project, lang string) (lingocache.Payload, bool, error) {
	if err := opStart(ctx, "get project"); err != nil {
		return nil, false, err
	}
	if err := requirePair(project, lang); err != nil {
		return nil, false, err
	}

	key := s.key(project, lang)
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &lingocache.IOError{Project: project, Lang: lang, Cause: err}
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.client.Del(ctx, key)
		return nil, false, nil
	}
	if s.recordExpired(&rec) {
		s.client.Del(ctx, key)
		return nil, false, nil
	}
	return rec.Data, true, nil
}

// GetGroup returns one group out of the cached payload. The group being
// absent from an otherwise cached payload is a miss, not an error.
func (s *RedisStore) GetGroup(ctx context.Context, project, group, lang string) (lingocache.Group, bool, error) {
	if err := requireGroup(group); err != nil {
		return nil, false, err
	}
	payload, ok, err := s.GetProject(ctx, project, lang)
	if err != nil || !ok {
		return nil, false, err
	}
	g, ok := payload[group]
	return g, ok, nil
}

// SaveProject stores the payload for the pair, replacing any previous
// blob. A refusal for lack of space surfaces as QuotaExceededError so
// callers can react; other failures are plain I/O errors.
func (s *RedisStore) SaveProject(ctx context.Context, project, lang string, payload lingocache.Payload) error {
	if err := opStart(ctx, "save project"); err != nil {
		return err
	}
	if err := requirePair(project, lang); err != nil {
		return err
	}

	now := s.now()
	rec := record{Project: project, Lang: lang, Data: payload, CachedAt: now.UnixMilli()}
	if s.ttl > 0 {
		rec.ExpiresAt = now.Add(s.ttl).UnixMilli()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return &lingocache.IOError{Project: project, Lang: lang, Cause: err}
	}

	if err := s.client.Set(ctx, s.key(project, lang), raw, s.ttl).Err(); err != nil {
		if isQuotaError(err) {
			return &lingocache.QuotaExceededError{Project: project, Lang: lang, Cause: err}
		}
		return &lingocache.IOError{Project: project, Lang: lang, Cause: err}
	}
	return nil
}

// IsCached reports whether a live, decodable blob exists for the pair.
// Absence in any form is false, not an error.
func (s *RedisStore) IsCached(ctx context.Context, project, lang string) (bool, error) {
	if err := opStart(ctx, "is cached"); err != nil {
		return false, err
	}
	if err := requirePair(project, lang); err != nil {
		return false, err
	}

	key := s.key(project, lang)
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, &lingocache.IOError{Project: project, Lang: lang, Cause: err}
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.client.Del(ctx, key)
		return false, nil
	}
	if s.recordExpired(&rec) {
		s.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

// ClearAll deletes every key under the store's prefix. Keys outside the
// prefix are untouched.
func (s *RedisStore) ClearAll(ctx context.Context) error {
	if err := opStart(ctx, "clear all"); err != nil {
		return err
	}

	var keys []string
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return &lingocache.IOError{Cause: err}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return &lingocache.IOError{Cause: err}
	}
	return nil
}

// Ping tests the server connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) recordExpired(rec *record) bool {
	return rec.ExpiresAt > 0 && s.now().UnixMilli() >= rec.ExpiresAt
}

// isQuotaError classifies space-pressure refusals by the server's error
// text. Redis reports them as "OOM command not allowed when used memory >
// 'maxmemory'".
func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "OOM") || strings.Contains(msg, "maxmemory")
}

// snapshot collects every live entry under the prefix, for export. Blobs
// that fail to decode are skipped.
func (s *RedisStore) snapshot(ctx context.Context) ([]ExportEntry, error) {
	var entries []ExportEntry
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if s.recordExpired(&rec) {
			continue
		}
		entries = append(entries, ExportEntry{
			Project:   rec.Project,
			Lang:      rec.Lang,
			Data:      rec.Data,
			CachedAt:  rec.CachedAt,
			ExpiresAt: rec.ExpiresAt,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, &lingocache.IOError{Cause: err}
	}
	return entries, nil
}
