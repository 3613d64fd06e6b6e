package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	"github.com/LingoraLabs/lingocache"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	t.Cleanup(func() { db.Close() })

	s := NewRedisStoreFromClient(db, ttl, "test:")
	s.now = func() time.Time { return testNow }
	return s, mock
}

// testRecord marshals the blob SaveProject would write at testNow.
func testRecord(t *testing.T, ttl time.Duration) []byte {
	t.Helper()
	rec := record{
		Project:  "shop",
		Lang:     "de",
		Data:     testPayload(),
		CachedAt: testNow.UnixMilli(),
	}
	if ttl > 0 {
		rec.ExpiresAt = testNow.Add(ttl).UnixMilli()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestRedisStore_SaveProject(t *testing.T) {
	s, mock := newTestRedisStore(t, time.Hour)

	mock.ExpectSet("test:shop:de", testRecord(t, time.Hour), time.Hour).SetVal("OK")

	if err := s.SaveProject(context.Background(), "shop", "de", testPayload()); err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRedisStore_SaveProject_NoTTL(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	mock.ExpectSet("test:shop:de", testRecord(t, 0), 0).SetVal("OK")

	if err := s.SaveProject(context.Background(), "shop", "de", testPayload()); err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRedisStore_SaveProject_QuotaExceeded(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	mock.ExpectSet("test:shop:de", testRecord(t, 0), 0).
		SetErr(errors.New("OOM command not allowed when used memory > 'maxmemory'"))

	err := s.SaveProject(context.Background(), "shop", "de", testPayload())
	if !lingocache.IsQuotaExceeded(err) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	var qe *lingocache.QuotaExceededError
	errors.As(err, &qe)
	if qe.Project != "shop" || qe.Lang != "de" {
		t.Errorf("error should carry pair context, got %s/%s", qe.Project, qe.Lang)
	}
}

func TestRedisStore_SaveProject_IOError(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	mock.ExpectSet("test:shop:de", testRecord(t, 0), 0).SetErr(errors.New("connection reset"))

	err := s.SaveProject(context.Background(), "shop", "de", testPayload())
	var ioErr *lingocache.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
	if lingocache.IsQuotaExceeded(err) {
		t.Error("plain transport failure should not classify as quota")
	}
}

func TestRedisStore_GetProject_Hit(t *testing.T) {
	s, mock := newTestRedisStore(t, time.Hour)

	mock.ExpectGet("test:shop:de").SetVal(string(testRecord(t, time.Hour)))

	payload, ok, err := s.GetProject(context.Background(), "shop", "de")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if payload["checkout"]["title"] != "Kasse" {
		t.Errorf("payload mismatch: %v", payload["checkout"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRedisStore_GetProject_Miss(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	mock.ExpectGet("test:shop:de").RedisNil()

	payload, ok, err := s.GetProject(context.Background(), "shop", "de")
	if err != nil {
		t.Fatalf("a miss should not error: %v", err)
	}
	if ok || payload != nil {
		t.Error("expected a plain miss")
	}
}

func TestRedisStore_GetProject_TransportError(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	mock.ExpectGet("test:shop:de").SetErr(errors.New("connection refused"))

	_, _, err := s.GetProject(context.Background(), "shop", "de")
	var ioErr *lingocache.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
}

func TestRedisStore_GetProject_CorruptBlobSelfHeals(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	mock.ExpectGet("test:shop:de").SetVal("{not json")
	mock.ExpectDel("test:shop:de").SetVal(1)

	payload, ok, err := s.GetProject(context.Background(), "shop", "de")
	if err != nil {
		t.Fatalf("corrupt blob should read as a miss, got error: %v", err)
	}
	if ok || payload != nil {
		t.Error("corrupt blob should read as a miss")
	}

	// The Del expectation proves the bad blob was dropped.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRedisStore_GetProject_StaleBlobSelfHeals(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	// A blob whose recorded deadline has passed, as kept by a server
	// that never evicted it.
	rec := record{
		Project:   "shop",
		Lang:      "de",
		Data:      testPayload(),
		CachedAt:  testNow.Add(-2 * time.Hour).UnixMilli(),
		ExpiresAt: testNow.Add(-time.Hour).UnixMilli(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	mock.ExpectGet("test:shop:de").SetVal(string(raw))
	mock.ExpectDel("test:shop:de").SetVal(1)

	_, ok, err := s.GetProject(context.Background(), "shop", "de")
	if err != nil {
		t.Fatalf("stale blob should read as a miss, got error: %v", err)
	}
	if ok {
		t.Error("stale blob should read as a miss")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRedisStore_GetGroup(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	mock.ExpectGet("test:shop:de").SetVal(string(testRecord(t, 0)))
	g, ok, err := s.GetGroup(context.Background(), "shop", "checkout", "de")
	if err != nil || !ok {
		t.Fatalf("GetGroup failed: ok=%v err=%v", ok, err)
	}
	if g["submit"] != "Bezahlen" {
		t.Errorf("group mismatch: %v", g)
	}

	mock.ExpectGet("test:shop:de").SetVal(string(testRecord(t, 0)))
	_, ok, err = s.GetGroup(context.Background(), "shop", "nonexistent", "de")
	if err != nil {
		t.Fatalf("absent group should not error: %v", err)
	}
	if ok {
		t.Error("absent group should be a miss")
	}
}

func TestRedisStore_IsCached(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	mock.ExpectGet("test:shop:de").SetVal(string(testRecord(t, 0)))
	ok, err := s.IsCached(context.Background(), "shop", "de")
	if err != nil {
		t.Fatalf("IsCached failed: %v", err)
	}
	if !ok {
		t.Error("IsCached should be true for a live blob")
	}

	mock.ExpectGet("test:shop:de").RedisNil()
	ok, err = s.IsCached(context.Background(), "shop", "de")
	if err != nil {
		t.Fatalf("IsCached failed: %v", err)
	}
	if ok {
		t.Error("IsCached should be false for an absent blob")
	}
}

func TestRedisStore_ClearAll(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	keys := []string{"test:shop:de", "test:shop:fr"}
	mock.ExpectScan(0, "test:*", scanBatchSize).SetVal(keys, 0)
	mock.ExpectDel(keys...).SetVal(int64(len(keys)))

	if err := s.ClearAll(context.Background()); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRedisStore_ClearAll_Empty(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	mock.ExpectScan(0, "test:*", scanBatchSize).SetVal([]string{}, 0)

	// No Del is issued when nothing matched.
	if err := s.ClearAll(context.Background()); err != nil {
		t.Fatalf("ClearAll on empty prefix failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRedisStore_Probe(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	mock.ExpectSet("test:"+probeKeySuffix, "1", 0).SetVal("OK")
	mock.ExpectDel("test:" + probeKeySuffix).SetVal(1)

	if err := s.Probe(context.Background()); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRedisStore_Probe_WriteRefused(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	mock.ExpectSet("test:"+probeKeySuffix, "1", 0).SetErr(errors.New("READONLY You can't write against a read only replica"))

	err := s.Probe(context.Background())
	if !lingocache.IsStorageUnavailable(err) {
		t.Fatalf("expected StorageUnavailableError, got %v", err)
	}
}

func TestRedisStore_Cancellation(t *testing.T) {
	s, mock := newTestRedisStore(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := s.GetProject(ctx, "shop", "de"); !lingocache.IsCancelled(err) {
		t.Errorf("GetProject: expected CancelledError, got %v", err)
	}
	if err := s.SaveProject(ctx, "shop", "de", testPayload()); !lingocache.IsCancelled(err) {
		t.Errorf("SaveProject: expected CancelledError, got %v", err)
	}
	if _, err := s.IsCached(ctx, "shop", "de"); !lingocache.IsCancelled(err) {
		t.Errorf("IsCached: expected CancelledError, got %v", err)
	}
	if err := s.ClearAll(ctx); !lingocache.IsCancelled(err) {
		t.Errorf("ClearAll: expected CancelledError, got %v", err)
	}

	// No command ever reached the client.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRedisStore_ArgumentValidation(t *testing.T) {
	s, _ := newTestRedisStore(t, 0)
	ctx := context.Background()

	var iae *lingocache.InvalidArgumentError
	if _, _, err := s.GetProject(ctx, "", "de"); !errors.As(err, &iae) {
		t.Errorf("expected InvalidArgumentError for empty project, got %v", err)
	}
	if err := s.SaveProject(ctx, "shop", "\t", testPayload()); !errors.As(err, &iae) {
		t.Errorf("expected InvalidArgumentError for blank lang, got %v", err)
	}
	if _, _, err := s.GetGroup(ctx, "shop", "", "de"); !errors.As(err, &iae) {
		t.Errorf("expected InvalidArgumentError for empty group, got %v", err)
	}
}

func TestRedisStore_DefaultKeyPrefix(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	s := NewRedisStoreFromClient(db, 0, "")
	s.now = func() time.Time { return testNow }

	mock.ExpectGet(DefaultKeyPrefix + "shop:de").RedisNil()

	if _, ok, err := s.GetProject(context.Background(), "shop", "de"); err != nil || ok {
		t.Fatalf("expected miss: ok=%v err=%v", ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{URL: "not-a-redis-url"})
	if !lingocache.IsStorageUnavailable(err) {
		t.Fatalf("expected StorageUnavailableError, got %v", err)
	}
}
