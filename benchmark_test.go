package lingocache_test

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/LingoraLabs/lingocache"
	"github.com/LingoraLabs/lingocache/memcache"
	"github.com/LingoraLabs/lingocache/store"
)

// Benchmarks for performance validation

func BenchmarkBuildEntryKey(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lingocache.BuildEntryKey("checkout", "pay_now", "de")
	}
}

func BenchmarkBuildProjectKey(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lingocache.BuildProjectKey("shop", "de")
	}
}

func BenchmarkMemCache_Get(b *testing.B) {
	c := memcache.New[string]()
	c.Set("test-key", "test-value")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("test-key")
	}
}

func BenchmarkMemCache_Set(b *testing.B) {
	c := memcache.New[string]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set("test-key", "test-value")
	}
}

func BenchmarkMemCache_GetPayload(b *testing.B) {
	c := memcache.New[lingocache.Payload]()
	c.Set("project:shop:de", samplePayload())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("project:shop:de")
	}
}

func BenchmarkHybrid_MemoryHit(b *testing.B) {
	mock := store.NewMockStore()
	hybrid, err := lingocache.NewHybrid(mock, lingocache.HybridConfig{
		Enabled: true,
		Logger:  log.New(io.Discard),
	})
	if err != nil {
		b.Fatalf("NewHybrid failed: %v", err)
	}

	ctx := context.Background()
	if err := hybrid.SaveProject(ctx, "shop", "de", samplePayload()); err != nil {
		b.Fatalf("SaveProject failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hybrid.GetProject(ctx, "shop", "de")
	}
}

func BenchmarkHybrid_SaveProject(b *testing.B) {
	mock := store.NewMockStore()
	hybrid, err := lingocache.NewHybrid(mock, lingocache.HybridConfig{
		Enabled: true,
		Logger:  log.New(io.Discard),
	})
	if err != nil {
		b.Fatalf("NewHybrid failed: %v", err)
	}

	ctx := context.Background()
	payload := samplePayload()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hybrid.SaveProject(ctx, "shop", "de", payload)
	}
}

func BenchmarkFileStore_GetProject(b *testing.B) {
	fileStore, err := store.NewFileStore(store.FileConfig{Dir: b.TempDir()})
	if err != nil {
		b.Fatalf("NewFileStore failed: %v", err)
	}

	ctx := context.Background()
	if err := fileStore.SaveProject(ctx, "shop", "de", samplePayload()); err != nil {
		b.Fatalf("SaveProject failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fileStore.GetProject(ctx, "shop", "de")
	}
}
