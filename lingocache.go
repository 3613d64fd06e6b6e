// Package lingocache provides a multi-tier cache for translation payloads.
//
// Lingocache keeps translation payloads fetched from a delivery API close
// to the application: a bounded in-process memory tier in front of a
// durable tier (filesystem or Redis), with read-through promotion,
// write-through saves, and bulk warm-start preloading.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/LingoraLabs/lingocache"
//	    "github.com/LingoraLabs/lingocache/store"
//	)
//
//	func main() {
//	    // Create the durable tier
//	    fs, err := store.NewFileStore(store.FileConfig{
//	        Dir: "/var/cache/lingocache",
//	        TTL: 24 * time.Hour,
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Layer the memory tier on top
//	    cache, err := lingocache.NewHybrid(fs, lingocache.HybridConfig{
//	        Enabled:    true,
//	        MaxEntries: 128,
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Read through both tiers
//	    payload, ok, err := cache.GetProject(context.Background(), "shop", "de")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if !ok {
//	        // fetch from the delivery API, then:
//	        // cache.SaveProject(ctx, "shop", "de", payload)
//	    }
//	    _ = payload
//	}
package lingocache
