// Package kv provides a Redis-like key-value store abstraction with in-memory
// and Redis-backed implementations.
//
// The Store interface covers strings, counters and TTLs, which is what the
// session and login-throttle layers need.
//
// Example usage:
//
//	store, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	ctx := context.Background()
//	if err := store.Set(ctx, "session:abc", payload, 2*time.Hour); err != nil {
//		log.Fatal(err)
//	}
//
//	value, err := store.Get(ctx, "session:abc")
//	if errors.Is(err, kv.ErrNotFound) {
//		log.Println("Session expired")
//	}
//
// Backends register themselves from their package init, so binaries import
// pkg/kv/memory and pkg/kv/redis for side effects.
package kv
