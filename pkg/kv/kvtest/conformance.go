// Package kvtest provides conformance tests for kv.Store implementations
package kvtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leafsii/leafsii-cms/pkg/kv"
)

// StoreFactory creates a fresh Store instance for testing
type StoreFactory func(t *testing.T) kv.Store

// RunConformanceTests runs all conformance tests against a Store implementation
func RunConformanceTests(t *testing.T, factory StoreFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, store kv.Store)
	}{
		{"SetGet", testSetGet},
		{"GetNonExistent", testGetNonExistent},
		{"SetOverwritesTTL", testSetOverwritesTTL},
		{"DelExists", testDelExists},
		{"ExpireAndTTL", testExpireAndTTL},
		{"ValueExpires", testValueExpires},
		{"IncrBy", testIncrBy},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			tt.test(t, store)
		})
	}
}

func testSetGet(t *testing.T, store kv.Store) {
	ctx := context.Background()

	if err := store.Set(ctx, "test:bytes", []byte("hello world")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, err := store.Get(ctx, "test:bytes")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(value) != "hello world" {
		t.Errorf("Expected 'hello world', got %q", value)
	}

	if err := store.SetString(ctx, "test:string", "value", time.Minute); err != nil {
		t.Fatalf("SetString failed: %v", err)
	}
	s, err := store.GetString(ctx, "test:string")
	if err != nil {
		t.Fatalf("GetString failed: %v", err)
	}
	if s != "value" {
		t.Errorf("Expected 'value', got %q", s)
	}
}

func testGetNonExistent(t *testing.T, store kv.Store) {
	ctx := context.Background()

	if _, err := store.Get(ctx, "test:missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetString(ctx, "test:missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.TTL(ctx, "test:missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from TTL, got %v", err)
	}
}

func testSetOverwritesTTL(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:overwrite"

	if err := store.Set(ctx, key, []byte("a"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, key, []byte("b")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ttl, err := store.TTL(ctx, key)
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl >= 0 {
		t.Errorf("Expected no expiration after plain Set, got %v", ttl)
	}
}

func testDelExists(t *testing.T, store kv.Store) {
	ctx := context.Background()

	store.Set(ctx, "test:a", []byte("1"))
	store.Set(ctx, "test:b", []byte("2"))

	n, err := store.Exists(ctx, "test:a", "test:b", "test:c")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 existing keys, got %d", n)
	}

	deleted, err := store.Del(ctx, "test:a", "test:c")
	if err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted key, got %d", deleted)
	}

	if _, err := store.Get(ctx, "test:a"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Expected deleted key to be gone, got %v", err)
	}
}

func testExpireAndTTL(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:ttl"

	ok, err := store.Expire(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if ok {
		t.Error("Expire on a missing key should report false")
	}

	store.Set(ctx, key, []byte("v"))
	ok, err = store.Expire(ctx, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("Expire failed: ok=%v err=%v", ok, err)
	}

	ttl, err := store.TTL(ctx, key)
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("Expected TTL within (0, 1m], got %v", ttl)
	}
}

func testValueExpires(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:short"

	if err := store.Set(ctx, key, []byte("v"), 50*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(120 * time.Millisecond)

	if _, err := store.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Expected expired key to be gone, got %v", err)
	}
	n, _ := store.Exists(ctx, key)
	if n != 0 {
		t.Errorf("Expected expired key not to exist, got %d", n)
	}
}

func testIncrBy(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:counter"

	v, err := store.IncrBy(ctx, key, 1)
	if err != nil {
		t.Fatalf("IncrBy failed: %v", err)
	}
	if v != 1 {
		t.Errorf("Expected 1, got %d", v)
	}

	v, err = store.IncrBy(ctx, key, 4)
	if err != nil {
		t.Fatalf("IncrBy failed: %v", err)
	}
	if v != 5 {
		t.Errorf("Expected 5, got %d", v)
	}

	store.Set(ctx, "test:text", []byte("abc"))
	if _, err := store.IncrBy(ctx, "test:text", 1); err == nil {
		t.Error("Expected IncrBy on a non-integer value to fail")
	}
}

func testPing(t *testing.T, store kv.Store) {
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
