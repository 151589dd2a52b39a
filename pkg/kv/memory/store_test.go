package memory

import (
	"context"
	"testing"
	"time"

	"github.com/leafsii/leafsii-cms/pkg/kv"
	"github.com/leafsii/leafsii-cms/pkg/kv/kvtest"
)

func TestMemoryStore(t *testing.T) {
	factory := func(t *testing.T) kv.Store {
		return New(0) // Disable janitor for deterministic tests
	}

	kvtest.RunConformanceTests(t, factory)
}

func TestMemoryStoreWithJanitor(t *testing.T) {
	store := New(10 * time.Millisecond)
	defer store.Close()

	ctx := context.Background()
	key := "test:janitor"

	if err := store.Set(ctx, key, []byte("test"), 20*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	store.mu.RLock()
	_, present := store.values[key]
	store.mu.RUnlock()
	if present {
		t.Fatal("Expected janitor to evict the expired key")
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := New(0)
	defer store.Close()

	ctx := context.Background()
	buf := []byte("abc")
	store.Set(ctx, "k", buf)
	buf[0] = 'x'

	got, _ := store.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("Expected stored value to be isolated from caller, got %q", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	store := New(time.Second)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}
