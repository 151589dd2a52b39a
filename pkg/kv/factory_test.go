package kv_test

import (
	"context"
	"testing"

	"github.com/leafsii/leafsii-cms/pkg/kv"
	_ "github.com/leafsii/leafsii-cms/pkg/kv/memory"
	_ "github.com/leafsii/leafsii-cms/pkg/kv/redis"
)

func TestNewStoreFromConfigMemory(t *testing.T) {
	store, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
	if err != nil {
		t.Fatalf("NewStoreFromConfig failed: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestNewStoreFromConfigFallsBackToMemory(t *testing.T) {
	var logged []string
	store, err := kv.NewStoreFromConfig(kv.Config{
		Backend:  kv.BackendRedis,
		RedisURL: "redis://127.0.0.1:1/0",
		Logger: func(msg string, fields ...any) {
			logged = append(logged, msg)
		},
	})
	if err != nil {
		t.Fatalf("NewStoreFromConfig failed: %v", err)
	}
	defer store.Close()

	if err := store.SetString(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Fallback store should accept writes: %v", err)
	}
	if len(logged) == 0 {
		t.Error("Expected the fallback to be logged")
	}
}

func TestNewStoreFromConfigRejects(t *testing.T) {
	if _, err := kv.NewStoreFromConfig(kv.Config{Backend: "etcd"}); err == nil {
		t.Error("Expected unsupported backend error")
	}
	if _, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendRedis}); err == nil {
		t.Error("Expected missing URL error")
	}
}
