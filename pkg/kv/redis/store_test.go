package redis

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/leafsii/leafsii-cms/pkg/kv"
	"github.com/leafsii/leafsii-cms/pkg/kv/kvtest"
	"github.com/redis/go-redis/v9"
)

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set, skipping Redis tests")
	}

	factory := func(t *testing.T) kv.Store {
		store, err := New(redisURL)
		if err != nil {
			t.Fatalf("Failed to create Redis store: %v", err)
		}

		store.Del(context.Background(), "test:bytes", "test:string", "test:overwrite", "test:a", "test:b",
			"test:ttl", "test:short", "test:counter", "test:text")
		return store
	}

	kvtest.RunConformanceTests(t, factory)
}

func TestParseOptions(t *testing.T) {
	opt, err := ParseOptions("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("ParseOptions failed: %v", err)
	}
	if opt.Addr != "localhost:6380" || opt.DB != 2 || opt.Password != "secret" {
		t.Errorf("Unexpected options: %+v", opt)
	}

	opt, err = ParseOptions("cache.internal:6379/3")
	if err != nil {
		t.Fatalf("ParseOptions failed for bare address: %v", err)
	}
	if opt.Addr != "cache.internal:6379" || opt.DB != 3 {
		t.Errorf("Unexpected options: %+v", opt)
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"redis nil", redis.Nil, false},
		{"canceled", context.Canceled, false},
		{"refused", syscall.ECONNREFUSED, true},
		{"message", errors.New("dial tcp: connection refused"), true},
		{"other", errors.New("WRONGTYPE Operation against a key"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConnectionError(tt.err); got != tt.want {
				t.Errorf("IsConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	if err := wrapError(redis.Nil); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := wrapError(syscall.ECONNRESET); !errors.Is(err, kv.ErrBackendUnavailable) {
		t.Errorf("Expected ErrBackendUnavailable, got %v", err)
	}
}
