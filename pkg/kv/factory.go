package kv

import (
	"context"
	"fmt"
	"time"
)

// Backend represents the storage backend type
type Backend string

const (
	// BackendMemory uses the in-memory store
	BackendMemory Backend = "memory"
	// BackendRedis uses Redis as the backend
	BackendRedis Backend = "redis"
)

// LogFunc is a function type for structured logging
type LogFunc func(msg string, fields ...any)

// Config holds configuration for creating a Store instance
type Config struct {
	// Backend specifies which storage backend to use
	Backend Backend

	// RedisURL is the connection string for Redis (required when Backend is "redis")
	// Format: redis://localhost:6379/0 or redis://:password@localhost:6379/1
	RedisURL string

	// JanitorInterval controls how often the in-memory store cleans up expired keys.
	// Default: 30 seconds
	JanitorInterval time.Duration

	// StartupProbeTimeout controls how long to wait for Redis at startup.
	// Default: 1 second
	StartupProbeTimeout time.Duration

	// Logger is used for logging fallback events. If nil, no logging occurs.
	Logger LogFunc
}

// StoreFactory defines a function that creates a Store instance
type StoreFactory func(cfg Config) (Store, error)

// factories holds registered store factories
var factories = make(map[Backend]StoreFactory)

// RegisterBackend registers a store factory for a given backend
func RegisterBackend(backend Backend, factory StoreFactory) {
	factories[backend] = factory
}

// NewStoreFromConfig creates a new Store instance based on the provided
// configuration. A Redis backend that cannot be reached at startup is
// replaced by the in-memory store.
func NewStoreFromConfig(cfg Config) (Store, error) {
	if cfg.JanitorInterval == 0 {
		cfg.JanitorInterval = 30 * time.Second
	}
	if cfg.StartupProbeTimeout == 0 {
		cfg.StartupProbeTimeout = 1 * time.Second
	}

	switch cfg.Backend {
	case BackendMemory, "":
		return newBackend(BackendMemory, cfg)
	case BackendRedis:
		return newRedisOrMemory(cfg)
	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: %s, %s)",
			cfg.Backend, BackendMemory, BackendRedis)
	}
}

func newBackend(backend Backend, cfg Config) (Store, error) {
	factory, exists := factories[backend]
	if !exists {
		return nil, fmt.Errorf("%s backend not registered", backend)
	}
	return factory(cfg)
}

func newRedisOrMemory(cfg Config) (Store, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required when backend is 'redis'")
	}

	redisStore, err := newBackend(BackendRedis, cfg)
	if err != nil {
		cfg.log("Redis unavailable at startup; using in-memory store", "error", err.Error())
		return newBackend(BackendMemory, cfg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StartupProbeTimeout)
	defer cancel()

	if err := redisStore.Ping(ctx); err != nil {
		redisStore.Close()
		cfg.log("Redis health check failed at startup; using in-memory store", "error", err.Error())
		return newBackend(BackendMemory, cfg)
	}

	cfg.log("Redis healthy at startup")
	return redisStore, nil
}

func (cfg Config) log(msg string, fields ...any) {
	if cfg.Logger != nil {
		cfg.Logger(msg, fields...)
	}
}
