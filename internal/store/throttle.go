package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/leafsii/leafsii-cms/pkg/kv"
)

const KeyLoginFailures = "cms:login:failures"

// LoginThrottle counts failed logins per key inside a fixed window
type LoginThrottle struct {
	kv     kv.Store
	max    int64
	window time.Duration
}

func NewLoginThrottle(store kv.Store, maxAttempts int, window time.Duration) *LoginThrottle {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginThrottle{kv: store, max: int64(maxAttempts), window: window}
}

func throttleKey(key string) string {
	return fmt.Sprintf("%s:%s", KeyLoginFailures, key)
}

// Allow reports whether another attempt is permitted. A zero limit disables throttling.
func (t *LoginThrottle) Allow(ctx context.Context, key string) (bool, error) {
	if t.max <= 0 {
		return true, nil
	}
	v, err := t.kv.GetString(ctx, throttleKey(key))
	if errors.Is(err, kv.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return true, nil
	}
	return n < t.max, nil
}

// Fail records a failed attempt. The window starts at the first failure.
func (t *LoginThrottle) Fail(ctx context.Context, key string) (int64, error) {
	k := throttleKey(key)
	n, err := t.kv.IncrBy(ctx, k, 1)
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if _, err := t.kv.Expire(ctx, k, t.window); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Reset clears the counter after a successful login
func (t *LoginThrottle) Reset(ctx context.Context, key string) error {
	_, err := t.kv.Del(ctx, throttleKey(key))
	return err
}
