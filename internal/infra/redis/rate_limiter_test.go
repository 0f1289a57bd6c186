//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRedis struct {
	counts  map[string]int64
	expires map[string]time.Duration
	incrErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }
func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}
func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) { return "", nil }
func (f *fakeRedis) Incr(ctx context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counts[key]++
	return f.counts[key], nil
}
func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	f.expires[key] = expiration
	return nil
}
func (f *fakeRedis) Del(ctx context.Context, keys ...string) error { return nil }
func (f *fakeRedis) Close() error                                  { return nil }

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("blocks after the limit within a window", func(t *testing.T) {
		fr := newFakeRedis()
		rl := NewRateLimiter(fr)
		key := UserActionKey(42, "cb:userset")
		for i := 1; i <= 3; i++ {
			ok, err := rl.Allow(ctx, key, 3, time.Minute)
			if err != nil || !ok {
				t.Fatalf("hit %d: ok=%v err=%v", i, ok, err)
			}
		}
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || ok {
			t.Fatalf("fourth hit allowed: ok=%v err=%v", ok, err)
		}
		if fr.expires[key] != time.Minute {
			t.Fatalf("window not set on first hit: %v", fr.expires[key])
		}
	})

	t.Run("keys are per user", func(t *testing.T) {
		fr := newFakeRedis()
		rl := NewRateLimiter(fr)
		_, _ = rl.Allow(ctx, UserActionKey(1, "cmd:/usetting"), 1, time.Minute)
		ok, _ := rl.Allow(ctx, UserActionKey(2, "cmd:/usetting"), 1, time.Minute)
		if !ok {
			t.Fatal("another user's hits counted")
		}
	})

	t.Run("redis errors are returned", func(t *testing.T) {
		fr := newFakeRedis()
		fr.incrErr = errors.New("connection refused")
		if _, err := NewRateLimiter(fr).Allow(ctx, "k", 1, time.Minute); err == nil {
			t.Fatal("expected error")
		}
	})
}
