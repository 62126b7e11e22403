//go:build integration

package pkg_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"waterflow/pkg/ratelimit"
	"waterflow/tests/integration/testutil"
)

func newRedisLimiter(t *testing.T, requests int, window time.Duration) *ratelimit.RedisLimiter {
	t.Helper()
	addr := testutil.RequireRedis(t)

	limiter, err := ratelimit.NewRedisLimiter(&ratelimit.Config{
		Requests:  requests,
		Window:    window,
		RedisAddr: addr,
	})
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	testutil.Cleanup(t, func() { limiter.Close() })
	return limiter
}

func TestRedisLimiter_Basic(t *testing.T) {
	limiter := newRedisLimiter(t, 5, time.Minute)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	key := testutil.UniqueKey(t, "ratelimit")
	limiter.Reset(ctx, key)

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	allowed, _ := limiter.Allow(ctx, key)
	if allowed {
		t.Error("request over the limit should be denied")
	}

	limiter.Reset(ctx, key)
}

func TestRedisLimiter_AllowN(t *testing.T) {
	limiter := newRedisLimiter(t, 10, time.Minute)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	key := testutil.UniqueKey(t, "allowN")
	limiter.Reset(ctx, key)

	allowed, _ := limiter.AllowN(ctx, key, 5)
	if !allowed {
		t.Error("first batch of 5 should be allowed")
	}

	allowed, _ = limiter.AllowN(ctx, key, 5)
	if !allowed {
		t.Error("second batch of 5 should be allowed")
	}

	allowed, _ = limiter.AllowN(ctx, key, 1)
	if allowed {
		t.Error("request over the limit should be denied")
	}

	limiter.Reset(ctx, key)
}

func TestRedisLimiter_GetInfo(t *testing.T) {
	limiter := newRedisLimiter(t, 10, time.Minute)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	key := testutil.UniqueKey(t, "info")
	limiter.Reset(ctx, key)

	limiter.Allow(ctx, key)
	limiter.Allow(ctx, key)
	limiter.Allow(ctx, key)

	info, err := limiter.GetInfo(ctx, key)
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}

	if info.Limit != 10 {
		t.Errorf("Limit = %d, want 10", info.Limit)
	}
	if info.Remaining != 7 {
		t.Errorf("Remaining = %d, want 7", info.Remaining)
	}
	if info.ResetAt.IsZero() {
		t.Error("ResetAt should not be zero")
	}

	limiter.Reset(ctx, key)
}

func TestRedisLimiter_WindowReset(t *testing.T) {
	limiter := newRedisLimiter(t, 3, 500*time.Millisecond)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	key := testutil.UniqueKey(t, "window")
	limiter.Reset(ctx, key)

	for i := 0; i < 3; i++ {
		limiter.Allow(ctx, key)
	}

	allowed, _ := limiter.Allow(ctx, key)
	if allowed {
		t.Error("should be denied before window reset")
	}

	time.Sleep(600 * time.Millisecond)

	allowed, _ = limiter.Allow(ctx, key)
	if !allowed {
		t.Error("should be allowed after window reset")
	}

	limiter.Reset(ctx, key)
}

func TestRedisLimiter_Concurrent(t *testing.T) {
	limiter := newRedisLimiter(t, 100, time.Minute)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	key := testutil.UniqueKey(t, "concurrent")
	limiter.Reset(ctx, key)

	var wg sync.WaitGroup
	var allowed, denied int64

	// при 200 конкурентных запросах пройти должны ровно 100
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := limiter.Allow(ctx, key)
			if ok {
				atomic.AddInt64(&allowed, 1)
			} else {
				atomic.AddInt64(&denied, 1)
			}
		}()
	}

	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed = %d, want 100", allowed)
	}
	if denied != 100 {
		t.Errorf("denied = %d, want 100", denied)
	}

	limiter.Reset(ctx, key)
}

func TestRedisLimiter_Wait_Timeout(t *testing.T) {
	limiter := newRedisLimiter(t, 1, time.Hour)

	key := testutil.UniqueKey(t, "wait_timeout")
	ctx, cancel := testutil.ContextWithDuration(t, 200*time.Millisecond)
	defer cancel()

	limiter.Reset(ctx, key)
	limiter.Allow(ctx, key)

	if err := limiter.Wait(ctx, key); err == nil {
		t.Error("Wait should have timed out")
	}

	limiter.Reset(context.Background(), key)
}

func TestRedisLimiter_MultipleKeys(t *testing.T) {
	limiter := newRedisLimiter(t, 2, time.Minute)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	// лимиты для разных клиентов независимы
	key1 := testutil.UniqueKey(t, "client1")
	key2 := testutil.UniqueKey(t, "client2")

	limiter.Reset(ctx, key1)
	limiter.Reset(ctx, key2)

	limiter.Allow(ctx, key1)
	limiter.Allow(ctx, key1)

	allowed, _ := limiter.Allow(ctx, key1)
	if allowed {
		t.Error("client1 should be rate limited")
	}

	allowed, _ = limiter.Allow(ctx, key2)
	if !allowed {
		t.Error("client2 should be allowed")
	}

	limiter.Reset(ctx, key1)
	limiter.Reset(ctx, key2)
}
