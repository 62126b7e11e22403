package ratelimit

import (
	"context"
	"testing"
	"time"
)

func newSlidingLimiter(t *testing.T, requests int, window time.Duration) *MemoryLimiter {
	t.Helper()
	l := NewMemoryLimiter(&Config{
		Requests:        requests,
		Window:          window,
		Strategy:        "sliding_window",
		CleanupInterval: time.Minute,
	})
	t.Cleanup(func() { l.Close() })
	return l
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Requests <= 0 {
		t.Error("Requests must be positive")
	}
	if cfg.Window <= 0 {
		t.Error("Window must be positive")
	}
	if cfg.Strategy == "" {
		t.Error("Strategy must have a default")
	}
}

func TestMemoryLimiter_Allow(t *testing.T) {
	l := newSlidingLimiter(t, 5, time.Second)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := l.Allow(ctx, "pump-1")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}

	allowed, err := l.Allow(ctx, "pump-1")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if allowed {
		t.Error("request over the limit was allowed")
	}
}

func TestMemoryLimiter_AllowN(t *testing.T) {
	l := newSlidingLimiter(t, 10, time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := l.AllowN(ctx, "batch", 5)
		if err != nil {
			t.Fatalf("AllowN: %v", err)
		}
		if !allowed {
			t.Fatalf("batch %d of 5 denied within limit", i+1)
		}
	}

	allowed, err := l.AllowN(ctx, "batch", 1)
	if err != nil {
		t.Fatalf("AllowN: %v", err)
	}
	if allowed {
		t.Error("request 11 of 10 was allowed")
	}
}

func TestMemoryLimiter_Reset(t *testing.T) {
	l := newSlidingLimiter(t, 2, time.Second)
	ctx := context.Background()

	l.Allow(ctx, "client")
	l.Allow(ctx, "client")
	if allowed, _ := l.Allow(ctx, "client"); allowed {
		t.Error("limit not enforced before reset")
	}

	if err := l.Reset(ctx, "client"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if allowed, _ := l.Allow(ctx, "client"); !allowed {
		t.Error("request denied right after reset")
	}
}

func TestMemoryLimiter_GetInfo(t *testing.T) {
	l := newSlidingLimiter(t, 10, time.Minute)
	ctx := context.Background()

	// Для свежего ключа остаток равен лимиту
	info, err := l.GetInfo(ctx, "fresh")
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if info.Limit != 10 || info.Remaining != 10 {
		t.Errorf("fresh key: Limit=%d Remaining=%d, want 10/10", info.Limit, info.Remaining)
	}

	l.Allow(ctx, "fresh")
	l.Allow(ctx, "fresh")

	info, _ = l.GetInfo(ctx, "fresh")
	if info.Remaining != 8 {
		t.Errorf("Remaining = %d, want 8", info.Remaining)
	}
}

func TestMemoryLimiter_TokenBucketBurst(t *testing.T) {
	l := NewMemoryLimiter(&Config{
		Requests:        5,
		Window:          time.Second,
		Strategy:        "token_bucket",
		BurstSize:       2,
		CleanupInterval: time.Minute,
	})
	defer l.Close()

	ctx := context.Background()

	// Ведро стартует полным: Requests + BurstSize токенов
	for i := 0; i < 7; i++ {
		if allowed, _ := l.Allow(ctx, "bursty"); !allowed {
			t.Errorf("request %d denied inside burst capacity", i+1)
		}
	}
}

func TestMemoryLimiter_Close(t *testing.T) {
	l := NewMemoryLimiter(nil)

	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("repeated Close: %v", err)
	}

	if _, err := l.Allow(context.Background(), "key"); err != ErrLimiterClosed {
		t.Errorf("Allow after Close = %v, want ErrLimiterClosed", err)
	}
}

func TestMemoryLimiter_WaitDeadline(t *testing.T) {
	l := newSlidingLimiter(t, 1, 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	l.Allow(ctx, "key")

	// Лимит занят, окно длиннее дедлайна
	if err := l.Wait(ctx, "key"); err != context.DeadlineExceeded {
		t.Errorf("Wait = %v, want DeadlineExceeded", err)
	}
}

func TestNew_BackendSelection(t *testing.T) {
	cases := []struct {
		name string
		cfg  *Config
	}{
		{"memory", &Config{Backend: "memory", Requests: 10, Window: time.Second, CleanupInterval: time.Minute}},
		{"empty backend", &Config{Requests: 10, Window: time.Second, CleanupInterval: time.Minute}},
		{"nil config", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := New(tc.cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer l.Close()

			if _, ok := l.(*MemoryLimiter); !ok {
				t.Errorf("got %T, want *MemoryLimiter", l)
			}
		})
	}
}

func TestKeyExtractors(t *testing.T) {
	ctx := context.Background()
	const route = "/api/v1/solve"

	t.Run("default prefers x-forwarded-for", func(t *testing.T) {
		got := DefaultKeyExtractor(ctx, route, map[string]string{
			"x-forwarded-for": "192.168.1.1",
			"x-real-ip":       "10.0.0.1",
		})
		if got != "192.168.1.1" {
			t.Errorf("key = %q, want 192.168.1.1", got)
		}
	})

	t.Run("default falls back to x-real-ip", func(t *testing.T) {
		got := DefaultKeyExtractor(ctx, route, map[string]string{"x-real-ip": "10.0.0.1"})
		if got != "10.0.0.1" {
			t.Errorf("key = %q, want 10.0.0.1", got)
		}
	})

	t.Run("default without metadata", func(t *testing.T) {
		if got := DefaultKeyExtractor(ctx, route, nil); got != "unknown" {
			t.Errorf("key = %q, want unknown", got)
		}
	})

	t.Run("method", func(t *testing.T) {
		if got := MethodKeyExtractor(ctx, route, nil); got != route {
			t.Errorf("key = %q, want %q", got, route)
		}
	})

	t.Run("user id when present", func(t *testing.T) {
		got := UserKeyExtractor(ctx, route, map[string]string{"x-user-id": "user123"})
		if got != "user123" {
			t.Errorf("key = %q, want user123", got)
		}
	})

	t.Run("user falls back to address", func(t *testing.T) {
		got := UserKeyExtractor(ctx, route, map[string]string{"x-forwarded-for": "1.2.3.4"})
		if got != "1.2.3.4" {
			t.Errorf("key = %q, want 1.2.3.4", got)
		}
	})

	t.Run("composite joins parts", func(t *testing.T) {
		extractor := CompositeKeyExtractor(MethodKeyExtractor, UserKeyExtractor)
		got := extractor(ctx, route, map[string]string{"x-user-id": "user1"})
		if want := route + ":user1:"; got != want {
			t.Errorf("key = %q, want %q", got, want)
		}
	})
}

func TestRateLimitedMethods(t *testing.T) {
	methods := NewRateLimitedMethods(&Config{Requests: 100})

	if got := methods.Get("/no/override"); got.Requests != 100 {
		t.Errorf("default Requests = %d, want 100", got.Requests)
	}

	methods.Set("/api/v1/report", &Config{Requests: 10})
	if got := methods.Get("/api/v1/report"); got.Requests != 10 {
		t.Errorf("override Requests = %d, want 10", got.Requests)
	}
}
