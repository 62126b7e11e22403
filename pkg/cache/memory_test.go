package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(&Options{
		DefaultTTL: 1 * time.Minute,
		MaxEntries: 100,
	})
	defer c.Close()

	ctx := context.Background()

	if err := c.Set(ctx, "solve:result", []byte("payload"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, "solve:result")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("value = %s, want payload", got)
	}

	if err := c.Delete(ctx, "solve:result"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "solve:result"); err != ErrKeyNotFound {
		t.Errorf("after delete: err = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryCache_GetMiss(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()

	if _, err := c.Get(context.Background(), "missing"); err != ErrKeyNotFound {
		t.Errorf("err = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryCache_Exists(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()

	exists, err := c.Exists(ctx, "k")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("key should not exist before Set")
	}

	c.Set(ctx, "k", []byte("v"), 0)

	exists, err = c.Exists(ctx, "k")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("key should exist after Set")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(&Options{
		DefaultTTL:      100 * time.Millisecond,
		CleanupInterval: 50 * time.Millisecond,
	})
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), 100*time.Millisecond)

	if _, err := c.Get(ctx, "k"); err != nil {
		t.Fatalf("key should be visible before expiry: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	if _, err := c.Get(ctx, "k"); err != ErrKeyNotFound {
		t.Errorf("after expiry: err = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryCache_GetWithTTL(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()
	ttl := 5 * time.Minute
	c.Set(ctx, "k", []byte("v"), ttl)

	val, left, err := c.GetWithTTL(ctx, "k")
	if err != nil {
		t.Fatalf("GetWithTTL failed: %v", err)
	}
	if string(val) != "v" {
		t.Errorf("value = %s, want v", val)
	}
	if left < 4*time.Minute || left > ttl {
		t.Errorf("remaining ttl = %v, want close to %v", left, ttl)
	}
}

func TestMemoryCache_MOperations(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()

	err := c.MSet(ctx, map[string][]byte{
		"net:a": []byte("1"),
		"net:b": []byte("2"),
		"net:c": []byte("3"),
	}, 0)
	if err != nil {
		t.Fatalf("MSet failed: %v", err)
	}

	got, err := c.MGet(ctx, []string{"net:a", "net:b", "net:missing"})
	if err != nil {
		t.Fatalf("MGet failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("MGet returned %d entries, want 2", len(got))
	}
	if string(got["net:a"]) != "1" {
		t.Errorf("net:a = %s, want 1", got["net:a"])
	}

	count, err := c.MDelete(ctx, []string{"net:a", "net:b", "net:missing"})
	if err != nil {
		t.Fatalf("MDelete failed: %v", err)
	}
	if count != 2 {
		t.Errorf("MDelete count = %d, want 2", count)
	}

	if exists, _ := c.Exists(ctx, "net:c"); !exists {
		t.Error("net:c should survive MDelete of other keys")
	}
}

func TestMemoryCache_KeysAndPatternDelete(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()

	c.Set(ctx, "solve:h1:blocking_flow", []byte("1"), 0)
	c.Set(ctx, "solve:h1:preflow_push", []byte("2"), 0)
	c.Set(ctx, "runs:42", []byte("3"), 0)

	keys, err := c.Keys(ctx, "solve:*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Keys returned %d, want 2", len(keys))
	}

	count, err := c.DeleteByPattern(ctx, "solve:*")
	if err != nil {
		t.Fatalf("DeleteByPattern failed: %v", err)
	}
	if count != 2 {
		t.Errorf("DeleteByPattern count = %d, want 2", count)
	}

	if exists, _ := c.Exists(ctx, "runs:42"); !exists {
		t.Error("runs:42 should survive the pattern delete")
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()

	c.Set(ctx, "k1", []byte("v1"), 0)
	c.Set(ctx, "k2", []byte("v2"), 0)

	c.Get(ctx, "k1")
	c.Get(ctx, "k1")
	c.Get(ctx, "missing")

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.TotalKeys != 2 {
		t.Errorf("TotalKeys = %d, want 2", stats.TotalKeys)
	}
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Backend != "memory" {
		t.Errorf("Backend = %s, want memory", stats.Backend)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stats, _ := c.Stats(ctx)
	if stats.TotalKeys != 0 {
		t.Errorf("TotalKeys = %d after Clear, want 0", stats.TotalKeys)
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryCache(&Options{
		MaxEntries: 3,
		DefaultTTL: time.Minute,
	})
	defer c.Close()

	ctx := context.Background()

	c.Set(ctx, "k1", []byte("v1"), 0)
	time.Sleep(10 * time.Millisecond)
	c.Set(ctx, "k2", []byte("v2"), 0)
	time.Sleep(10 * time.Millisecond)
	c.Set(ctx, "k3", []byte("v3"), 0)

	// обращение к k1 делает самым давним k2
	c.Get(ctx, "k1")

	c.Set(ctx, "k4", []byte("v4"), 0)

	if _, err := c.Get(ctx, "k2"); err != ErrKeyNotFound {
		t.Error("k2 should have been evicted")
	}
	if _, err := c.Get(ctx, "k1"); err != nil {
		t.Errorf("k1 should survive eviction: %v", err)
	}
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(nil)

	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), 0)

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := c.Get(ctx, "k"); err != ErrCacheClosed {
		t.Errorf("after Close: err = %v, want ErrCacheClosed", err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("second Close should be a no-op: %v", err)
	}
}

func TestKeyMatches(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"*", "anything", true},
		{"solve:*", "solve:abc", true},
		{"solve:*", "runs:abc", false},
		{"*:stats", "user:stats", true},
		{"*:stats", "user:other", false},
		{"exact", "exact", true},
		{"exact", "other", false},
		{"solve:*:h1", "solve:blocking_flow:h1", true},
		{"solve:*:h1", "sweep:blocking_flow:h1", false},
		{"solve:*:h1", "solve:blocking_flow:h2", false},
		{"solve:*:h1", "solve::h1", true},
		{"prefix*suffix", "presuf", false},
		{"a*b", "ab", true},
		{"a*b", "axb", true},
	}

	for _, tt := range tests {
		name := tt.pattern + " vs " + tt.key
		t.Run(name, func(t *testing.T) {
			if got := keyMatches(tt.pattern, tt.key); got != tt.want {
				t.Errorf("keyMatches(%q, %q) = %v, want %v", tt.pattern, tt.key, got, tt.want)
			}
		})
	}
}

func TestKeyPrefix(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"solve:key", "solve"},
		{"bare", "other"},
		{"a:b:c", "a"},
	}

	for _, tt := range tests {
		if got := keyPrefix(tt.key); got != tt.want {
			t.Errorf("keyPrefix(%s) = %s, want %s", tt.key, got, tt.want)
		}
	}
}
