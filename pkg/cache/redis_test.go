package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

// Полный прогон Redis бэкенда живёт в tests/integration; здесь только
// smoke-тесты, gated переменной окружения.
func redisTestCache(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis tests")
	}

	c, err := NewRedisCache(&Options{
		Backend:       "redis",
		RedisAddr:     addr,
		RedisPassword: os.Getenv("REDIS_TEST_PASSWORD"),
		DefaultTTL:    time.Minute,
	})
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisCache_RoundTrip(t *testing.T) {
	c := redisTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "smoke-key", []byte("smoke-value"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	defer c.Delete(ctx, "smoke-key")

	val, err := c.Get(ctx, "smoke-key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(val) != "smoke-value" {
		t.Errorf("Get() = %s, want smoke-value", val)
	}
}

func TestRedisCache_Miss(t *testing.T) {
	c := redisTestCache(t)

	if _, err := c.Get(context.Background(), "no-such-key"); err != ErrKeyNotFound {
		t.Errorf("Get() error = %v, want ErrKeyNotFound", err)
	}
}

func TestInfoCounter(t *testing.T) {
	info := "# Stats\r\nkeyspace_hits:42\r\nkeyspace_misses:7\r\nused_memory:1024\r\n"

	if got := infoCounter(info, "keyspace_hits"); got != 42 {
		t.Errorf("keyspace_hits = %d, want 42", got)
	}
	if got := infoCounter(info, "keyspace_misses"); got != 7 {
		t.Errorf("keyspace_misses = %d, want 7", got)
	}
	if got := infoCounter(info, "absent_field"); got != 0 {
		t.Errorf("absent field = %d, want 0", got)
	}
}
