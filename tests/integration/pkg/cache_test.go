//go:build integration

package pkg_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"waterflow/internal/waternet"
	"waterflow/pkg/cache"
	"waterflow/tests/integration/testutil"
)

func newRedisCache(t *testing.T, opts *cache.Options) *cache.RedisCache {
	t.Helper()
	addr := testutil.RequireRedis(t)
	if opts == nil {
		opts = &cache.Options{}
	}
	opts.Backend = "redis"
	opts.RedisAddr = addr

	c, err := cache.NewRedisCache(opts)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	testutil.Cleanup(t, func() { c.Close() })
	return c
}

func diamondNetwork(t *testing.T) *waternet.Network {
	t.Helper()
	nodes := []waternet.Node{
		{ID: "src", Role: waternet.RoleSource},
		{ID: "a"},
		{ID: "b"},
		{ID: "snk", Role: waternet.RoleSink},
	}
	edges := []waternet.Edge{
		{From: "src", To: "a", Capacity: 10},
		{From: "src", To: "b", Capacity: 15},
		{From: "a", To: "snk", Capacity: 10},
		{From: "b", To: "snk", Capacity: 15},
	}
	network, err := waternet.NewNetwork(nodes, edges, "src", "snk")
	if err != nil {
		t.Fatalf("failed to build network: %v", err)
	}
	return network
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c := newRedisCache(t, &cache.Options{DefaultTTL: time.Minute})
	ctx, cancel := testutil.Context(t)
	defer cancel()

	key := testutil.UniqueKey(t, "cache")

	err := c.Set(ctx, key, []byte("test-value"), time.Minute)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "test-value" {
		t.Errorf("value = %s, want test-value", string(val))
	}

	err = c.Delete(ctx, key)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err = c.Get(ctx, key)
	if err != cache.ErrKeyNotFound {
		t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
	}
}

func TestRedisCache_Exists(t *testing.T) {
	c := newRedisCache(t, nil)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	key := testutil.UniqueKey(t, "exists")

	exists, err := c.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("key should not exist initially")
	}

	c.Set(ctx, key, []byte("value"), time.Minute)

	exists, err = c.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("key should exist after set")
	}

	c.Delete(ctx, key)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	c := newRedisCache(t, nil)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	key := testutil.UniqueKey(t, "ttl")

	err := c.Set(ctx, key, []byte("value"), 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	_, err = c.Get(ctx, key)
	if err != nil {
		t.Fatalf("should exist immediately: %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	_, err = c.Get(ctx, key)
	if err != cache.ErrKeyNotFound {
		t.Errorf("expected ErrKeyNotFound after TTL, got %v", err)
	}
}

func TestRedisCache_GetWithTTL(t *testing.T) {
	c := newRedisCache(t, nil)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	key := testutil.UniqueKey(t, "getttl")

	c.Set(ctx, key, []byte("value"), time.Minute)

	val, ttl, err := c.GetWithTTL(ctx, key)
	if err != nil {
		t.Fatalf("GetWithTTL failed: %v", err)
	}
	if string(val) != "value" {
		t.Errorf("value = %s, want value", string(val))
	}
	if ttl < 50*time.Second || ttl > time.Minute {
		t.Errorf("ttl = %v, expected ~1 minute", ttl)
	}

	c.Delete(ctx, key)
}

func TestRedisCache_MOperations(t *testing.T) {
	c := newRedisCache(t, nil)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	prefix := testutil.UniqueKey(t, "mops")

	entries := map[string][]byte{
		prefix + ":1": []byte("v1"),
		prefix + ":2": []byte("v2"),
		prefix + ":3": []byte("v3"),
	}
	err := c.MSet(ctx, entries, time.Minute)
	if err != nil {
		t.Fatalf("MSet failed: %v", err)
	}

	keys := []string{prefix + ":1", prefix + ":2", prefix + ":3", prefix + ":missing"}
	result, err := c.MGet(ctx, keys)
	if err != nil {
		t.Fatalf("MGet failed: %v", err)
	}

	if len(result) != 3 {
		t.Errorf("MGet returned %d keys, want 3", len(result))
	}
	if string(result[prefix+":1"]) != "v1" {
		t.Errorf("result[:1] = %s, want v1", string(result[prefix+":1"]))
	}

	count, err := c.MDelete(ctx, []string{prefix + ":1", prefix + ":2", prefix + ":3"})
	if err != nil {
		t.Fatalf("MDelete failed: %v", err)
	}
	if count != 3 {
		t.Errorf("MDelete count = %d, want 3", count)
	}
}

func TestRedisCache_Keys_DeleteByPattern(t *testing.T) {
	c := newRedisCache(t, nil)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	prefix := testutil.UniqueKey(t, "pattern")

	c.Set(ctx, prefix+":a:1", []byte("1"), time.Minute)
	c.Set(ctx, prefix+":a:2", []byte("2"), time.Minute)
	c.Set(ctx, prefix+":b:1", []byte("3"), time.Minute)

	keys, err := c.Keys(ctx, prefix+":a:*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Keys returned %d, want 2", len(keys))
	}

	count, err := c.DeleteByPattern(ctx, prefix+":*")
	if err != nil {
		t.Fatalf("DeleteByPattern failed: %v", err)
	}
	if count != 3 {
		t.Errorf("DeleteByPattern count = %d, want 3", count)
	}

	keys, _ = c.Keys(ctx, prefix+":*")
	if len(keys) != 0 {
		t.Errorf("should have 0 keys after delete, got %d", len(keys))
	}
}

func TestRedisCache_Stats(t *testing.T) {
	c := newRedisCache(t, nil)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.Backend != "redis" {
		t.Errorf("Backend = %s, want redis", stats.Backend)
	}
	if stats.TotalKeys < 0 {
		t.Error("TotalKeys should not be negative")
	}
}

func TestRedisCache_Clear(t *testing.T) {
	// Отдельная база, чтобы не задеть чужие ключи
	c := newRedisCache(t, &cache.Options{RedisDB: 15})
	ctx, cancel := testutil.Context(t)
	defer cancel()

	for i := 0; i < 10; i++ {
		c.Set(ctx, fmt.Sprintf("clear:key:%d", i), []byte("value"), time.Minute)
	}

	err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stats, _ := c.Stats(ctx)
	if stats.TotalKeys != 0 {
		t.Errorf("TotalKeys = %d after clear, want 0", stats.TotalKeys)
	}
}

func TestRedisCache_Concurrent(t *testing.T) {
	c := newRedisCache(t, &cache.Options{RedisPoolSize: 20})
	ctx, cancel := testutil.Context(t)
	defer cancel()

	prefix := testutil.UniqueKey(t, "concurrent")

	var wg sync.WaitGroup
	errors := make(chan error, 200)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("%s:%d", prefix, id)
			if err := c.Set(ctx, key, []byte(fmt.Sprintf("value-%d", id)), time.Minute); err != nil {
				errors <- fmt.Errorf("set %d: %w", id, err)
			}
		}(i)
	}

	wg.Wait()

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("%s:%d", prefix, id)
			val, err := c.Get(ctx, key)
			if err != nil {
				errors <- fmt.Errorf("get %d: %w", id, err)
				return
			}
			expected := fmt.Sprintf("value-%d", id)
			if string(val) != expected {
				errors <- fmt.Errorf("value mismatch for %d: got %s, want %s", id, string(val), expected)
			}
		}(i)
	}

	wg.Wait()
	close(errors)

	for err := range errors {
		t.Error(err)
	}

	c.DeleteByPattern(ctx, prefix+":*")
}

func TestRedisCache_SolveCache(t *testing.T) {
	c := newRedisCache(t, nil)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	solveCache := cache.NewSolveCache(c, 5*time.Minute)
	network := diamondNetwork(t)

	result := &cache.CachedSolveResult{
		Value:      25,
		Algorithm:  string(waternet.BlockingFlow),
		Iterations: 2,
		Reason:     "converged",
		DurationMs: 0.8,
		FlowEdges: []*cache.FlowEdgeCache{
			{From: "src", To: "a", Flow: 10},
			{From: "src", To: "b", Flow: 15},
			{From: "a", To: "snk", Flow: 10},
			{From: "b", To: "snk", Flow: 15},
		},
	}

	err := solveCache.Set(ctx, network, waternet.BlockingFlow, nil, result, 0)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, found, err := solveCache.Get(ctx, network, waternet.BlockingFlow, nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("expected to find cached result")
	}
	if got.Value != 25 {
		t.Errorf("Value = %f, want 25", got.Value)
	}
	if len(got.FlowEdges) != 4 {
		t.Errorf("FlowEdges = %d, want 4", len(got.FlowEdges))
	}

	// Другой алгоритм кэшируется отдельно
	_, found, _ = solveCache.Get(ctx, network, waternet.AugmentingPath, nil)
	if found {
		t.Error("should not find result for different algorithm")
	}

	err = solveCache.Invalidate(ctx, network)
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	_, found, _ = solveCache.Get(ctx, network, waternet.BlockingFlow, nil)
	if found {
		t.Error("should not find result after invalidate")
	}
}
