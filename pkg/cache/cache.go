// Package cache defines a common caching interface with in-memory and
// Redis-backed implementations.
package cache

import (
	"context"
	"errors"
	"time"

	"waterflow/pkg/config"
)

// Supported backend names.
const (
	// BackendMemory selects the process-local in-memory cache.
	BackendMemory = "memory"
	// BackendRedis selects the Redis-backed cache.
	BackendRedis = "redis"
)

// Errors shared by all cache implementations.
var (
	// ErrKeyNotFound is returned by lookups for keys that are absent or expired.
	ErrKeyNotFound = errors.New("key not found")
	// ErrCacheClosed is returned once Close has been called.
	ErrCacheClosed = errors.New("cache is closed")
)

// Cache is the operation set every backend implements.
type Cache interface {
	// Basic operations

	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key for the given TTL, replacing any
	// previous value and its TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// TTL-aware operations

	// GetWithTTL returns the value together with its remaining lifetime,
	// or ErrKeyNotFound.
	GetWithTTL(ctx context.Context, key string) (value []byte, ttl time.Duration, err error)

	// Batch operations

	// MGet returns the values for the keys that exist; missing keys are
	// simply absent from the result map.
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	// MSet stores every entry with the same TTL.
	MSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
	// MDelete removes the given keys and returns how many were present.
	MDelete(ctx context.Context, keys []string) (int64, error)

	// Pattern operations. Both walk the whole keyspace, so keep the
	// patterns narrow on large caches.

	// Keys returns the keys matching pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// DeleteByPattern removes all keys matching pattern and returns the count.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)

	// Management

	// Stats returns a snapshot of cache counters.
	Stats(ctx context.Context) (*Stats, error)
	// Clear removes every key.
	Clear(ctx context.Context) error
	// Close releases the backend's resources.
	Close() error
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	TotalKeys    int64            // keys currently stored
	Hits         int64            // lookups that found a value
	Misses       int64            // lookups that did not
	HitRate      float64          // hits / (hits + misses)
	MemoryBytes  int64            // approximate memory used by values
	KeysByPrefix map[string]int64 // key counts grouped by prefix, when the backend tracks them
	Backend      string           // backend name, "memory" or "redis"
}

// Options configures a cache built by New.
type Options struct {
	Backend    string        // BackendMemory or BackendRedis
	DefaultTTL time.Duration // lifetime applied when a call passes ttl <= 0

	// Only the memory backend honours these.
	MaxEntries      int           // entry cap before LRU eviction kicks in
	MaxMemoryBytes  int64         // memory cap before LRU eviction kicks in
	CleanupInterval time.Duration // how often expired entries are swept

	// Only the Redis backend honours these.
	RedisAddr     string // host:port of the Redis server
	RedisPassword string
	RedisDB       int
	RedisPoolSize int // connection pool size
}

// DefaultOptions returns options suitable for local development.
func DefaultOptions() *Options {
	return &Options{
		Backend:         BackendMemory,
		DefaultTTL:      5 * time.Minute,
		MaxEntries:      100000,
		MaxMemoryBytes:  256 * 1024 * 1024,
		CleanupInterval: 1 * time.Minute,
		RedisAddr:       "localhost:6379",
		RedisDB:         0,
		RedisPoolSize:   10,
	}
}

// FromConfig переводит секцию конфигурации в опции кэша
func FromConfig(cfg *config.CacheConfig) *Options {
	return &Options{
		Backend:       cfg.Driver,
		DefaultTTL:    cfg.DefaultTTL,
		MaxEntries:    cfg.MaxEntries,
		RedisAddr:     cfg.Address(),
		RedisPassword: cfg.Password,
		RedisDB:       cfg.DB,
		RedisPoolSize: 10,
	}
}

// New собирает кэш по опциям; незнакомый backend трактуется как memory
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	switch opts.Backend {
	case BackendRedis:
		return NewRedisCache(opts)
	case BackendMemory, "":
		return NewMemoryCache(opts), nil
	default:
		return NewMemoryCache(opts), nil
	}
}

// MustNew как New, но паникует при ошибке
func MustNew(opts *Options) Cache {
	c, err := New(opts)
	if err != nil {
		panic(err)
	}
	return c
}
