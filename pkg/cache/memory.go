package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache кэш в памяти процесса. Вытеснение по давности обращения,
// просроченные записи убирает фоновый свип.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	defaultTTL time.Duration
	maxEntries int

	hits   atomic.Int64
	misses atomic.Int64

	closed atomic.Bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

type entry struct {
	val      []byte
	expires  time.Time // нулевое время = без срока
	lastUsed time.Time
	size     int64
}

func (e *entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

func (e *entry) ttl(now time.Time) time.Duration {
	if e.expires.IsZero() {
		return -1
	}
	left := e.expires.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// NewMemoryCache создаёт кэш в памяти и запускает фоновый свип
func NewMemoryCache(opts *Options) *MemoryCache {
	if opts == nil {
		opts = DefaultOptions()
	}

	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 100000
	}
	sweep := opts.CleanupInterval
	if sweep <= 0 {
		sweep = 1 * time.Minute
	}

	c := &MemoryCache{
		entries:    make(map[string]*entry),
		defaultTTL: opts.DefaultTTL,
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}

	c.wg.Add(1)
	go c.sweepLoop(sweep)

	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, _, err := c.lookup(key)
	return val, err
}

func (c *MemoryCache) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	return c.lookup(key)
}

// lookup общий путь Get/GetWithTTL: счётчики, отметка обращения, копия значения
func (c *MemoryCache) lookup(key string) ([]byte, time.Duration, error) {
	if c.closed.Load() {
		return nil, 0, ErrCacheClosed
	}

	now := time.Now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(now) {
		c.misses.Add(1)
		return nil, 0, ErrKeyNotFound
	}

	c.hits.Add(1)

	c.mu.Lock()
	e.lastUsed = now
	c.mu.Unlock()

	val := make([]byte, len(e.val))
	copy(val, e.val)
	return val, e.ttl(now), nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	now := time.Now()
	expires := c.expiry(now, ttl)

	c.mu.Lock()
	c.store(key, value, expires, now)
	c.mu.Unlock()

	return nil
}

func (c *MemoryCache) MSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	now := time.Now()
	expires := c.expiry(now, ttl)

	c.mu.Lock()
	for key, value := range entries {
		c.store(key, value, expires, now)
	}
	c.mu.Unlock()

	return nil
}

func (c *MemoryCache) expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// store кладёт копию значения под блокировкой, при переполнении вытесняет
func (c *MemoryCache) store(key string, value []byte, expires, now time.Time) {
	for len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	val := make([]byte, len(value))
	copy(val, value)

	c.entries[key] = &entry{
		val:      val,
		expires:  expires,
		lastUsed: now,
		size:     int64(len(val)),
	}
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}

	now := time.Now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	return ok && !e.expired(now), nil
}

func (c *MemoryCache) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	result := make(map[string][]byte, len(keys))
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		e, ok := c.entries[key]
		if !ok || e.expired(now) {
			c.misses.Add(1)
			continue
		}
		c.hits.Add(1)
		e.lastUsed = now

		val := make([]byte, len(e.val))
		copy(val, e.val)
		result[key] = val
	}

	return result, nil
}

func (c *MemoryCache) MDelete(ctx context.Context, keys []string) (int64, error) {
	if c.closed.Load() {
		return 0, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var count int64
	for _, key := range keys {
		if _, ok := c.entries[key]; ok {
			delete(c.entries, key)
			count++
		}
	}

	return count, nil
}

func (c *MemoryCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	now := time.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	var keys []string
	for key, e := range c.entries {
		if !e.expired(now) && keyMatches(pattern, key) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (c *MemoryCache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	if c.closed.Load() {
		return 0, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var count int64
	for key := range c.entries {
		if keyMatches(pattern, key) {
			delete(c.entries, key)
			count++
		}
	}

	return count, nil
}

func (c *MemoryCache) Stats(ctx context.Context) (*Stats, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	now := time.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := &Stats{
		TotalKeys:    int64(len(c.entries)),
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		KeysByPrefix: make(map[string]int64),
		Backend:      "memory",
	}

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	for key, e := range c.entries {
		if e.expired(now) {
			continue
		}
		stats.MemoryBytes += e.size
		stats.KeysByPrefix[keyPrefix(key)]++
	}

	return stats, nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	return nil
}

func (c *MemoryCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.stop)
	c.wg.Wait()

	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()

	return nil
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryCache) sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
}

// evictOldest убирает запись с самым давним обращением. Вызывать под блокировкой.
func (c *MemoryCache) evictOldest() {
	var victim string
	var oldest time.Time

	for key, e := range c.entries {
		if victim == "" || e.lastUsed.Before(oldest) {
			victim = key
			oldest = e.lastUsed
		}
	}

	if victim != "" {
		delete(c.entries, victim)
	}
}

// keyMatches сопоставляет ключ с паттерном, поддерживается одна звёздочка:
// "*", "prefix*", "*suffix", "prefix*suffix". Без звёздочки — точное совпадение.
func keyMatches(pattern, key string) bool {
	if pattern == "*" {
		return true
	}

	star := strings.Index(pattern, "*")
	if star == -1 {
		return pattern == key
	}

	prefix := pattern[:star]
	suffix := pattern[star+1:]

	if len(key) < len(prefix)+len(suffix) {
		return false
	}
	return strings.HasPrefix(key, prefix) && strings.HasSuffix(key, suffix)
}

// keyPrefix сегмент ключа до первого ":", для раскладки статистики
func keyPrefix(key string) string {
	if idx := strings.Index(key, ":"); idx > 0 {
		return key[:idx]
	}
	return "other"
}
