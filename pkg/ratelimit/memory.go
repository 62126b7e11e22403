package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter лимитер в памяти процесса, для одного экземпляра сервиса
type MemoryLimiter struct {
	mu     sync.RWMutex
	states map[string]*keyState
	config *Config
	stop   chan struct{}
	closed bool
}

// keyState состояние лимита по одному ключу. Для token bucket значим
// tokens/refillAt, для sliding window — журнал hits.
type keyState struct {
	tokens   float64
	refillAt time.Time
	hits     []time.Time
}

// NewMemoryLimiter создаёт лимитер и запускает фоновую чистку ключей
func NewMemoryLimiter(cfg *Config) *MemoryLimiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &MemoryLimiter{
		states: make(map[string]*keyState),
		config: cfg,
		stop:   make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.AllowN(ctx, key, 1)
}

func (l *MemoryLimiter) AllowN(ctx context.Context, key string, n int) (bool, error) {
	if l.closed {
		return false, ErrLimiterClosed
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[key]
	if !ok {
		st = &keyState{
			tokens:   float64(l.config.Requests + l.config.BurstSize),
			refillAt: time.Now(),
		}
		l.states[key] = st
	}

	if l.config.Strategy == "token_bucket" {
		return l.takeTokens(st, n), nil
	}
	// sliding_window — стратегия по умолчанию
	return l.recordHits(st, n), nil
}

// takeTokens восполняет bucket по прошедшему времени и списывает n токенов
func (l *MemoryLimiter) takeTokens(st *keyState, n int) bool {
	now := time.Now()
	elapsed := now.Sub(st.refillAt)
	st.refillAt = now

	rate := float64(l.config.Requests) / l.config.Window.Seconds()
	st.tokens += elapsed.Seconds() * rate

	if limit := float64(l.config.Requests + l.config.BurstSize); st.tokens > limit {
		st.tokens = limit
	}

	if st.tokens < float64(n) {
		return false
	}
	st.tokens -= float64(n)
	return true
}

// recordHits отбрасывает hits за пределами окна и дописывает n новых
func (l *MemoryLimiter) recordHits(st *keyState, n int) bool {
	now := time.Now()
	st.hits = trimBefore(st.hits, now.Add(-l.config.Window))

	if len(st.hits)+n > l.config.Requests {
		return false
	}
	for i := 0; i < n; i++ {
		st.hits = append(st.hits, now)
	}
	return true
}

// trimBefore оставляет только отметки после cutoff
func trimBefore(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func (l *MemoryLimiter) Wait(ctx context.Context, key string) error {
	for {
		allowed, err := l.Allow(ctx, key)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (l *MemoryLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	delete(l.states, key)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLimiter) GetInfo(ctx context.Context, key string) (*LimitInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	info := &LimitInfo{
		Limit:     l.config.Requests,
		Remaining: l.config.Requests,
		ResetAt:   time.Now().Add(l.config.Window),
	}

	st, ok := l.states[key]
	if !ok {
		return info, nil
	}

	if l.config.Strategy == "token_bucket" {
		info.Remaining = int(st.tokens)
	} else {
		cutoff := time.Now().Add(-l.config.Window)
		inWindow := 0
		for _, t := range st.hits {
			if t.After(cutoff) {
				inWindow++
			}
		}
		info.Remaining = l.config.Requests - inWindow
	}

	if info.Remaining < 0 {
		info.Remaining = 0
	}
	return info, nil
}

func (l *MemoryLimiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	close(l.stop)
	l.states = nil

	return nil
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.dropStale()
		}
	}
}

// dropStale убирает ключи, не встречавшиеся два окна подряд, и подрезает журналы
func (l *MemoryLimiter) dropStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.config.Window * 2)

	for key, st := range l.states {
		if len(st.hits) == 0 && st.refillAt.Before(cutoff) {
			delete(l.states, key)
			continue
		}
		st.hits = trimBefore(st.hits, cutoff)
	}
}
