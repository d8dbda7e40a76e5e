package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache provides in-memory caching with TTL and invalidation support.
// Used when Redis is not configured.
type MemoryCache struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	done  chan struct{}
	once  sync.Once
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryCache creates a new cache and starts the cleanup goroutine.
func NewMemoryCache(cleanupEvery time.Duration) *MemoryCache {
	mc := &MemoryCache{
		cache: make(map[string]*cacheEntry),
		done:  make(chan struct{}),
	}
	if cleanupEvery <= 0 {
		cleanupEvery = 5 * time.Minute
	}
	go mc.cleanup(cleanupEvery)
	return mc
}

// Get retrieves a value from cache.
func (mc *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	entry, exists := mc.cache[key]
	if !exists || time.Now().After(entry.expiresAt) {
		// Expired entries are removed by cleanup
		return nil, false, nil
	}
	return entry.data, true, nil
}

// Set stores a value in cache with TTL.
func (mc *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes keys from cache.
func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		delete(mc.cache, key)
	}
	return nil
}

// Ping always succeeds for the in-process cache.
func (mc *MemoryCache) Ping(context.Context) error {
	return nil
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() { close(mc.done) })
	return nil
}

// cleanup removes expired entries periodically.
func (mc *MemoryCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-mc.done:
			return
		case <-ticker.C:
			mc.mu.Lock()
			now := time.Now()
			for key, entry := range mc.cache {
				if now.After(entry.expiresAt) {
					delete(mc.cache, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}
