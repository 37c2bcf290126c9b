package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/core"
)

type cacheItem[T any] struct {
	value     T
	expiresAt time.Time
}

var _ core.Cache[struct{}] = (*MemoryCache[struct{}])(nil)

// MemoryCache keeps values in process. Expired entries are dropped when read.
// Suitable for single-instance deployments.
type MemoryCache[T any] struct {
	mu    sync.Mutex
	items map[string]cacheItem[T]

	// guards concurrent fetches of the same key
	inflight map[string]*fetchCall[T]
}

type fetchCall[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{
		items:    make(map[string]cacheItem[T]),
		inflight: make(map[string]*fetchCall[T]),
	}
}

func (m *MemoryCache[T]) Get(ctx context.Context, key string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(key)
}

func (m *MemoryCache[T]) getLocked(key string) (T, error) {
	var zero T
	item, exists := m.items[key]
	if !exists {
		return zero, ErrCacheMiss
	}
	if time.Now().After(item.expiresAt) {
		delete(m.items, key)
		return zero, ErrCacheMiss
	}
	return item.value, nil
}

func (m *MemoryCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = cacheItem[T]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *MemoryCache[T]) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

func (m *MemoryCache[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]cacheItem[T])
	return nil
}

func (m *MemoryCache[T]) Health(ctx context.Context) error {
	return nil
}

// GetWithFetch collapses concurrent misses on the same key into one fetch.
func (m *MemoryCache[T]) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context, key string) (T, error),
) (T, error) {
	m.mu.Lock()
	if value, err := m.getLocked(key); err == nil {
		m.mu.Unlock()
		return value, nil
	}
	if call, ok := m.inflight[key]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.value, call.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
	call := &fetchCall[T]{done: make(chan struct{})}
	m.inflight[key] = call
	m.mu.Unlock()

	call.value, call.err = fetchFunc(ctx, key)

	m.mu.Lock()
	delete(m.inflight, key)
	if call.err == nil {
		m.items[key] = cacheItem[T]{value: call.value, expiresAt: time.Now().Add(ttl)}
	}
	m.mu.Unlock()
	close(call.done)

	return call.value, call.err
}
