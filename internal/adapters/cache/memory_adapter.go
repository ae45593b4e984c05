package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zatekoja/feediq/internal/domain/providers"
)

// DefaultMemoryEntries bounds the in-process cache.
const DefaultMemoryEntries = 10000

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryAdapter is a process-local CacheProvider used when Redis is not
// configured. Entries expire individually; the least recently used entry is
// evicted once the size bound is reached.
type MemoryAdapter struct {
	mu      sync.Mutex
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

var _ providers.CacheProvider = (*MemoryAdapter)(nil)

// NewMemoryAdapter creates a cache holding at most size entries
func NewMemoryAdapter(size int) (*MemoryAdapter, error) {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryAdapter{entries: entries, now: time.Now}, nil
}

func (a *MemoryAdapter) expiry(expirationSeconds int) time.Time {
	if expirationSeconds <= 0 {
		return time.Time{}
	}
	return a.now().Add(time.Duration(expirationSeconds) * time.Second)
}

// lookup must be called with a.mu held
func (a *MemoryAdapter) lookup(key string) (memoryEntry, bool) {
	entry, ok := a.entries.Get(key)
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(a.now()) {
		a.entries.Remove(key)
		return memoryEntry{}, false
	}
	return entry, true
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.lookup(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return append([]byte(nil), entry.value...), nil
}

// Set stores a value in cache with expiration
func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries.Add(key, memoryEntry{value: append([]byte(nil), value...), expiresAt: a.expiry(expirationSeconds)})
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries.Remove(key)
	return nil
}

// Exists checks if a key exists in cache
func (a *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, ok := a.lookup(key)
	return ok, nil
}

// Increment adds one to a counter; the expiry is set only when the counter is created
func (a *MemoryAdapter) Increment(ctx context.Context, key string, expirationSeconds int) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.lookup(key)
	if !ok {
		entry = memoryEntry{value: []byte("0"), expiresAt: a.expiry(expirationSeconds)}
	}
	count, err := strconv.ParseInt(string(entry.value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value at %s is not a counter", key)
	}
	count++
	entry.value = []byte(strconv.FormatInt(count, 10))
	a.entries.Add(key, entry)
	return count, nil
}

// SetNX stores value only when key is absent
func (a *MemoryAdapter) SetNX(ctx context.Context, key string, value []byte, expirationSeconds int) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.lookup(key); ok {
		return false, nil
	}
	a.entries.Add(key, memoryEntry{value: append([]byte(nil), value...), expiresAt: a.expiry(expirationSeconds)})
	return true, nil
}
