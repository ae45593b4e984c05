package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/feediq/internal/adapters/events"
	"github.com/zatekoja/feediq/internal/application/services"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/providers"
	"go.uber.org/goleak"
)

// MockCacheProvider is a map-backed CacheProvider that records deletions
type MockCacheProvider struct {
	mu      sync.RWMutex
	data    map[string][]byte
	deleted []string
}

func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{data: make(map[string][]byte)}
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return nil, providers.ErrCacheMiss
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockCacheProvider) Increment(ctx context.Context, key string, expirationSeconds int) (int64, error) {
	return 1, nil
}

func (m *MockCacheProvider) SetNX(ctx context.Context, key string, value []byte, expirationSeconds int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *MockCacheProvider) DeletedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.deleted)
}

func TestCacheInvalidationService_HandleEvent(t *testing.T) {
	defer goleak.VerifyNone(t)

	cache := NewMockCacheProvider()
	bus := events.NewLocalEventBus()
	defer bus.Close()

	service := services.NewCacheInvalidationService(cache, bus)
	require.NoError(t, service.Start())
	defer service.Stop()

	require.NoError(t, cache.Set(context.Background(), providers.CacheKeyDashboard, []byte("{}"), 30))

	event := entities.NewFeedbackCreatedEvent(&entities.Feedback{ID: "fb-1", Rating: 4})
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelFeedbackCreated, event))

	assert.Eventually(t, func() bool {
		exists, _ := cache.Exists(context.Background(), providers.CacheKeyDashboard)
		return !exists
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCacheInvalidationService_StopsWhenBusCloses(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := events.NewLocalEventBus()
	service := services.NewCacheInvalidationService(NewMockCacheProvider(), bus)
	require.NoError(t, service.Start())

	require.NoError(t, bus.Close())
	service.Stop()
}

func TestCacheInvalidationService_StartFailsOnClosedBus(t *testing.T) {
	bus := events.NewLocalEventBus()
	require.NoError(t, bus.Close())

	service := services.NewCacheInvalidationService(NewMockCacheProvider(), bus)
	assert.Error(t, service.Start())
	service.Stop()
}

func TestCacheInvalidationService_InvalidateDashboard(t *testing.T) {
	cache := NewMockCacheProvider()
	service := services.NewCacheInvalidationService(cache, events.NewLocalEventBus())

	require.NoError(t, service.InvalidateDashboard(context.Background()))
	assert.Equal(t, 1, cache.DeletedCount())
}
