package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zatekoja/feediq/internal/adapters/storage"
	"github.com/zatekoja/feediq/internal/analytics"
	"github.com/zatekoja/feediq/internal/application/services"
	"github.com/zatekoja/feediq/internal/domain/providers"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) RefreshDashboard(ctx context.Context) (analytics.Bundle, error) {
	r.calls.Add(1)
	return analytics.Bundle{}, r.err
}

func TestCacheWarmingService_WarmCache(t *testing.T) {
	store := storage.NewMemoryStore()
	cache := NewMockCacheProvider()
	feedback := services.NewFeedbackService(store)
	feedback.SetCache(cache, 60)

	_, err := feedback.Append(context.Background(), validDraft(4))
	require.NoError(t, err)

	warming := services.NewCacheWarmingService(feedback)
	require.NoError(t, warming.WarmCache(context.Background()))

	exists, err := cache.Exists(context.Background(), providers.CacheKeyDashboard)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCacheWarmingService_Periodic(t *testing.T) {
	defer goleak.VerifyNone(t)

	refresher := &countingRefresher{err: errors.New("store offline")}
	warming := services.NewCacheWarmingService(refresher)

	ctx, cancel := context.WithCancel(context.Background())
	warming.StartPeriodicWarming(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return refresher.calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	warming.Wait()
}
