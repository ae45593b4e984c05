package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/feediq/internal/analytics"
)

// DashboardRefresher recomputes and caches the dashboard bundle
type DashboardRefresher interface {
	RefreshDashboard(ctx context.Context) (analytics.Bundle, error)
}

// CacheWarmingService keeps the dashboard bundle in cache so readers rarely
// pay for a full recompute.
type CacheWarmingService struct {
	refresher DashboardRefresher
	wg        sync.WaitGroup
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(refresher DashboardRefresher) *CacheWarmingService {
	return &CacheWarmingService{refresher: refresher}
}

// WarmCache recomputes the dashboard once
func (s *CacheWarmingService) WarmCache(ctx context.Context) error {
	start := time.Now()
	bundle, err := s.refresher.RefreshDashboard(ctx)
	if err != nil {
		return err
	}
	log.Ctx(ctx).Debug().
		Int("total", bundle.Total).
		Dur("elapsed", time.Since(start)).
		Msg("dashboard cache warmed")
	return nil
}

// StartPeriodicWarming warms once, then every interval until ctx is done.
// Wait blocks until the loop has exited.
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	if err := s.WarmCache(ctx); err != nil {
		log.Warn().Err(err).Msg("initial dashboard warming failed")
	}

	ticker := time.NewTicker(interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stopping dashboard warming")
				return
			case <-ticker.C:
				if err := s.WarmCache(ctx); err != nil {
					log.Warn().Err(err).Msg("periodic dashboard warming failed")
				}
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("started periodic dashboard warming")
}

// Wait blocks until the warming loop exits
func (s *CacheWarmingService) Wait() {
	s.wg.Wait()
}
