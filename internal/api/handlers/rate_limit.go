package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/feediq/internal/adapters/cache"
	"github.com/zatekoja/feediq/internal/domain/providers"
)

// rateLimiter counts requests per client in fixed windows kept in a CacheProvider
type rateLimiter struct {
	cache  providers.CacheProvider
	prefix string
	limit  int64
	window time.Duration
}

// allow reports whether client may make another request. Cache failures fail open.
func (l rateLimiter) allow(ctx context.Context, client string) bool {
	count, err := l.cache.Increment(ctx, l.prefix+client, int(l.window.Seconds()))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("prefix", l.prefix).Msg("rate limit check failed")
		return true
	}
	return count <= l.limit
}

// reject writes the 429 response
func (l rateLimiter) reject(w http.ResponseWriter) {
	w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
	respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

// localCache is the process-local fallback when no shared cache is configured
func localCache() providers.CacheProvider {
	local, err := cache.NewMemoryAdapter(cache.DefaultMemoryEntries)
	if err != nil {
		panic(err)
	}
	return local
}
