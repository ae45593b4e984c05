package providers

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider defines the interface for caching operations
type CacheProvider interface {
	// Get retrieves a value from cache, returning ErrCacheMiss for unknown keys
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)

	// Increment adds one to a counter, starting its expiration window on first use
	Increment(ctx context.Context, key string, expirationSeconds int) (int64, error)

	// SetNX stores value only when key is absent and reports whether it did
	SetNX(ctx context.Context, key string, value []byte, expirationSeconds int) (bool, error)
}

// Cache keys shared between the services and handlers
const (
	CacheKeyDashboard          = "feediq:dashboard"
	CacheKeyFeedbackRatePrefix = "feedback:rate:"
	CacheKeyFeedbackDupPrefix  = "feedback:dup:"
	CacheKeyIntakeRatePrefix   = "intake:rate:"
)
