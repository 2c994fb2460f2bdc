package lark

import (
	"context"
	"sync"
	"time"
)

// RefreshFunc fetches a fresh token and its lifetime.
type RefreshFunc func(ctx context.Context) (string, time.Duration, error)

const (
	// defaultMargin renews tokens this long before they expire. Short-lived
	// tokens are renewed at half their lifetime instead.
	defaultMargin = 5 * time.Minute

	// fallbackTTL stands in for a missing or non-positive lifetime.
	fallbackTTL = 30 * time.Minute
)

// TokenCache holds one tenant access token and refreshes it on expiry.
// It is safe for concurrent use; concurrent callers share one refresh.
type TokenCache struct {
	mu      sync.Mutex
	value   string
	renewAt time.Time
	refresh RefreshFunc
	margin  time.Duration
	now     func() time.Time
}

// NewTokenCache returns an empty cache backed by refresh.
func NewTokenCache(refresh RefreshFunc) *TokenCache {
	return &TokenCache{
		refresh: refresh,
		margin:  defaultMargin,
		now:     time.Now,
	}
}

// Token returns the cached token, refreshing it when it is missing or
// within the renewal margin of its expiry.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.value != "" && c.now().Before(c.renewAt) {
		return c.value, nil
	}

	value, ttl, err := c.refresh(ctx)
	if err != nil {
		return "", err
	}
	c.value = value
	c.renewAt = c.now().Add(c.lifetime(ttl))
	return c.value, nil
}

// lifetime is how long a token issued with ttl is served from the cache.
func (c *TokenCache) lifetime(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = fallbackTTL
	}
	return ttl - min(c.margin, ttl/2)
}

// Invalidate drops the cached token so the next call refreshes.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = ""
	c.renewAt = time.Time{}
}
