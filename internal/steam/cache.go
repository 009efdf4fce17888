package steam

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"arcana_bot/internal/metrics"
)

// DefaultCacheSize bounds each lookup cache.
const DefaultCacheSize = 500

// DetailFetcher fetches app details.
type DetailFetcher interface {
	AppDetails(ctx context.Context, appID int64) (Detail, error)
}

// FollowerFetcher fetches follower counts.
type FollowerFetcher interface {
	Followers(ctx context.Context, appID int64) (int, error)
}

// CachedDetails memoizes successful detail lookups. Lookups that fail with an
// error are not cached and will be retried on the next call.
type CachedDetails struct {
	next  DetailFetcher
	cache *lru.Cache[int64, Detail]
}

// NewCachedDetails wraps next with an LRU of the given size.
func NewCachedDetails(next DetailFetcher, size int) (*CachedDetails, error) {
	c, err := lru.New[int64, Detail](size)
	if err != nil {
		return nil, fmt.Errorf("create detail cache: %w", err)
	}
	return &CachedDetails{next: next, cache: c}, nil
}

// AppDetails returns the cached detail or fetches it.
func (c *CachedDetails) AppDetails(ctx context.Context, appID int64) (Detail, error) {
	if d, ok := c.cache.Get(appID); ok {
		metrics.CacheLookupsTotal.WithLabelValues("details", "hit").Inc()
		return d, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("details", "miss").Inc()

	d, err := c.next.AppDetails(ctx, appID)
	if err != nil {
		return Detail{}, err
	}
	c.cache.Add(appID, d)
	return d, nil
}

// CachedFollowers memoizes successful follower lookups.
type CachedFollowers struct {
	next  FollowerFetcher
	cache *lru.Cache[int64, int]
}

// NewCachedFollowers wraps next with an LRU of the given size.
func NewCachedFollowers(next FollowerFetcher, size int) (*CachedFollowers, error) {
	c, err := lru.New[int64, int](size)
	if err != nil {
		return nil, fmt.Errorf("create follower cache: %w", err)
	}
	return &CachedFollowers{next: next, cache: c}, nil
}

// Followers returns the cached follower count or fetches it.
func (c *CachedFollowers) Followers(ctx context.Context, appID int64) (int, error) {
	if n, ok := c.cache.Get(appID); ok {
		metrics.CacheLookupsTotal.WithLabelValues("followers", "hit").Inc()
		return n, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("followers", "miss").Inc()

	n, err := c.next.Followers(ctx, appID)
	if err != nil {
		return 0, err
	}
	c.cache.Add(appID, n)
	return n, nil
}
