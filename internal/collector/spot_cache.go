package collector

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type cachedSpot struct {
	price     decimal.Decimal
	expiresAt time.Time
}

// CachedSpotFetcher keeps spot prices for a short TTL so frequent refreshes
// do not hit the ticker endpoint on every call.
type CachedSpotFetcher struct {
	inner SpotFetcher
	ttl   time.Duration
	now   func() time.Time

	mu     sync.RWMutex
	prices map[string]cachedSpot
}

// NewCachedSpotFetcher wraps inner. A non-positive ttl disables caching.
func NewCachedSpotFetcher(inner SpotFetcher, ttl time.Duration) *CachedSpotFetcher {
	return &CachedSpotFetcher{
		inner:  inner,
		ttl:    ttl,
		now:    time.Now,
		prices: make(map[string]cachedSpot),
	}
}

func (c *CachedSpotFetcher) FetchSpot(ctx context.Context, pair string) (decimal.Decimal, error) {
	if c.ttl <= 0 {
		return c.inner.FetchSpot(ctx, pair)
	}

	c.mu.RLock()
	cached, ok := c.prices[pair]
	c.mu.RUnlock()
	if ok && c.now().Before(cached.expiresAt) {
		return cached.price, nil
	}

	price, err := c.inner.FetchSpot(ctx, pair)
	if err != nil {
		return decimal.Zero, err
	}

	c.mu.Lock()
	c.prices[pair] = cachedSpot{price: price, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return price, nil
}
