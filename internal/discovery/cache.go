package discovery

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/sells-group/dealscout/internal/model"
)

// CachedFinder memoizes FetchOffers results by product string for the
// process lifetime, bounded by size and TTL. Memoization is an optional
// optimization, not a correctness requirement; it is only wired in when
// enabled in config.
type CachedFinder struct {
	inner Finder
	cache *lru.LRU[string, []model.Offer]
}

// NewCachedFinder wraps inner with an expirable LRU of the given size/TTL.
func NewCachedFinder(inner Finder, size int, ttl time.Duration) *CachedFinder {
	if size <= 0 {
		size = 128
	}
	return &CachedFinder{
		inner: inner,
		cache: lru.NewLRU[string, []model.Offer](size, nil, ttl),
	}
}

// FetchOffers returns cached offers when available, otherwise delegates and
// caches the successful result. Errors are never cached.
func (c *CachedFinder) FetchOffers(ctx context.Context, product string) ([]model.Offer, error) {
	key := strings.ToLower(strings.TrimSpace(product))

	if offers, ok := c.cache.Get(key); ok {
		zap.L().Debug("discovery: cache hit", zap.String("product", key))
		return offers, nil
	}

	offers, err := c.inner.FetchOffers(ctx, product)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, offers)
	return offers, nil
}
