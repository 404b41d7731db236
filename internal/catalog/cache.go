package catalog

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"github.com/supplyhub/marketplace-backend/pkg/redis"
)

const (
	defaultListingCacheTTL = 5 * time.Minute
	catalogVersionCounter  = "catalog_version"
)

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	CacheKey(parts ...string) string
	CounterKey(name string) string
}

// ListingCache is a read-through cache for listing queries. Keys embed a
// catalog version counter, so bumping the counter drops every cached page.
// A nil cache is valid and never hits.
type ListingCache struct {
	store cacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewListingCache builds a cache over the redis client.
func NewListingCache(store cacheStore, ttl time.Duration, logg *logger.Logger) *ListingCache {
	if store == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultListingCacheTTL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &ListingCache{store: store, ttl: ttl, logg: logg}
}

// Load returns the cached listings for the filter.
func (c *ListingCache) Load(ctx context.Context, filter ListingFilter) ([]ListingDTO, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.store.Get(ctx, c.key(ctx, filter))
	if err != nil {
		if !redis.IsMiss(err) {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "listing cache read failed")
		}
		return nil, false
	}
	var listings []ListingDTO
	if err := json.Unmarshal([]byte(raw), &listings); err != nil {
		return nil, false
	}
	return listings, true
}

// Store caches listings for the filter; failures are logged and ignored.
func (c *ListingCache) Store(ctx context.Context, filter ListingFilter, listings []ListingDTO) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(listings)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, c.key(ctx, filter), payload, c.ttl); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "listing cache write failed")
	}
}

// Invalidate bumps the catalog version.
func (c *ListingCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if _, err := c.store.Incr(ctx, c.store.CounterKey(catalogVersionCounter)); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "listing cache invalidation failed")
	}
}

func (c *ListingCache) key(ctx context.Context, filter ListingFilter) string {
	version, err := c.store.Get(ctx, c.store.CounterKey(catalogVersionCounter))
	if err != nil {
		version = "0"
	}
	return c.store.CacheKey("listings", "v"+version, "shop", optionalID(filter.ShopID), "category", optionalID(filter.CategoryID))
}

func optionalID(id *int64) string {
	if id == nil {
		return "all"
	}
	return strconv.FormatInt(*id, 10)
}
