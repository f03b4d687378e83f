// Package cache keeps the product catalog in Redis so every chat opening an order
// screen does not hit the API for categories and products.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"kafe-pos/metrics"
	"kafe-pos/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	keyCategories     = "kafe-pos:catalog:categories"
	keyProductsAll    = "kafe-pos:catalog:products:all"
	keyProductsActive = "kafe-pos:catalog:products:active"

	defaultTTL = time.Minute
)

// Source is where catalog data really comes from.
type Source interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
}

// Catalog is a shared Redis cache. It is safe to call with a nil *Catalog or a nil
// Redis client; the cache is then skipped.
type Catalog struct {
	redis *redis.Client
	ttl   time.Duration
	log   *logrus.Entry
}

func NewCatalog(client *redis.Client, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Catalog{redis: client, ttl: ttl, log: logrus.WithField("component", "catalog-cache")}
}

func (c *Catalog) enabled() bool { return c != nil && c.redis != nil }

// For binds the cache to one chat's API connection.
func (c *Catalog) For(src Source) *CachedSource {
	return &CachedSource{cache: c, src: src}
}

// CachedSource reads through the cache and falls back to its source on any Redis error.
type CachedSource struct {
	cache *Catalog
	src   Source
}

func (s *CachedSource) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if s.cache.get(ctx, keyCategories, &out) {
		return out, nil
	}
	out, err := s.src.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, keyCategories, out)
	return out, nil
}

func (s *CachedSource) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	key := keyProductsAll
	if f.ActiveOnly {
		key = keyProductsActive
	}
	var out []models.Product
	if s.cache.get(ctx, key, &out) {
		return out, nil
	}
	out, err := s.src.ListProducts(ctx, f)
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, key, out)
	return out, nil
}

func (c *Catalog) get(ctx context.Context, key string, out interface{}) bool {
	if !c.enabled() {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(data, out); err != nil {
			c.log.WithError(err).WithField("key", key).Warn("bad cached catalog entry, continuing with API")
			metrics.RecordCatalogCache(false)
			return false
		}
		metrics.RecordCatalogCache(true)
		return true
	case errors.Is(err, redis.Nil):
	default:
		c.log.WithError(err).Debug("redis error, continuing with API")
	}
	metrics.RecordCatalogCache(false)
	return false
}

func (c *Catalog) set(ctx context.Context, key string, v interface{}) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.log.WithError(err).Warn("failed to marshal catalog")
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Debug("failed to cache catalog")
	}
}

// Invalidate drops every cached catalog key. Admin writes call it.
func (c *Catalog) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.redis.Del(ctx, keyCategories, keyProductsAll, keyProductsActive).Err()
}

// Ping checks the Redis connection at startup.
func (c *Catalog) Ping(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

func (c *Catalog) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.redis.Close()
}
