// Package cache adds a Redis read-aside layer in front of the token
// store so hot fan-out paths avoid repeated Firestore reads.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/floatit/go-push-service/pkg/dispatch"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or a specific error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// CachedTokenStore is a decorator that adds read-aside caching to any
// TokenStore.
type CachedTokenStore struct {
	realStore dispatch.TokenStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedTokenStore(realStore dispatch.TokenStore, cache CacheClient, ttl time.Duration) *CachedTokenStore {
	return &CachedTokenStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

// ListTokens serves from cache when possible and falls back to the
// real store. Cache population is fire-and-forget: if Redis is down we
// just serve from the store.
func (s *CachedTokenStore) ListTokens(ctx context.Context, ownerID string) ([]string, error) {
	key := s.cacheKey(ownerID)

	var cached []string
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	fresh, err := s.realStore.ListTokens(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, fresh, s.ttl)
	return fresh, nil
}

// DeleteToken writes through to the source of truth, then invalidates.
// Even if the store delete succeeds, the cache MUST be cleared so the
// pruned token stops receiving notifications immediately.
func (s *CachedTokenStore) DeleteToken(ctx context.Context, ownerID, token string) error {
	if err := s.realStore.DeleteToken(ctx, ownerID, token); err != nil {
		return err
	}
	return s.cache.Del(ctx, s.cacheKey(ownerID))
}

// ListOwners is a passthrough; the owner enumeration backs only the
// rare global fan-out and is not worth caching.
func (s *CachedTokenStore) ListOwners(ctx context.Context) ([]string, error) {
	return s.realStore.ListOwners(ctx)
}

func (s *CachedTokenStore) cacheKey(ownerID string) string {
	return fmt.Sprintf("notify:tokens:%s", ownerID)
}
