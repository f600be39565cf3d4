package cache

import (
	"context"
	"time"
)

const (
	listenerPositiveTTL = 60 * time.Minute
	listenerNegativeTTL = 2 * time.Second
)

// ListenerCache answers whether a frontend mock listener is currently
// attached for a node setup version, backed by Redis with a positive TTL
// long enough to cover a typical edit session and a short negative TTL so
// a listener that just attached is picked up almost immediately rather
// than waiting out the positive window.
type ListenerCache struct {
	redis *RedisCache
}

// NewListenerCache wraps a RedisCache as the execution.ListenerCache port.
func NewListenerCache(redis *RedisCache) *ListenerCache {
	return &ListenerCache{redis: redis}
}

func listenerCacheKey(nodeSetupVersionID, requiredStage string) string {
	return "listener:" + nodeSetupVersionID + "@" + requiredStage
}

// SetListener records that a mock listener attached for this node setup
// version/stage, valid for listenerPositiveTTL.
func (c *ListenerCache) SetListener(ctx context.Context, nodeSetupVersionID, stage string) error {
	return c.redis.Set(ctx, listenerCacheKey(nodeSetupVersionID, stage), true, listenerPositiveTTL)
}

// HasListener reports whether a listener is currently attached. A miss
// writes a ":miss" marker key that expires after listenerNegativeTTL;
// HasListener does not read that marker, so every call queries Redis for
// the positive key and a listener that attaches is seen on the next call.
func (c *ListenerCache) HasListener(ctx context.Context, nodeSetupVersionID, requiredStage string) bool {
	exists, err := c.redis.Exists(ctx, listenerCacheKey(nodeSetupVersionID, requiredStage))
	if err != nil {
		return false
	}
	if !exists {
		_ = c.redis.Set(ctx, listenerCacheKey(nodeSetupVersionID, requiredStage)+":miss", true, listenerNegativeTTL)
	}
	return exists
}

// ClearListeners removes every recorded listener for a node setup version
// across stages.
func (c *ListenerCache) ClearListeners(ctx context.Context, nodeSetupVersionID string) error {
	for _, stage := range []string{"mock", "real"} {
		if err := c.redis.Delete(ctx, listenerCacheKey(nodeSetupVersionID, stage)); err != nil {
			return err
		}
	}
	return nil
}
