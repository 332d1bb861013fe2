package cache

import (
	"context"
	"log"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"weibosim/internal/model"
)

// DefaultFeedCacheSize is the number of entries kept in memory.
const DefaultFeedCacheSize = 256

var _ FeedCache = (*MemoryFeedCache)(nil)

// MemoryFeedCache implements FeedCache with a size- and age-bounded LRU.
type MemoryFeedCache struct {
	lru *expirable.LRU[string, any]
}

// NewMemoryFeedCache creates an in-process FeedCache.
func NewMemoryFeedCache(size int, ttl time.Duration) *MemoryFeedCache {
	if size <= 0 {
		size = DefaultFeedCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultFeedCacheTTL
	}
	return &MemoryFeedCache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

// Len returns the number of live entries.
func (c *MemoryFeedCache) Len() int {
	return c.lru.Len()
}

func (c *MemoryFeedCache) GetTopicFeed(_ context.Context, topic string) ([]model.FeedPost, bool, error) {
	return getTyped[[]model.FeedPost](c, topicKeyPrefix+topic)
}

func (c *MemoryFeedCache) SetTopicFeed(_ context.Context, topic string, posts []model.FeedPost) error {
	c.lru.Add(topicKeyPrefix+topic, slices.Clone(posts))
	return nil
}

func (c *MemoryFeedCache) GetHotSearch(_ context.Context) ([]model.HotSearchItem, bool, error) {
	return getTyped[[]model.HotSearchItem](c, hotSearchKey)
}

func (c *MemoryFeedCache) SetHotSearch(_ context.Context, items []model.HotSearchItem) error {
	c.lru.Add(hotSearchKey, slices.Clone(items))
	return nil
}

func (c *MemoryFeedCache) GetPlaza(_ context.Context) ([]model.FeedPost, bool, error) {
	return getTyped[[]model.FeedPost](c, plazaKey)
}

func (c *MemoryFeedCache) SetPlaza(_ context.Context, posts []model.FeedPost) error {
	c.lru.Add(plazaKey, slices.Clone(posts))
	return nil
}

func getTyped[T ~[]E, E any](c *MemoryFeedCache, key string) (T, bool, error) {
	v, ok := c.lru.Get(key)
	if !ok {
		log.Printf("[FeedCache] Get: key=%s NOT_FOUND", key)
		return nil, false, nil
	}
	typed, ok := v.(T)
	if !ok {
		log.Printf("[FeedCache] Get type mismatch: key=%s", key)
		return nil, false, nil
	}
	return slices.Clone(typed), true, nil
}
