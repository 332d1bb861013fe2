package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"weibosim/internal/model"
)

const (
	// FeedCachePrefix is the key prefix for generated feed caches
	FeedCachePrefix = "weibo:"

	// DefaultFeedCacheTTL bounds how long generated content is reused
	DefaultFeedCacheTTL = 6 * time.Hour
)

// Cache keys
const (
	topicKeyPrefix = "topic:"
	hotSearchKey   = "hot_search"
	plazaKey       = "plaza"
)

// FeedCache holds generated, non-persisted content so revisiting a topic
// does not call the completion provider again.
// Get methods return (value, found, error); a miss is not an error.
type FeedCache interface {
	GetTopicFeed(ctx context.Context, topic string) ([]model.FeedPost, bool, error)
	SetTopicFeed(ctx context.Context, topic string, posts []model.FeedPost) error

	GetHotSearch(ctx context.Context) ([]model.HotSearchItem, bool, error)
	SetHotSearch(ctx context.Context, items []model.HotSearchItem) error

	GetPlaza(ctx context.Context) ([]model.FeedPost, bool, error)
	SetPlaza(ctx context.Context, posts []model.FeedPost) error
}

// RedisFeedCache implements FeedCache with JSON values and a TTL per key.
type RedisFeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFeedCache creates a FeedCache backed by Redis.
func NewRedisFeedCache(client *redis.Client, ttl time.Duration) FeedCache {
	if ttl <= 0 {
		ttl = DefaultFeedCacheTTL
	}
	return &RedisFeedCache{client: client, ttl: ttl}
}

func redisKey(key string) string {
	return FeedCachePrefix + key
}

func (c *RedisFeedCache) get(ctx context.Context, key string, dst interface{}) (bool, error) {
	startTime := time.Now()

	data, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		log.Printf("[FeedCache] Get: key=%s NOT_FOUND", key)
		return false, nil
	}
	if err != nil {
		log.Printf("[FeedCache] Get FAILED: key=%s err=%v", key, err)
		return false, fmt.Errorf("get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		log.Printf("[FeedCache] Get decode error: key=%s err=%v", key, err)
		return false, fmt.Errorf("decode %s: %w", key, err)
	}

	log.Printf("[FeedCache] Get OK: key=%s bytes=%d duration=%v", key, len(data), time.Since(startTime))
	return true, nil
}

// set writes the value with a fresh TTL.
func (c *RedisFeedCache) set(ctx context.Context, key string, value interface{}) error {
	startTime := time.Now()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if err := c.client.Set(ctx, redisKey(key), data, c.ttl).Err(); err != nil {
		log.Printf("[FeedCache] Set FAILED: key=%s err=%v", key, err)
		return fmt.Errorf("set %s: %w", key, err)
	}

	log.Printf("[FeedCache] Set OK: key=%s bytes=%d ttl=%v duration=%v",
		key, len(data), c.ttl, time.Since(startTime))
	return nil
}

// GetTopicFeed returns the cached feed for a hot-search topic.
func (c *RedisFeedCache) GetTopicFeed(ctx context.Context, topic string) ([]model.FeedPost, bool, error) {
	var posts []model.FeedPost
	found, err := c.get(ctx, topicKeyPrefix+topic, &posts)
	return posts, found, err
}

// SetTopicFeed caches the feed for a hot-search topic.
func (c *RedisFeedCache) SetTopicFeed(ctx context.Context, topic string, posts []model.FeedPost) error {
	return c.set(ctx, topicKeyPrefix+topic, posts)
}

// GetHotSearch returns the last generated trending list.
func (c *RedisFeedCache) GetHotSearch(ctx context.Context) ([]model.HotSearchItem, bool, error) {
	var items []model.HotSearchItem
	found, err := c.get(ctx, hotSearchKey, &items)
	return items, found, err
}

// SetHotSearch caches the trending list.
func (c *RedisFeedCache) SetHotSearch(ctx context.Context, items []model.HotSearchItem) error {
	return c.set(ctx, hotSearchKey, items)
}

// GetPlaza returns the last generated plaza feed.
func (c *RedisFeedCache) GetPlaza(ctx context.Context) ([]model.FeedPost, bool, error) {
	var posts []model.FeedPost
	found, err := c.get(ctx, plazaKey, &posts)
	return posts, found, err
}

// SetPlaza caches the plaza feed.
func (c *RedisFeedCache) SetPlaza(ctx context.Context, posts []model.FeedPost) error {
	return c.set(ctx, plazaKey, posts)
}
