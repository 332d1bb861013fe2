package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher defines the interface for publishing events to a stream.
type Publisher interface {
	// Publish adds an event to the specified stream.
	// Returns the message ID assigned by Redis.
	Publish(ctx context.Context, stream string, event ViewEvent) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
	origin string
}

// NewPublisher creates a Publisher backed by Redis Streams. origin is stamped
// on every event so the producing instance can recognise its own messages.
func NewPublisher(client *redis.Client, origin string) *RedisPublisher {
	return &RedisPublisher{client: client, origin: origin}
}

// Publish adds an event to the stream using XADD with a length cap.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event ViewEvent) (string, error) {
	startTime := time.Now()

	if event.Origin == "" {
		event.Origin = p.origin
	}
	values, err := event.ToMap()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: StreamViewsMaxLen,
		Values: values,
	}).Result()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	log.Printf("[Publisher] Publish OK: stream=%s type=%s msgID=%s duration=%v",
		stream, event.Type, messageID, time.Since(startTime))
	return messageID, nil
}

// Notify publishes event to StreamViews. Satisfies realtime.Notifier.
func (p *RedisPublisher) Notify(ctx context.Context, event ViewEvent) error {
	_, err := p.Publish(ctx, StreamViews, event)
	return err
}
