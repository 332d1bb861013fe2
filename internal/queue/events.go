package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// View-change event types. Each names a set of views that must be re-read.
const (
	EventPostsChanged     = "posts_changed"
	EventDmsChanged       = "dms_changed"
	EventUserDmsChanged   = "user_dms_changed"
	EventHotSearchChanged = "hot_search_changed"
	EventPlazaChanged     = "plaza_changed"
	EventProfileChanged   = "profile_changed"
)

// Stream names
const (
	StreamViews = "stream:weibo:views"
)

// StreamViewsMaxLen caps the stream; view events are only useful while fresh.
const StreamViewsMaxLen = 1000

// ViewEvent tells presenters that data behind a view changed. It carries only
// coarse scope: listeners re-read everything downstream of Type.
type ViewEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // unix millis

	PostID      int64  `json:"post_id,omitempty"`
	CharacterID string `json:"character_id,omitempty"`
	Topic       string `json:"topic,omitempty"`

	// Origin is the instance that produced the event.
	Origin string `json:"origin,omitempty"`
}

// NewViewEvent creates an event of the given type stamped with the current time.
func NewViewEvent(eventType string) ViewEvent {
	return ViewEvent{Type: eventType, Timestamp: time.Now().UnixMilli()}
}

// NewPostsChangedEvent is emitted after any post, comment or like mutation.
func NewPostsChangedEvent(postID int64) ViewEvent {
	e := NewViewEvent(EventPostsChanged)
	e.PostID = postID
	return e
}

// NewDmsChangedEvent is emitted after a character's fan threads change.
func NewDmsChangedEvent(characterID string) ViewEvent {
	e := NewViewEvent(EventDmsChanged)
	e.CharacterID = characterID
	return e
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e ViewEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseViewEvent parses a ViewEvent from Redis stream message values.
func ParseViewEvent(values map[string]interface{}) (ViewEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return ViewEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event ViewEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return ViewEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Type == "" {
		return ViewEvent{}, fmt.Errorf("event without type")
	}
	return event, nil
}
