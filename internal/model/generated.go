package model

import (
	"encoding/json"
	"errors"
)

// HotSearchTags are the labels a trending topic may carry.
var HotSearchTags = []string{"热", "新", "荐"}

// HotSearchItem is a generated trending topic. Never persisted.
type HotSearchItem struct {
	Topic string `json:"topic"`
	Heat  string `json:"heat"`
	Tag   string `json:"tag"`
}

// DisplayTag maps unknown labels to the recommended tag.
func (h HotSearchItem) DisplayTag() string {
	for _, t := range HotSearchTags {
		if h.Tag == t {
			return t
		}
	}
	return "荐"
}

// FeedPost is a generated post shown in the plaza or a topic feed.
type FeedPost struct {
	Author       string        `json:"author"`
	Content      string        `json:"content"`
	Likes        int           `json:"likes"`
	Comments     int           `json:"comments"`
	CommentsList []FeedComment `json:"comments_list"`
}

// FeedComment is a comment inside a FeedPost.
type FeedComment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// GeneratedComment is one entry of a generated comment batch.
type GeneratedComment struct {
	Author  string `json:"author"`
	Comment string `json:"comment"`
	ReplyTo string `json:"replyTo,omitempty"`
}

// GeneratedCharacterPost is the object returned when a character posts.
type GeneratedCharacterPost struct {
	Content           string `json:"content"`
	BaseLikesCount    int    `json:"baseLikesCount"`
	BaseCommentsCount int    `json:"baseCommentsCount"`
	Comments          string `json:"comments"` // "nick: text\n..."
}

// GeneratedCharacterComment is the object returned when a character comments.
type GeneratedCharacterComment struct {
	CommentText string `json:"commentText"`
}

// Targets selects which characters condition a generation task.
// All=true means every non-group character; otherwise IDs lists them.
type Targets struct {
	All bool     `json:"all"`
	IDs []string `json:"ids"`
}

// AllTargets returns the "every character" selector.
func AllTargets() Targets {
	return Targets{All: true}
}

// UnmarshalJSON also accepts the string "all" and a bare id array.
func (t *Targets) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "all" {
			return ErrInvalidTargets
		}
		*t = AllTargets()
		return nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err == nil {
		*t = Targets{IDs: ids}
		return nil
	}

	type plain Targets
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Targets(p)
	return nil
}

// ActionType is a character action kind.
type ActionType string

const (
	ActionPost         ActionType = "post"
	ActionCommentPlaza ActionType = "comment_plaza"
	ActionCommentUser  ActionType = "comment_user"
)

// ActionRequest asks a character or NPC to act on the microblog.
type ActionRequest struct {
	Type     ActionType `json:"type"`
	TargetID string     `json:"targetId"`
	IsNPC    bool       `json:"isNpc"`
	OwnerID  string     `json:"ownerId"`
	Hint     string     `json:"hint"`
}

// GenerateRequest is the body shared by hot-search and plaza generation.
type GenerateRequest struct {
	Targets   Targets         `json:"targets"`
	HotTopics []HotSearchItem `json:"hotTopics"`
}

// HotSearchResult bundles the trending list with the plaza generated for it.
type HotSearchResult struct {
	HotSearches []HotSearchItem `json:"hotSearches"`
	Plaza       []FeedPost      `json:"plaza"`
	PlazaError  string          `json:"plazaError,omitempty"`
}

// Generation errors
var (
	ErrConfigMissing  = errors.New("请先配置API！")
	ErrInvalidTargets = errors.New("no characters selected")
	ErrInvalidAction  = errors.New("unknown action type")
	ErrNoPlazaPost    = errors.New("广场上还没有任何微博可以评论！")
	ErrNoUserPost     = errors.New("用户还没有发布任何微博，无法评论！")
	ErrTopicRequired  = errors.New("topic is required")
	ErrNoValidContent = errors.New("AI没有生成有效的内容。")
)

// GenerateCommentsResult reports a comment batch merged into a post.
// Post is nil when the post vanished before the merge.
type GenerateCommentsResult struct {
	Post  *PostView `json:"post"`
	Added int       `json:"added"`
}
