package model

import (
	"errors"

	"github.com/google/uuid"
)

// Comment is embedded in a Post in insertion order.
type Comment struct {
	CommentID       string `json:"commentId"`
	AuthorID        string `json:"authorId,omitempty"`
	AuthorNickname  string `json:"authorNickname"`
	CommentText     string `json:"commentText"`
	Timestamp       int64  `json:"timestamp"`
	ReplyToID       string `json:"replyToId,omitempty"`
	ReplyToNickname string `json:"replyToNickname,omitempty"`
}

// NewCommentID returns a time-ordered id with a random tail.
func NewCommentID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "comment_" + uuid.NewString()
	}
	return "comment_" + id.String()
}

// CreateCommentRequest is the request body for a user comment.
type CreateCommentRequest struct {
	Text            string `json:"text"`
	ReplyToID       string `json:"replyToId"`
	ReplyToNickname string `json:"replyToNickname"`
}

// Comment errors
var (
	ErrContentRequired = errors.New("comment content is required")
	ErrNoValidComments = errors.New("AI没有生成有效的评论。")
)
